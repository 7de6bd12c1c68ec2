package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/jpequegn/kyua/internal/config"
	"github.com/jpequegn/kyua/internal/executor"
	"github.com/jpequegn/kyua/internal/model"
	"github.com/jpequegn/kyua/internal/store"
)

func writeScript(t *testing.T, dir, name string, exitCode int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	contents := fmt.Sprintf("#!/bin/sh\nexit %d\n", exitCode)
	if err := os.WriteFile(path, []byte(contents), 0755); err != nil {
		t.Fatalf("write script %s: %v", name, err)
	}
	return path
}

func TestDriveRunsEveryCaseAndPersistsResults(t *testing.T) {
	root := t.TempDir()

	var programs []*model.TestProgram
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("prog%d", i)
		writeScript(t, root, name, i%2) // prog0, prog2 pass; prog1 fails
		programs = append(programs, &model.TestProgram{
			Interface:    model.Plain,
			RelativePath: name,
			Root:         root,
			Suite:        "s",
			Cases: map[string]model.TestCase{
				"main": {Name: "main", Metadata: model.NewMetadata()},
			},
		})
	}

	ex, err := executor.Setup(context.Background(), executor.Config{RootDir: t.TempDir()})
	if err != nil {
		t.Fatalf("executor.Setup: %v", err)
	}
	defer ex.Shutdown()

	st, err := store.Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	v := viper.New()
	v.Set("parallelism", 2)
	cfg := config.Load(v)

	scn := NewProgramScanner(programs, nil)

	var gotCases, gotResults int
	hooks := Hooks{
		GotTestCase: func(prog *model.TestProgram, caseName string) { gotCases++ },
		GotResult: func(prog *model.TestProgram, caseName string, result model.TestResult, d time.Duration) {
			gotResults++
		},
	}

	result, err := Drive(context.Background(), scn, ex, st, cfg, hooks)
	if err != nil {
		t.Fatalf("Drive: %v", err)
	}

	if gotCases != 3 {
		t.Errorf("expected 3 got_test_case callbacks, got %d", gotCases)
	}
	if gotResults != 3 {
		t.Errorf("expected 3 got_result callbacks, got %d", gotResults)
	}
	if result.Counts[model.Passed] != 2 {
		t.Errorf("expected 2 passed, got %d", result.Counts[model.Passed])
	}
	if result.Counts[model.Failed] != 1 {
		t.Errorf("expected 1 failed, got %d", result.Counts[model.Failed])
	}

	it, err := st.Results()
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	defer it.Close()

	count := 0
	var row store.ResultRow
	for it.Next(&row) {
		count++
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iterator error: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 stored results, got %d", count)
	}
}

func TestDriveHonorsFilters(t *testing.T) {
	root := t.TempDir()
	writeScript(t, root, "progA", 0)
	writeScript(t, root, "progB", 0)

	programs := []*model.TestProgram{
		{Interface: model.Plain, RelativePath: "progA", Root: root, Suite: "s",
			Cases: map[string]model.TestCase{"main": {Name: "main", Metadata: model.NewMetadata()}}},
		{Interface: model.Plain, RelativePath: "progB", Root: root, Suite: "s",
			Cases: map[string]model.TestCase{"main": {Name: "main", Metadata: model.NewMetadata()}}},
	}

	ex, err := executor.Setup(context.Background(), executor.Config{RootDir: t.TempDir()})
	if err != nil {
		t.Fatalf("executor.Setup: %v", err)
	}
	defer ex.Shutdown()

	st, err := store.Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	cfg := config.Load(viper.New())
	scn := NewProgramScanner(programs, []string{"progA:main", "progC:main"})

	result, err := Drive(context.Background(), scn, ex, st, cfg, Hooks{})
	if err != nil {
		t.Fatalf("Drive: %v", err)
	}

	if result.Counts[model.Passed] != 1 {
		t.Errorf("expected only progA:main to run, got counts %+v", result.Counts)
	}
	if len(result.UnusedFilters) != 1 || result.UnusedFilters[0] != "progC:main" {
		t.Errorf("expected progC:main reported unused, got %v", result.UnusedFilters)
	}
}
