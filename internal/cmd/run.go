package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jpequegn/kyua/internal/config"
	"github.com/jpequegn/kyua/internal/executor"
	"github.com/jpequegn/kyua/internal/kyuafile"
	"github.com/jpequegn/kyua/internal/model"
	"github.com/jpequegn/kyua/internal/scheduler"
	"github.com/jpequegn/kyua/internal/store"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [filter...]",
	Short: "Run the test cases described by a Kyuafile",
	Long: `Loads the Kyuafile, lists every test program's cases, runs them
under the configured parallelism, and records outcomes in the results
store.

Example:
  kyua run --kyuafile=Kyuafile --build-root=. --store=results.db
  kyua run --kyuafile=Kyuafile --build-root=. --store=results.db dir/prog:case1`,
	RunE: runTests,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("kyuafile", "Kyuafile", "path to the Kyuafile")
	runCmd.Flags().String("build-root", ".", "root directory test program paths are relative to")
	runCmd.Flags().String("store", "results.db", "path to the results store")
}

func runTests(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kyuafilePath, _ := cmd.Flags().GetString("kyuafile")
	buildRoot, _ := cmd.Flags().GetString("build-root")
	storePath, _ := cmd.Flags().GetString("store")

	programs, err := kyuafile.Load(kyuafilePath, buildRoot)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	slog.Info("loaded kyuafile", "programs", len(programs), "kyuafile", kyuafilePath)

	cfg := config.Load(viper.GetViper())

	if err := scheduler.ListPrograms(ctx, programs, cfg.Variables()); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	execCfg := executor.Config{
		RootDir:          os.TempDir(),
		HostArchitecture: cfg.Architecture(),
		HostPlatform:     cfg.Platform(),
	}
	if uid, gid, ok := cfg.UnprivilegedUser(); ok {
		execCfg.UnprivilegedUID = &uid
		execCfg.UnprivilegedGID = &gid
	}

	ex, err := executor.Setup(ctx, execCfg)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	defer ex.Shutdown()

	st, err := store.Open(storePath)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	defer st.Close()

	start := time.Now()
	scn := scheduler.NewProgramScanner(programs, args)

	hooks := scheduler.Hooks{
		GotTestCase: func(prog *model.TestProgram, caseName string) {
			slog.Debug("running", "program", prog.RelativePath, "case", caseName)
		},
		GotResult: func(prog *model.TestProgram, caseName string, r model.TestResult, d time.Duration) {
			slog.Info("result", "program", prog.RelativePath, "case", caseName, "result", r.String(), "duration", d.Round(time.Millisecond))
		},
	}

	result, err := scheduler.Drive(ctx, scn, ex, st, cfg, hooks)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	slog.Info("run finished", "duration", time.Since(start).Round(time.Millisecond))
	for rt, n := range result.Counts {
		slog.Info("result counts", "type", rt.String(), "count", n)
	}
	for _, f := range result.UnusedFilters {
		fmt.Fprintf(os.Stderr, "kyua: unused filter: %s\n", f)
	}

	if !result.Good() {
		os.Exit(1)
	}
	return nil
}
