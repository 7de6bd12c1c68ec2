package cmd

import "testing"

func TestRootCommandHasExpectedSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "report-junit", "history"} {
		if !names[want] {
			t.Errorf("expected rootCmd to have a %q subcommand, got %v", want, names)
		}
	}
}

func TestRootCommandUsesKyuaName(t *testing.T) {
	if rootCmd.Use != "kyua" {
		t.Errorf("expected rootCmd.Use = kyua, got %q", rootCmd.Use)
	}
}
