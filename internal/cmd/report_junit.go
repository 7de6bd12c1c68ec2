package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpequegn/kyua/internal/reporter"
	"github.com/jpequegn/kyua/internal/store"
)

// reportJunitCmd represents the report-junit command
var reportJunitCmd = &cobra.Command{
	Use:   "report-junit",
	Short: "Render a results store as a JUnit XML report",
	Long: `Reads a completed results store and writes a single JUnit
<testsuite> document summarizing every recorded test case.

Example:
  kyua report-junit --results-file=results.db --output=report.xml`,
	RunE: reportJunit,
}

func init() {
	rootCmd.AddCommand(reportJunitCmd)

	reportJunitCmd.Flags().String("results-file", "results.db", "path to the results store")
	reportJunitCmd.Flags().String("output", "", "output path for the JUnit document (default: stdout)")
}

func reportJunit(cmd *cobra.Command, args []string) error {
	resultsFile, _ := cmd.Flags().GetString("results-file")
	output, _ := cmd.Flags().GetString("output")

	st, err := store.Open(resultsFile)
	if err != nil {
		return fmt.Errorf("report-junit: %w", err)
	}
	defer st.Close()

	w := os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("report-junit: %w", err)
		}
		defer f.Close()
		return reporter.WriteJUnit(f, st, reporter.Options{})
	}

	return reporter.WriteJUnit(w, st, reporter.Options{})
}
