package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jpequegn/kyua/internal/history"
	"github.com/jpequegn/kyua/internal/store"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the duration trend for one test case across every recorded run",
	Long: `Reads every result ever recorded for one test case from a results
store and reports its duration trend and any anomalous runs.

Example:
  kyua history --results-file=results.db --test-case=dir/prog:case1`,
	RunE: showHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().String("results-file", "results.db", "path to the results store")
	historyCmd.Flags().String("test-case", "", "test case to report on, as program:case")
	_ = historyCmd.MarkFlagRequired("test-case")
}

func showHistory(cmd *cobra.Command, args []string) error {
	resultsFile, _ := cmd.Flags().GetString("results-file")
	testCase, _ := cmd.Flags().GetString("test-case")

	programPath, caseName, ok := strings.Cut(testCase, ":")
	if !ok {
		return fmt.Errorf("history: --test-case must be program:case, got %q", testCase)
	}

	st, err := store.Open(resultsFile)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	defer st.Close()

	runs, err := st.CaseHistory(programPath, caseName)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}

	fmt.Printf("%s: %d recorded runs\n", testCase, len(runs))
	for _, r := range runs {
		fmt.Printf("  %s  %-8s  %v\n", r.StartTime.Format("2006-01-02 15:04:05"), r.Result.Type, r.Duration())
	}

	trend, err := history.CalculateTrend(programPath, caseName, runs)
	if err != nil {
		fmt.Printf("trend: %v\n", err)
	} else {
		fmt.Printf("trend: %s (%.1f%% change, R²=%.2f over %d runs)\n",
			trend.Direction, trend.ChangePercent, trend.RSquared, trend.DataPoints)
	}

	anomalies := history.DetectAnomalies(programPath, caseName, runs, history.ZScoreThreshold)
	for _, a := range anomalies {
		fmt.Printf("anomaly: %s run on %s took %v (z=%.2f, severity=%s)\n",
			testCase, a.Time.Format("2006-01-02 15:04:05"), a.Duration, a.ZScore, a.Severity)
	}

	return nil
}
