package history

import (
	"testing"
	"time"

	"github.com/jpequegn/kyua/internal/model"
	"github.com/jpequegn/kyua/internal/store"
)

func runAt(start time.Time, dur time.Duration) store.CaseRun {
	return store.CaseRun{
		Result:    model.NewResult(model.Passed, ""),
		StartTime: start,
		EndTime:   start.Add(dur),
	}
}

func TestCalculateTrendDegrading(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	runs := []store.CaseRun{
		runAt(now, 100*time.Millisecond),
		runAt(now.Add(24*time.Hour), 200*time.Millisecond),
		runAt(now.Add(48*time.Hour), 300*time.Millisecond),
		runAt(now.Add(72*time.Hour), 400*time.Millisecond),
	}

	trend, err := CalculateTrend("dir/prog", "case1", runs)
	if err != nil {
		t.Fatalf("CalculateTrend: %v", err)
	}
	if trend.Direction != "degrading" {
		t.Errorf("expected degrading, got %q", trend.Direction)
	}
	if trend.SlopeNsPerDay <= 0 {
		t.Errorf("expected positive slope, got %.2f", trend.SlopeNsPerDay)
	}
	if trend.ChangePercent <= 0 {
		t.Errorf("expected positive change percent, got %.2f", trend.ChangePercent)
	}
	if trend.CaseKey != "dir/prog:case1" {
		t.Errorf("unexpected case key %q", trend.CaseKey)
	}
}

func TestCalculateTrendStableWithFlatDurations(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	runs := []store.CaseRun{
		runAt(now, 100*time.Millisecond),
		runAt(now.Add(24*time.Hour), 100*time.Millisecond),
		runAt(now.Add(48*time.Hour), 100*time.Millisecond),
	}

	trend, err := CalculateTrend("dir/prog", "case1", runs)
	if err != nil {
		t.Fatalf("CalculateTrend: %v", err)
	}
	if trend.Direction != "stable" {
		t.Errorf("expected stable, got %q", trend.Direction)
	}
}

func TestCalculateTrendRejectsTooFewRuns(t *testing.T) {
	runs := []store.CaseRun{runAt(time.Now(), time.Second), runAt(time.Now(), time.Second)}
	if _, err := CalculateTrend("dir/prog", "case1", runs); err == nil {
		t.Error("expected an error for fewer than MinDataPoints runs")
	}
}

func TestDetectAnomaliesFlagsOutlier(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	// The outlier is part of the mean and standard deviation it is scored
	// against, so it needs enough ordinary runs around it to reach z > 3:
	// 15 runs of 99-101ms plus one 5s run put it at z ≈ 3.75.
	var runs []store.CaseRun
	for i := 0; i < 15; i++ {
		runs = append(runs, runAt(now.Add(time.Duration(i)*time.Hour), time.Duration(99+i%3)*time.Millisecond))
	}
	runs = append(runs, runAt(now.Add(15*time.Hour), 5*time.Second))

	anomalies := DetectAnomalies("dir/prog", "case1", runs, ZScoreThreshold)
	if len(anomalies) != 1 {
		t.Fatalf("expected 1 anomaly, got %d", len(anomalies))
	}
	if anomalies[0].Duration != 5*time.Second {
		t.Errorf("expected the 5s run flagged, got %v", anomalies[0].Duration)
	}
	if anomalies[0].Severity != "critical" {
		t.Errorf("expected critical severity for a far outlier, got %q", anomalies[0].Severity)
	}
}

func TestDetectAnomaliesNoVarianceReturnsNil(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	runs := []store.CaseRun{
		runAt(now, 100*time.Millisecond),
		runAt(now.Add(time.Hour), 100*time.Millisecond),
	}
	if anomalies := DetectAnomalies("dir/prog", "case1", runs, ZScoreThreshold); anomalies != nil {
		t.Errorf("expected nil anomalies for zero-variance history, got %v", anomalies)
	}
}
