package history

import (
	"fmt"
	"math"

	"github.com/jpequegn/kyua/internal/store"
)

// MinDataPoints is the fewest runs CalculateTrend needs before a fit is
// considered meaningful, matching the smallest window a regression
// line can be drawn through without overfitting noise.
const MinDataPoints = 3

// ZScoreThreshold is the default deviation-from-mean cutoff DetectAnomalies
// flags a run at.
const ZScoreThreshold = 2.0

// CalculateTrend fits a linear regression of run duration against
// elapsed time since the first recorded run, the same "direction,
// slope, R²" shape a benchmark trend analyzer would produce, applied
// here to one test case's duration history instead.
func CalculateTrend(programRelativePath, caseName string, runs []store.CaseRun) (*Trend, error) {
	if len(runs) < MinDataPoints {
		return nil, fmt.Errorf("history: insufficient data points: %d < %d", len(runs), MinDataPoints)
	}

	startTime := runs[0].StartTime
	n := float64(len(runs))
	var sumX, sumY, sumXY, sumX2 float64
	for _, r := range runs {
		x := r.StartTime.Sub(startTime).Hours() / 24
		y := float64(r.Duration().Nanoseconds())
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	denominator := n*sumX2 - sumX*sumX
	if math.Abs(denominator) < 1e-10 {
		return nil, fmt.Errorf("history: cannot fit a trend: all runs share one timestamp")
	}
	slope := (n*sumXY - sumX*sumY) / denominator
	intercept := (sumY - slope*sumX) / n

	ssRes, ssTot := 0.0, 0.0
	meanY := sumY / n
	for _, r := range runs {
		x := r.StartTime.Sub(startTime).Hours() / 24
		predicted := intercept + slope*x
		actual := float64(r.Duration().Nanoseconds())
		ssRes += (actual - predicted) * (actual - predicted)
		ssTot += (actual - meanY) * (actual - meanY)
	}
	rSquared := 1.0
	if ssTot > 0 {
		rSquared = 1.0 - ssRes/ssTot
	}
	rSquared = math.Max(0, math.Min(1, rSquared))

	direction := "stable"
	const perDayThreshold = 1e6 // 1ms/day of drift before calling it a trend
	if math.Abs(slope) > perDayThreshold {
		if slope > 0 {
			direction = "degrading"
		} else {
			direction = "improving"
		}
	}

	first, last := runs[0].Duration(), runs[len(runs)-1].Duration()
	changePercent := 0.0
	if first > 0 {
		changePercent = (float64(last-first) / float64(first)) * 100
	}

	return &Trend{
		CaseKey:       caseKey(programRelativePath, caseName),
		Direction:     direction,
		SlopeNsPerDay: slope,
		RSquared:      rSquared,
		ChangePercent: changePercent,
		DataPoints:    len(runs),
		StartTime:     startTime,
		EndTime:       runs[len(runs)-1].StartTime,
		StartDuration: first,
		EndDuration:   last,
	}, nil
}

// DetectAnomalies flags any run whose duration is more than threshold
// standard deviations from the case's own mean duration.
func DetectAnomalies(programRelativePath, caseName string, runs []store.CaseRun, threshold float64) []Anomaly {
	if len(runs) < 2 {
		return nil
	}

	durations := make([]float64, len(runs))
	for i, r := range runs {
		durations[i] = float64(r.Duration().Nanoseconds())
	}
	mean := meanOf(durations)
	stdDev := stdDevOf(durations, mean)
	if stdDev == 0 {
		return nil
	}

	key := caseKey(programRelativePath, caseName)
	var anomalies []Anomaly
	for i, r := range runs {
		z := (durations[i] - mean) / stdDev
		if math.Abs(z) <= threshold {
			continue
		}
		anomalies = append(anomalies, Anomaly{
			CaseKey:  key,
			Time:     r.StartTime,
			Duration: r.Duration(),
			ZScore:   z,
			Severity: severityOf(math.Abs(z)),
		})
	}
	return anomalies
}

func severityOf(absZ float64) string {
	switch {
	case absZ > 3.0:
		return "critical"
	case absZ > 2.5:
		return "high"
	case absZ > 1.5:
		return "medium"
	default:
		return "low"
	}
}

func meanOf(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDevOf(values []float64, mean float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}

func caseKey(programRelativePath, caseName string) string {
	return programRelativePath + ":" + caseName
}
