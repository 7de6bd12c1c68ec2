package history

import "time"

// Trend summarizes the linear-regression fit of a case's duration over
// the runs recorded for it.
type Trend struct {
	CaseKey       string // "relative_path:case_name"
	Direction     string // "improving", "degrading", "stable"
	SlopeNsPerDay float64
	RSquared      float64
	ChangePercent float64
	DataPoints    int
	StartTime     time.Time
	EndTime       time.Time
	StartDuration time.Duration
	EndDuration   time.Duration
}

// Anomaly flags one run whose duration deviates sharply from the
// case's own mean.
type Anomaly struct {
	CaseKey  string
	Time     time.Time
	Duration time.Duration
	ZScore   float64
	Severity string // "critical", "high", "medium", "low"
}
