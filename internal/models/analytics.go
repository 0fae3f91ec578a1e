package models

import "time"

// RangeToken is a symbolic analytics window.
type RangeToken string

const (
	RangeWeek    RangeToken = "week"
	RangeMonth   RangeToken = "month"
	RangeQuarter RangeToken = "quarter"
	RangeYear    RangeToken = "year"
)

// TimeRange is the half-open interval [Start, End) metrics are computed over.
type TimeRange struct {
	Token RangeToken `json:"token"`
	Start time.Time  `json:"start"`
	End   time.Time  `json:"end"`
}

// Contains reports whether t falls inside the window.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Days returns the start of every calendar day in the window, in the window's location.
func (r TimeRange) Days() []time.Time {
	var days []time.Time
	loc := r.Start.Location()
	day := time.Date(r.Start.Year(), r.Start.Month(), r.Start.Day(), 0, 0, 0, 0, loc)
	for day.Before(r.End) {
		days = append(days, day)
		day = day.AddDate(0, 0, 1)
	}
	return days
}

// AnalyticsSystemMetrics represents system level analytics captured from instrumentation.
type AnalyticsSystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	CollectorFailures        uint64    `json:"collector_failures"`
	DashboardsServed         uint64    `json:"dashboards_served"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
