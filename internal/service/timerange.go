package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/sma-analytics-api/internal/models"
	appErrors "github.com/noah-isme/sma-analytics-api/pkg/errors"
)

// ResolveRange converts a range token into the window ending at the start of the day containing now.
func ResolveRange(token string, now time.Time) (models.TimeRange, error) {
	normalised := models.RangeToken(strings.ToLower(strings.TrimSpace(token)))
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var start time.Time
	switch normalised {
	case models.RangeWeek:
		start = end.AddDate(0, 0, -7)
	case models.RangeMonth:
		start = subtractMonths(end, 1)
	case models.RangeQuarter:
		start = subtractMonths(end, 3)
	case models.RangeYear:
		start = subtractMonths(end, 12)
	default:
		return models.TimeRange{}, appErrors.Clone(appErrors.ErrInvalidRange, fmt.Sprintf("unknown range %q", token))
	}
	return models.TimeRange{Token: normalised, Start: start, End: end}, nil
}

// ResolveRangeOrDefault resolves token, falling back to a week window for unknown tokens.
// The boolean is true when the fallback was applied to a non-empty token.
func ResolveRangeOrDefault(token string, now time.Time) (models.TimeRange, bool) {
	if strings.TrimSpace(token) == "" {
		window, _ := ResolveRange(string(models.RangeWeek), now)
		return window, false
	}
	window, err := ResolveRange(token, now)
	if err != nil {
		window, _ = ResolveRange(string(models.RangeWeek), now)
		return window, true
	}
	return window, false
}

// subtractMonths moves t back by n calendar months, clamping the day to the target month length.
func subtractMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	target := time.Date(year, month-time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(target.Year(), target.Month(), t.Location()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
