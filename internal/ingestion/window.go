package ingestion

import (
	"errors"
	"fmt"
	"time"

	"github.com/guttosm/spimexpulse/internal/domain/models"
)

// ErrInvalidWindow is returned when the requested target date cannot form a window.
var ErrInvalidWindow = errors.New("invalid ingestion window")

// DateWindow returns every calendar date from today back to target, both inclusive,
// most recent first. Both inputs are reduced to their calendar date.
//
// Behavior:
//   - target after today → ErrInvalidWindow.
//   - more than maxDays dates (maxDays > 0) → ErrInvalidWindow.
//
// Weekends and holidays are kept: a missing bulletin is discovered by the fetcher.
func DateWindow(target, today time.Time, maxDays int) ([]time.Time, error) {
	target, today = models.DateOf(target), models.DateOf(today)
	if target.After(today) {
		return nil, fmt.Errorf("%w: target date %s is after today %s",
			ErrInvalidWindow, target.Format(models.DateLayout), today.Format(models.DateLayout))
	}

	n := int(today.Sub(target)/(24*time.Hour)) + 1
	if maxDays > 0 && n > maxDays {
		return nil, fmt.Errorf("%w: %d days requested, at most %d allowed", ErrInvalidWindow, n, maxDays)
	}

	out := make([]time.Time, 0, n)
	for d := today; !d.Before(target); d = d.AddDate(0, 0, -1) {
		out = append(out, d)
	}
	return out, nil
}
