package scheduler

import (
	"context"
	"time"
)

// Task is one registered background job. Exactly one of Every and At
// must be set.
type Task struct {
	// ID identifies the task in logs and metrics.
	ID string

	// Run executes one iteration. The context carries the per-run
	// timeout and is cancelled on shutdown.
	Run func(ctx context.Context) error

	// Every fires the task on a fixed interval, measured from the end
	// of the previous trigger.
	Every time.Duration

	// At fires the task at a fixed UTC wall-clock time.
	At *WallClock
}

// WallClock is a daily or weekly UTC schedule.
type WallClock struct {
	// Weekday restricts firing to one day of the week. Nil means daily.
	Weekday *time.Weekday
	Hour    int
	Minute  int
}

// Next returns the first scheduled instant strictly after the given
// time.
func (w *WallClock) Next(after time.Time) time.Time {
	after = after.UTC()
	next := time.Date(after.Year(), after.Month(), after.Day(), w.Hour, w.Minute, 0, 0, time.UTC)

	if w.Weekday != nil {
		for next.Weekday() != *w.Weekday {
			next = next.AddDate(0, 0, 1)
		}
	}
	if next.After(after) {
		return next
	}
	if w.Weekday != nil {
		return next.AddDate(0, 0, 7)
	}
	return next.AddDate(0, 0, 1)
}

func (t *Task) next(now time.Time) time.Time {
	if t.Every > 0 {
		return now.Add(t.Every)
	}
	return t.At.Next(now)
}
