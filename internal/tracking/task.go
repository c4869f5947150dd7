package tracking

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Task is the unit of recurring work bound to one user. It holds the user's
// pincodes and runs one polling tick at a time: fetch per pincode, evaluate,
// notify. Failures are isolated per pincode and per notification; a tick never
// propagates an error into the scheduler.
type Task struct {
	userID      int64
	postalCodes []string
	fetcher     Fetcher
	notifier    Notifier
	log         *slog.Logger
	now         func() time.Time
}

// NewTask creates a polling task for one user.
func NewTask(userID int64, postalCodes []string, f Fetcher, n Notifier, log *slog.Logger) *Task {
	return &Task{
		userID:      userID,
		postalCodes: append([]string(nil), postalCodes...),
		fetcher:     f,
		notifier:    n,
		log:         log.With(slog.Int64("user_id", userID)),
		now:         time.Now,
	}
}

// Run executes one tick. verbose runs (manual /checknow or the first run after
// registration) report misses and fallbacks; silent runs only report found
// slots and exhausted data-source failures. Run always returns nil: a failed
// tick must not cancel the recurring schedule.
func (t *Task) Run(ctx context.Context, verbose bool) error {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("tick panicked", slog.Any("panic", r))
			if verbose {
				t.send(ctx, fmt.Sprintf("Error occurred: %v", r), false)
			}
		}
	}()

	t.tick(ctx, verbose)
	return nil
}

func (t *Task) tick(ctx context.Context, verbose bool) {
	if verbose {
		// Purely informational, fire-and-forget.
		t.send(ctx, "Searching for vaccine slots...", false)
	}

	date := t.now().Format("02-01-2006")
	var centers []Center
	for _, pin := range t.postalCodes {
		got, err := t.fetcher.Fetch(ctx, pin, date, ModeAuthenticated)
		if err == nil {
			centers = append(centers, got...)
			continue
		}
		t.log.Warn("authenticated fetch failed, falling back",
			slog.String("pincode", pin), slog.Any("error", err))

		got, err = t.fetcher.Fetch(ctx, pin, date, ModePublic)
		if err != nil {
			t.log.Error("availability fetch failed",
				slog.String("pincode", pin), slog.Any("error", fmt.Errorf("%w: %v", ErrFetchFailed, err)))
			// Always reported, even on silent ticks: the data source is down
			// for this pincode after both variants.
			t.send(ctx, fmt.Sprintf("Availability check failed for pincode %s: %v", pin, err), true)
			continue
		}
		centers = append(centers, got...)
		if verbose {
			t.send(ctx, fmt.Sprintf("Showing cached data for pincode %s", pin), true)
		}
	}

	messages, found := Evaluate(centers, verbose)
	for _, msg := range messages {
		t.send(ctx, msg, false)
	}
	if !found && verbose {
		t.send(ctx, "Couldn't find any session", false)
	}
}

// send delivers one notification. Delivery failures are logged and never
// escalated: a dead chat must not take the schedule down with it.
func (t *Task) send(ctx context.Context, text string, silent bool) {
	if err := t.notifier.Send(ctx, t.userID, text, silent); err != nil {
		t.log.Error("notification failed", slog.Bool("silent", silent), slog.Any("error", err))
	}
}
