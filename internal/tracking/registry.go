package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"vaxbot/internal/adapter/scheduler"
	"vaxbot/internal/shared"
)

var validate = validator.New()

// registrationInput mirrors the caller-facing validation rules: at least one
// 6-digit pincode, interval not below the 10-second floor.
type registrationInput struct {
	PostalCodes     []string `validate:"required,min=1,dive,len=6,numeric"`
	IntervalSeconds int64    `validate:"gte=10"`
}

// entry owns exactly one live schedule handle, or is absent from the map.
type entry struct {
	reg   Registration
	task  *Task
	jobID scheduler.IntervalJobID
}

// Registry maps user identity to an active recurring polling task. It is the
// only shared mutable structure of the tracker; the mutex guards bookkeeping
// only, no network I/O happens under it.
type Registry struct {
	log      *slog.Logger
	sched    *scheduler.Scheduler
	fetcher  Fetcher
	notifier Notifier

	mu      sync.RWMutex
	entries map[int64]*entry
}

// NewRegistry creates an empty registry on top of a running scheduler.
func NewRegistry(sched *scheduler.Scheduler, f Fetcher, n Notifier, log *slog.Logger) *Registry {
	return &Registry{
		log:      log,
		sched:    sched,
		fetcher:  f,
		notifier: n,
		entries:  make(map[int64]*entry),
	}
}

// Register validates the registration, replaces any existing schedule for the
// user and installs a new recurring one. The previous handle is always
// cancelled before the new one is created, so two schedules for the same user
// never run concurrently. One immediate verbose run is kicked off
// asynchronously; its outcome does not block the caller.
func (r *Registry) Register(ctx context.Context, reg Registration) error {
	if err := validateRegistration(reg); err != nil {
		return err
	}

	task := NewTask(reg.UserID, reg.PostalCodes, r.fetcher, r.notifier, r.log)

	r.mu.Lock()
	if old, ok := r.entries[reg.UserID]; ok {
		// Best effort: a handle the scheduler no longer knows is logged,
		// not fatal, and does not block replacement.
		if !r.sched.RemoveIntervalJob(old.jobID) {
			r.log.Warn("stale schedule handle on re-register",
				slog.Int64("user_id", reg.UserID), slog.Int("job_id", int(old.jobID)))
		}
	}
	jobID := r.sched.AddIntervalJobWithOptions(reg.Interval,
		func(ctx context.Context) error { return task.Run(ctx, false) },
		scheduler.JobOptions{
			Name:          fmt.Sprintf("track-%d", reg.UserID),
			OverlapPolicy: scheduler.SkipIfRunning,
		})
	r.entries[reg.UserID] = &entry{reg: reg, task: task, jobID: jobID}
	r.mu.Unlock()

	r.log.Info("tracking registered",
		slog.Int64("user_id", reg.UserID),
		slog.Any("pincodes", reg.PostalCodes),
		slog.Duration("interval", reg.Interval))

	runCtx := context.WithoutCancel(ctx)
	go func() { _ = task.Run(runCtx, true) }()

	return nil
}

// Unregister cancels the user's schedule and clears the entry. Unregistering
// an absent user is a no-op; the returned bool reports whether an entry
// existed.
func (r *Registry) Unregister(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[userID]
	if !ok {
		return false
	}
	if !r.sched.RemoveIntervalJob(e.jobID) {
		r.log.Warn("stale schedule handle on unregister",
			slog.Int64("user_id", userID), slog.Int("job_id", int(e.jobID)))
	}
	delete(r.entries, userID)
	r.log.Info("tracking stopped", slog.Int64("user_id", userID))
	return true
}

// RunNow triggers one verbose tick for the user, independent of the recurring
// schedule, and returns once it completes. Returns ErrNotRegistered when the
// user has no active entry.
func (r *Registry) RunNow(ctx context.Context, userID int64) error {
	r.mu.RLock()
	e, ok := r.entries[userID]
	r.mu.RUnlock()
	if !ok {
		return shared.Wrapf(ErrNotRegistered, "user %d", userID)
	}
	return e.task.Run(ctx, true)
}

// Snapshot is a read-only view of one registration.
type Snapshot struct {
	UserID      int64
	DisplayName string
	PostalCodes []string
	Interval    time.Duration
}

// Lookup returns the registration snapshot for one user.
func (r *Registry) Lookup(userID int64) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[userID]
	if !ok {
		return Snapshot{}, false
	}
	return snapshotOf(e.reg), true
}

// ListAll returns snapshots of all present entries, ordered by user ID.
func (r *Registry) ListAll() []Snapshot {
	r.mu.RLock()
	out := make([]Snapshot, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, snapshotOf(e.reg))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func snapshotOf(reg Registration) Snapshot {
	return Snapshot{
		UserID:      reg.UserID,
		DisplayName: reg.DisplayName,
		PostalCodes: append([]string(nil), reg.PostalCodes...),
		Interval:    reg.Interval,
	}
}

func validateRegistration(reg Registration) error {
	in := registrationInput{
		PostalCodes:     reg.PostalCodes,
		IntervalSeconds: int64(reg.Interval / time.Second),
	}
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		// Interval first: matches the order the registration dialogue asks in.
		for _, fe := range verrs {
			if fe.StructField() == "IntervalSeconds" {
				return shared.Wrapf(ErrIntervalTooShort, "interval %s is below %s", reg.Interval, MinInterval)
			}
		}
		return shared.Wrapf(ErrInvalidPostalCodes, "%v", reg.PostalCodes)
	}
	return shared.MarkKind(err, shared.KindValidation)
}
