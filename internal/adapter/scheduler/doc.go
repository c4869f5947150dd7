// Package scheduler provides background job processing: cron-spec jobs for
// housekeeping and interval jobs driven by time.Ticker, one per tracked user.
//
// Interval jobs are the substrate of the tracking registry: the registry keeps
// the returned IntervalJobID as the schedule handle of one user and cancels it
// via RemoveIntervalJob before installing a replacement. Cancellation is
// best-effort: a tick that already started finishes, future ticks stop.
//
// Basic usage:
//
//	s := scheduler.New(scheduler.Config{Logger: logger})
//
//	id := s.AddIntervalJobWithOptions(5*time.Minute, func(ctx context.Context) error {
//		// periodic work
//		return nil
//	}, scheduler.JobOptions{Name: "track-42", OverlapPolicy: scheduler.SkipIfRunning})
//
//	s.Start()
//	defer s.Stop()
//
//	s.RemoveIntervalJob(id)
//
// The scheduler recovers panics, logs job errors without stopping, supports
// per-job timeouts, and shuts down gracefully (optionally bounded via
// StopContext). Start/Stop are idempotent.
package scheduler
