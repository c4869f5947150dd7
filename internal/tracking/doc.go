// Package tracking implements the per-user vaccine availability tracking core:
// a registry of recurring polling tasks keyed by chat ID, the tick that queries
// the availability source per pincode, and the pure evaluator that turns
// center/session records into user-facing messages.
//
// The registry guarantees at most one live recurring schedule per user.
// Re-registration cancels the previous schedule before installing the new one;
// an in-flight tick that already started is allowed to finish. All registry
// state lives in memory for the process lifetime.
//
// Ticks run in two modes. Scheduled (silent) ticks report only found slots and
// exhausted data-source failures. Manually triggered (verbose) ticks, meaning
// the immediate post-registration run and /checknow, additionally report booked
// sessions, fallback notices and "nothing found".
package tracking
