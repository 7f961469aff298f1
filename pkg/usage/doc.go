// Package usage persists a per-request usage ledger to SQLite.
//
// Every completed generation writes one row: protocol, model, endpoint,
// streamed flag, token estimates, fault retries, and wall-clock
// duration. The ledger survives restarts and answers the questions the
// in-memory Prometheus counters cannot, like which endpoint served a
// specific completion last week.
//
// A cron-driven Scheduler prunes rows older than the configured
// retention window so the database file stays bounded.
package usage
