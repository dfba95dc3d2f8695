// Package session coordinates presence and typing for one participant
// on one pub/sub channel.
//
// A Session reconciles three independent timing domains into one
// canonical roster: probe-driven liveness (the transport's own
// heartbeat cadence), user-driven typing bursts, and tab visibility
// changes. It owns two throttled publishers, two periodic eviction
// sweeps, and a lifecycle state machine:
//
//	Idle -> Joining -> Subscribed <-> Backgrounded -> Closed
//
// # Lifecycle
//
// Start joins the channel. A session whose identity is missing required
// fields stays Idle and never joins; this is a silent no-op, not an
// error. The subscribed status moves the session to Subscribed, force
// publishes the local record, and starts both eviction sweeps. A join
// error or timeout closes the session permanently; construct a new one
// to retry.
//
// Background stops the sweeps but leaves the publishers running, so a
// reconnect-triggered publish is never missed while hidden. Foreground
// force publishes immediately, closing the gap created while hidden,
// and restarts the sweeps.
//
// Stop tears down in a fixed order: leave the transport, stop the
// eviction sweeps, stop the throttle gates, clear the roster. The
// closed flag is set first and checked at the top of every asynchronous
// callback, so a late-firing timer or transport event can never mutate
// a roster that is being discarded. Stop is idempotent.
//
// # Error handling
//
// Only the initial join surfaces an error to the caller. Everything in
// steady state is advisory: malformed inbound payloads are dropped with
// a warning, publish failures are logged and self-heal on the next
// throttle window, and post-teardown callbacks are ignored.
package session
