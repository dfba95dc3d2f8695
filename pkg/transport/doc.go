// Package transport defines the pub/sub channel contract the presence
// subsystem runs over, plus an in-memory implementation for tests and
// local tooling.
//
// A Transport joins named channels. A joined Channel delivers three
// event kinds to its subscriber:
//
//   - sync: the full authoritative snapshot of all tracked presence
//     keys on the channel. Always a complete set, never a diff. Fires
//     whenever any participant's tracked record changes.
//
//   - broadcast: fire-and-forget messages under an event name, used
//     for non-authoritative signals such as typing.
//
//   - status: subscription lifecycle (SUBSCRIBED, CLOSED, ERROR,
//     TIMED_OUT). Joins may fail or time out; callers must not assume
//     automatic retry.
//
// The underlying transport is expected to probe participant liveness
// itself on a fixed interval and drop participants that miss two
// consecutive probes. That cadence is a property of the concrete
// implementation and feeds the expiry configuration of the layers
// above; nothing in this package hardcodes it.
//
// # Delivery
//
// Delivery is ordered per channel and best-effort: a slow subscriber
// can lose events rather than stall the channel. Broadcasts published
// before a subscriber registered its handler are not replayed; the
// latest sync snapshot and any undelivered status are.
package transport
