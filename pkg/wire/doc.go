// Package wire defines the payload types exchanged over a presence
// channel and their JSON codec.
//
// Two payload kinds exist:
//
//   - PresenceMeta: the liveness record a session publishes about itself.
//     It carries identity only; it deliberately has no timestamp field,
//     because liveness is inferred from delivery cadence, not from
//     payload content.
//
//   - TypingSignal: a fire-and-forget broadcast telling peers that a
//     user started or stopped typing in a room.
//
// # Encoding
//
// Payloads travel as JSON objects. Decode helpers validate required
// fields so malformed inbound payloads can be dropped at the boundary
// without touching local state.
package wire
