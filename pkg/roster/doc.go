// Package roster is the canonical in-memory view of channel presence.
//
// A Roster owns two maps for the lifetime of one joined channel:
//
//   - online entities, keyed by entity id, rebuilt wholesale from every
//     transport sync snapshot (replace, never merge). Each retained key
//     is stamped with the local clock; entities missing from a snapshot
//     disappear immediately.
//
//   - typing states, keyed by (user, room), upserted by inbound typing
//     broadcasts. A false signal deletes the entry; expiry deletes it
//     too. "Is typing" is the existence of the entry, never a stored
//     false.
//
// The two maps age independently: presence expiry tolerates missed
// liveness probes (favoring a short-lived false "online" over flicker),
// while typing expiry is short because a stuck typing indicator is
// immediately visible to users.
//
// Eviction runs only when the owner calls the Evict methods; the Roster
// itself schedules nothing. Accessors return sorted copies that callers
// may keep without holding up the Roster.
package roster
