// Package realtime implements the pub/sub transport over a
// Phoenix-framed WebSocket, the protocol spoken by Supabase Realtime
// and plain Phoenix channel servers.
//
// A Client owns one socket: a single reader goroutine, a heartbeat
// loop on the configured probe interval, and automatic reconnection
// with exponential backoff. Channels joined through the client
// implement transport.Channel; each accumulates presence_state and
// presence_diff frames into a full snapshot so subscribers always see
// the complete authoritative set, never a diff.
//
// The server is the liveness authority: it probes on its own cadence
// and drops participants that miss two consecutive probes. The
// client-side heartbeat exists to detect a dead socket, not to manage
// peer liveness.
package realtime
