// Package throttle provides a leading-edge rate gate.
//
// A Gate admits the first call in a window and rejects the rest until
// the window elapses. Nothing is queued: a rejected call is simply
// dropped, there is no trailing invocation when the window reopens.
// This matches the cadence wanted for liveness publishing, where a
// burst of triggers should collapse into one send and the next window
// naturally re-attempts.
//
// Each publisher owns its own Gate. Gates are never shared between
// payload kinds with different latency requirements.
package throttle
