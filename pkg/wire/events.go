package wire

// Event names used on a presence channel.
//
// EventPresence carries a PresenceMeta. Transports treat it specially:
// publishing it updates the sender's tracked record, which the transport
// reflects back to all members as a full sync snapshot.
//
// EventTyping is an ordinary broadcast carrying a TypingSignal.
const (
	EventPresence = "presence"
	EventTyping   = "typing"
)
