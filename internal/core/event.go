package core

import "github.com/hallwaychat/hallway-server/internal/store"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventConnectionResponse confirms a successful handshake.
	EventConnectionResponse EventKind = iota
	// EventJoinedChannel confirms channel membership to the joiner.
	EventJoinedChannel
	// EventLeftChannel confirms channel departure to the leaver.
	EventLeftChannel
	// EventMessage delivers a chat, system, or assistant message.
	EventMessage
	// EventTypingUpdate delivers the full typing snapshot for a channel.
	EventTypingUpdate
	// EventReactionUpdate delivers the full reaction map for a message.
	EventReactionUpdate
	// EventPresenceUpdate delivers the full presence table.
	EventPresenceUpdate
	// EventError notifies the client about a domain error.
	EventError
	// EventKicked tells a connection it was replaced by a newer session.
	EventKicked
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind        EventKind
	Channel     string
	Username    string
	Message     *store.Message
	MessageID   int64
	Reactions   store.Reactions
	TypingUsers []string
	Presence    map[string]PresenceEntry
	Error       *CoreError
}
