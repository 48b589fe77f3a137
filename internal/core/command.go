package core

// CommandKind describes what the client wants to do. The set is closed:
// handlers switch over it exhaustively instead of matching event-name strings.
type CommandKind int

const (
	// CommandJoinChannel subscribes the connection to a channel's room.
	CommandJoinChannel CommandKind = iota
	// CommandLeaveChannel unsubscribes the connection from a channel's room.
	CommandLeaveChannel
	// CommandSendMessage persists and fans out a chat message.
	CommandSendMessage
	// CommandTyping updates the caller's typing state for a channel.
	CommandTyping
	// CommandAddReaction toggles the caller's emoji reaction on a message.
	CommandAddReaction
	// CommandPresenceOnline marks the caller online and fans out presence.
	CommandPresenceOnline
)

// Command represents an action requested by an authenticated connection.
type Command struct {
	Kind      CommandKind
	Channel   string
	Text      string
	MessageID string // raw wire form; may be a provisional client-side id
	Emoji     string
	IsTyping  bool
}
