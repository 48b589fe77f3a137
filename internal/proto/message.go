package proto

import "encoding/json"

// Inbound is the envelope for events coming from the client.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Inbound event names.
const (
	InboundJoinChannel  = "join_channel"
	InboundLeaveChannel = "leave_channel"
	InboundMessage      = "message"
	InboundTyping       = "typing"
	InboundAddReaction  = "add_reaction"
	InboundUserOnline   = "user_online"
)

// Outbound event names.
const (
	OutboundConnectionResponse = "connection_response"
	OutboundJoinedChannel      = "joined_channel"
	OutboundLeftChannel        = "left_channel"
	OutboundMessage            = "message"
	OutboundTypingUpdate       = "typing_update"
	OutboundReactionUpdate     = "reaction_update"
	OutboundPresenceUpdate     = "presence_update"
	OutboundError              = "error"
	OutboundKicked             = "kicked"
)

// JoinChannelData requests joining or leaving a specific channel.
type JoinChannelData struct {
	ChannelID string `json:"channel_id"`
}

// MessageData is a chat message from the client.
type MessageData struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

// TypingData updates the sender's typing state for a channel.
type TypingData struct {
	ChannelID string `json:"channel_id"`
	IsTyping  bool   `json:"is_typing"`
}

// AddReactionData toggles an emoji reaction on a message. MessageID is kept
// as a raw JSON value: clients send provisional string ids for messages not
// yet persisted.
type AddReactionData struct {
	MessageID json.RawMessage `json:"message_id"`
	Emoji     string          `json:"emoji"`
}

// Outbound is the envelope for events sent to the client.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// ConnectionResponse confirms a successful handshake.
type ConnectionResponse struct {
	Status   string `json:"status"`
	Username string `json:"username"`
}

// ChannelConfirmation confirms a join or leave to the requester.
type ChannelConfirmation struct {
	ChannelID string `json:"channel_id"`
}

// Reactor mirrors the persisted reactor entry on the wire.
type Reactor struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// MessageEvent carries a chat, system, or assistant message.
type MessageEvent struct {
	ID        int64                `json:"id,omitempty"`
	ChannelID string               `json:"channel_id"`
	UserID    int64                `json:"user_id,omitempty"`
	User      string               `json:"user"`
	Text      string               `json:"text"`
	Timestamp string               `json:"timestamp"`
	Reactions map[string][]Reactor `json:"reactions"`
	IsSystem  bool                 `json:"isSystem,omitempty"`
	IsAI      bool                 `json:"isAI,omitempty"`
}

// TypingUpdate carries the full typing snapshot for a channel.
type TypingUpdate struct {
	ChannelID   string   `json:"channel_id"`
	TypingUsers []string `json:"typing_users"`
}

// ReactionUpdate carries the full reaction map for a message.
type ReactionUpdate struct {
	MessageID int64                `json:"message_id"`
	Reactions map[string][]Reactor `json:"reactions"`
}

// PresenceEntry is one user's presence on the wire.
type PresenceEntry struct {
	UserID   int64  `json:"user_id"`
	Status   string `json:"status"`
	LastSeen string `json:"last_seen"`
}

// PresenceUpdate carries the entire presence table.
type PresenceUpdate struct {
	OnlineUsers map[string]PresenceEntry `json:"online_users"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
