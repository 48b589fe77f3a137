package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Reactor identifies a user who reacted to a message.
type Reactor struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// Reactions maps an emoji to the set of users who reacted with it.
// An emoji key is never present with an empty reactor list.
type Reactions map[string][]Reactor

// Contains reports whether the given user already reacted with emoji.
func (r Reactions) Contains(emoji string, userID int64) bool {
	for _, reactor := range r[emoji] {
		if reactor.UserID == userID {
			return true
		}
	}
	return false
}

// Toggle adds the reactor to the emoji set, or removes it if already present.
// The emoji key is deleted when its last reactor withdraws.
func (r Reactions) Toggle(emoji string, reactor Reactor) {
	set := r[emoji]
	for i, existing := range set {
		if existing.UserID == reactor.UserID {
			set = append(set[:i], set[i+1:]...)
			if len(set) == 0 {
				delete(r, emoji)
			} else {
				r[emoji] = set
			}
			return
		}
	}
	r[emoji] = append(set, reactor)
}

// Message represents a persisted chat message.
// Username is a denormalized snapshot of the author's name at send time.
type Message struct {
	ID        int64
	ChannelID string
	UserID    int64
	Username  string
	Text      string
	Read      bool
	Reactions Reactions
	IsSystem  bool
	IsAI      bool
	CreatedAt time.Time
}

// FriendStatus defines friend-request state.
type FriendStatus string

const (
	FriendStatusPending  FriendStatus = "pending"
	FriendStatusAccepted FriendStatus = "accepted"
	FriendStatusRejected FriendStatus = "rejected"
)

// FriendRequest represents a friend request between two users.
type FriendRequest struct {
	ID         int64
	SenderID   int64
	ReceiverID int64
	Status     FriendStatus
	CreatedAt  time.Time
}

// ChannelPage is one page of channel history, oldest to newest.
type ChannelPage struct {
	Messages []*Message
	HasMore  bool
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// ListUsers lists all users.
	ListUsers(ctx context.Context) ([]*User, error)
}

// MessageStore handles message persistence. Message ids are assigned by the
// store and are strictly increasing in assignment order.
type MessageStore interface {
	// SaveMessage persists a message and fills in its assigned ID.
	SaveMessage(ctx context.Context, msg *Message) error

	// GetMessage retrieves a single message by ID.
	GetMessage(ctx context.Context, id int64) (*Message, error)

	// ListChannelPage returns one page of a channel's history, oldest to
	// newest within the page. Page numbering starts at 1.
	ListChannelPage(ctx context.Context, channelID string, page, pageSize int) (*ChannelPage, error)

	// MarkChannelRead marks every message in the channel authored by someone
	// other than readerID as read.
	MarkChannelRead(ctx context.Context, channelID string, readerID int64) error

	// UnreadCounts returns per-channel counts of unread messages authored by
	// someone other than userID, for the given channels.
	UnreadCounts(ctx context.Context, userID int64, channels []string) (map[string]int, error)

	// ToggleReaction atomically toggles reactor's emoji reaction on the
	// message and returns the updated message. Returns ErrNotFound if the
	// message does not exist.
	ToggleReaction(ctx context.Context, messageID int64, emoji string, reactor Reactor) (*Message, error)
}

// FriendStore handles friend-request persistence.
type FriendStore interface {
	// CreateFriendRequest creates a pending friend request.
	CreateFriendRequest(ctx context.Context, senderID, receiverID int64) (*FriendRequest, error)

	// GetFriendRequest retrieves a friend request by ID.
	GetFriendRequest(ctx context.Context, id int64) (*FriendRequest, error)

	// GetPendingRequest retrieves a pending request from sender to receiver.
	GetPendingRequest(ctx context.Context, senderID, receiverID int64) (*FriendRequest, error)

	// UpdateFriendStatus updates the status of a friend request.
	UpdateFriendStatus(ctx context.Context, id int64, status FriendStatus) error

	// DeleteFriendRequest removes a friend request.
	DeleteFriendRequest(ctx context.Context, id int64) error

	// ListRequestsByUser lists requests sent or received by the user.
	ListRequestsByUser(ctx context.Context, userID int64) (sent, received []*FriendRequest, err error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore
	FriendStore

	// Close closes the underlying database connection.
	Close() error
}
