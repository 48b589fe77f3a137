package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hallwaychat/hallway-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	channel_id TEXT NOT NULL,
	user_id    INTEGER NOT NULL,
	username   TEXT NOT NULL,
	text       TEXT NOT NULL,
	read       BOOLEAN NOT NULL DEFAULT 0,
	reactions  TEXT NOT NULL DEFAULT '{}',
	is_system  BOOLEAN NOT NULL DEFAULT 0,
	is_ai      BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(channel_id, id);

CREATE TABLE IF NOT EXISTS friend_requests (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	sender_id   INTEGER NOT NULL,
	receiver_id INTEGER NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending',
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (sender_id) REFERENCES users(id),
	FOREIGN KEY (receiver_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_friend_requests_receiver ON friend_requests(receiver_id);
`

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply an alternative schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; this also serializes
	// id assignment and reaction read-modify-write cycles.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash)
		VALUES (?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// ListUsers lists all users ordered by id.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*store.User
	for rows.Next() {
		var user store.User
		if err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, &user)
	}
	return users, rows.Err()
}

// ==== MessageStore implementation ====

// SaveMessage persists a message and fills in its assigned ID.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	reactions := msg.Reactions
	if reactions == nil {
		reactions = store.Reactions{}
	}
	blob, err := json.Marshal(reactions)
	if err != nil {
		return fmt.Errorf("marshal reactions: %w", err)
	}

	query := `
		INSERT INTO messages (channel_id, user_id, username, text, read, reactions, is_system, is_ai, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		msg.ChannelID, msg.UserID, msg.Username, msg.Text,
		msg.Read, string(blob), msg.IsSystem, msg.IsAI, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	msg.ID = id
	return nil
}

// GetMessage retrieves a single message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*store.Message, error) {
	query := `
		SELECT id, channel_id, user_id, username, text, read, reactions, is_system, is_ai, created_at
		FROM messages
		WHERE id = ?
	`
	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query message: %w", err)
	}
	return msg, nil
}

// ListChannelPage returns one page of a channel's history. Page 1 holds the
// newest messages; each page is ordered oldest to newest.
func (s *SQLiteStore) ListChannelPage(ctx context.Context, channelID string, page, pageSize int) (*store.ChannelPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	query := `
		SELECT id, channel_id, user_id, username, text, read, reactions, is_system, is_ai, created_at
		FROM messages
		WHERE channel_id = ?
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, channelID, pageSize+1, offset)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var newestFirst []*store.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		newestFirst = append(newestFirst, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(newestFirst) > pageSize
	if hasMore {
		newestFirst = newestFirst[:pageSize]
	}

	// Reverse into oldest-to-newest order for display.
	messages := make([]*store.Message, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		messages = append(messages, newestFirst[i])
	}

	return &store.ChannelPage{Messages: messages, HasMore: hasMore}, nil
}

// MarkChannelRead marks every message in the channel authored by someone
// other than readerID as read.
func (s *SQLiteStore) MarkChannelRead(ctx context.Context, channelID string, readerID int64) error {
	query := `
		UPDATE messages
		SET read = 1
		WHERE channel_id = ? AND user_id != ? AND read = 0
	`
	if _, err := s.db.ExecContext(ctx, query, channelID, readerID); err != nil {
		return fmt.Errorf("mark channel read: %w", err)
	}
	return nil
}

// UnreadCounts returns per-channel unread counts for messages authored by
// someone other than userID.
func (s *SQLiteStore) UnreadCounts(ctx context.Context, userID int64, channels []string) (map[string]int, error) {
	counts := make(map[string]int, len(channels))

	query := `
		SELECT COUNT(*)
		FROM messages
		WHERE channel_id = ? AND user_id != ? AND read = 0
	`
	for _, channel := range channels {
		var n int
		if err := s.db.QueryRowContext(ctx, query, channel, userID).Scan(&n); err != nil {
			return nil, fmt.Errorf("count unread for %s: %w", channel, err)
		}
		counts[channel] = n
	}
	return counts, nil
}

// ToggleReaction atomically toggles reactor's emoji reaction on the message
// and returns the updated message. The read-modify-write runs inside a single
// transaction so concurrent toggles on the same message cannot lose updates.
func (s *SQLiteStore) ToggleReaction(ctx context.Context, messageID int64, emoji string, reactor store.Reactor) (*store.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		SELECT id, channel_id, user_id, username, text, read, reactions, is_system, is_ai, created_at
		FROM messages
		WHERE id = ?
	`
	msg, err := scanMessage(tx.QueryRowContext(ctx, query, messageID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query message: %w", err)
	}

	msg.Reactions.Toggle(emoji, reactor)

	updated, err := json.Marshal(msg.Reactions)
	if err != nil {
		return nil, fmt.Errorf("marshal reactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE messages SET reactions = ? WHERE id = ?`, string(updated), messageID); err != nil {
		return nil, fmt.Errorf("update reactions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return msg, nil
}

// ==== FriendStore implementation ====

// CreateFriendRequest creates a pending friend request.
func (s *SQLiteStore) CreateFriendRequest(ctx context.Context, senderID, receiverID int64) (*store.FriendRequest, error) {
	query := `
		INSERT INTO friend_requests (sender_id, receiver_id, status)
		VALUES (?, ?, 'pending')
	`
	result, err := s.db.ExecContext(ctx, query, senderID, receiverID)
	if err != nil {
		return nil, fmt.Errorf("insert friend request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}
	return s.GetFriendRequest(ctx, id)
}

// GetFriendRequest retrieves a friend request by ID.
func (s *SQLiteStore) GetFriendRequest(ctx context.Context, id int64) (*store.FriendRequest, error) {
	query := `
		SELECT id, sender_id, receiver_id, status, created_at
		FROM friend_requests
		WHERE id = ?
	`
	var fr store.FriendRequest
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&fr.ID, &fr.SenderID, &fr.ReceiverID, &fr.Status, &fr.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query friend request: %w", err)
	}
	return &fr, nil
}

// GetPendingRequest retrieves a pending request from sender to receiver.
func (s *SQLiteStore) GetPendingRequest(ctx context.Context, senderID, receiverID int64) (*store.FriendRequest, error) {
	query := `
		SELECT id, sender_id, receiver_id, status, created_at
		FROM friend_requests
		WHERE sender_id = ? AND receiver_id = ? AND status = 'pending'
	`
	var fr store.FriendRequest
	err := s.db.QueryRowContext(ctx, query, senderID, receiverID).Scan(
		&fr.ID, &fr.SenderID, &fr.ReceiverID, &fr.Status, &fr.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query pending request: %w", err)
	}
	return &fr, nil
}

// UpdateFriendStatus updates the status of a friend request.
func (s *SQLiteStore) UpdateFriendStatus(ctx context.Context, id int64, status store.FriendStatus) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE friend_requests SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update friend request: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteFriendRequest removes a friend request.
func (s *SQLiteStore) DeleteFriendRequest(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM friend_requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete friend request: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListRequestsByUser lists requests sent or received by the user.
func (s *SQLiteStore) ListRequestsByUser(ctx context.Context, userID int64) (sent, received []*store.FriendRequest, err error) {
	query := `
		SELECT id, sender_id, receiver_id, status, created_at
		FROM friend_requests
		WHERE sender_id = ? OR receiver_id = ?
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("query friend requests: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fr store.FriendRequest
		if err := rows.Scan(&fr.ID, &fr.SenderID, &fr.ReceiverID, &fr.Status, &fr.CreatedAt); err != nil {
			return nil, nil, fmt.Errorf("scan friend request: %w", err)
		}
		if fr.SenderID == userID {
			sent = append(sent, &fr)
		} else {
			received = append(received, &fr)
		}
	}
	return sent, received, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*store.Message, error) {
	var msg store.Message
	var blob string
	err := row.Scan(
		&msg.ID, &msg.ChannelID, &msg.UserID, &msg.Username, &msg.Text,
		&msg.Read, &blob, &msg.IsSystem, &msg.IsAI, &msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	msg.Reactions = store.Reactions{}
	if err := json.Unmarshal([]byte(blob), &msg.Reactions); err != nil {
		return nil, fmt.Errorf("unmarshal reactions: %w", err)
	}
	return &msg, nil
}
