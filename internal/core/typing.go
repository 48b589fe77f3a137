package core

import (
	"sort"
	"sync"
	"time"
)

type typingEntry struct {
	username  string
	updatedAt time.Time
}

// TypingTable is an in-memory, process-lifetime map of channel id to the set
// of currently-typing users. Entries are removed on stop-typing, disconnect,
// or when swept after the idle timeout.
type TypingTable struct {
	mu       sync.Mutex
	channels map[string]map[int64]typingEntry
}

// NewTypingTable constructs an empty typing table.
func NewTypingTable() *TypingTable {
	return &TypingTable{channels: make(map[string]map[int64]typingEntry)}
}

// Set adds, refreshes, or removes the caller's typing entry for the channel.
func (t *TypingTable) Set(channel string, userID int64, username string, isTyping bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	users := t.channels[channel]
	if isTyping {
		if users == nil {
			users = make(map[int64]typingEntry)
			t.channels[channel] = users
		}
		users[userID] = typingEntry{username: username, updatedAt: time.Now()}
		return
	}

	delete(users, userID)
	if len(users) == 0 {
		delete(t.channels, channel)
	}
}

// RemoveUser drops the user's typing entry from every channel and returns the
// channels where a removal occurred.
func (t *TypingTable) RemoveUser(userID int64) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var affected []string
	for channel, users := range t.channels {
		if _, ok := users[userID]; !ok {
			continue
		}
		delete(users, userID)
		if len(users) == 0 {
			delete(t.channels, channel)
		}
		affected = append(affected, channel)
	}
	return affected
}

// Snapshot returns the sorted usernames currently typing in the channel.
func (t *TypingTable) Snapshot(channel string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	users := t.channels[channel]
	names := make([]string, 0, len(users))
	for _, entry := range users {
		names = append(names, entry.username)
	}
	sort.Strings(names)
	return names
}

// SweepIdle removes entries not refreshed since the cutoff and returns the
// channels affected. The source system never expired typing state; the sweep
// keeps a crashed client from typing forever.
func (t *TypingTable) SweepIdle(cutoff time.Time) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var affected []string
	for channel, users := range t.channels {
		removed := false
		for userID, entry := range users {
			if entry.updatedAt.Before(cutoff) {
				delete(users, userID)
				removed = true
			}
		}
		if len(users) == 0 {
			delete(t.channels, channel)
		}
		if removed {
			affected = append(affected, channel)
		}
	}
	return affected
}
