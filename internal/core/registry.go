package core

import "sync"

// Registry tracks which user owns which live connection and which channels a
// connection has joined. It enforces nothing itself beyond bookkeeping; the
// at-most-one-session policy is applied by the hub using Swap semantics.
// Not persisted: it is rebuilt empty on process restart.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Client          // connection id -> client
	users map[int64]*Client           // user id -> active client
	rooms map[string]map[*Client]struct{} // channel id -> room members
	chans map[*Client]map[string]struct{} // client -> joined channels
}

// NewRegistry constructs an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*Client),
		users: make(map[int64]*Client),
		rooms: make(map[string]map[*Client]struct{}),
		chans: make(map[*Client]map[string]struct{}),
	}
}

// Register binds the client to its user, returning the previously bound
// client for the same user if one was live. The caller force-closes the
// returned client.
func (r *Registry) Register(c *Client) (evicted *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.users[c.UserID]; ok && prev != c {
		evicted = prev
	}
	r.conns[c.ID] = c
	r.users[c.UserID] = c
	r.chans[c] = make(map[string]struct{})
	return evicted
}

// Unregister removes the client's bindings. Idempotent: a double disconnect
// is a no-op. Returns true when the client was still its user's active
// connection, i.e. it was not replaced by a newer session.
func (r *Registry) Unregister(c *Client) (wasActive bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c.ID]; !ok {
		return false
	}
	delete(r.conns, c.ID)

	for channel := range r.chans[c] {
		r.removeFromRoom(c, channel)
	}
	delete(r.chans, c)

	if r.users[c.UserID] == c {
		delete(r.users, c.UserID)
		return true
	}
	return false
}

// Resolve returns the client bound to a connection id, or nil.
func (r *Registry) Resolve(connectionID string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[connectionID]
}

// ClientForUser returns the user's active connection, or nil.
func (r *Registry) ClientForUser(userID int64) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.users[userID]
}

// Join adds the connection to the channel's room. Returns false if the
// client is not registered or was already a member, so a duplicate join is
// never re-announced.
func (r *Registry) Join(c *Client, channel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined, ok := r.chans[c]
	if !ok {
		return false
	}
	if _, member := joined[channel]; member {
		return false
	}
	joined[channel] = struct{}{}

	room, ok := r.rooms[channel]
	if !ok {
		room = make(map[*Client]struct{})
		r.rooms[channel] = room
	}
	room[c] = struct{}{}
	return true
}

// Leave removes the connection from the channel's room. Returns false if the
// client was not a member.
func (r *Registry) Leave(c *Client, channel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined, ok := r.chans[c]
	if !ok {
		return false
	}
	if _, member := joined[channel]; !member {
		return false
	}
	delete(joined, channel)
	r.removeFromRoom(c, channel)
	return true
}

// ChannelsOf returns the channels the connection has joined.
func (r *Registry) ChannelsOf(c *Client) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	joined := r.chans[c]
	channels := make([]string, 0, len(joined))
	for channel := range joined {
		channels = append(channels, channel)
	}
	return channels
}

// IsMember reports whether the connection has joined the channel.
func (r *Registry) IsMember(c *Client, channel string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	joined, ok := r.chans[c]
	if !ok {
		return false
	}
	_, member := joined[channel]
	return member
}

// Room returns a snapshot of the channel's live members.
func (r *Registry) Room(channel string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[channel]
	members := make([]*Client, 0, len(room))
	for c := range room {
		members = append(members, c)
	}
	return members
}

// Clients returns a snapshot of every registered connection.
func (r *Registry) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.conns))
	for _, c := range r.conns {
		clients = append(clients, c)
	}
	return clients
}

// removeFromRoom must be called with the write lock held.
func (r *Registry) removeFromRoom(c *Client, channel string) {
	room, ok := r.rooms[channel]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(r.rooms, channel)
	}
}
