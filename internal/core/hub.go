package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hallwaychat/hallway-server/internal/metrics"
	"github.com/hallwaychat/hallway-server/internal/store"
)

// ProvisionalIDPrefix marks client-side placeholder ids for optimistically
// rendered messages that have not been persisted yet. Reactions against them
// are dropped.
const ProvisionalIDPrefix = "temp-"

// Options tunes hub behavior.
type Options struct {
	// AssistantDelay is how long after a message to the assistant channel
	// the synthesized reply is sent.
	AssistantDelay time.Duration
	// TypingIdleTimeout is how long a typing entry may go unrefreshed before
	// the janitor sweeps it. Zero disables the sweep.
	TypingIdleTimeout time.Duration
}

// Hub is the session/broadcast core. It owns the connection registry,
// presence and typing tables, and the message persistence path, and fans out
// events to live connections. Each connection's commands are dispatched by
// its own goroutine, FIFO per connection; shared tables serialize access
// behind their own locks so one slow store call cannot stall unrelated rooms.
type Hub struct {
	registry *Registry
	presence *PresenceTable
	typing   *TypingTable
	messages store.MessageStore
	sched    *Scheduler
	metrics  *metrics.Metrics
	log      *zerolog.Logger
	opts     Options
}

// NewHub wires the hub with its injected state tables and message store.
func NewHub(registry *Registry, presence *PresenceTable, typing *TypingTable, messages store.MessageStore, m *metrics.Metrics, logger *zerolog.Logger, opts Options) *Hub {
	if m == nil {
		m = metrics.New()
	}
	return &Hub{
		registry: registry,
		presence: presence,
		typing:   typing,
		messages: messages,
		sched:    NewScheduler(),
		metrics:  m,
		log:      logger,
		opts:     opts,
	}
}

// Run blocks until ctx is canceled, running the typing idle janitor in the
// meantime. On return all pending scheduled tasks are canceled and every
// live connection is closed.
func (h *Hub) Run(ctx context.Context) {
	interval := h.opts.TypingIdleTimeout
	if interval <= 0 {
		<-ctx.Done()
		h.shutdown()
		return
	}

	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.sweepTyping()
		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

func (h *Hub) shutdown() {
	h.sched.Shutdown()
	for _, c := range h.registry.Clients() {
		c.Close()
	}
}

// Register activates an authenticated connection: any prior session for the
// same user is kicked and cleaned up first, then the new binding takes
// effect, command dispatch starts, and the handshake confirmation is sent.
func (h *Hub) Register(c *Client) {
	if evicted := h.registry.Register(c); evicted != nil {
		h.log.Info().
			Str("conn_id", evicted.ID).
			Int64("user_id", c.UserID).
			Msg("closing stale session for reconnecting user")
		evicted.send(&Event{Kind: EventKicked, Error: coreError(ErrCodeKicked, "signed in from another connection")})
		evicted.Close()
		h.cleanup(evicted)
		h.metrics.SessionsEvicted.Inc()
	}

	h.presence.SetOnline(c.UserID, c.Username)
	h.metrics.ConnectionsActive.Inc()

	go h.dispatch(c)

	c.send(&Event{Kind: EventConnectionResponse, Username: c.Username})
}

// Unregister runs the disconnect cleanup sequence. Safe to call from
// multiple paths; the work happens exactly once per connection.
func (h *Hub) Unregister(c *Client) {
	c.Close()
	h.cleanup(c)
}

// cleanup is the single-shot disconnect sequence: drop registry bindings,
// flip presence to offline, clear typing state with per-channel updates,
// then broadcast the presence table globally.
func (h *Hub) cleanup(c *Client) {
	c.cleanupOnce.Do(func() {
		wasActive := h.registry.Unregister(c)
		h.metrics.ConnectionsActive.Dec()

		for _, channel := range h.typing.RemoveUser(c.UserID) {
			h.broadcastToChannel(channel, nil, &Event{
				Kind:        EventTypingUpdate,
				Channel:     channel,
				TypingUsers: h.typing.Snapshot(channel),
			})
		}

		// A replaced session must not mark the user offline; the newer
		// connection owns the presence entry now.
		if wasActive {
			h.presence.SetOffline(c.UserID, c.Username)
			h.broadcastAll(&Event{Kind: EventPresenceUpdate, Presence: h.presence.Snapshot()})
		}

		h.log.Debug().Str("conn_id", c.ID).Str("user", c.Username).Msg("connection cleaned up")
	})
}

// dispatch processes one connection's commands in arrival order until the
// connection closes.
func (h *Hub) dispatch(c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			h.handle(c, cmd)
		case <-c.Done():
			return
		}
	}
}

func (h *Hub) handle(c *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandJoinChannel:
		h.handleJoin(c, cmd.Channel)
	case CommandLeaveChannel:
		h.handleLeave(c, cmd.Channel)
	case CommandSendMessage:
		h.handleSend(c, cmd.Channel, cmd.Text)
	case CommandTyping:
		h.handleTyping(c, cmd.Channel, cmd.IsTyping)
	case CommandAddReaction:
		h.handleReaction(c, cmd.MessageID, cmd.Emoji)
	case CommandPresenceOnline:
		h.handlePresenceOnline(c)
	}
}

// handleJoin adds the connection to the channel's room, confirms to the
// joiner, and announces the join to the other members. The announcement is
// live-only: it is never persisted.
func (h *Hub) handleJoin(c *Client, channel string) {
	if channel == "" {
		return
	}
	if !h.registry.Join(c, channel) {
		return
	}

	c.send(&Event{Kind: EventJoinedChannel, Channel: channel})

	h.broadcastToChannel(channel, c, &Event{
		Kind:    EventMessage,
		Channel: channel,
		Message: &store.Message{
			ChannelID: channel,
			Username:  c.Username,
			Text:      fmt.Sprintf("%s has joined the channel", c.Username),
			IsSystem:  true,
			CreatedAt: time.Now(),
		},
	})
}

// handleLeave announces the departure to the remaining members first, then
// removes membership and confirms to the leaver.
func (h *Hub) handleLeave(c *Client, channel string) {
	if channel == "" || !h.registry.IsMember(c, channel) {
		return
	}

	h.broadcastToChannel(channel, c, &Event{
		Kind:    EventMessage,
		Channel: channel,
		Message: &store.Message{
			ChannelID: channel,
			Username:  c.Username,
			Text:      fmt.Sprintf("%s has left the channel", c.Username),
			IsSystem:  true,
			CreatedAt: time.Now(),
		},
	})

	h.registry.Leave(c, channel)
	c.send(&Event{Kind: EventLeftChannel, Channel: channel})
}

// handleSend persists the message, then fans it out to every other room
// member. On the assistant channel a synthesized reply follows after a short
// cancelable delay and goes to the entire room, sender included.
func (h *Hub) handleSend(c *Client, channel, text string) {
	if channel == "" || text == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg := &store.Message{
		ChannelID: channel,
		UserID:    c.UserID,
		Username:  c.Username,
		Text:      text,
		Reactions: store.Reactions{},
		CreatedAt: time.Now(),
	}
	if err := h.messages.SaveMessage(ctx, msg); err != nil {
		h.log.Error().Err(err).Str("channel", channel).Msg("persist message")
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeStoreFailure, "message could not be saved")})
		return
	}
	h.metrics.MessagesPersisted.Inc()

	h.broadcastToChannel(channel, c, &Event{Kind: EventMessage, Channel: channel, Message: msg})

	if channel == AssistantChannel {
		h.scheduleAssistantReply(c, text)
	}
}

// scheduleAssistantReply queues the assistant's response. The task is tied
// to the sender's connection lifetime so a reply is never synthesized for a
// connection that closed before the delay elapsed.
func (h *Hub) scheduleAssistantReply(c *Client, inputText string) {
	reply := AssistantReply(inputText)

	h.sched.After(h.opts.AssistantDelay, c.Done(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		msg := &store.Message{
			ChannelID: AssistantChannel,
			UserID:    AssistantUserID,
			Username:  AssistantUsername,
			Text:      reply,
			Reactions: store.Reactions{},
			IsAI:      true,
			CreatedAt: time.Now(),
		}
		if err := h.messages.SaveMessage(ctx, msg); err != nil {
			h.log.Error().Err(err).Msg("persist assistant reply")
			return
		}
		h.metrics.MessagesPersisted.Inc()

		// Unlike user messages, the reply reaches the whole room, the
		// original sender included.
		h.broadcastToChannel(AssistantChannel, nil, &Event{
			Kind:    EventMessage,
			Channel: AssistantChannel,
			Message: msg,
		})
	})
}

// handleTyping updates the typing table and fans the full snapshot out to
// the other room members. The snapshot is sent every time, not a delta.
func (h *Hub) handleTyping(c *Client, channel string, isTyping bool) {
	if channel == "" {
		return
	}

	h.typing.Set(channel, c.UserID, c.Username, isTyping)

	h.broadcastToChannel(channel, c, &Event{
		Kind:        EventTypingUpdate,
		Channel:     channel,
		TypingUsers: h.typing.Snapshot(channel),
	})
}

// handleReaction toggles the caller's reaction and fans the resulting full
// reaction map out to the entire room, the reactor included.
func (h *Hub) handleReaction(c *Client, rawMessageID, emoji string) {
	if emoji == "" || strings.HasPrefix(rawMessageID, ProvisionalIDPrefix) {
		return
	}
	messageID, err := strconv.ParseInt(rawMessageID, 10, 64)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg, err := h.messages.ToggleReaction(ctx, messageID, emoji, store.Reactor{
		UserID:   c.UserID,
		Username: c.Username,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return
		}
		h.log.Error().Err(err).Int64("message_id", messageID).Msg("toggle reaction")
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeStoreFailure, "reaction could not be saved")})
		return
	}

	h.broadcastToChannel(msg.ChannelID, nil, &Event{
		Kind:      EventReactionUpdate,
		Channel:   msg.ChannelID,
		MessageID: msg.ID,
		Reactions: msg.Reactions,
	})
}

// handlePresenceOnline marks the caller online and broadcasts the entire
// presence table to every connected client, not just room members.
func (h *Hub) handlePresenceOnline(c *Client) {
	h.presence.SetOnline(c.UserID, c.Username)
	h.broadcastAll(&Event{Kind: EventPresenceUpdate, Presence: h.presence.Snapshot()})
}

func (h *Hub) sweepTyping() {
	cutoff := time.Now().Add(-h.opts.TypingIdleTimeout)
	for _, channel := range h.typing.SweepIdle(cutoff) {
		h.broadcastToChannel(channel, nil, &Event{
			Kind:        EventTypingUpdate,
			Channel:     channel,
			TypingUsers: h.typing.Snapshot(channel),
		})
	}
}

// broadcastToChannel delivers the event to each live member of the channel's
// room, skipping exclude when non-nil. Per-target failures are isolated: a
// full or closed connection only loses its own copy.
func (h *Hub) broadcastToChannel(channel string, exclude *Client, event *Event) {
	for _, member := range h.registry.Room(channel) {
		if member == exclude {
			continue
		}
		h.deliver(member, event)
	}
}

// broadcastAll delivers the event to every registered connection.
func (h *Hub) broadcastAll(event *Event) {
	for _, c := range h.registry.Clients() {
		h.deliver(c, event)
	}
}

func (h *Hub) deliver(c *Client, event *Event) {
	if c.send(event) {
		h.metrics.EventsDelivered.Inc()
		return
	}
	h.metrics.EventsDropped.Inc()
	h.log.Warn().Str("conn_id", c.ID).Str("user", c.Username).Msg("dropping event for slow or closed connection")
}
