package http

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/hallwaychat/hallway-server/internal/core"
	"github.com/hallwaychat/hallway-server/internal/proto"
	"github.com/hallwaychat/hallway-server/internal/store"
)

// inboundToCommand maps a wire event onto a core command. A nil command with
// a nil error means the event is malformed and silently dropped, matching
// the observed behavior of the event surface.
func inboundToCommand(inbound proto.Inbound) (*core.Command, error) {
	switch inbound.Event {
	case proto.InboundJoinChannel:
		var join proto.JoinChannelData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, err
		}
		return &core.Command{Kind: core.CommandJoinChannel, Channel: join.ChannelID}, nil

	case proto.InboundLeaveChannel:
		var leave proto.JoinChannelData
		if err := json.Unmarshal(inbound.Data, &leave); err != nil {
			return nil, err
		}
		return &core.Command{Kind: core.CommandLeaveChannel, Channel: leave.ChannelID}, nil

	case proto.InboundMessage:
		var msg proto.MessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, err
		}
		return &core.Command{Kind: core.CommandSendMessage, Channel: msg.Channel, Text: msg.Text}, nil

	case proto.InboundTyping:
		var typing proto.TypingData
		if err := json.Unmarshal(inbound.Data, &typing); err != nil {
			return nil, err
		}
		return &core.Command{Kind: core.CommandTyping, Channel: typing.ChannelID, IsTyping: typing.IsTyping}, nil

	case proto.InboundAddReaction:
		var react proto.AddReactionData
		if err := json.Unmarshal(inbound.Data, &react); err != nil {
			return nil, err
		}
		return &core.Command{
			Kind:      core.CommandAddReaction,
			MessageID: rawMessageID(react.MessageID),
			Emoji:     react.Emoji,
		}, nil

	case proto.InboundUserOnline:
		return &core.Command{Kind: core.CommandPresenceOnline}, nil

	default:
		// Unknown event names are dropped, same as malformed payloads.
		return nil, nil
	}
}

// rawMessageID normalizes a wire message id to its textual form. Clients
// send either a numeric id for persisted messages or a provisional string id
// for optimistically rendered ones.
func rawMessageID(raw json.RawMessage) string {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	return strings.TrimSpace(string(raw))
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventConnectionResponse:
		return proto.Outbound{
			Event: proto.OutboundConnectionResponse,
			Data: proto.ConnectionResponse{
				Status:   "connected",
				Username: event.Username,
			},
		}

	case core.EventJoinedChannel:
		return proto.Outbound{
			Event: proto.OutboundJoinedChannel,
			Data:  proto.ChannelConfirmation{ChannelID: event.Channel},
		}

	case core.EventLeftChannel:
		return proto.Outbound{
			Event: proto.OutboundLeftChannel,
			Data:  proto.ChannelConfirmation{ChannelID: event.Channel},
		}

	case core.EventMessage:
		return proto.Outbound{
			Event: proto.OutboundMessage,
			Data:  messageEvent(event.Message),
		}

	case core.EventTypingUpdate:
		return proto.Outbound{
			Event: proto.OutboundTypingUpdate,
			Data: proto.TypingUpdate{
				ChannelID:   event.Channel,
				TypingUsers: event.TypingUsers,
			},
		}

	case core.EventReactionUpdate:
		return proto.Outbound{
			Event: proto.OutboundReactionUpdate,
			Data: proto.ReactionUpdate{
				MessageID: event.MessageID,
				Reactions: wireReactions(event.Reactions),
			},
		}

	case core.EventPresenceUpdate:
		online := make(map[string]proto.PresenceEntry, len(event.Presence))
		for username, entry := range event.Presence {
			online[username] = proto.PresenceEntry{
				UserID:   entry.UserID,
				Status:   entry.Status,
				LastSeen: entry.LastSeen.UTC().Format(time.RFC3339),
			}
		}
		return proto.Outbound{
			Event: proto.OutboundPresenceUpdate,
			Data:  proto.PresenceUpdate{OnlineUsers: online},
		}

	case core.EventKicked:
		return proto.Outbound{
			Event: proto.OutboundKicked,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}

	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Event: proto.OutboundError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Event: proto.OutboundError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}

	default:
		return proto.Outbound{Event: proto.OutboundError, Error: &proto.Error{Code: "unknown", Msg: "unknown event"}}
	}
}

func messageEvent(msg *store.Message) proto.MessageEvent {
	return proto.MessageEvent{
		ID:        msg.ID,
		ChannelID: msg.ChannelID,
		UserID:    msg.UserID,
		User:      msg.Username,
		Text:      msg.Text,
		Timestamp: msg.CreatedAt.UTC().Format(time.RFC3339),
		Reactions: wireReactions(msg.Reactions),
		IsSystem:  msg.IsSystem,
		IsAI:      msg.IsAI,
	}
}

func wireReactions(reactions store.Reactions) map[string][]proto.Reactor {
	wire := make(map[string][]proto.Reactor, len(reactions))
	for emoji, reactors := range reactions {
		entries := make([]proto.Reactor, 0, len(reactors))
		for _, r := range reactors {
			entries = append(entries, proto.Reactor{UserID: r.UserID, Username: r.Username})
		}
		wire[emoji] = entries
	}
	return wire
}
