package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/hallwaychat/hallway-server/internal/core"
	"github.com/hallwaychat/hallway-server/internal/proto"
	"github.com/hallwaychat/hallway-server/internal/store"
)

const historyPageSize = 50

// HistoryHandlers serves channel history with read-state bookkeeping.
type HistoryHandlers struct {
	messages store.MessageStore
	log      *zerolog.Logger
}

// NewHistoryHandlers creates a new history handlers instance.
func NewHistoryHandlers(messages store.MessageStore, logger *zerolog.Logger) *HistoryHandlers {
	return &HistoryHandlers{messages: messages, log: logger}
}

// HistoryResponse is the channel history response body.
type HistoryResponse struct {
	Success      bool                 `json:"success"`
	Messages     []proto.MessageEvent `json:"messages"`
	UnreadCounts map[string]int       `json:"unread_counts"`
	HasMore      bool                 `json:"has_more"`
}

// GetMessages returns one page of a channel's history, oldest to newest.
// Fetching marks every message in the channel authored by someone else as
// read, and the response carries unread counts for the fixed channel set.
// GET /api/messages/:channel_id?page=N
func (h *HistoryHandlers) GetMessages(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, apiError("unauthorized", "invalid_token"))
		return
	}

	channelID := c.Param("channel_id")
	if channelID == "" {
		c.JSON(http.StatusBadRequest, apiError("channel_id is required", "bad_format"))
		return
	}

	page := 1
	if raw := c.Query("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, apiError("page must be a positive integer", "bad_format"))
			return
		}
		page = parsed
	}

	ctx := c.Request.Context()

	result, err := h.messages.ListChannelPage(ctx, channelID, page, historyPageSize)
	if err != nil {
		h.log.Error().Err(err).Str("channel", channelID).Msg("list channel page")
		c.JSON(http.StatusInternalServerError, apiError("failed to load messages", "server_error"))
		return
	}

	// The fetch itself counts as viewing the channel.
	if err := h.messages.MarkChannelRead(ctx, channelID, userID); err != nil {
		h.log.Error().Err(err).Str("channel", channelID).Msg("mark channel read")
		c.JSON(http.StatusInternalServerError, apiError("failed to update read state", "server_error"))
		return
	}

	unread, err := h.messages.UnreadCounts(ctx, userID, core.DefaultChannels)
	if err != nil {
		h.log.Error().Err(err).Msg("unread counts")
		c.JSON(http.StatusInternalServerError, apiError("failed to load unread counts", "server_error"))
		return
	}

	messages := make([]proto.MessageEvent, 0, len(result.Messages))
	for _, msg := range result.Messages {
		messages = append(messages, messageEvent(msg))
	}

	c.JSON(http.StatusOK, HistoryResponse{
		Success:      true,
		Messages:     messages,
		UnreadCounts: unread,
		HasMore:      result.HasMore,
	})
}
