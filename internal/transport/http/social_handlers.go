package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/hallwaychat/hallway-server/internal/core"
	"github.com/hallwaychat/hallway-server/internal/store"
)

// SocialHandlers provides HTTP handlers for the friend-request surface.
type SocialHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewSocialHandlers creates a new social handlers instance.
func NewSocialHandlers(st store.Store, logger *zerolog.Logger) *SocialHandlers {
	return &SocialHandlers{store: st, log: logger}
}

// SocialUser is one entry in the social-data listing.
type SocialUser struct {
	ID                 any    `json:"id"`
	Username           string `json:"username"`
	RelationshipStatus string `json:"relationshipStatus"`
	RequestID          *int64 `json:"requestId"`
}

// GetSocialData lists every other user together with the friend-request
// relationship the caller has with them. The assistant is always included as
// an accepted friend.
// GET /api/social-data
func (h *SocialHandlers) GetSocialData(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, apiError("unauthorized", "invalid_token"))
		return
	}

	ctx := c.Request.Context()

	users, err := h.store.ListUsers(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("list users")
		c.JSON(http.StatusInternalServerError, apiError("internal server error", "server_error"))
		return
	}

	sent, received, err := h.store.ListRequestsByUser(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Msg("list friend requests")
		c.JSON(http.StatusInternalServerError, apiError("internal server error", "server_error"))
		return
	}

	type requestInfo struct {
		status store.FriendStatus
		id     int64
		sent   bool
	}
	requestMap := make(map[int64]requestInfo)
	for _, fr := range sent {
		requestMap[fr.ReceiverID] = requestInfo{status: fr.Status, id: fr.ID, sent: true}
	}
	for _, fr := range received {
		if _, exists := requestMap[fr.SenderID]; !exists {
			requestMap[fr.SenderID] = requestInfo{status: fr.Status, id: fr.ID, sent: false}
		}
	}

	userList := make([]SocialUser, 0, len(users)+1)
	for _, u := range users {
		if u.ID == userID {
			continue
		}

		entry := SocialUser{ID: u.ID, Username: u.Username, RelationshipStatus: "no_request_exists"}
		if info, exists := requestMap[u.ID]; exists {
			entry.RelationshipStatus = relationshipStatus(info.status, info.sent)
			id := info.id
			entry.RequestID = &id
		}
		userList = append(userList, entry)
	}

	// The assistant is everyone's friend.
	userList = append(userList, SocialUser{
		ID:                 core.AssistantUsername,
		Username:           core.AssistantUsername,
		RelationshipStatus: "we_are_friends",
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"users":   userList,
	})
}

func relationshipStatus(status store.FriendStatus, sentByMe bool) string {
	switch {
	case status == store.FriendStatusAccepted:
		return "we_are_friends"
	case status == store.FriendStatusPending && sentByMe:
		return "i_sent_them_a_request"
	case status == store.FriendStatusPending:
		return "they_sent_me_a_request"
	case status == store.FriendStatusRejected && sentByMe:
		return "they_rejected_me"
	case status == store.FriendStatusRejected:
		return "i_rejected_them"
	default:
		return "no_request_exists"
	}
}

// SendRequest creates a pending friend request.
// POST /api/friend-request
func (h *SocialHandlers) SendRequest(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, apiError("unauthorized", "invalid_token"))
		return
	}

	var req struct {
		ReceiverID int64 `json:"receiver_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ReceiverID == 0 {
		c.JSON(http.StatusBadRequest, apiError("receiver_id is required", "bad_format"))
		return
	}
	if req.ReceiverID == userID {
		c.JSON(http.StatusBadRequest, apiError("cannot send request to yourself", "bad_format"))
		return
	}

	ctx := c.Request.Context()

	if _, err := h.store.GetPendingRequest(ctx, userID, req.ReceiverID); err == nil {
		c.JSON(http.StatusBadRequest, apiError("request already sent", "bad_format"))
		return
	}

	if _, err := h.store.CreateFriendRequest(ctx, userID, req.ReceiverID); err != nil {
		h.log.Error().Err(err).Int64("receiver_id", req.ReceiverID).Msg("create friend request")
		c.JSON(http.StatusInternalServerError, apiError("internal server error", "server_error"))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true})
}

// AcceptRequest accepts a pending friend request addressed to the caller.
// POST /api/friend-request/:id/accept
func (h *SocialHandlers) AcceptRequest(c *gin.Context) {
	h.resolveRequest(c, store.FriendStatusAccepted)
}

// RejectRequest rejects a pending friend request addressed to the caller.
// POST /api/friend-request/:id/reject
func (h *SocialHandlers) RejectRequest(c *gin.Context) {
	h.resolveRequest(c, store.FriendStatusRejected)
}

func (h *SocialHandlers) resolveRequest(c *gin.Context, status store.FriendStatus) {
	userID, _, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, apiError("unauthorized", "invalid_token"))
		return
	}

	requestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false})
		return
	}

	ctx := c.Request.Context()

	fr, err := h.store.GetFriendRequest(ctx, requestID)
	if err != nil || fr.ReceiverID != userID {
		c.JSON(http.StatusNotFound, gin.H{"success": false})
		return
	}

	if err := h.store.UpdateFriendStatus(ctx, requestID, status); err != nil {
		h.log.Error().Err(err).Int64("request_id", requestID).Msg("update friend request")
		c.JSON(http.StatusInternalServerError, apiError("internal server error", "server_error"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CancelRequest deletes a pending request the caller sent.
// DELETE /api/friend-request/:id
func (h *SocialHandlers) CancelRequest(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, apiError("unauthorized", "invalid_token"))
		return
	}

	requestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false})
		return
	}

	ctx := c.Request.Context()

	fr, err := h.store.GetFriendRequest(ctx, requestID)
	if err != nil || fr.SenderID != userID {
		c.JSON(http.StatusNotFound, gin.H{"success": false})
		return
	}

	if err := h.store.DeleteFriendRequest(ctx, requestID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false})
			return
		}
		h.log.Error().Err(err).Int64("request_id", requestID).Msg("delete friend request")
		c.JSON(http.StatusInternalServerError, apiError("internal server error", "server_error"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
