package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hallwaychat/hallway-server/internal/auth"
	"github.com/hallwaychat/hallway-server/internal/config"
	"github.com/hallwaychat/hallway-server/internal/core"
	"github.com/hallwaychat/hallway-server/internal/metrics"
	"github.com/hallwaychat/hallway-server/internal/proto"
	"github.com/hallwaychat/hallway-server/internal/store/sqlite"
)

// wireEvent is the outbound envelope as seen by a client, with the payload
// left raw for per-event decoding.
type wireEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := zerolog.Nop()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Default()
	cfg.JWTSecret = "test-secret"
	cfg.AssistantDelay = 10 * time.Millisecond

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})

	m := metrics.New()
	hub := core.NewHub(
		core.NewRegistry(),
		core.NewPresenceTable(),
		core.NewTypingTable(),
		st,
		m,
		&logger,
		core.Options{AssistantDelay: cfg.AssistantDelay, TypingIdleTimeout: cfg.TypingIdleTimeout},
	)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	srv := NewServer(hub, authService, st, m, &cfg, &logger)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func signup(t *testing.T, ts *httptest.Server, username, password string) AuthResponse {
	t.Helper()

	body, _ := json.Marshal(CredentialsRequest{Username: username, Password: password})
	resp, err := stdhttp.Post(ts.URL+"/api/signup", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, stdhttp.StatusCreated, resp.StatusCode)

	var created AuthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	return created
}

func dialWS(t *testing.T, ts *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{"event": event, "data": data}))
}

// readUntil reads frames until one with the wanted event name arrives.
func readUntil(t *testing.T, conn *websocket.Conn, event string) wireEvent {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		var ev wireEvent
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			t.Fatalf("waiting for %q: %v", event, err)
		}
		if ev.Event == event {
			return ev
		}
	}
}

func TestSignupLoginRefreshFlow(t *testing.T) {
	ts := newTestServer(t)

	created := signup(t, ts, "alice_01", "Str0ng!Pass")
	assert.True(t, created.Success)
	assert.Equal(t, "alice_01", created.Username)
	assert.NotEmpty(t, created.AccessToken)
	assert.NotEmpty(t, created.RefreshToken)

	// Duplicate username.
	body, _ := json.Marshal(CredentialsRequest{Username: "Alice_01", Password: "0ther!Pass"})
	resp, err := stdhttp.Post(ts.URL+"/api/signup", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, stdhttp.StatusConflict, resp.StatusCode)
	var apiErr APIError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
	assert.Equal(t, "username_already_exists", apiErr.ErrorType)

	// Format violations come back as bad_format.
	body, _ = json.Marshal(CredentialsRequest{Username: "xy", Password: "Str0ng!Pass"})
	resp2, err := stdhttp.Post(ts.URL+"/api/signup", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, stdhttp.StatusBadRequest, resp2.StatusCode)

	// Login and wrong password.
	body, _ = json.Marshal(CredentialsRequest{Username: "alice_01", Password: "Str0ng!Pass"})
	resp3, err := stdhttp.Post(ts.URL+"/api/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, stdhttp.StatusOK, resp3.StatusCode)

	body, _ = json.Marshal(CredentialsRequest{Username: "alice_01", Password: "WrongPass1!"})
	resp4, err := stdhttp.Post(ts.URL+"/api/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp4.Body.Close()
	assert.Equal(t, stdhttp.StatusUnauthorized, resp4.StatusCode)

	// Refresh.
	body, _ = json.Marshal(RefreshRequest{RefreshToken: created.RefreshToken})
	resp5, err := stdhttp.Post(ts.URL+"/api/refresh", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp5.Body.Close()
	assert.Equal(t, stdhttp.StatusOK, resp5.StatusCode)

	body, _ = json.Marshal(RefreshRequest{RefreshToken: "garbage"})
	resp6, err := stdhttp.Post(ts.URL+"/api/refresh", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp6.Body.Close()
	assert.Equal(t, stdhttp.StatusUnauthorized, resp6.StatusCode)
}

func TestWSRejectsInvalidToken(t *testing.T) {
	ts := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=not-a-token"
	conn, resp, err := websocket.Dial(ctx, url, nil)
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "")
	}
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, stdhttp.StatusUnauthorized, resp.StatusCode)
}

func TestWSJoinSendAndReceive(t *testing.T) {
	ts := newTestServer(t)

	alice := signup(t, ts, "alice_01", "Str0ng!Pass")
	bob := signup(t, ts, "bobby_02", "Str0ng!Pass")

	aliceConn := dialWS(t, ts, alice.AccessToken)
	bobConn := dialWS(t, ts, bob.AccessToken)

	readUntil(t, aliceConn, proto.OutboundConnectionResponse)
	readUntil(t, bobConn, proto.OutboundConnectionResponse)

	sendEvent(t, bobConn, proto.InboundJoinChannel, proto.JoinChannelData{ChannelID: "general"})
	readUntil(t, bobConn, proto.OutboundJoinedChannel)

	sendEvent(t, aliceConn, proto.InboundJoinChannel, proto.JoinChannelData{ChannelID: "general"})
	readUntil(t, aliceConn, proto.OutboundJoinedChannel)

	// Bob sees alice's join notice.
	joined := readUntil(t, bobConn, proto.OutboundMessage)
	var notice proto.MessageEvent
	require.NoError(t, json.Unmarshal(joined.Data, &notice))
	assert.True(t, notice.IsSystem)
	assert.Contains(t, notice.Text, "alice_01 has joined")

	sendEvent(t, aliceConn, proto.InboundMessage, proto.MessageData{Channel: "general", Text: "hi bob"})

	msgFrame := readUntil(t, bobConn, proto.OutboundMessage)
	var msg proto.MessageEvent
	require.NoError(t, json.Unmarshal(msgFrame.Data, &msg))
	assert.Equal(t, "hi bob", msg.Text)
	assert.Equal(t, "alice_01", msg.User)
	assert.NotZero(t, msg.ID)

	// Reaction update reaches the reactor too.
	sendEvent(t, bobConn, proto.InboundAddReaction, map[string]any{"message_id": msg.ID, "emoji": "👍"})

	reaction := readUntil(t, bobConn, proto.OutboundReactionUpdate)
	var update proto.ReactionUpdate
	require.NoError(t, json.Unmarshal(reaction.Data, &update))
	assert.Equal(t, msg.ID, update.MessageID)
	require.Len(t, update.Reactions["👍"], 1)
	assert.Equal(t, "bobby_02", update.Reactions["👍"][0].Username)

	readUntil(t, aliceConn, proto.OutboundReactionUpdate)
}

func TestWSSecondSessionKicksFirst(t *testing.T) {
	ts := newTestServer(t)

	alice := signup(t, ts, "alice_01", "Str0ng!Pass")

	first := dialWS(t, ts, alice.AccessToken)
	readUntil(t, first, proto.OutboundConnectionResponse)

	second := dialWS(t, ts, alice.AccessToken)
	readUntil(t, second, proto.OutboundConnectionResponse)

	kicked := readUntil(t, first, proto.OutboundKicked)
	require.NotNil(t, kicked.Error)
	assert.Equal(t, core.ErrCodeKicked, kicked.Error.Code)
}

func TestWSTypingSnapshotExcludesTyper(t *testing.T) {
	ts := newTestServer(t)

	alice := signup(t, ts, "alice_01", "Str0ng!Pass")
	bob := signup(t, ts, "bobby_02", "Str0ng!Pass")

	aliceConn := dialWS(t, ts, alice.AccessToken)
	bobConn := dialWS(t, ts, bob.AccessToken)
	readUntil(t, aliceConn, proto.OutboundConnectionResponse)
	readUntil(t, bobConn, proto.OutboundConnectionResponse)

	sendEvent(t, aliceConn, proto.InboundJoinChannel, proto.JoinChannelData{ChannelID: "general"})
	sendEvent(t, bobConn, proto.InboundJoinChannel, proto.JoinChannelData{ChannelID: "general"})
	readUntil(t, aliceConn, proto.OutboundJoinedChannel)
	readUntil(t, bobConn, proto.OutboundJoinedChannel)

	sendEvent(t, aliceConn, proto.InboundTyping, proto.TypingData{ChannelID: "general", IsTyping: true})

	frame := readUntil(t, bobConn, proto.OutboundTypingUpdate)
	var update proto.TypingUpdate
	require.NoError(t, json.Unmarshal(frame.Data, &update))
	assert.Equal(t, []string{"alice_01"}, update.TypingUsers)
}

func TestHistoryEndpointMarksRead(t *testing.T) {
	ts := newTestServer(t)

	alice := signup(t, ts, "alice_01", "Str0ng!Pass")
	bob := signup(t, ts, "bobby_02", "Str0ng!Pass")

	// Bob posts into general over the socket.
	bobConn := dialWS(t, ts, bob.AccessToken)
	readUntil(t, bobConn, proto.OutboundConnectionResponse)
	sendEvent(t, bobConn, proto.InboundJoinChannel, proto.JoinChannelData{ChannelID: "general"})
	readUntil(t, bobConn, proto.OutboundJoinedChannel)
	sendEvent(t, bobConn, proto.InboundMessage, proto.MessageData{Channel: "general", Text: "hello history"})

	// Unauthenticated fetch is refused.
	plain, err := stdhttp.Get(ts.URL + "/api/messages/general")
	require.NoError(t, err)
	plain.Body.Close()
	assert.Equal(t, stdhttp.StatusUnauthorized, plain.StatusCode)

	history := fetchHistory(t, ts, alice.AccessToken, "general")
	require.Len(t, history.Messages, 1)
	assert.Equal(t, "hello history", history.Messages[0].Text)
	assert.False(t, history.HasMore)
	// The fetch marked the channel read.
	assert.Equal(t, 0, history.UnreadCounts["general"])

	// Bob still has nothing unread: his own message never counts.
	bobHistory := fetchHistory(t, ts, bob.AccessToken, "general")
	assert.Equal(t, 0, bobHistory.UnreadCounts["general"])
}

func fetchHistory(t *testing.T, ts *httptest.Server, token, channel string) HistoryResponse {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for {
		req, err := stdhttp.NewRequest(stdhttp.MethodGet, fmt.Sprintf("%s/api/messages/%s", ts.URL, channel), nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := stdhttp.DefaultClient.Do(req)
		require.NoError(t, err)
		require.Equal(t, stdhttp.StatusOK, resp.StatusCode)

		var history HistoryResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
		resp.Body.Close()

		// Socket-delivered messages persist asynchronously; poll briefly.
		if len(history.Messages) > 0 || time.Now().After(deadline) {
			return history
		}
		time.Sleep(20 * time.Millisecond)
	}
}
