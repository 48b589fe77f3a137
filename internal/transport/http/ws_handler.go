package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hallwaychat/hallway-server/internal/auth"
	"github.com/hallwaychat/hallway-server/internal/core"
	"github.com/hallwaychat/hallway-server/internal/proto"
)

// TokenVerifier resolves a bearer token to a principal.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Principal, error)
}

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub      *core.Hub
	verifier TokenVerifier
	log      *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, verifier TokenVerifier, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, verifier: verifier, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	// Authenticate before upgrading: a bad token is refused outright and
	// never touches the connection registry.
	principal, err := h.verifier.Verify(ctx, r.URL.Query().Get("token"))
	if err != nil {
		h.log.Debug().Err(err).Msg("ws handshake rejected")
		stdhttp.Error(w, "invalid token", stdhttp.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	client := core.NewClient(uuid.NewString(), principal.UserID, principal.Username)
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if errors.Is(err, errSessionReplaced) {
			status = websocket.StatusPolicyViolation
			reason = "session replaced"
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// errSessionReplaced signals that the hub kicked this connection in favor of
// a newer one for the same user.
var errSessionReplaced = errors.New("session replaced")

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		cmd, err := inboundToCommand(inbound)
		if err != nil {
			h.log.Debug().Err(err).Str("conn_id", client.ID).Str("event", inbound.Event).Msg("malformed inbound event")
			continue
		}
		if cmd == nil {
			continue
		}

		select {
		case client.Commands <- cmd:
		case <-client.Done():
			return errSessionReplaced
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("conn_id", client.ID).Msg("write ws event")
				return err
			}
			if event.Kind == core.EventKicked {
				return errSessionReplaced
			}
		case <-client.Done():
			// Flush a pending kick notice if one is queued.
			select {
			case event := <-client.Events:
				_ = wsjson.Write(ctx, conn, outboundFromEvent(event))
				if event.Kind == core.EventKicked {
					return errSessionReplaced
				}
			default:
			}
			return errSessionReplaced
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
