package core

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hallwaychat/hallway-server/internal/metrics"
	"github.com/hallwaychat/hallway-server/internal/store"
	"github.com/hallwaychat/hallway-server/internal/store/sqlite"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestHub(t *testing.T, messages store.MessageStore) *Hub {
	t.Helper()

	logger := zerolog.Nop()
	return NewHub(
		NewRegistry(),
		NewPresenceTable(),
		NewTypingTable(),
		messages,
		metrics.New(),
		&logger,
		Options{AssistantDelay: 10 * time.Millisecond},
	)
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// mustNoEvent asserts no event of the given kind arrives within the window.
func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind, window time.Duration) {
	t.Helper()

	deadline := time.Now().Add(window)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v: %+v", kind, ev)
			}
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}
