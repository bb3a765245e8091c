package wsapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/txindexd/txindexd/internal/ratelimit"
	"github.com/txindexd/txindexd/internal/txmodel"
)

func newTestSession(id string, filters txmodel.Filter) *Session {
	return &Session{
		id:            id,
		cfg:           Config{MaxEventsPerSec: 100},
		limits:        ratelimit.New(),
		subscriptions: map[string]subscription{"sub": {id: "sub", filters: filters, createdAt: time.Now()}},
		events:        make(chan ServerMessage, 10),
	}
}

func TestHubPublishDeliversOnlyToMatchingSessions(t *testing.T) {
	hub := NewHub()
	programID := "prog-a"
	matching := newTestSession("s1", txmodel.Filter{ProgramID: &programID})
	other := "prog-b"
	nonMatching := newTestSession("s2", txmodel.Filter{ProgramID: &other})

	hub.Register(matching)
	hub.Register(nonMatching)
	require.Equal(t, 2, hub.Count())

	hub.Publish(txmodel.Transaction{Signature: "sig", ProgramIDs: []string{"prog-a"}})

	select {
	case msg := <-matching.events:
		require.Equal(t, MsgEvent, msg.Type)
	default:
		t.Fatal("expected matching session to receive an event")
	}

	select {
	case <-nonMatching.events:
		t.Fatal("non-matching session should not receive an event")
	default:
	}
}

func TestHubUnregisterStopsFanOut(t *testing.T) {
	hub := NewHub()
	sess := newTestSession("s1", txmodel.Filter{})
	hub.Register(sess)
	hub.Unregister(sess)
	require.Equal(t, 0, hub.Count())

	hub.Publish(txmodel.Transaction{Signature: "sig"})
	select {
	case <-sess.events:
		t.Fatal("unregistered session should not receive events")
	default:
	}
}
