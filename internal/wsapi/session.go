package wsapi

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/txindexd/txindexd/internal/metrics"
	"github.com/txindexd/txindexd/internal/ratelimit"
	"github.com/txindexd/txindexd/internal/txlog"
	"github.com/txindexd/txindexd/internal/txmodel"
	"github.com/txindexd/txindexd/internal/txstore"
)

// Config controls session-level behavior: heartbeat cadence, inbound and
// outbound rate limits, and resume-from-slot replay.
type Config struct {
	PingInterval       time.Duration
	IdleTimeout        time.Duration
	MaxSubscriptions   int
	MaxClientMsgPerMin int
	MaxEventsPerSec    int
	ResumeCatchupLimit int
}

type subscription struct {
	id        string
	filters   txmodel.Filter
	createdAt time.Time
}

// Session is a single connection's actor: one reader goroutine feeding
// Run's select loop, one set of subscriptions, and its own rate-limit and
// heartbeat state, the goroutine-plus-channels shape this codebase uses
// for other per-peer read/write pumps.
type Session struct {
	conn   *websocket.Conn
	cfg    Config
	store  *txstore.Store
	limits *ratelimit.Limiter
	id     string

	mu            sync.Mutex
	subscriptions map[string]subscription

	lastActivity time.Time
	lastPing     time.Time

	events chan ServerMessage
	done   chan struct{}
}

// NewSession constructs a Session wrapping conn. id should uniquely
// identify the connection (e.g. remote addr plus a counter) and is used
// as the rate-limit key for the inbound/outbound scopes.
func NewSession(conn *websocket.Conn, cfg Config, store *txstore.Store, limits *ratelimit.Limiter, id string) *Session {
	now := time.Now()
	return &Session{
		conn:          conn,
		cfg:           cfg,
		store:         store,
		limits:        limits,
		id:            id,
		subscriptions: make(map[string]subscription),
		lastActivity:  now,
		lastPing:      now,
		events:        make(chan ServerMessage, 256),
		done:          make(chan struct{}),
	}
}

// matches returns the ids of the subscriptions whose filters accept tx.
// Session has no Publish method: the Hub implements ingest.Publisher and
// calls matches and deliver on each registered session.
func (s *Session) matches(tx txmodel.Transaction) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var subIDs []string
	for _, sub := range s.subscriptions {
		if sub.filters.Matches(tx) {
			subIDs = append(subIDs, sub.id)
		}
	}
	return subIDs
}

func (s *Session) deliver(subID string, tx txmodel.Transaction) {
	res := s.limits.Check(ratelimit.ScopeSessionOut, s.id, s.cfg.MaxEventsPerSec, time.Second)
	if !res.Allowed {
		metrics.WSEventsDroppedTotal.Inc()
		return
	}

	msg, err := eventMessage(subID, tx)
	if err != nil {
		txlog.WSChanLog.Errorf("marshaling event for session %s: %v", s.id, err)
		return
	}

	select {
	case s.events <- msg:
		metrics.WSEventsDeliveredTotal.Inc()
	default:
		metrics.WSEventsDroppedTotal.Inc()
	}
}

// Run drives the session until the connection closes or ctx is canceled.
// It spawns a dedicated reader goroutine (gorilla/websocket connections
// are not safe for concurrent reads, but a single reader feeding a
// channel composes cleanly with the select-driven write side) and
// multiplexes inbound messages, outbound events, and the heartbeat timer
// in one loop.
func (s *Session) Run(ctx context.Context) {
	metrics.WSActiveSessions.Inc()
	defer metrics.WSActiveSessions.Dec()
	defer close(s.done)
	defer s.conn.Close()

	inbound := make(chan []byte)
	readErrs := make(chan error, 1)
	go func() {
		for {
			_, data, err := s.conn.ReadMessage()
			if err != nil {
				readErrs <- err
				return
			}
			select {
			case inbound <- data:
			case <-s.done:
				return
			}
		}
	}()

	pingTicker := time.NewTicker(s.cfg.PingInterval)
	defer pingTicker.Stop()
	idleTicker := time.NewTicker(10 * time.Second)
	defer idleTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case err := <-readErrs:
			if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				txlog.WSChanLog.Debugf("session %s read error: %v", s.id, err)
			}
			return

		case data := <-inbound:
			if !s.handleInbound(data) {
				return
			}

		case msg := <-s.events:
			if err := s.writeMessage(msg); err != nil {
				txlog.WSChanLog.Debugf("session %s write error: %v", s.id, err)
				return
			}

		case <-pingTicker.C:
			if time.Since(s.lastPing) >= s.cfg.PingInterval {
				ts := uint64(time.Now().Unix())
				if err := s.writeMessage(pingMessage(ts)); err != nil {
					return
				}
				s.lastPing = time.Now()
			}

		case <-idleTicker.C:
			if time.Since(s.lastActivity) >= s.cfg.IdleTimeout {
				txlog.WSChanLog.Debugf("closing idle session %s", s.id)
				s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "idle timeout"))
				return
			}
		}
	}
}

func (s *Session) writeMessage(msg ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// handleInbound processes one inbound frame and reports whether the
// session should keep running. An inbound-rate violation sends
// Error{rate_limited} and then closes the session with a policy-violation
// code, per the channel's close semantics.
func (s *Session) handleInbound(data []byte) bool {
	s.lastActivity = time.Now()

	res := s.limits.Check(ratelimit.ScopeSessionIn, s.id, s.cfg.MaxClientMsgPerMin, time.Minute)
	if !res.Allowed {
		s.writeMessage(errorMessage("rate_limited", "too many client messages"))
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "rate limit exceeded"))
		return false
	}

	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.writeMessage(errorMessage("invalid_message", "invalid JSON format"))
		return true
	}

	switch msg.Type {
	case MsgSubscribe:
		s.handleSubscribe(msg)
	case MsgUnsubscribe:
		s.handleUnsubscribe(msg.ID)
	case MsgPong:
		s.lastPing = time.Now()
	default:
		s.writeMessage(errorMessage("invalid_message", "unexpected message type"))
	}
	return true
}

func (s *Session) handleSubscribe(msg ClientMessage) {
	s.mu.Lock()
	if len(s.subscriptions) >= s.cfg.MaxSubscriptions {
		s.mu.Unlock()
		s.writeMessage(errorMessage("too_many_subscriptions", "maximum subscriptions exceeded"))
		return
	}

	subID := uuid.NewString()
	s.subscriptions[subID] = subscription{id: subID, filters: msg.Filters, createdAt: time.Now()}
	s.mu.Unlock()

	s.writeMessage(ackMessage(subID, msg.Filters))

	if msg.ResumeFromSlot != nil {
		s.replaySince(subID, msg.Filters, *msg.ResumeFromSlot)
	}
}

// replaySince performs the catch-up replay: it first sends the Info
// acknowledgment, then queries the store for every row matching filters
// with a slot greater than sinceSlot, up to the configured catch-up
// limit, and delivers them as ordinary Event messages on the new
// subscription before live events start arriving. If the query fails,
// an Error{replay_failed} follows the Info instead of the events.
func (s *Session) replaySince(subID string, filters txmodel.Filter, sinceSlot int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.writeMessage(infoMessage("resuming from slot " + strconv.FormatInt(sinceSlot, 10)))

	rows, err := s.store.ListSinceSlot(ctx, filters, sinceSlot, s.cfg.ResumeCatchupLimit)
	if err != nil {
		txlog.WSChanLog.Errorf("resume replay for session %s sub %s: %v", s.id, subID, err)
		s.writeMessage(errorMessage("replay_failed", "failed to replay missed transactions"))
		return
	}

	for _, tx := range rows {
		msg, err := eventMessage(subID, tx)
		if err != nil {
			continue
		}
		s.writeMessage(msg)
	}
}

func (s *Session) handleUnsubscribe(id string) {
	s.mu.Lock()
	_, existed := s.subscriptions[id]
	delete(s.subscriptions, id)
	s.mu.Unlock()

	if !existed {
		txlog.WSChanLog.Debugf("session %s unsubscribe from unknown id %s", s.id, id)
	}
}
