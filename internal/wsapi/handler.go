package wsapi

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/txindexd/txindexd/internal/ratelimit"
	"github.com/txindexd/txindexd/internal/txlog"
	"github.com/txindexd/txindexd/internal/txstore"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The live channel sits behind the same origin-agnostic deployment
	// model as the REST API; CORS policy is enforced upstream.
	CheckOrigin: func(r *http.Request) bool { return true },
}

var sessionCounter uint64

// Handler upgrades qualifying requests to the live subscription channel,
// registers the resulting Session with hub, and runs it until the
// connection closes.
type Handler struct {
	cfg    Config
	store  *txstore.Store
	limits *ratelimit.Limiter
	hub    *Hub
}

// NewHandler constructs a Handler.
func NewHandler(cfg Config, store *txstore.Store, limits *ratelimit.Limiter, hub *Hub) *Handler {
	return &Handler{cfg: cfg, store: store, limits: limits, hub: hub}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		txlog.WSChanLog.Errorf("upgrade failed: %v", err)
		return
	}

	id := fmt.Sprintf("%s-%d", r.RemoteAddr, atomic.AddUint64(&sessionCounter, 1))
	sess := NewSession(conn, h.cfg, h.store, h.limits, id)

	h.hub.Register(sess)
	defer h.hub.Unregister(sess)

	sess.Run(r.Context())
}
