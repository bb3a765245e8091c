// Package httpapi implements the REST surface: health/readiness/version,
// the wallet-auth nonce challenge, and the filtered/paginated/cached
// transaction query endpoints, wired through gorilla/mux, with
// middleware for request-id propagation, rate limiting, and wallet-auth
// gating.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/txindexd/txindexd/internal/cache"
	"github.com/txindexd/txindexd/internal/kv"
	"github.com/txindexd/txindexd/internal/ratelimit"
	"github.com/txindexd/txindexd/internal/txstore"
	"github.com/txindexd/txindexd/internal/walletauth"
	"github.com/txindexd/txindexd/internal/wsapi"
)

// Config is the root configuration the server needs across routes and
// middleware.
type Config struct {
	RequestIDHeader string

	RateLimitEnabled     bool
	IPMaxRequests        int
	IPWindow             time.Duration
	WalletMaxRequests    int
	WalletWindow         time.Duration
	RespectXForwardedFor bool
	RateLimitWhitelist   []string

	CacheEnabled  bool
	CacheTTL      time.Duration
	CacheETagSalt string

	WSPath string

	ServiceName    string
	ServiceVersion string
}

// BrokerChecker reports whether the configured message broker is
// reachable, used by /readyz. It is injected rather than imported
// directly so httpapi has no compile-time dependency on the kafka client.
type BrokerChecker func(ctx context.Context) error

// Server bundles the dependencies every handler needs.
type Server struct {
	cfg           Config
	store         *txstore.Store
	kvStore       *kv.Store
	gate          *walletauth.Gate
	limits        *ratelimit.Limiter
	cache         cache.Cache
	ws            *wsapi.Handler
	brokerChecker BrokerChecker
}

// New constructs a Server and its gorilla/mux router. brokerChecker may be
// nil, in which case /readyz reports the broker check as disabled.
func New(cfg Config, store *txstore.Store, kvStore *kv.Store, gate *walletauth.Gate, limits *ratelimit.Limiter, respCache cache.Cache, ws *wsapi.Handler, brokerChecker BrokerChecker) *Server {
	return &Server{cfg: cfg, store: store, kvStore: kvStore, gate: gate, limits: limits, cache: respCache, ws: ws, brokerChecker: brokerChecker}
}

// Router builds the full route tree with middleware applied in the
// order: request-id, rate limit, wallet-auth gate.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReadyz).Methods(http.MethodGet)
	r.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/nonce", s.handleIssueNonce).Methods(http.MethodPost)
	r.HandleFunc("/api/transactions", s.handleListTransactions).Methods(http.MethodGet)
	r.HandleFunc("/api/transactions/{signature}", s.handleGetTransaction).Methods(http.MethodGet)

	if s.ws != nil {
		wsPath := s.cfg.WSPath
		if wsPath == "" {
			wsPath = "/ws/tx"
		}
		r.Handle(wsPath, s.ws).Methods(http.MethodGet)
	}

	var handler http.Handler = r
	handler = s.walletAuthMiddleware(handler)
	handler = s.rateLimitMiddleware(handler)
	handler = s.requestIDMiddleware(handler)
	return handler
}
