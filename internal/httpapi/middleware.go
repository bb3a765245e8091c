package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/txindexd/txindexd/internal/apierror"
	"github.com/txindexd/txindexd/internal/ratelimit"
	"github.com/txindexd/txindexd/internal/txlog"
)

type ctxKey int

const requestIDCtxKey ctxKey = iota

func genRequestID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b[:])
}

// requestIDMiddleware assigns a request id (reusing an inbound header
// value if the caller supplied one) and echoes it back on the response.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(s.cfg.RequestIDHeader)
		if id == "" {
			id = genRequestID()
		}
		w.Header().Set(s.cfg.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDCtxKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDCtxKey).(string); ok {
		return v
	}
	return ""
}

// clientIP extracts the caller's address for the IP rate-limit scope. It
// returns "" when no address can be determined at all, so the caller can
// skip the IP check with a warning rather than rate-limiting an empty key.
func clientIP(r *http.Request, respectXFF bool) string {
	if respectXFF {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			return xff
		}
	}
	if r.RemoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func isWhitelisted(path string, whitelist []string) bool {
	for _, p := range whitelist {
		if p == path {
			return true
		}
	}
	return false
}

// rateLimitMiddleware enforces the per-IP fixed-window limit on every
// request; the wallet-scoped limit is applied separately once the
// wallet-auth middleware has identified the caller.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.RateLimitEnabled || isWhitelisted(r.URL.Path, s.cfg.RateLimitWhitelist) {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r, s.cfg.RespectXForwardedFor)
		if ip == "" {
			txlog.HTTPLog.Warnf("client IP could not be determined for %s %s; skipping IP rate limit", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}
		res := s.limits.Check(ratelimit.ScopeIP, ip, s.cfg.IPMaxRequests, s.cfg.IPWindow)
		if !res.Allowed {
			writeRateLimited(w, res)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeRateLimited(w http.ResponseWriter, res ratelimit.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter/time.Second)))
	writeError(w, apierror.RateLimited("rate limit exceeded"))
}

// walletAuthMiddleware enforces the Ed25519 challenge/response handshake
// on protected paths, then applies the per-wallet rate limit once the
// caller's address is known.
func (s *Server) walletAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.gate == nil || !s.gate.IsProtected(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		headers, missing := s.gate.ExtractHeaders(r)
		if len(missing) > 0 {
			writeError(w, apierror.BadRequest("missing required auth headers", missing...))
			return
		}

		if s.cfg.RateLimitEnabled {
			res := s.limits.Check(ratelimit.ScopeWallet, headers.WalletAddress, s.cfg.WalletMaxRequests, s.cfg.WalletWindow)
			if !res.Allowed {
				writeRateLimited(w, res)
				return
			}
		}

		pathWithQuery := r.URL.Path
		if r.URL.RawQuery != "" {
			pathWithQuery += "?" + r.URL.RawQuery
		}

		if apiErr := s.gate.Verify(r.Context(), headers, r.Method, pathWithQuery); apiErr != nil {
			txlog.HTTPLog.Debugf("wallet auth rejected %s %s: %v", r.Method, r.URL.Path, apiErr)
			writeError(w, apiErr)
			return
		}

		next.ServeHTTP(w, r)
	})
}
