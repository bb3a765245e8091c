package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIPPrefersForwardedForWhenRespected(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	req.RemoteAddr = "10.0.0.1:5555"

	require.Equal(t, "203.0.113.9", clientIP(req, true))
}

func TestClientIPFallsBackToRemoteAddrHost(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	require.Equal(t, "10.0.0.1", clientIP(req, false))
}

func TestClientIPEmptyWhenUndeterminable(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	req.RemoteAddr = ""

	require.Equal(t, "", clientIP(req, false))
}

func TestHandleReadyzReportsBrokerDisabledWithoutChecker(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()

	s.handleReadyz(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"broker":{"enabled":false`)
}

func TestHandleReadyzMarksNotReadyWhenBrokerCheckFails(t *testing.T) {
	s := &Server{
		brokerChecker: func(ctx context.Context) error { return errors.New("dial tcp: connection refused") },
	}
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()

	s.handleReadyz(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), `"ready":false`)
	require.Contains(t, w.Body.String(), "connection refused")
}
