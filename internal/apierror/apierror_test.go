package apierror

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{BadRequest("bad"), http.StatusBadRequest},
		{Unauthorized("nope"), http.StatusUnauthorized},
		{NotFound("missing"), http.StatusNotFound},
		{RateLimited("slow down"), http.StatusTooManyRequests},
		{Unavailable("down"), http.StatusServiceUnavailable},
		{Internal("oops"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		require.Equal(t, c.want, c.err.Status())
	}
}

func TestBadRequestCarriesMissingFields(t *testing.T) {
	err := BadRequest("missing headers", "X-Wallet-Address", "X-Nonce")
	body := err.ToBody()

	require.Equal(t, "bad_request", body.Error)
	require.Equal(t, []string{"X-Wallet-Address", "X-Nonce"}, body.Missing)
}

func TestErrorStringIncludesDetails(t *testing.T) {
	err := Internal("db down")
	require.Equal(t, "internal: db down", err.Error())
}
