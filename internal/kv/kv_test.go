package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// A nil *Store represents Redis being disabled or unreachable at
// startup; every method must report ErrUnavailable without touching the
// network, so the rest of the system can run degraded.
func TestNilStoreReportsUnavailable(t *testing.T) {
	var s *Store
	ctx := context.Background()

	_, _, err := s.Get(ctx, "k")
	require.ErrorIs(t, err, ErrUnavailable)

	require.ErrorIs(t, s.SetEx(ctx, "k", "v", 0), ErrUnavailable)
	require.ErrorIs(t, s.Del(ctx, "k"), ErrUnavailable)

	_, err = s.SIsMember(ctx, "k", "m")
	require.ErrorIs(t, err, ErrUnavailable)

	require.ErrorIs(t, s.SAdd(ctx, "k", "m", 0), ErrUnavailable)

	_, err = s.SCard(ctx, "k")
	require.ErrorIs(t, err, ErrUnavailable)

	require.ErrorIs(t, s.Healthy(ctx), ErrUnavailable)
}
