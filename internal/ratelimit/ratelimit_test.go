package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCheckAllowsUpToLimit(t *testing.T) {
	l := New()

	for i := 1; i <= 5; i++ {
		res := l.Check(ScopeIP, "1.2.3.4", 5, time.Minute)
		require.True(t, res.Allowed, "request %d should be allowed", i)
		require.Equal(t, i, res.Count)
	}
}

func TestCheckDeniesAtLimitPlusOne(t *testing.T) {
	l := New()

	for i := 0; i < 3; i++ {
		res := l.Check(ScopeIP, "1.2.3.4", 3, time.Minute)
		require.True(t, res.Allowed)
	}

	res := l.Check(ScopeIP, "1.2.3.4", 3, time.Minute)
	require.False(t, res.Allowed)
	require.Equal(t, 4, res.Count)
	require.Greater(t, res.RetryAfter, time.Duration(0))
}

func TestCheckResetsAfterWindowElapses(t *testing.T) {
	now := time.Now()
	l := New()
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		res := l.Check(ScopeIP, "k", 2, time.Second)
		require.True(t, res.Allowed)
	}
	res := l.Check(ScopeIP, "k", 2, time.Second)
	require.False(t, res.Allowed)

	now = now.Add(2 * time.Second)
	res = l.Check(ScopeIP, "k", 2, time.Second)
	require.True(t, res.Allowed)
	require.Equal(t, 1, res.Count)
}

func TestCheckScopesAreIndependent(t *testing.T) {
	l := New()

	for i := 0; i < 3; i++ {
		res := l.Check(ScopeIP, "same-key", 3, time.Minute)
		require.True(t, res.Allowed)
	}

	res := l.Check(ScopeWallet, "same-key", 3, time.Minute)
	require.True(t, res.Allowed, "a different scope with the same key must have its own counter")
}

func TestSweepRemovesStaleCounters(t *testing.T) {
	now := time.Now()
	l := New()
	l.now = func() time.Time { return now }

	l.Check(ScopeIP, "stale", 10, time.Minute)
	require.Equal(t, 1, l.Count())

	now = now.Add(time.Hour)
	l.Sweep(30 * time.Minute)
	require.Equal(t, 0, l.Count())
}
