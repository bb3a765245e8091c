package wsapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/txindexd/txindexd/internal/txmodel"
)

func TestSessionMatchesReturnsSubscriptionsWhoseFilterAccepts(t *testing.T) {
	programID := "prog-a"
	s := &Session{
		subscriptions: map[string]subscription{
			"sub-match": {id: "sub-match", filters: txmodel.Filter{ProgramID: &programID}, createdAt: time.Now()},
			"sub-nomatch": {id: "sub-nomatch", filters: txmodel.Filter{ProgramID: strPtr("other")}, createdAt: time.Now()},
			"sub-wild":  {id: "sub-wild", filters: txmodel.Filter{}, createdAt: time.Now()},
		},
	}

	tx := txmodel.Transaction{Signature: "sig", Slot: 1, ProgramIDs: []string{"prog-a"}}
	matched := s.matches(tx)

	require.Len(t, matched, 2)
	require.Contains(t, matched, "sub-match")
	require.Contains(t, matched, "sub-wild")
	require.NotContains(t, matched, "sub-nomatch")
}

func strPtr(v string) *string { return &v }
