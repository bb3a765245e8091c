package txstore

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/txindexd/txindexd/internal/txmodel"
)

func TestBuildWhereEmptyFilterProducesNoClause(t *testing.T) {
	where, args := buildWhere(txmodel.Filter{})
	require.Empty(t, where)
	require.Empty(t, args)
}

func TestBuildWhereCombinesMultipleClausesWithAnd(t *testing.T) {
	sig := "sig1"
	slotFrom := int64(10)
	slotTo := int64(20)
	where, args := buildWhere(txmodel.Filter{Signature: &sig, SlotFrom: &slotFrom, SlotTo: &slotTo})

	require.Contains(t, where, "signature = $1")
	require.Contains(t, where, "slot >= $2")
	require.Contains(t, where, "slot <= $3")
	require.Contains(t, where, " AND ")
	require.Equal(t, []any{sig, slotFrom, slotTo}, args)
}

func TestBuildWhereProgramIDUsesAnyContainment(t *testing.T) {
	pid := "prog-a"
	where, args := buildWhere(txmodel.Filter{ProgramID: &pid})
	require.Contains(t, where, "$1 = ANY(program_ids)")
	require.Equal(t, []any{pid}, args)
}
