package ingest

import (
	"context"
	"encoding/json"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/txindexd/txindexd/internal/txmodel"
)

func TestToModelTxCopiesAllFields(t *testing.T) {
	from := "abc"
	lamports := int64(100)
	blockTime := int64(123)
	n := NormalizedTransaction{
		Signature:    "sig",
		Slot:         5,
		From:         &from,
		Lamports:     &lamports,
		ProgramIDs:   []string{"p1"},
		Instructions: json.RawMessage(`[]`),
		BlockTime:    &blockTime,
	}

	tx := toModelTx(n)
	require.Equal(t, n.Signature, tx.Signature)
	require.Equal(t, n.Slot, tx.Slot)
	require.Equal(t, n.From, tx.From)
	require.Equal(t, n.Lamports, tx.Lamports)
	require.Equal(t, n.ProgramIDs, tx.ProgramIDs)
	require.Equal(t, n.BlockTime, tx.BlockTime)
}

// sendRawToDLQ and sendTransactionToDLQ with no configured writer must be
// a no-op, since DLQ routing is an optional enrichment, not a hard
// dependency of ingestion.
func TestSendToDLQNoopWithoutWriter(t *testing.T) {
	p := &Pipeline{cfg: Config{InputTopic: "tx.raw"}}
	p.sendRawToDLQ(context.Background(), kafkago.Message{Value: []byte("x")}, "reason", nil)
	p.sendTransactionToDLQ(context.Background(), txmodel.Transaction{Signature: "sig"}, "reason", nil, 1)
}
