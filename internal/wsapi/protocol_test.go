package wsapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/txindexd/txindexd/internal/txmodel"
)

func TestClientMessageUnmarshalsSubscribe(t *testing.T) {
	raw := `{"type":"Subscribe","filters":{"program_id":"abc"},"resume_from_slot":10}`
	var msg ClientMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	require.Equal(t, MsgSubscribe, msg.Type)
	require.NotNil(t, msg.Filters.ProgramID)
	require.Equal(t, "abc", *msg.Filters.ProgramID)
	require.NotNil(t, msg.ResumeFromSlot)
	require.Equal(t, int64(10), *msg.ResumeFromSlot)
}

func TestAckMessageCarriesSubscriptionID(t *testing.T) {
	msg := ackMessage("sub-1", txmodel.Filter{})
	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	require.Contains(t, string(payload), `"id":"sub-1"`)
	require.Contains(t, string(payload), `"type":"Ack"`)
}

func TestEventMessageEmbedsTransactionJSON(t *testing.T) {
	tx := txmodel.Transaction{Signature: "sig1", Slot: 7, Instructions: json.RawMessage("[]")}
	msg, err := eventMessage("sub-1", tx)
	require.NoError(t, err)
	require.Equal(t, MsgEvent, msg.Type)
	require.Contains(t, string(msg.Tx), `"signature":"sig1"`)
}
