package ingest

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func validSig() string {
	return strings.Repeat("a", 88)
}

func validPubkey() string {
	return strings.Repeat("b", 44)
}

func TestParseRawMessageRejectsOversized(t *testing.T) {
	huge := make([]byte, maxMessageBytes+1)
	_, err := ParseRawMessage(huge)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestParseRawMessageRejectsInvalidJSON(t *testing.T) {
	_, err := ParseRawMessage([]byte("{not json"))
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestNormalizeRejectsEmptySignature(t *testing.T) {
	_, err := Normalize(RawTransaction{Signature: "", Slot: 1})
	require.Error(t, err)
}

func TestNormalizeRejectsNegativeSlot(t *testing.T) {
	_, err := Normalize(RawTransaction{Signature: validSig(), Slot: -1})
	require.Error(t, err)
}

func TestNormalizeRejectsNegativeLamports(t *testing.T) {
	neg := int64(-5)
	_, err := Normalize(RawTransaction{Signature: validSig(), Slot: 1, Lamports: &neg})
	require.Error(t, err)
}

func TestNormalizeRejectsTooManyProgramIDs(t *testing.T) {
	ids := make([]string, maxProgramIDs+1)
	for i := range ids {
		ids[i] = "p"
	}
	_, err := Normalize(RawTransaction{Signature: validSig(), Slot: 1, ProgramIDs: ids})
	require.Error(t, err)
}

func TestNormalizeDefaultsMissingInstructionsToEmptyArray(t *testing.T) {
	norm, err := Normalize(RawTransaction{Signature: validSig(), Slot: 1})
	require.NoError(t, err)
	require.JSONEq(t, "[]", string(norm.Instructions))
}

func TestNormalizeDropsUnparseableBlockTimeWithoutFailing(t *testing.T) {
	bad := "not-a-timestamp"
	norm, err := Normalize(RawTransaction{Signature: validSig(), Slot: 1, BlockTime: &bad})
	require.NoError(t, err)
	require.Nil(t, norm.BlockTime)
}

func TestNormalizeParsesValidBlockTime(t *testing.T) {
	ts := "2024-01-01T00:00:00Z"
	norm, err := Normalize(RawTransaction{Signature: validSig(), Slot: 1, BlockTime: &ts})
	require.NoError(t, err)
	require.NotNil(t, norm.BlockTime)
	require.Equal(t, int64(1704067200), *norm.BlockTime)
}

func TestNormalizeAcceptsValidRecord(t *testing.T) {
	from := validPubkey()
	raw := RawTransaction{
		Signature:    validSig(),
		Slot:         42,
		From:         &from,
		ProgramIDs:   []string{"11111111111111111111111111111111"},
		Instructions: json.RawMessage(`[{"a":1}]`),
	}
	norm, err := Normalize(raw)
	require.NoError(t, err)
	require.Equal(t, raw.Signature, norm.Signature)
	require.Equal(t, int64(42), norm.Slot)
}
