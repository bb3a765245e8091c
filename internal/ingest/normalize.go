// Package ingest implements the ingestion pipeline: consumer loop,
// normalizer, batcher, DLQ producer, and fan-out bridge.
package ingest

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	maxMessageBytes = 1 << 20 // 1 MiB
	maxProgramIDs   = 50
	maxInstructions = 100
)

// ValidationError describes why a raw message or record was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ParseError describes a structural JSON parse failure.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse_error: %v", e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// RawTransaction is the on-wire shape of a broker message.
type RawTransaction struct {
	Signature    string          `json:"signature"`
	Slot         int64           `json:"slot"`
	From         *string         `json:"from,omitempty"`
	To           *string         `json:"to,omitempty"`
	Lamports     *int64          `json:"lamports,omitempty"`
	ProgramIDs   []string        `json:"program_ids,omitempty"`
	Instructions json.RawMessage `json:"instructions,omitempty"`
	BlockTime    *string         `json:"block_time,omitempty"`
}

// ParseRawMessage parses payload into a RawTransaction, rejecting
// oversized payloads and structurally invalid JSON.
func ParseRawMessage(payload []byte) (RawTransaction, error) {
	if len(payload) > maxMessageBytes {
		return RawTransaction{}, &ValidationError{Field: "message_size", Reason: "message too large (max 1MiB)"}
	}

	var raw RawTransaction
	if err := json.Unmarshal(payload, &raw); err != nil {
		return RawTransaction{}, &ParseError{Message: string(payload), Cause: err}
	}
	return raw, nil
}

// NormalizedTransaction is a validated, wire-format-independent record
// ready for storage.
type NormalizedTransaction struct {
	Signature    string
	Slot         int64
	From         *string
	To           *string
	Lamports     *int64
	ProgramIDs   []string
	Instructions json.RawMessage
	BlockTime    *int64
}

// Normalize validates raw and converts it into a NormalizedTransaction.
// block_time that fails RFC3339 parsing is dropped rather than failing
// the record; a missing instructions array becomes an empty one.
func Normalize(raw RawTransaction) (NormalizedTransaction, error) {
	if raw.Signature == "" {
		return NormalizedTransaction{}, &ValidationError{Field: "signature", Reason: "signature cannot be empty"}
	}
	if raw.Slot < 0 {
		return NormalizedTransaction{}, &ValidationError{Field: "slot", Reason: "slot must be non-negative"}
	}
	if len(raw.ProgramIDs) > maxProgramIDs {
		return NormalizedTransaction{}, &ValidationError{Field: "program_ids", Reason: "too many program ids (max 50)"}
	}

	var instructionCount int
	if len(raw.Instructions) > 0 {
		var arr []json.RawMessage
		if err := json.Unmarshal(raw.Instructions, &arr); err == nil {
			instructionCount = len(arr)
		}
	}
	if instructionCount > maxInstructions {
		return NormalizedTransaction{}, &ValidationError{Field: "instructions", Reason: "too many instructions (max 100)"}
	}

	if raw.Lamports != nil && *raw.Lamports < 0 {
		return NormalizedTransaction{}, &ValidationError{Field: "lamports", Reason: "lamports must be non-negative"}
	}

	if raw.From != nil && !validPubkeyLength(*raw.From) {
		return NormalizedTransaction{}, &ValidationError{Field: "from", Reason: "invalid pubkey length"}
	}
	if raw.To != nil && !validPubkeyLength(*raw.To) {
		return NormalizedTransaction{}, &ValidationError{Field: "to", Reason: "invalid pubkey length"}
	}
	if !validSignatureLength(raw.Signature) {
		return NormalizedTransaction{}, &ValidationError{Field: "signature", Reason: "invalid signature length"}
	}

	var blockTime *int64
	if raw.BlockTime != nil {
		if t, err := time.Parse(time.RFC3339, *raw.BlockTime); err == nil {
			epoch := t.Unix()
			blockTime = &epoch
		}
		// Parse failure: drop the field silently, do not fail the record.
	}

	instructions := raw.Instructions
	if len(instructions) == 0 {
		instructions = json.RawMessage("[]")
	}

	return NormalizedTransaction{
		Signature:    raw.Signature,
		Slot:         raw.Slot,
		From:         raw.From,
		To:           raw.To,
		Lamports:     raw.Lamports,
		ProgramIDs:   raw.ProgramIDs,
		Instructions: instructions,
		BlockTime:    blockTime,
	}, nil
}

// validSignatureLength accepts signatures of 80 to 100 characters. Only
// the length is checked; the string is not base58-decoded.
func validSignatureLength(sig string) bool {
	return len(sig) >= 80 && len(sig) <= 100
}

// validPubkeyLength accepts only 44-character keys. A 32-byte key can
// base58-encode to as few as 32 characters; such shorter encodings are
// rejected here.
func validPubkeyLength(pk string) bool {
	return len(pk) == 44
}
