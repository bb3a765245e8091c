// Package txmodel defines the indexed Transaction record shared by every
// subsystem: ingestion writes it, the store persists it, the query
// endpoint serves it, and the live channel fans it out.
package txmodel

import "encoding/json"

// Transaction is the indexed on-chain record. Signature is the unique
// primary key; it is never mutated or deleted once committed.
type Transaction struct {
	Signature    string          `json:"signature" db:"signature"`
	Slot         int64           `json:"slot" db:"slot"`
	From         *string         `json:"from,omitempty" db:"from_pubkey"`
	To           *string         `json:"to,omitempty" db:"to_pubkey"`
	Lamports     *int64          `json:"lamports,omitempty" db:"lamports"`
	ProgramIDs   []string        `json:"program_ids,omitempty" db:"program_ids"`
	Instructions json.RawMessage `json:"instructions" db:"instructions"`
	BlockTime    *int64          `json:"block_time,omitempty" db:"block_time"`
	CreatedAt    int64           `json:"created_at" db:"created_at"`
}

// Filter describes an optional equality/range/containment predicate over
// the transaction set. A nil field means "unconstrained".
type Filter struct {
	Signature *string `json:"signature,omitempty"`
	From      *string `json:"from,omitempty"`
	To        *string `json:"to,omitempty"`
	ProgramID *string `json:"program_id,omitempty"`
	SlotFrom  *int64  `json:"slot_from,omitempty"`
	SlotTo    *int64  `json:"slot_to,omitempty"`
}

// Matches reports whether tx satisfies every set field of f.
func (f Filter) Matches(tx Transaction) bool {
	if f.Signature != nil && tx.Signature != *f.Signature {
		return false
	}
	if f.From != nil && (tx.From == nil || *tx.From != *f.From) {
		return false
	}
	if f.To != nil && (tx.To == nil || *tx.To != *f.To) {
		return false
	}
	if f.ProgramID != nil && !containsString(tx.ProgramIDs, *f.ProgramID) {
		return false
	}
	if f.SlotFrom != nil && tx.Slot < *f.SlotFrom {
		return false
	}
	if f.SlotTo != nil && tx.Slot > *f.SlotTo {
		return false
	}
	return true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// Summary is the content fingerprint of a filtered query, used to derive
// the cached-response ETag.
type Summary struct {
	Total         int64
	MaxSlot       int64
	MaxCreatedAt  int64
}
