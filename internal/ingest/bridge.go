package ingest

import "github.com/txindexd/txindexd/internal/txmodel"

// Publisher is the fan-out sink the ingestion pipeline feeds whenever a
// batch insert produces a genuinely new transaction. The live
// subscription channel implements this; the pipeline only depends on the
// interface, so it has no import on that package.
type Publisher interface {
	Publish(tx txmodel.Transaction)
}

// NopPublisher discards every event. Used when emit_ws_events is disabled
// or no live channel is wired.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(txmodel.Transaction) {}
