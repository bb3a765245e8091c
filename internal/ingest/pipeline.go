package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/txindexd/txindexd/internal/metrics"
	"github.com/txindexd/txindexd/internal/txlog"
	"github.com/txindexd/txindexd/internal/txmodel"
	"github.com/txindexd/txindexd/internal/txstore"
)

// Config controls the broker connection, batching thresholds, and DLQ
// routing of a Pipeline.
type Config struct {
	Brokers          []string
	GroupID          string
	InputTopic       string
	DLQTopic         string
	BatchSize        int
	FlushInterval    time.Duration
	RetryBackoff     time.Duration
	MaxRetries       int
	EmitEvents       bool
}

// Pipeline consumes raw transaction messages off a Kafka topic, validates
// and normalizes them, batches them for bulk upsert, and fans out
// genuinely new rows to a Publisher. Offsets are committed in fetch
// order only at a flush boundary, whether the message landed in the
// batch or was routed straight to the DLQ, so CommitMessages never sees
// a later offset committed ahead of an earlier one still in flight.
type Pipeline struct {
	cfg       Config
	reader    *kafkago.Reader
	dlqWriter *kafkago.Writer
	store     *txstore.Store
	publisher Publisher
}

// New constructs a Pipeline. store and publisher must be non-nil;
// publisher may be NopPublisher{} if fan-out is disabled.
func New(cfg Config, store *txstore.Store, publisher Publisher) *Pipeline {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.InputTopic,
		GroupID: cfg.GroupID,
	})

	var dlq *kafkago.Writer
	if cfg.DLQTopic != "" {
		dlq = &kafkago.Writer{
			Addr:     kafkago.TCP(cfg.Brokers...),
			Topic:    cfg.DLQTopic,
			Balancer: &kafkago.LeastBytes{},
		}
	}

	return &Pipeline{cfg: cfg, reader: reader, dlqWriter: dlq, store: store, publisher: publisher}
}

// Close releases the reader and DLQ writer.
func (p *Pipeline) Close() {
	if err := p.reader.Close(); err != nil {
		txlog.IngestLog.Errorf("closing kafka reader: %v", err)
	}
	if p.dlqWriter != nil {
		if err := p.dlqWriter.Close(); err != nil {
			txlog.IngestLog.Errorf("closing dlq writer: %v", err)
		}
	}
}

type pendingRecord struct {
	msg kafkago.Message
	tx  txmodel.Transaction
}

// Run consumes until ctx is canceled. Messages that fail to parse or
// validate are forwarded to the DLQ as soon as the failure is known and
// excluded from the batch's fate; their offsets, like the batch's, are
// held until the next flush so commits stay in partition order.
func (p *Pipeline) Run(ctx context.Context) error {
	var batch []pendingRecord
	var toCommit []kafkago.Message
	lastFlush := time.Now()

	// flush commits toCommit in the order its offsets were fetched,
	// whether or not any of it ended up in batch: a discard-only run
	// (every message this round failed parse/validation) still needs its
	// offsets committed, and committing them separately from a later
	// batch would let CommitMessages see an out-of-order offset.
	flush := func() {
		if len(batch) > 0 {
			p.flushBatch(ctx, batch, toCommit)
		} else if len(toCommit) > 0 {
			if err := p.reader.CommitMessages(ctx, toCommit...); err != nil {
				txlog.IngestLog.Errorf("committing %d offsets: %v", len(toCommit), err)
			}
		}
		batch = nil
		toCommit = nil
		lastFlush = time.Now()
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return ctx.Err()
		default:
		}

		readCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		m, err := p.reader.FetchMessage(readCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				flush()
				return ctx.Err()
			}
			if err == context.DeadlineExceeded {
				if len(toCommit) > 0 && time.Since(lastFlush) >= p.cfg.FlushInterval {
					flush()
				}
				continue
			}
			txlog.IngestLog.Errorf("fetching message: %v", err)
			continue
		}

		raw, perr := ParseRawMessage(m.Value)
		if perr != nil {
			txlog.IngestLog.Warnf("discarding unparseable message: %v", perr)
			p.sendRawToDLQ(ctx, m, "parse_error", perr)
			toCommit = append(toCommit, m)
		} else if norm, verr := Normalize(raw); verr != nil {
			txlog.IngestLog.Warnf("discarding invalid record %s: %v", raw.Signature, verr)
			p.sendRawToDLQ(ctx, m, "validation_error", verr)
			toCommit = append(toCommit, m)
		} else {
			batch = append(batch, pendingRecord{msg: m, tx: toModelTx(norm)})
			toCommit = append(toCommit, m)
		}

		if len(batch) >= p.cfg.BatchSize || time.Since(lastFlush) >= p.cfg.FlushInterval {
			flush()
		}
	}
}

func toModelTx(n NormalizedTransaction) txmodel.Transaction {
	return txmodel.Transaction{
		Signature:    n.Signature,
		Slot:         n.Slot,
		From:         n.From,
		To:           n.To,
		Lamports:     n.Lamports,
		ProgramIDs:   n.ProgramIDs,
		Instructions: n.Instructions,
		BlockTime:    n.BlockTime,
	}
}

// flushBatch upserts the batch with retry-with-backoff; on exhaustion the
// whole batch is routed to the DLQ rather than left stuck on the
// partition. Offsets are committed in either case, since both outcomes
// are terminal for these records.
func (p *Pipeline) flushBatch(ctx context.Context, batch []pendingRecord, toCommit []kafkago.Message) {
	txs := make([]txmodel.Transaction, len(batch))
	for i, r := range batch {
		txs[i] = r.tx
	}

	var result txstore.BulkUpsertResult
	var err error
	backoff := p.cfg.RetryBackoff
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		result, err = p.store.BulkUpsertOrIgnore(ctx, txs)
		if err == nil {
			break
		}
		txlog.IngestLog.Errorf("bulk upsert attempt %d/%d failed: %v", attempt+1, p.cfg.MaxRetries+1, err)
		if attempt < p.cfg.MaxRetries {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			backoff *= 2
		}
	}

	if err != nil {
		txlog.IngestLog.Errorf("batch of %d records exhausted retries, routing to dlq: %v", len(batch), err)
		for _, r := range batch {
			p.sendTransactionToDLQ(ctx, r.tx, "upsert_exhausted_retries", err, p.cfg.MaxRetries+1)
		}
	} else {
		metrics.IngestBatchesTotal.Inc()
		newCount := 0
		for _, tx := range txs {
			if !result.PreExisting[tx.Signature] {
				newCount++
				if p.cfg.EmitEvents {
					p.publisher.Publish(tx)
				}
			}
		}
		metrics.IngestRecordsInsertedTotal.Add(float64(newCount))
		metrics.IngestRecordsSkippedTotal.Add(float64(len(txs) - newCount))
	}

	if len(toCommit) > 0 {
		if err := p.reader.CommitMessages(ctx, toCommit...); err != nil {
			txlog.IngestLog.Errorf("committing batch of %d offsets: %v", len(toCommit), err)
		}
	}
}

// dlqEnvelope is the value written to the DLQ topic: the original
// message, why it was rejected, and how many upsert attempts it burned
// through before landing here.
type dlqEnvelope struct {
	OriginalMessage json.RawMessage `json:"original_message"`
	Error           string          `json:"error"`
	Timestamp       time.Time       `json:"timestamp"`
	RetryCount      int             `json:"retry_count"`
}

// sendRawToDLQ routes a message that failed before it became a storable
// record (parse or validation failure) to the DLQ. It is keyed by a
// time-based dlq-<unix-nanos> id rather than a signature, since a message that
// failed to parse or validate cannot be trusted to carry one.
func (p *Pipeline) sendRawToDLQ(ctx context.Context, src kafkago.Message, reason string, cause error) {
	original, err := json.Marshal(string(src.Value))
	if err != nil {
		txlog.IngestLog.Errorf("marshaling dlq original message: %v", err)
		return
	}
	key := []byte(fmt.Sprintf("dlq-%d", time.Now().UnixNano()))
	p.writeDLQ(ctx, key, original, reason, cause, 0)
}

// sendTransactionToDLQ routes a normalized transaction that exhausted its
// upsert retries to the DLQ, keyed by its signature.
func (p *Pipeline) sendTransactionToDLQ(ctx context.Context, tx txmodel.Transaction, reason string, cause error, retryCount int) {
	original, err := json.Marshal(tx)
	if err != nil {
		txlog.IngestLog.Errorf("marshaling dlq transaction: %v", err)
		return
	}
	p.writeDLQ(ctx, []byte(tx.Signature), original, reason, cause, retryCount)
}

// writeDLQ marshals and writes a dlqEnvelope to the configured DLQ topic.
// A best-effort operation: failure is logged, not propagated, since
// blocking ingestion on a dead DLQ would defeat its purpose.
func (p *Pipeline) writeDLQ(ctx context.Context, key, originalMessage []byte, reason string, cause error, retryCount int) {
	if p.dlqWriter == nil {
		return
	}

	errText := reason
	if cause != nil {
		errText = fmt.Sprintf("%s: %v", reason, cause)
	}

	value, err := json.Marshal(dlqEnvelope{
		OriginalMessage: originalMessage,
		Error:           errText,
		Timestamp:       time.Now().UTC(),
		RetryCount:      retryCount,
	})
	if err != nil {
		txlog.IngestLog.Errorf("marshaling dlq envelope: %v", err)
		return
	}

	if err := p.dlqWriter.WriteMessages(ctx, kafkago.Message{Key: key, Value: value}); err != nil {
		txlog.IngestLog.Errorf("dlq write failed (topic=%s): %v", p.cfg.DLQTopic, err)
		return
	}
	metrics.IngestDLQTotal.Inc()
}
