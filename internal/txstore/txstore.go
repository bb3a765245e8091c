// Package txstore implements the typed transaction store adapter: get by
// signature, bulk upsert-or-ignore, filtered paginated list, and filtered
// summary (count, max slot, max created-at) for ETag derivation. Backed
// by jackc/pgx/v5's connection pool.
package txstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/txindexd/txindexd/internal/txlog"
	"github.com/txindexd/txindexd/internal/txmodel"
)

// ErrNotFound is returned by GetBySignature when no row matches.
var ErrNotFound = errors.New("transaction not found")

// Store is the transaction store adapter.
type Store struct {
	pool *pgxpool.Pool
}

// Config controls the connection pool.
type Config struct {
	DSN            string
	MaxConnections int32
	ConnectTimeout time.Duration
}

// New connects to the store described by cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing dsn: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConnections

	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(dialCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Healthy reports whether the store answers a trivial query.
func (s *Store) Healthy(ctx context.Context) error {
	if s == nil {
		return errors.New("transaction store unavailable")
	}
	return s.pool.Ping(ctx)
}

const selectColumns = `signature, slot, from_pubkey, to_pubkey, lamports, program_ids, instructions, block_time, created_at`

func scanTx(row pgx.Row) (txmodel.Transaction, error) {
	var tx txmodel.Transaction
	var instructions []byte
	var createdAt time.Time
	err := row.Scan(&tx.Signature, &tx.Slot, &tx.From, &tx.To, &tx.Lamports,
		&tx.ProgramIDs, &instructions, &tx.BlockTime, &createdAt)
	if err != nil {
		return tx, err
	}
	if len(instructions) == 0 {
		instructions = []byte("[]")
	}
	tx.Instructions = json.RawMessage(instructions)
	tx.CreatedAt = createdAt.UnixMilli()
	return tx, nil
}

// GetBySignature fetches a single transaction by its primary key.
func (s *Store) GetBySignature(ctx context.Context, signature string) (txmodel.Transaction, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM transactions WHERE signature = $1`, signature)
	tx, err := scanTx(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return txmodel.Transaction{}, ErrNotFound
	}
	if err != nil {
		txlog.StoreLog.Errorf("get by signature %s: %v", signature, err)
		return txmodel.Transaction{}, err
	}
	return tx, nil
}

// BulkUpsertResult reports the outcome of a bulk upsert-or-ignore.
type BulkUpsertResult struct {
	// PreExisting is the set of signatures, among those submitted, that
	// already existed in the store before this call. Used by the
	// ingestion pipeline to identify genuinely new rows for fan-out,
	// resolving the "which rows were skipped" ambiguity by pre-diffing
	// rather than assuming positional order.
	PreExisting map[string]bool
	// RowsAffected is the number of rows the bulk insert actually wrote.
	RowsAffected int64
}

// BulkUpsertOrIgnore inserts txs, skipping rows whose signature already
// exists (ON CONFLICT (signature) DO NOTHING). It pre-fetches the set of
// existing signatures in one query so the caller can determine exactly
// which submitted records are new, regardless of what the database
// decided to skip.
func (s *Store) BulkUpsertOrIgnore(ctx context.Context, txs []txmodel.Transaction) (BulkUpsertResult, error) {
	var result BulkUpsertResult
	if len(txs) == 0 {
		result.PreExisting = map[string]bool{}
		return result, nil
	}

	sigs := make([]string, len(txs))
	for i, tx := range txs {
		sigs[i] = tx.Signature
	}

	rows, err := s.pool.Query(ctx, `SELECT signature FROM transactions WHERE signature = ANY($1)`, sigs)
	if err != nil {
		return result, fmt.Errorf("pre-diff query: %w", err)
	}
	existing := make(map[string]bool, len(sigs))
	for rows.Next() {
		var sig string
		if err := rows.Scan(&sig); err != nil {
			rows.Close()
			return result, err
		}
		existing[sig] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return result, err
	}
	result.PreExisting = existing

	const insertColumns = `signature, slot, from_pubkey, to_pubkey, lamports, program_ids, instructions, block_time`

	var sb strings.Builder
	sb.WriteString(`INSERT INTO transactions (` + insertColumns + `) VALUES `)
	args := make([]any, 0, len(txs)*8)
	for i, tx := range txs {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 8
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8)
		instructions := tx.Instructions
		if instructions == nil {
			instructions = json.RawMessage("[]")
		}
		args = append(args, tx.Signature, tx.Slot, tx.From, tx.To, tx.Lamports,
			tx.ProgramIDs, []byte(instructions), tx.BlockTime)
	}
	sb.WriteString(" ON CONFLICT (signature) DO NOTHING")

	tag, err := s.pool.Exec(ctx, sb.String(), args...)
	if err != nil {
		txlog.StoreLog.Errorf("bulk upsert of %d rows: %v", len(txs), err)
		return result, err
	}
	result.RowsAffected = tag.RowsAffected()
	return result, nil
}

// Pagination windows a List call.
type Pagination struct {
	Limit  int
	Offset int
}

// SortBy enumerates the fields the list endpoint may sort on.
type SortBy string

const (
	SortBySlot      SortBy = "slot"
	SortBySignature SortBy = "signature"
	SortByBlockTime SortBy = "block_time"
)

// Order is ascending or descending.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

func buildWhere(f txmodel.Filter) (string, []any) {
	var clauses []string
	var args []any

	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if f.Signature != nil {
		add("signature = $%d", *f.Signature)
	}
	if f.From != nil {
		add("from_pubkey = $%d", *f.From)
	}
	if f.To != nil {
		add("to_pubkey = $%d", *f.To)
	}
	if f.ProgramID != nil {
		add("$%d = ANY(program_ids)", *f.ProgramID)
	}
	if f.SlotFrom != nil {
		add("slot >= $%d", *f.SlotFrom)
	}
	if f.SlotTo != nil {
		add("slot <= $%d", *f.SlotTo)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List returns the filtered, sorted, paginated set of transactions.
func (s *Store) List(ctx context.Context, f txmodel.Filter, sortBy SortBy, order Order, page Pagination) ([]txmodel.Transaction, error) {
	where, args := buildWhere(f)

	col := string(sortBy)
	if col == "" {
		col = string(SortBySlot)
	}
	dir := "DESC"
	if order == OrderAsc {
		dir = "ASC"
	}

	limitArg := len(args) + 1
	offsetArg := len(args) + 2
	query := fmt.Sprintf(
		`SELECT %s FROM transactions%s ORDER BY %s %s, signature %s LIMIT $%d OFFSET $%d`,
		selectColumns, where, col, dir, dir, limitArg, offsetArg,
	)
	args = append(args, page.Limit, page.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		txlog.StoreLog.Errorf("list query: %v", err)
		return nil, err
	}
	defer rows.Close()

	var out []txmodel.Transaction
	for rows.Next() {
		tx, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// ListSinceSlot returns up to limit records with slot > sinceSlot matching
// f, ordered oldest-first, used by the live channel's resume_from_slot
// catch-up replay.
func (s *Store) ListSinceSlot(ctx context.Context, f txmodel.Filter, sinceSlot int64, limit int) ([]txmodel.Transaction, error) {
	where, args := buildWhere(f)
	sinceClause := fmt.Sprintf("slot > $%d", len(args)+1)
	args = append(args, sinceSlot)
	if where == "" {
		where = " WHERE " + sinceClause
	} else {
		where = where + " AND " + sinceClause
	}

	limitArg := len(args) + 1
	query := fmt.Sprintf(`SELECT %s FROM transactions%s ORDER BY slot ASC LIMIT $%d`, selectColumns, where, limitArg)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []txmodel.Transaction
	for rows.Next() {
		tx, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// Summary computes the count/max-slot/max-created-at fingerprint over f,
// with no pagination applied.
func (s *Store) Summary(ctx context.Context, f txmodel.Filter) (txmodel.Summary, error) {
	where, args := buildWhere(f)
	query := fmt.Sprintf(
		`SELECT COUNT(*), COALESCE(MAX(slot), 0), COALESCE(EXTRACT(EPOCH FROM MAX(created_at)) * 1000, 0) FROM transactions%s`,
		where,
	)

	var total, maxSlot int64
	var maxCreatedAt float64
	err := s.pool.QueryRow(ctx, query, args...).Scan(&total, &maxSlot, &maxCreatedAt)
	if err != nil {
		txlog.StoreLog.Errorf("summary query: %v", err)
		return txmodel.Summary{}, err
	}
	return txmodel.Summary{Total: total, MaxSlot: maxSlot, MaxCreatedAt: int64(maxCreatedAt)}, nil
}
