package pgstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-finance/wisebook/internal/apperrors"
	"github.com/atlas-finance/wisebook/internal/dedupe"
	"github.com/atlas-finance/wisebook/internal/id"
	"github.com/atlas-finance/wisebook/internal/model"
	"github.com/atlas-finance/wisebook/internal/money"
)

const lockNamespace = "wisebook:period:"

// Store is a PostgreSQL ledger. Entry IDs follow the same per-period
// sequence as the file ledger; row keys are snowflake IDs.
type Store struct {
	pool *pgxpool.Pool
	ids  *id.Generator
}

// NewPool opens and pings a connection pool.
func NewPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: creating pool: %v", apperrors.ErrLedgerUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: pinging database: %v", apperrors.ErrLedgerUnavailable, err)
	}
	return pool, nil
}

// New returns a Store using pool and ids.
func New(pool *pgxpool.Pool, ids *id.Generator) *Store {
	return &Store{pool: pool, ids: ids}
}

// Exists reports whether an entry with fingerprint is stored in period.
func (s *Store) Exists(ctx context.Context, fingerprint, period string) (bool, error) {
	var found bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM journal_lines WHERE period = $1 AND fingerprint = $2)`,
		period, fingerprint,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("%w: checking fingerprint: %v", apperrors.ErrLedgerUnavailable, err)
	}
	return found, nil
}

// Commit inserts a balanced batch in one transaction and returns the new line IDs.
func (s *Store) Commit(ctx context.Context, batch model.JournalBatch) ([]string, error) {
	if len(batch.Entries) == 0 {
		return nil, fmt.Errorf("%w: empty journal %s", apperrors.ErrValidation, batch.Key)
	}
	if !batch.Balanced() {
		return nil, fmt.Errorf("%w: journal %s does not balance", apperrors.ErrValidation, batch.Key)
	}
	period := batch.Period()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: beginning transaction: %v", apperrors.ErrLedgerUnavailable, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var seq int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(entry_seq), 0) + 1 FROM journal_lines WHERE period = $1`, period,
	).Scan(&seq)
	if err != nil {
		return nil, fmt.Errorf("%w: next sequence: %v", apperrors.ErrLedgerUnavailable, err)
	}
	entryID, err := id.ForPeriod(period, seq)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(batch.Entries))
	b := &pgx.Batch{}
	for i, e := range batch.Entries {
		ids[i] = id.FormatLineID(entryID, i)
		b.Queue(`
			INSERT INTO journal_lines (id, line_id, entry_seq, period, entry_date, account, label,
				debit, credit, currency, reference, origin, source_row, fingerprint)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			s.ids.Next(), ids[i], seq, period, e.Date, e.Account, e.Label,
			e.Debit.Amount, e.Credit.Amount, e.Amount().Currency, e.Reference, string(e.Origin), e.Row,
			dedupe.Fingerprint(e),
		)
	}
	if err := tx.SendBatch(ctx, b).Close(); err != nil {
		return nil, fmt.Errorf("%w: inserting journal %s: %v", apperrors.ErrLedgerUnavailable, batch.Key, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: committing journal %s: %v", apperrors.ErrLedgerUnavailable, batch.Key, err)
	}
	return ids, nil
}

// LockPeriod takes a session advisory lock on period. The lock lives on a
// dedicated pool connection until the release func runs.
func (s *Store) LockPeriod(ctx context.Context, period string) (func(), error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: period %s: acquiring connection: %v", apperrors.ErrLockFailed, period, err)
	}
	key := lockNamespace + period
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtext($1))`, key); err != nil {
		conn.Release()
		return nil, fmt.Errorf("%w: period %s: %v", apperrors.ErrLockFailed, period, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if _, err := conn.Exec(context.Background(), `SELECT pg_advisory_unlock(hashtext($1))`, key); err != nil {
				// A connection that cannot unlock must not go back to the pool holding the lock.
				_ = conn.Conn().Close(context.Background())
			}
			conn.Release()
		})
	}, nil
}

// ReadPeriod returns the entries of a period in ID order.
func (s *Store) ReadPeriod(ctx context.Context, period string) ([]model.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT line_id, entry_date, account, label, debit, credit, currency, reference, origin, source_row, fingerprint
		FROM journal_lines WHERE period = $1 ORDER BY entry_seq, id`, period)
	if err != nil {
		return nil, fmt.Errorf("%w: reading period %s: %v", apperrors.ErrLedgerUnavailable, period, err)
	}
	defer rows.Close()

	var out []model.LedgerEntry
	for rows.Next() {
		var (
			e             model.LedgerEntry
			debit, credit int64
			currency      string
			origin        string
		)
		if err := rows.Scan(&e.ID, &e.Date, &e.Account, &e.Label, &debit, &credit,
			&currency, &e.Reference, &origin, &e.Row, &e.Fingerprint); err != nil {
			return nil, fmt.Errorf("%w: scanning period %s: %v", apperrors.ErrLedgerUnavailable, period, err)
		}
		e.Period = period
		e.Origin = model.Origin(origin)
		e.Debit = money.New(debit, currency)
		e.Credit = money.New(credit, currency)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading period %s: %v", apperrors.ErrLedgerUnavailable, period, err)
	}
	return out, nil
}
