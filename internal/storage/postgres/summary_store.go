// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/article-summaries/internal/summary"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "summaries"

// Config controls the Postgres connection pool used for summary rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pool is the subset of pgxpool.Pool used by the store; pgxmock satisfies it.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// SummaryStore implements summary.Store on a single Postgres table.
type SummaryStore struct {
	pool  pool
	table string
}

// NewSummaryStore creates a Postgres-backed SummaryStore using the provided config.
func NewSummaryStore(ctx context.Context, cfg Config) (*SummaryStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database_url is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &SummaryStore{pool: p, table: table}, nil
}

// NewSummaryStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewSummaryStoreWithPool(p pool, table string) (*SummaryStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &SummaryStore{pool: p, table: table}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *SummaryStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Migrate creates the summaries table when it does not exist yet.
func (s *SummaryStore) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	url TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *SummaryStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func (s *SummaryStore) columns() string {
	return "id, url, summary, status, error_message, created_at"
}

// Create inserts a pending record and returns it with the assigned id.
func (s *SummaryStore) Create(ctx context.Context, url string, createdAt time.Time) (summary.Summary, error) {
	query := fmt.Sprintf(`
INSERT INTO %s (url, summary, status, created_at)
VALUES ($1, '', $2, $3)
RETURNING %s`, s.table, s.columns())
	rec, err := scanSummary(s.pool.QueryRow(ctx, query, url, string(summary.StatusPending), createdAt))
	if err != nil {
		return summary.Summary{}, fmt.Errorf("insert summary: %w", err)
	}
	return rec, nil
}

// Get fetches a record by id.
func (s *SummaryStore) Get(ctx context.Context, id int64) (summary.Summary, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, s.columns(), s.table)
	rec, err := scanSummary(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return summary.Summary{}, fmt.Errorf("get summary %d: %w", id, err)
	}
	return rec, nil
}

// List returns every record ordered by id.
func (s *SummaryStore) List(ctx context.Context) ([]summary.Summary, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY id`, s.columns(), s.table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	out := []summary.Summary{}
	for rows.Next() {
		rec, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}
	return out, nil
}

// Update overwrites url and summary text; the record becomes completed.
func (s *SummaryStore) Update(ctx context.Context, id int64, url, text string) (summary.Summary, error) {
	query := fmt.Sprintf(`
UPDATE %s SET url = $1, summary = $2, status = $3, error_message = ''
WHERE id = $4
RETURNING %s`, s.table, s.columns())
	rec, err := scanSummary(s.pool.QueryRow(ctx, query, url, text, string(summary.StatusCompleted), id))
	if err != nil {
		return summary.Summary{}, fmt.Errorf("update summary %d: %w", id, err)
	}
	return rec, nil
}

// Delete removes a record and returns what was removed.
func (s *SummaryStore) Delete(ctx context.Context, id int64) (summary.Summary, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 RETURNING %s`, s.table, s.columns())
	rec, err := scanSummary(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return summary.Summary{}, fmt.Errorf("delete summary %d: %w", id, err)
	}
	return rec, nil
}

// CompleteSummary stores generated text on a pending record.
func (s *SummaryStore) CompleteSummary(ctx context.Context, id int64, text string) error {
	query := fmt.Sprintf(`
UPDATE %s SET summary = $1, status = $2, error_message = ''
WHERE id = $3 AND status = $4`, s.table)
	tag, err := s.pool.Exec(ctx, query, text, string(summary.StatusCompleted), id, string(summary.StatusPending))
	if err != nil {
		return fmt.Errorf("complete summary %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return s.notPending(ctx, id)
	}
	return nil
}

// FailSummary marks a pending record as failed with the given reason.
func (s *SummaryStore) FailSummary(ctx context.Context, id int64, errText string) error {
	query := fmt.Sprintf(`
UPDATE %s SET status = $1, error_message = $2
WHERE id = $3 AND status = $4`, s.table)
	tag, err := s.pool.Exec(ctx, query, string(summary.StatusFailed), errText, id, string(summary.StatusPending))
	if err != nil {
		return fmt.Errorf("fail summary %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return s.notPending(ctx, id)
	}
	return nil
}

// notPending tells a vanished record apart from one that already moved on.
func (s *SummaryStore) notPending(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("summary %d: %w", id, summary.ErrNotPending)
}

func scanSummary(row pgx.Row) (summary.Summary, error) {
	var (
		rec    summary.Summary
		status string
	)
	err := row.Scan(&rec.ID, &rec.URL, &rec.Summary, &status, &rec.ErrorMessage, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return summary.Summary{}, summary.ErrNotFound
		}
		return summary.Summary{}, err
	}
	rec.Status = summary.Status(status)
	return rec, nil
}
