package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/repository"
	pkgch "StockCast/pkg/clickhouse"
	"StockCast/pkg/logger"

	"github.com/google/uuid"
)

// CHRequestStore keeps request records in a ReplacingMergeTree keyed by id.
// Every Save inserts a new row; reads use FINAL so the row with the newest
// updated_at wins.
type CHRequestStore struct {
	db       *sql.DB
	database string
	table    string
	l        *logger.Logger
}

var _ repository.RequestStore = (*CHRequestStore)(nil)

func NewCHRequestStore(ch *pkgch.Client, l *logger.Logger) *CHRequestStore {
	db := ch.Database()
	return &CHRequestStore{
		db:       ch.DB(),
		database: db,
		table:    db + ".requests",
		l:        l,
	}
}

// Schema returns the DDL for the requests table.
func (s *CHRequestStore) Schema() []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", s.database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id UUID,
    symbol LowCardinality(String),
    period String,
    interval LowCardinality(String),
    status LowCardinality(String),
    data String,
    error String,
    created_at DateTime64(3, 'UTC'),
    updated_at DateTime64(3, 'UTC')
) ENGINE = ReplacingMergeTree(updated_at)
ORDER BY id`, s.table),
	}
}

func (s *CHRequestStore) Init(ctx context.Context) error {
	for _, stmt := range s.Schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init requests table: %w", err)
		}
	}
	return nil
}

func (s *CHRequestStore) Save(ctx context.Context, d *models.Data) error {
	q := fmt.Sprintf("INSERT INTO %s (id, symbol, period, interval, status, data, error, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		d.ID.String(),
		d.Symbol,
		d.Period,
		d.Interval,
		string(d.Status),
		string(d.Data),
		d.Error,
		d.CreatedAt.UTC(),
		d.UpdatedAt.UTC(),
	)
	if err != nil {
		s.l.Error("clickhouse save request failed",
			logger.String("id", d.ID.String()),
			logger.String("status", string(d.Status)),
			logger.Error(err))
		return fmt.Errorf("save request: %w", err)
	}
	return nil
}

func (s *CHRequestStore) Get(ctx context.Context, id uuid.UUID) (*models.Data, error) {
	q := fmt.Sprintf("SELECT id, symbol, period, interval, status, data, error, created_at, updated_at FROM %s FINAL WHERE id = ? LIMIT 1", s.table)

	var (
		d                  models.Data
		rawID, status, raw string
		created, updated   time.Time
	)
	err := s.db.QueryRowContext(ctx, q, id.String()).Scan(
		&rawID, &d.Symbol, &d.Period, &d.Interval, &status, &raw, &d.Error, &created, &updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("request %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}

	if d.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("get request: bad id %q: %w", rawID, err)
	}
	d.Status = models.Status(status)
	if raw != "" {
		d.Data = []byte(raw)
	}
	d.CreatedAt = created.UTC()
	d.UpdatedAt = updated.UTC()
	return &d, nil
}

func (s *CHRequestStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHRequestStore) Close() error {
	return nil // pool owned by pkg/clickhouse
}
