package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appLog "monthcal/internal/log"
	"monthcal/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS events (
	id          BIGSERIAL PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT,
	start_time  TEXT NOT NULL,
	end_time    TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS events_start_time_idx ON events (start_time);
`

// Postgres is an EventStore backed by a pgx connection pool. Timestamps are
// stored as canonical text so range filtering matches the other backends.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// ConnectPostgres opens a pool for databaseURL, pings it and ensures the
// events table exists.
func ConnectPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	if databaseURL == "" {
		return nil, errors.New("store: database url is empty")
	}

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: parse database url: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("store: create pool: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}

	p := NewPostgres(db)
	if err := p.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	appLog.Info("postgres event store ready")
	return p, nil
}

// EnsureSchema creates the events table when missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("store: ensure schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.db.Close()
}

// Ping is used by the health endpoint.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

func (p *Postgres) ListEvents(ctx context.Context, startRange, endRange string) ([]model.Event, error) {
	query := `
	SELECT id, title, description, start_time, end_time
	FROM events
	WHERE start_time >= $1 AND start_time <= $2
	ORDER BY start_time ASC, id ASC
	`

	rows, err := p.db.Query(ctx, query, startRange, endRange)
	if err != nil {
		return nil, fmt.Errorf("store: list events: %w", err)
	}

	// Columns line up with model.Event's fields in declaration order.
	events, err := pgx.CollectRows(rows, pgx.RowToStructByPos[model.Event])
	if err != nil {
		return nil, fmt.Errorf("store: scan events: %w", err)
	}
	return events, nil
}

func (p *Postgres) CreateEvent(ctx context.Context, title string, description *string, start, end string) (int64, error) {
	if err := validateNew(title, start, end); err != nil {
		return 0, err
	}

	var id int64
	err := p.db.QueryRow(ctx,
		`INSERT INTO events (title, description, start_time, end_time) VALUES ($1, $2, $3, $4) RETURNING id`,
		title, description, start, end,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: create event: %w", err)
	}
	return id, nil
}

func (p *Postgres) DeleteEvent(ctx context.Context, id int64) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
