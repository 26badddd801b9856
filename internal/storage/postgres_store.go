package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"

	"github.com/Faultbox/tileforge/internal/logger"
	"github.com/Faultbox/tileforge/pkg/formats"
	"github.com/Faultbox/tileforge/pkg/tilemap"
)

const schema = `
CREATE TABLE IF NOT EXISTS grid_saves (
	name TEXT PRIMARY KEY,
	height INTEGER NOT NULL,
	width INTEGER NOT NULL,
	layers INTEGER NOT NULL,
	blob BYTEA NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
`

// PostgresStore keeps saves as TMAP blobs in a PostgreSQL table.
type PostgresStore struct {
	db  *sql.DB
	log *zap.Logger
}

// NewPostgresStore connects to dsn and creates the table if needed.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &PostgresStore{db: db, log: logger.Named("storage")}, nil
}

// Save upserts the grid under name.
func (s *PostgresStore) Save(ctx context.Context, name string, g *tilemap.Grid) error {
	k, err := key(name)
	if err != nil {
		return err
	}
	blob, err := formats.EncodeTMAP(g)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", k, err)
	}

	query := `
	INSERT INTO grid_saves (name, height, width, layers, blob)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (name)
	DO UPDATE SET
		height = $2, width = $3, layers = $4, blob = $5,
		updated_at = NOW()
	`
	if _, err := s.db.ExecContext(ctx, query, k, g.Height(), g.Width(), g.LayerCount(), blob); err != nil {
		return fmt.Errorf("saving %s: %w", k, err)
	}
	s.log.Debug("saved grid", zap.String("name", k), zap.Int("bytes", len(blob)))
	return nil
}

// Load reads the grid saved under name.
func (s *PostgresStore) Load(ctx context.Context, name string) (*tilemap.Grid, error) {
	k, err := key(name)
	if err != nil {
		return nil, err
	}

	var blob []byte
	err = s.db.QueryRowContext(ctx, `SELECT blob FROM grid_saves WHERE name = $1`, k).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, k)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", k, err)
	}

	g, err := formats.ParseTMAP(blob)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", k, err)
	}
	return g, nil
}

// List returns the save names in sorted order.
func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM grid_saves ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing saves: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("listing saves: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	s.log.Debug("closing database connection")
	return s.db.Close()
}
