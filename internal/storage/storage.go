// Package storage persists named grids.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/Faultbox/tileforge/internal/config"
	"github.com/Faultbox/tileforge/pkg/encoding"
	"github.com/Faultbox/tileforge/pkg/tilemap"
)

// Store errors.
var (
	ErrNotFound    = errors.New("save not found")
	ErrInvalidName = errors.New("invalid save name")
)

// Store saves and loads grids by name. Names are normalized, so "Caves"
// and "caves" address the same save. Saving under an existing name
// replaces it.
type Store interface {
	Save(ctx context.Context, name string, g *tilemap.Grid) error
	Load(ctx context.Context, name string) (*tilemap.Grid, error)
	List(ctx context.Context) ([]string, error)
	Close() error
}

// Open creates the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case config.DriverArchive:
		s, err = NewArchiveStore(cfg.Path)
	case config.DriverJSON:
		s, err = NewJSONStore(cfg.Path)
	case config.DriverPostgres:
		s, err = NewPostgresStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// key validates and normalizes a save name.
func key(name string) (string, error) {
	if !encoding.ValidName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return encoding.NormalizeName(name), nil
}
