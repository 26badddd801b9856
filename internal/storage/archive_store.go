package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/tileforge/internal/logger"
	"github.com/Faultbox/tileforge/pkg/archive"
	"github.com/Faultbox/tileforge/pkg/formats"
	"github.com/Faultbox/tileforge/pkg/tilemap"
)

// ArchiveStore keeps every save as a TMAP entry of one archive file.
type ArchiveStore struct {
	mu  sync.Mutex
	a   *archive.Archive
	log *zap.Logger
}

// NewArchiveStore opens the archive at path, creating it on first save.
func NewArchiveStore(path string) (*ArchiveStore, error) {
	a, err := archive.OpenOrCreate(path)
	if err != nil {
		return nil, fmt.Errorf("opening save archive: %w", err)
	}
	return &ArchiveStore{a: a, log: logger.Named("storage")}, nil
}

// Save encodes g and writes it through to disk.
func (s *ArchiveStore) Save(_ context.Context, name string, g *tilemap.Grid) error {
	k, err := key(name)
	if err != nil {
		return err
	}
	data, err := formats.EncodeTMAP(g)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", k, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.a.Put(k, data); err != nil {
		return err
	}
	if err := s.a.Flush(); err != nil {
		return fmt.Errorf("flushing save archive: %w", err)
	}
	s.log.Debug("saved grid", zap.String("name", k), zap.Int("bytes", len(data)))
	return nil
}

// Load reads and decodes a save.
func (s *ArchiveStore) Load(_ context.Context, name string) (*tilemap.Grid, error) {
	k, err := key(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	data, err := s.a.Read(k)
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, k)
		}
		return nil, err
	}

	g, err := formats.ParseTMAP(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", k, err)
	}
	return g, nil
}

// List returns the save names in sorted order.
func (s *ArchiveStore) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.List(), nil
}

// Close closes the archive file.
func (s *ArchiveStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Close()
}
