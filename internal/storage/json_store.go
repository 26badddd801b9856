package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Faultbox/tileforge/pkg/tilemap"
)

// GridDocument is the JSON form of a grid: each layer is a list of rows.
type GridDocument struct {
	Height int       `json:"height"`
	Width  int       `json:"width"`
	Active int       `json:"active"`
	Scale  float64   `json:"scale"`
	Layers [][][]int `json:"layers"`
}

// NewGridDocument converts g to its JSON form.
func NewGridDocument(g *tilemap.Grid) GridDocument {
	doc := GridDocument{
		Height: g.Height(),
		Width:  g.Width(),
		Active: g.Active(),
		Scale:  g.Scale(),
		Layers: make([][][]int, g.LayerCount()),
	}
	for i := range doc.Layers {
		doc.Layers[i], _ = g.Rows(i)
	}
	return doc
}

// Grid rebuilds the grid the document describes.
func (d GridDocument) Grid() (*tilemap.Grid, error) {
	layers := make([][]int, len(d.Layers))
	for i, rows := range d.Layers {
		if len(rows) != d.Height {
			return nil, fmt.Errorf("%w: layer %d has %d rows, expected %d", tilemap.ErrInvalidSize, i, len(rows), d.Height)
		}
		flat := make([]int, 0, d.Height*d.Width)
		for r, row := range rows {
			if len(row) != d.Width {
				return nil, fmt.Errorf("%w: layer %d row %d has %d cells, expected %d", tilemap.ErrInvalidSize, i, r, len(row), d.Width)
			}
			flat = append(flat, row...)
		}
		layers[i] = flat
	}
	return tilemap.FromLayers(d.Height, d.Width, layers, d.Active, d.Scale)
}

type jsonData struct {
	Saves map[string]GridDocument `json:"saves"`
}

// JSONStore keeps every save in one JSON file. The whole file is
// rewritten on each save.
type JSONStore struct {
	filePath string
	mutex    sync.RWMutex
	data     jsonData
}

// NewJSONStore opens the store file at filePath, creating it if missing.
func NewJSONStore(filePath string) (*JSONStore, error) {
	store := &JSONStore{
		filePath: filePath,
		data:     jsonData{Saves: make(map[string]GridDocument)},
	}

	if _, err := os.Stat(filePath); err == nil {
		if err := store.loadFromFile(); err != nil {
			return nil, fmt.Errorf("loading JSON store: %w", err)
		}
	} else if err := store.saveToFile(); err != nil {
		return nil, fmt.Errorf("creating JSON store file: %w", err)
	}

	return store, nil
}

func (js *JSONStore) loadFromFile() error {
	file, err := os.ReadFile(js.filePath)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(file, &js.data); err != nil {
		return err
	}
	if js.data.Saves == nil {
		js.data.Saves = make(map[string]GridDocument)
	}
	return nil
}

// saveToFile writes the store; the caller holds the write lock.
func (js *JSONStore) saveToFile() error {
	data, err := json.MarshalIndent(js.data, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(js.filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(js.filePath, data, 0644)
}

// Save stores g under name.
func (js *JSONStore) Save(_ context.Context, name string, g *tilemap.Grid) error {
	k, err := key(name)
	if err != nil {
		return err
	}

	js.mutex.Lock()
	defer js.mutex.Unlock()

	js.data.Saves[k] = NewGridDocument(g)
	return js.saveToFile()
}

// Load returns the grid saved under name.
func (js *JSONStore) Load(_ context.Context, name string) (*tilemap.Grid, error) {
	k, err := key(name)
	if err != nil {
		return nil, err
	}

	js.mutex.RLock()
	doc, exists := js.data.Saves[k]
	js.mutex.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, k)
	}
	return doc.Grid()
}

// List returns the save names in sorted order.
func (js *JSONStore) List(_ context.Context) ([]string, error) {
	js.mutex.RLock()
	defer js.mutex.RUnlock()

	names := make([]string, 0, len(js.data.Saves))
	for name := range js.data.Saves {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close is a no-op; every save is already on disk.
func (js *JSONStore) Close() error {
	return nil
}
