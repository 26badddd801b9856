// Package config handles tileforge configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Faultbox/tileforge/internal/terrain"
	"github.com/Faultbox/tileforge/pkg/tilemap"
)

// Storage drivers.
const (
	DriverArchive  = "archive"
	DriverJSON     = "json"
	DriverPostgres = "postgres"
)

// Config holds all tileforge settings.
type Config struct {
	Grid    GridConfig    `yaml:"grid"`
	Atlas   AtlasConfig   `yaml:"atlas"`
	Terrain TerrainConfig `yaml:"terrain"`
	Camera  CameraConfig  `yaml:"camera"`
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// GridConfig holds the size and initial content of new grids.
type GridConfig struct {
	Height int    `yaml:"height"`
	Width  int    `yaml:"width"`
	Fill   string `yaml:"fill"` // uniform, enumerate or random
	Tile   int    `yaml:"tile"` // used by uniform fill
}

// AtlasConfig describes the tile atlas the grid indexes into.
type AtlasConfig struct {
	TileCount int `yaml:"tile_count"`
	Columns   int `yaml:"columns"` // width of the tile picker
}

// TerrainConfig holds generator settings.
type TerrainConfig struct {
	// Seed fixes the generator seed. Nil picks a fresh seed per run.
	Seed     *int64           `yaml:"seed,omitempty"`
	Settings terrain.Settings `yaml:"settings"`
	Palette  terrain.Palette  `yaml:"palette"`
}

// CameraConfig holds viewport geometry and the starting position.
type CameraConfig struct {
	Row        int `yaml:"row"`
	Col        int `yaml:"col"`
	TilePixels int `yaml:"tile_pixels"`
	ScreenW    int `yaml:"screen_w"`
	ScreenH    int `yaml:"screen_h"`
}

// StorageConfig selects and configures the save store.
type StorageConfig struct {
	Driver string `yaml:"driver"` // archive, json or postgres
	Path   string `yaml:"path"`   // archive or JSON file
	DSN    string `yaml:"dsn"`    // postgres connection string
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Grid: GridConfig{
			Height: 256,
			Width:  160,
			Fill:   "uniform",
			Tile:   terrain.DefaultPalette().Empty,
		},
		Atlas: AtlasConfig{
			TileCount: 720,
			Columns:   24,
		},
		Terrain: TerrainConfig{
			Settings: terrain.DefaultSettings(),
			Palette:  terrain.DefaultPalette(),
		},
		Camera: CameraConfig{
			Row:        75,
			Col:        8,
			TilePixels: 16,
			ScreenW:    1280,
			ScreenH:    720,
		},
		Storage: StorageConfig{
			Driver: DriverArchive,
			Path:   "saves.tfs",
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// TileAtlas returns the atlas described by the config.
func (c *Config) TileAtlas() tilemap.Atlas {
	return tilemap.FixedAtlas(c.Atlas.TileCount)
}

// Validate checks the config is usable.
func (c *Config) Validate() error {
	if c.Grid.Height <= 0 || c.Grid.Width <= 0 || c.Grid.Height > tilemap.MaxSide || c.Grid.Width > tilemap.MaxSide {
		return fmt.Errorf("grid: invalid size %dx%d (each side 1..%d)", c.Grid.Height, c.Grid.Width, tilemap.MaxSide)
	}
	if _, err := tilemap.ParseFillKind(c.Grid.Fill); err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	if c.Atlas.TileCount <= 0 {
		return fmt.Errorf("atlas: %w", tilemap.ErrInvalidAtlas)
	}
	if c.Atlas.Columns <= 0 {
		return errors.New("atlas: columns must be positive")
	}
	if err := c.Terrain.Settings.Validate(); err != nil {
		return fmt.Errorf("terrain: %w", err)
	}
	if err := c.Terrain.Palette.Validate(c.TileAtlas()); err != nil {
		return fmt.Errorf("terrain: %w", err)
	}
	if c.Camera.TilePixels <= 0 || c.Camera.ScreenW <= 0 || c.Camera.ScreenH <= 0 {
		return errors.New("camera: tile and screen sizes must be positive")
	}
	switch c.Storage.Driver {
	case DriverArchive, DriverJSON:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage: %s driver needs a path", c.Storage.Driver)
		}
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return errors.New("storage: postgres driver needs a dsn")
		}
	default:
		return fmt.Errorf("storage: unknown driver %q", c.Storage.Driver)
	}
	return nil
}
