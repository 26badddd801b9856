// tileforge is the command-line front end of the tile grid editor.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/tileforge/internal/api"
	"github.com/Faultbox/tileforge/internal/config"
	"github.com/Faultbox/tileforge/internal/editor"
	"github.com/Faultbox/tileforge/internal/logger"
	"github.com/Faultbox/tileforge/internal/storage"
	"github.com/Faultbox/tileforge/pkg/formats"
	"github.com/Faultbox/tileforge/pkg/tilemap"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command, rest := args[0], args[1:]
	switch command {
	case "generate", "gen":
		err = cmdGenerate(cfg, rest)
	case "serve":
		err = cmdServe(cfg)
	case "info":
		err = cmdInfo(cfg, rest)
	case "list", "ls":
		err = cmdList(cfg)
	case "export":
		err = cmdExport(cfg, rest)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tileforge - tile grid editor

Usage:
  tileforge [flags] <command> [options]

Commands:
  generate [-save name] [-out file.tmap]  Generate terrain and store it
  serve                                   Serve the editor over HTTP
  info <name | file.tmap>                 Show grid dimensions and tile counts
  list                                    List saved grids
  export <name> <file.tmap | file.json>   Export a saved grid

Flags:
  -config path   Config file (default: tileforge.yaml)
  -seed n        Terrain seed
  -height n      Grid height in cells
  -width n       Grid width in cells
  -store driver  archive, json or postgres
  -addr addr     HTTP listen address
  -debug         Enable debug logging

Examples:
  tileforge -seed 42 generate -save world
  tileforge -store json serve
  tileforge info world
  tileforge export world world.tmap`)
}

func cmdGenerate(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	name := fs.String("save", "", "Save the grid under this name")
	out := fs.String("out", "", "Write the grid to a TMAP file")
	fs.Parse(args)

	if *name == "" && *out == "" {
		return errors.New("generate needs -save, -out or both")
	}

	ctx := context.Background()
	var store storage.Store
	if *name != "" {
		s, err := storage.Open(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
	}

	session, err := editor.New(cfg, store)
	if err != nil {
		return err
	}
	stats, err := session.Generate(nil)
	if err != nil {
		return err
	}

	if *name != "" {
		if err := session.Save(ctx, *name); err != nil {
			return err
		}
		fmt.Printf("Saved:   %s\n", *name)
	}
	if *out != "" {
		if err := formats.WriteTMAPFile(*out, session.Grid()); err != nil {
			return err
		}
		fmt.Printf("Written: %s\n", *out)
	}

	fmt.Printf("Seed:    %d\n", stats.Seed)
	fmt.Printf("Trees:   %d\n", stats.Trees)
	fmt.Printf("Flooded: %d\n", stats.Flooded)
	fmt.Printf("Carved:  %d\n", stats.Carved)
	return nil
}

func cmdServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	session, err := editor.New(cfg, store)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.SetupRoutes(session),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("store", cfg.Storage.Driver))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// loadGrid reads a TMAP file when arg names one, otherwise a saved grid.
func loadGrid(ctx context.Context, cfg *config.Config, arg string) (*tilemap.Grid, error) {
	if strings.HasSuffix(strings.ToLower(arg), ".tmap") {
		return formats.ParseTMAPFile(arg)
	}
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Load(ctx, arg)
}

func cmdInfo(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: tileforge info <name | file.tmap>")
	}

	g, err := loadGrid(context.Background(), cfg, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Grid:   %s\n", args[0])
	fmt.Printf("Size:   %d x %d\n", g.Height(), g.Width())
	fmt.Printf("Layers: %d (active %d)\n", g.LayerCount(), g.Active())
	fmt.Printf("Scale:  %g\n", g.Scale())

	for layer := 0; layer < g.LayerCount(); layer++ {
		counts, err := g.CountTiles(layer)
		if err != nil {
			return err
		}

		type tileStat struct {
			id, count int
		}
		stats := make([]tileStat, 0, len(counts))
		for id, n := range counts {
			stats = append(stats, tileStat{id, n})
		}
		sort.Slice(stats, func(i, j int) bool {
			if stats[i].count != stats[j].count {
				return stats[i].count > stats[j].count
			}
			return stats[i].id < stats[j].id
		})

		fmt.Println()
		fmt.Printf("Layer %d tiles:\n", layer)
		for i, s := range stats {
			if i == 10 {
				fmt.Printf("  ... %d more\n", len(stats)-i)
				break
			}
			fmt.Printf("  %-6d %d\n", s.id, s.count)
		}
	}
	return nil
}

func cmdList(cfg *config.Config) error {
	ctx := context.Background()
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	names, err := store.List(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	fmt.Printf("\nTotal: %d saves\n", len(names))
	return nil
}

func cmdExport(cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: tileforge export <name> <file.tmap | file.json>")
	}
	name, out := args[0], args[1]

	ctx := context.Background()
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	g, err := store.Load(ctx, name)
	if err != nil {
		return err
	}

	if strings.HasSuffix(strings.ToLower(out), ".json") {
		data, err := json.MarshalIndent(storage.NewGridDocument(g), "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return err
		}
	} else if err := formats.WriteTMAPFile(out, g); err != nil {
		return err
	}

	fmt.Printf("Exported %s to %s\n", name, out)
	return nil
}
