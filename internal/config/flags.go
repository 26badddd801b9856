package config

import "flag"

var (
	flagConfig = flag.String("config", "", "Path to config file")
	flagDebug  = flag.Bool("debug", false, "Enable debug logging")
	flagSeed   = flag.Int64("seed", -1, "Terrain seed (-1 picks a fresh seed per generation)")
	flagHeight = flag.Int("height", 0, "Grid height in cells")
	flagWidth  = flag.Int("width", 0, "Grid width in cells")
	flagStore  = flag.String("store", "", "Storage driver: archive, json or postgres")
	flagAddr   = flag.String("addr", "", "HTTP listen address")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagSeed >= 0 {
		seed := *flagSeed
		cfg.Terrain.Seed = &seed
	}
	if *flagHeight > 0 {
		cfg.Grid.Height = *flagHeight
	}
	if *flagWidth > 0 {
		cfg.Grid.Width = *flagWidth
	}
	if *flagStore != "" {
		cfg.Storage.Driver = *flagStore
	}
	if *flagAddr != "" {
		cfg.Server.Addr = *flagAddr
	}
}
