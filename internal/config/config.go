// Package config reads the gate node configuration from environment
// variables, with command-line flags as overrides.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Authority selects the role explicitly. The authority node runs the
	// listener; every node runs the gate client logic.
	Authority bool `env:"CARDEA_AUTHORITY"`

	AuthorityAddr string `env:"CARDEA_AUTHORITY_ADDR"`
	ListenAddr    string `env:"CARDEA_LISTEN_ADDR"`

	BaseDir   string `env:"CARDEA_BASE_DIR"`
	DBPath    string `env:"CARDEA_DB_PATH"`
	SoundPath string `env:"CARDEA_SOUND_PATH"`

	// WipeKeep lists store-root entries the wipe must never delete.
	WipeKeep []string `env:"CARDEA_WIPE_KEEP" envSeparator:","`

	YearMin int `env:"CARDEA_YEAR_MIN"`
	YearMax int `env:"CARDEA_YEAR_MAX"`

	// ScannerIDs are USB vendor:product pairs, hex, e.g. "1eab:1a03".
	ScannerIDs []string `env:"CARDEA_SCANNER_IDS" envSeparator:","`

	GatePin   int `env:"CARDEA_GATE_PIN"`
	ButtonPin int `env:"CARDEA_BUTTON_PIN"`
}

func defaults() Config {
	return Config{
		AuthorityAddr: "192.168.0.60:3333",
		ListenAddr:    ":3333",
		BaseDir:       "/home/admin/Barcodes",
		DBPath:        "/home/admin/Barcodes/cardea.db",
		SoundPath:     "/home/admin/Barcodes/sounds/%s.mp3",
		WipeKeep: []string{
			"sounds", "cron.log", "install.sh", "install guide barcode.txt",
			"cardea.db", "cardea.db-wal", "cardea.db-shm",
		},
		YearMin:    23,
		YearMax:    50,
		ScannerIDs: []string{"1eab:1a03", "27dd:0103"},
		GatePin:    26,
		ButtonPin:  27,
	}
}

// Parse reads the environment, then applies flag overrides from args
// (normally os.Args[1:]).
func Parse(args []string) (*Config, error) {
	def := defaults()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fromEnv := *cfg

	fs := flag.NewFlagSet("cardea", flag.ContinueOnError)
	fs.BoolVar(&cfg.Authority, "authority", def.Authority, "run as the designated authority node")
	fs.StringVar(&cfg.AuthorityAddr, "authority-addr", def.AuthorityAddr, "authority host:port")
	fs.StringVar(&cfg.ListenAddr, "listen", def.ListenAddr, "authority listen address")
	fs.StringVar(&cfg.BaseDir, "base-dir", def.BaseDir, "validation store root")
	fs.StringVar(&cfg.DBPath, "db", def.DBPath, "audit database path")
	fs.StringVar(&cfg.SoundPath, "sound-path", def.SoundPath, "sound asset path template")
	fs.IntVar(&cfg.GatePin, "gate-pin", def.GatePin, "gate output GPIO pin")
	fs.IntVar(&cfg.ButtonPin, "button-pin", def.ButtonPin, "override button GPIO pin")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Environment wins over flag defaults; an explicit flag wins over both.
	applyEnvString(fs, "authority-addr", &cfg.AuthorityAddr, fromEnv.AuthorityAddr)
	applyEnvString(fs, "listen", &cfg.ListenAddr, fromEnv.ListenAddr)
	applyEnvString(fs, "base-dir", &cfg.BaseDir, fromEnv.BaseDir)
	applyEnvString(fs, "db", &cfg.DBPath, fromEnv.DBPath)
	applyEnvString(fs, "sound-path", &cfg.SoundPath, fromEnv.SoundPath)
	if fromEnv.Authority && !flagSet(fs, "authority") {
		cfg.Authority = true
	}
	if fromEnv.GatePin != 0 && !flagSet(fs, "gate-pin") {
		cfg.GatePin = fromEnv.GatePin
	}
	if fromEnv.ButtonPin != 0 && !flagSet(fs, "button-pin") {
		cfg.ButtonPin = fromEnv.ButtonPin
	}

	// The rest is env-or-default only.
	if len(cfg.WipeKeep) == 0 {
		cfg.WipeKeep = def.WipeKeep
	}
	if cfg.YearMin == 0 {
		cfg.YearMin = def.YearMin
	}
	if cfg.YearMax == 0 {
		cfg.YearMax = def.YearMax
	}
	if len(cfg.ScannerIDs) == 0 {
		cfg.ScannerIDs = def.ScannerIDs
	}

	if cfg.YearMin > cfg.YearMax {
		return nil, fmt.Errorf("year window %d..%d is empty", cfg.YearMin, cfg.YearMax)
	}

	return cfg, nil
}

// applyEnvString keeps an env-provided value unless the flag was given
// explicitly.
func applyEnvString(fs *flag.FlagSet, name string, dst *string, envVal string) {
	if envVal != "" && !flagSet(fs, name) {
		*dst = envVal
	}
}

func flagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
