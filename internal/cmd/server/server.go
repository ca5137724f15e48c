// Package server parses server flags and launches the CastMatch service.
package server

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/castmatch/castmatch/internal/platform/cmd"
)

// Config holds server command configuration.
type Config struct {
	HTTPAddr          string        `env:"CASTMATCH_HTTP_ADDR" envDefault:":8080"`
	DBDir             string        `env:"CASTMATCH_DB_DIR" envDefault:"data"`
	StreamSecret      string        `env:"CASTMATCH_STREAM_SECRET"`
	HeartbeatInterval time.Duration `env:"CASTMATCH_HEARTBEAT_INTERVAL" envDefault:"30s"`
	Locale            string        `env:"CASTMATCH_LOCALE" envDefault:"en"`
}

// ParseConfig parses environment and flags into Config. Flags override env.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The HTTP listen address")
	fs.StringVar(&cfg.DBDir, "db-dir", cfg.DBDir, "Directory holding the sqlite databases")
	fs.DurationVar(&cfg.HeartbeatInterval, "heartbeat-interval", cfg.HeartbeatInterval, "Stream keep-alive period")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "Notification copy locale")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the CastMatch server.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(context.Context) error {
		return run(ctx, cfg)
	})
}
