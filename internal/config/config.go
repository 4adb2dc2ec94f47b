// Package config resolves the console configuration from, in increasing
// priority: a .env file, environment variables, and command-line flags.
package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config is the resolved console configuration.
type Config struct {
	// Addr is the listen address.
	Addr string
	// DBPath is the sqlite database path (console users plus the
	// standalone-mode store).
	DBPath string
	// APIEndpoint is the remote deployment API base URL. Empty means
	// standalone mode: the console mounts its own API over sqlite.
	APIEndpoint string
	// LogPath is an optional log file; stdout/stderr are always used.
	LogPath string
	// AdminUser is the admin username created on first run.
	AdminUser string
}

// Standalone reports whether the console serves its own deployment API.
func (c *Config) Standalone() bool {
	return c.APIEndpoint == ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load reads .env (when present), environment variables, and flags.
func Load(args []string) (*Config, error) {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	cfg := &Config{}
	fs := flag.NewFlagSet("decoryard", flag.ContinueOnError)

	addrDefault := envOr("DECORYARD_ADDR", ":8080")
	fs.StringVar(&cfg.Addr, "addr", addrDefault, "")
	fs.StringVar(&cfg.Addr, "a", addrDefault, "")

	dbDefault := envOr("DECORYARD_DB", "decoryard.sqlite3")
	fs.StringVar(&cfg.DBPath, "db", dbDefault, "")
	fs.StringVar(&cfg.DBPath, "d", dbDefault, "")

	apiDefault := envOr("DECORYARD_API_ENDPOINT", "")
	fs.StringVar(&cfg.APIEndpoint, "api", apiDefault, "")

	logDefault := envOr("DECORYARD_LOG", "")
	fs.StringVar(&cfg.LogPath, "log", logDefault, "")
	fs.StringVar(&cfg.LogPath, "l", logDefault, "")

	userDefault := envOr("DECORYARD_ADMIN_USER", "Admin")
	fs.StringVar(&cfg.AdminUser, "user", userDefault, "")
	fs.StringVar(&cfg.AdminUser, "u", userDefault, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: decoryard [flags]

Flags:
  -a, -addr <host:port>   listen address (default: :8080)
  -d, -db <path>          SQLite database path (default: decoryard.sqlite3)
  -api <url>              remote deployment API endpoint
                          (default: none, runs in standalone mode)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -u, -user <name>        admin username on first run (default: Admin)
  -h, -help               show this help and exit

Each flag falls back to its DECORYARD_* environment variable, which may
also be set from a .env file in the working directory.
`)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return cfg, nil
}
