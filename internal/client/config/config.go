// Package config holds the settings of the gophauth CLI client.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"
)

// GlobalFlags are the flags that precede the subcommand; each takes a value.
var GlobalFlags = []string{"-a", "-f", "-w", "-c", "-config", "--config"}

// Config holds runtime settings for the CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the gRPC endpoint.
//   - SessionFile: where the last token pair is kept between invocations.
//   - RequestTimeout: deadline applied to every call.
type Config struct {
	ServerEndpointAddr string        `env:"GOPHAUTH_SERVER_ADDR"`
	SessionFile        string        `env:"GOPHAUTH_SESSION_FILE"`
	RequestTimeout     time.Duration `env:"GOPHAUTH_REQUEST_TIMEOUT"`
}

// userConfigDir is a seam for os.UserConfigDir.
var userConfigDir = os.UserConfigDir

// LoadDefaults populates c with defaults. The session file lives under the
// user's config directory, falling back to the working directory.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RequestTimeout = 10 * time.Second

	dir, err := userConfigDir()
	if err != nil {
		dir = "."
	}
	c.SessionFile = filepath.Join(dir, "gophauth", "session.json")
}

// LoadConfig applies defaults, then the JSON file named by -c/-config, the
// environment and finally the global short flags found in args.
func LoadConfig(args []string) (*Config, error) {
	global, _, _ := splitArgs(args)

	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, global); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, global); err != nil {
		return nil, err
	}
	if cfg.ServerEndpointAddr == "" {
		return nil, errors.New("server address is required")
	}
	return cfg, nil
}
