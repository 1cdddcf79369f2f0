// Package config provides YAML-based configuration of the deck tool itself:
// journal location, logging, frame rate and server addresses. Project
// settings live in the project's own settings file.
package config

import "time"

// Config is the tool configuration. Command-line flags override it.
type Config struct {
	DBPath   string `yaml:"db"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	Run   RunConfig   `yaml:"run"`
	Watch WatchConfig `yaml:"watch"`
	HTTP  HTTPConfig  `yaml:"http"`
	SSH   SSHConfig   `yaml:"ssh"`
}

// RunConfig drives the local frame loop.
type RunConfig struct {
	FPS  int           `yaml:"fps"`
	Poll time.Duration `yaml:"poll"`
}

// WatchConfig controls the file watcher.
type WatchConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Debounce   time.Duration `yaml:"debounce"`
	Extensions []string      `yaml:"extensions"`
	Ignore     []string      `yaml:"ignore"`
}

// HTTPConfig is the status server started while a project enables its
// webserver.
type HTTPConfig struct {
	Addr      string `yaml:"addr"`
	Namespace string `yaml:"namespace"`
}

// SSHConfig is the remote session server.
type SSHConfig struct {
	Addr        string        `yaml:"addr"`
	HostKey     string        `yaml:"host_key"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// DefaultConfig returns the hardcoded defaults. They match defaults/deck.yaml.
func DefaultConfig() Config {
	return Config{
		DBPath:   "~/.deck/reloads.db",
		LogLevel: "info",
		LogFile:  "~/.deck/deck.log",
		Run: RunConfig{
			FPS:  30,
			Poll: 500 * time.Millisecond,
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: 150 * time.Millisecond,
		},
		HTTP: HTTPConfig{
			Addr:      "127.0.0.1:7331",
			Namespace: "livedeck",
		},
		SSH: SSHConfig{
			Addr:        ":23234",
			IdleTimeout: 30 * time.Minute,
		},
	}
}
