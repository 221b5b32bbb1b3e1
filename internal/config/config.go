// Package config loads the server's YAML configuration and, optionally,
// watches it for changes.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Config is the server's full runtime configuration. Every field has a
// sensible zero-config default matching spec.md §6.
type Config struct {
	// ListenAddr is the HTTP/WebSocket listener address.
	ListenAddr string `yaml:"listen_addr"`

	// SnapshotInterval is the cadence agents are expected to send
	// inventory reports at (inventory.SnapshotInterval's config-driven
	// value).
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
	// Retention is how long the aggregator retains snapshots.
	Retention time.Duration `yaml:"retention"`
	// RateWindow is the render loop's default query window.
	RateWindow time.Duration `yaml:"rate_window"`

	// Domain, if set, enables automatic ACME TLS via certmagic instead of
	// plain HTTP.
	Domain string `yaml:"domain"`
	// NgrokAuthtoken, if set, tunnels the listener through ngrok instead
	// of binding a routable address directly.
	NgrokAuthtoken string `yaml:"ngrok_authtoken"`
}

// Default returns the configuration spec.md describes when no config file
// is present: plain HTTP on 127.0.0.1:3000, the spec's own constants for
// snapshot interval, retention, and rate window.
func Default() Config {
	return Config{
		ListenAddr:       "127.0.0.1:3000",
		SnapshotInterval: 5 * time.Second,
		Retention:        30 * time.Minute,
		RateWindow:       5 * time.Minute,
	}
}

// Load reads and parses a YAML config file, starting from Default() so an
// omitted field keeps its default rather than zeroing out.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Watch watches path for changes and invokes onChange with the newly
// loaded configuration each time it's rewritten. It runs until stop is
// closed. Read, parse and watcher errors are passed to onChange together
// with a zero Config, so a transient malformed write (e.g. a partial save)
// is reported to the caller rather than tearing down a running server.
func Watch(path string, stop <-chan struct{}, onChange func(Config, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}

	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("config: watch %s: %w", path, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(path)
				onChange(cfg, err)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				onChange(Config{}, fmt.Errorf("config: watch error: %w", err))
			case <-stop:
				return
			}
		}
	}()

	return nil
}
