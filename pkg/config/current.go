package config

import (
	"fmt"
	"sync/atomic"
)

// loaded pairs a configuration with the file it was read from.
type loaded struct {
	cfg  *Config
	path string
}

var current atomic.Pointer[loaded]

// Use loads the file at path with environment overrides and makes it the
// process-wide configuration. On error the previous configuration stays in
// place.
func Use(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	current.Store(&loaded{cfg: cfg, path: path})
	return nil
}

// Set installs cfg as the process-wide configuration. A nil cfg clears it.
func Set(cfg *Config) {
	if cfg == nil {
		current.Store(nil)
		return
	}
	current.Store(&loaded{cfg: cfg})
}

// Current returns the process-wide configuration, or nil before Use or Set.
func Current() *Config {
	if l := current.Load(); l != nil {
		return l.cfg
	}
	return nil
}

// CurrentPath is the file the current configuration came from. It is empty
// for defaults and for configurations installed with Set.
func CurrentPath() string {
	if l := current.Load(); l != nil {
		return l.path
	}
	return ""
}

// MustCurrent is Current but panics when nothing has been loaded.
func MustCurrent() *Config {
	cfg := Current()
	if cfg == nil {
		panic("config: no configuration loaded")
	}
	return cfg
}
