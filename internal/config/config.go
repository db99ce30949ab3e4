// Package config holds the compiler's tuning knobs. None of this is SF-IR
// input — spec.md §6.3 promises no persisted state and no environment
// variables are consulted by the core itself; Config is purely an optional,
// host-supplied set of parameters, loadable from YAML the way ailang's
// internal/eval_harness specs are (gopkg.in/yaml.v3), or just constructed
// with defaults in Go.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Config tunes the orchestrator (C7) and closure lowering (C6) without
// altering their observable semantics.
type Config struct {
	// FreshNamePrefix seeds internal/fresh.Source (default "x").
	FreshNamePrefix string `yaml:"fresh_name_prefix"`

	// DedupPartialApplicationAdapters controls whether the lowerer shares
	// one adapter per (targetEntryType, savedTypes) pair across the module,
	// as spec.md §4.6.4 permits but does not require.
	DedupPartialApplicationAdapters bool `yaml:"dedup_partial_application_adapters"`

	// Verbosity is a logging level (0 = silent, 1 = phase boundaries,
	// 2 = per-definition) carried in the configuration. No package in this
	// module reads it: compiling emits no log output at any level.
	Verbosity int `yaml:"verbosity"`
}

// Default returns the configuration the orchestrator uses when the caller
// supplies none.
func Default() Config {
	return Config{
		FreshNamePrefix:                 "x",
		DedupPartialApplicationAdapters: true,
		Verbosity:                       0,
	}
}

// Load parses a YAML document into a Config, starting from Default() so that
// a partial document only overrides the fields it mentions.
func Load(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse yaml: %w", err)
	}
	return cfg, nil
}

// Marshal renders cfg back to YAML, mainly useful for `cmd/sfirc` to print
// the effective configuration it ran with.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
