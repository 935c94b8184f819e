// Package config loads, normalizes, and validates the storyreel TOML
// configuration. Components receive an explicit *Config at construction;
// nothing reads configuration ambiently.
package config
