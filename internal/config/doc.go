// Package config loads, validates, and normalizes newsforge configuration
// from TOML files with sensible defaults for every section.
package config
