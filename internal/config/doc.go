// Package config loads and validates the TOML configuration for the
// urchin daemon and CLI.
//
// Configuration is resolved from an explicit --config path, then
// ~/.config/urchin/config.toml, then ./urchin.toml. Missing files fall
// back to defaults so a bare daemon start works out of the box.
package config
