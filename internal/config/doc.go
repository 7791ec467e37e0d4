// Package config loads the tool settings from multiple sources (YAML settings
// file, HUBBLE_* environment variables, CLI flags) with precedence: CLI flags >
// Environment variables > YAML settings > Defaults. Settings decide where rc
// files are read from, how the vault is opened and how launches are paced.
package config
