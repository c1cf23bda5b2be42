// Package config loads training parameters from YAML or TOML files.
package config
