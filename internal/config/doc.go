// Package config loads, validates, and normalizes clipstream's TOML
// configuration. Paths are expanded to absolute form during Load so the
// rest of the codebase never deals with "~" or relative directories.
package config
