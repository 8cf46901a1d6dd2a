// Package config loads, validates, and defaults the TOML configuration for
// jigpipe. Resolution order is defaults, then the config file, then
// environment overrides (AUTH_OVERRIDE, JIGPIPE_*), then command-line flags
// applied by the CLI layer.
package config
