/*
Package config loads Chronicle's runtime configuration.

Defaults are computed per-platform (data directory, browser history
locations, shell history files), then overridden by an optional
config.yaml in the data directory, then by CHRONICLE_-prefixed environment
variables. Load returns an explicit *Config value; there is no package
global, so tests can construct independent configurations freely.
*/
package config
