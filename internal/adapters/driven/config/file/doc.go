// Package file provides the TOML configuration loader.
//
// Configuration is read once at process start into an immutable Config
// value and validated eagerly: invalid paths, non-positive limits and
// unknown source or provider types fail at construction, never mid-cycle.
// Collaborators receive the Config by reference; there is no ambient
// global configuration.
package file
