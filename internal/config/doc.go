// Package config provides configuration structures and utilities for citestrade.
// It defines the remote endpoint, the local cache and data directory layout,
// download tuning, checksum settings, and the optional YAML configuration file.
package config
