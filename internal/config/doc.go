// Package config loads and validates application configuration from
// environment variables (SAGE_ prefix) and an optional config file.
package config
