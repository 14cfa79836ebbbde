// Package config handles configuration loading, parsing, and validation
// from environment variables and optional config files. It gives the rest
// of the application type-safe access to its settings (debug server port,
// worker socket address, scheduler tunables) while keeping configuration
// details separate from the scheduling logic.
package config
