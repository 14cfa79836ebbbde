package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server ServerConfig `mapstructure:"server" validate:"required"`
	Worker WorkerConfig `mapstructure:"worker" validate:"required"`
	Queue  QueueConfig  `mapstructure:"queue" validate:"required"`
}

// ServerConfig contains the debug HTTP server settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// WorkerConfig describes how to reach the compiler process.
type WorkerConfig struct {
	// Addr is the host:port of the worker's socket.
	Addr string `mapstructure:"addr" validate:"required,hostname_port"`

	// ConnectTimeout bounds the initial dial.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"gt=0"`
}

// QueueConfig contains scheduler tunables.
type QueueConfig struct {
	// FlushWindow is how long the coalescer collects priority jobs before
	// flushing them as one batch.
	FlushWindow time.Duration `mapstructure:"flush_window" validate:"gt=0"`
}
