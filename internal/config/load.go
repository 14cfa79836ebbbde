package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults keep the binary runnable with no config file at all.
	v.SetDefault("server.port", 8686)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("worker.addr", "localhost:8888")
	v.SetDefault("worker.connect_timeout", "10s")
	v.SetDefault("queue.flush_window", "5ms")

	// Optional config file: flix.yaml in the working directory.
	v.SetConfigName("flix")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables with the FLIX_ prefix override everything,
	// e.g. FLIX_WORKER_ADDR=localhost:9999.
	v.SetEnvPrefix("FLIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace())
			}
			return nil, fmt.Errorf("invalid configuration (%s): %w", strings.Join(fields, ", "), err)
		}
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	return &cfg, nil
}
