// internal/workers/cards/build-card/config.go
package buildcard

import "time"

type Config struct {
	Timeout time.Duration
	// Strict rejects cards whose builders reported warnings, on top of the
	// contract schema check.
	Strict bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
