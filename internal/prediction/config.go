// internal/prediction/config.go
package prediction

import "time"

type Config struct {
	// InferenceTimeout bounds the single inference call made per request.
	InferenceTimeout time.Duration
}

func LoadConfig(timeoutMs int) *Config {
	cfg := &Config{InferenceTimeout: time.Duration(timeoutMs) * time.Millisecond}
	if cfg.InferenceTimeout <= 0 {
		cfg.InferenceTimeout = 5 * time.Second
	}
	return cfg
}
