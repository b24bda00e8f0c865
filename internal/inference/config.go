package inference

import "time"

// DefaultTimeout bounds a single inference call when none is configured.
const DefaultTimeout = 5 * time.Second

type Config struct {
	BaseURL string
	Timeout time.Duration
}
