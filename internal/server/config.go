// internal/server/config.go
package server

import (
	"time"

	"retention-proxy/internal/common/config"
)

type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	MetricsEnabled  bool
	MetricsPath     string
}

// LoadConfig derives the HTTP settings from the application config.
func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Addr:            cfg.Server.Addr(),
		ReadTimeout:     config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout:    config.GetDuration(cfg.Server.WriteTimeout),
		ShutdownTimeout: config.GetDuration(cfg.Server.ShutdownTimeout),
		CORSOrigins:     cfg.Server.CORSOrigins,
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsPath:     cfg.Metrics.Path,
	}
}
