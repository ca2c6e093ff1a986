// internal/workers/lifecycle/index-service-request/config.go
package indexservicerequest

import (
	"time"

	"barangay-portal/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{Timeout: 30 * time.Second}
	if w := config.GetWorkerConfig(cfg, TaskType); w.Timeout > 0 {
		c.Timeout = config.GetDuration(w.Timeout)
	}
	return c
}
