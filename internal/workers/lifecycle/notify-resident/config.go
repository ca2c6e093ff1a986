// internal/workers/lifecycle/notify-resident/config.go
package notifyresident

import (
	"time"

	"barangay-portal/internal/common/config"
)

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	InboxEmail   string
	Timeout      time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		EmailEnabled: cfg.Notifications.Email.Enabled,
		SMSEnabled:   cfg.Notifications.SMS.Enabled,
		InboxEmail:   cfg.Notifications.InboxEmail,
		Timeout:      30 * time.Second,
	}
	if w := config.GetWorkerConfig(cfg, TaskType); w.Timeout > 0 {
		c.Timeout = config.GetDuration(w.Timeout)
	}
	return c
}
