package sendmatchalert

import (
	"fmt"
	"time"

	"propguard-workers/internal/common/config"
)

type Config struct {
	Timeout      time.Duration
	EmailEnabled bool
	FromEmail    string
	SMSEnabled   bool
	SenderID     string
	// SMSMinScore is the top match score needed before a text is sent.
	SMSMinScore int
	// MaxListed caps the matches included in the email body.
	MaxListed int
}

func NewConfig(wc config.WorkerConfig, nc config.NotificationConfig) *Config {
	cfg := &Config{
		Timeout:      config.GetDuration(wc.Timeout),
		EmailEnabled: nc.Email.Enabled,
		FromEmail:    nc.Email.FromEmail,
		SMSEnabled:   nc.SMS.Enabled,
		SenderID:     nc.SMS.SenderID,
		SMSMinScore:  nc.SMS.MinScore,
		MaxListed:    5,
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return cfg
}

func (c *Config) Validate() error {
	if c.EmailEnabled && c.FromEmail == "" {
		return fmt.Errorf("notifications.email.from_email is required when email is enabled")
	}
	if c.SMSMinScore < 0 || c.SMSMinScore > 100 {
		return fmt.Errorf("notifications.sms.min_score must be within [0,100]")
	}
	return nil
}
