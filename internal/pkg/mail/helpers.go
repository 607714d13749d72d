package mail

import (
	"github.com/hellorun/server/internal/config"
)

// BuildMailConfig constructs a mail.Config from the runtime mail section.
func BuildMailConfig(cfg config.MailConfig) Config {
	mc := Config{
		Enable: cfg.Provider != "",
		From:   cfg.From,
		Host:   cfg.SMTP.Host,
		Port:   cfg.SMTP.Port,
		User:   cfg.SMTP.User,
		Pass:   cfg.SMTP.Password,
	}
	if cfg.Provider == "resend" && cfg.Resend.APIKey != "" {
		mc.UseResend = true
		mc.ResendKey = cfg.Resend.APIKey
	}
	return mc
}
