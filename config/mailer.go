package config

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail/v2"
)

// MailSettings is the SMTP configuration. Load it after .env has been read.
type MailSettings struct {
	Host          string
	Port          int
	User          string
	Pass          string
	From          string // e.g. "IP Office <no-reply@your.org>"
	SkipTLSVerify bool
}

func LoadMailSettings() MailSettings {
	return MailSettings{
		Host:          stringEnv("SMTP_HOST", ""),
		Port:          intEnv("SMTP_PORT", 587),
		User:          stringEnv("SMTP_USER", ""),
		Pass:          stringEnv("SMTP_PASS", ""),
		From:          stringEnv("SMTP_FROM", ""),
		SkipTLSVerify: boolEnv("SMTP_SKIP_TLS_VERIFY", false),
	}
}

// Configured reports whether mail can be sent at all.
func (s MailSettings) Configured() bool {
	return s.Host != "" && s.From != ""
}

// Mailer sends HTML mail over SMTP.
type Mailer struct {
	settings MailSettings
	dial     func(d *mail.Dialer, m *mail.Message) error
}

func NewMailer(settings MailSettings) *Mailer {
	return &Mailer{
		settings: settings,
		dial: func(d *mail.Dialer, m *mail.Message) error {
			return d.DialAndSend(m)
		},
	}
}

func (m *Mailer) Send(to []string, subject, html string) error {
	if len(to) == 0 {
		return nil
	}
	if !m.settings.Configured() {
		return fmt.Errorf("smtp not configured (SMTP_HOST/SMTP_FROM)")
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.settings.From)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	d := mail.NewDialer(m.settings.Host, m.settings.Port, m.settings.User, m.settings.Pass)
	// STARTTLS is mandatory; ServerName must match the SMTP host.
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         m.settings.Host,
		InsecureSkipVerify: m.settings.SkipTLSVerify, // dev only
	}

	return m.dial(d, msg)
}
