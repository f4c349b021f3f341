// Package mailer sends the portal's transactional email (currently just
// password resets) over SMTP.
package mailer

import (
	"fmt"

	gomail "gopkg.in/gomail.v2"
)

// Config holds SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Mailer sends email via SMTP.
type Mailer struct {
	cfg Config
}

// New creates a Mailer with the given SMTP configuration.
func New(cfg Config) *Mailer {
	return &Mailer{cfg: cfg}
}

// SendPasswordReset emails a reset link to the given address.
// resetURL must already carry the one-time token.
func (m *Mailer) SendPasswordReset(toEmail, toName, resetURL string, expiryMinutes int) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.From, m.cfg.FromName)
	msg.SetAddressHeader("To", toEmail, toName)
	msg.SetHeader("Subject", "Reset your HackHub password")

	body := fmt.Sprintf(
		"Hi %s,\n\n"+
			"We received a request to reset your HackHub password.\n\n"+
			"Reset it here (valid for %d minutes):\n%s\n\n"+
			"If you didn't request this, you can ignore this email.\n",
		toName, expiryMinutes, resetURL)
	msg.SetBody("text/plain", body)

	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	return d.DialAndSend(msg)
}
