package report

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"hn_cleanser/internal/config"
)

// SMTPMailer delivers digests over authenticated SMTP.
type SMTPMailer struct {
	host     string
	port     int
	sender   string
	password string
}

// NewSMTPMailer creates a mailer from the report settings.
func NewSMTPMailer(cfg config.Report) *SMTPMailer {
	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		sender:   cfg.Sender,
		password: cfg.SenderPassword,
	}
}

// Send delivers one HTML email to the given recipients.
func (m *SMTPMailer) Send(to []string, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.sender, "Hacker News Cleanser")
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	dialer := gomail.NewDialer(m.host, m.port, m.sender, m.password)
	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
