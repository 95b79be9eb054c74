package email

import (
	"crypto/tls"
	"fmt"

	"gopkg.in/gomail.v2"

	"sparkreview_backend/internal/config"
)

// SMTPProvider sends mail through a plain SMTP relay using gomail.
type SMTPProvider struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPProvider(cfg *config.Config) (*SMTPProvider, error) {
	if cfg.Email.SMTPHost == "" {
		return nil, fmt.Errorf("smtp host is not configured")
	}

	dialer := gomail.NewDialer(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUsername,
		cfg.Email.SMTPPassword,
	)
	if cfg.Email.UseTLS {
		dialer.TLSConfig = &tls.Config{ServerName: cfg.Email.SMTPHost}
	}

	from := cfg.Email.FromEmail
	if cfg.Email.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.Email.FromName, cfg.Email.FromEmail)
	}

	return &SMTPProvider{dialer: dialer, from: from}, nil
}

func (p *SMTPProvider) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", p.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := p.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}

func (p *SMTPProvider) Close() error {
	return nil
}
