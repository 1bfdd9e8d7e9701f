package mailer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// ErrUnknownTemplate is returned for an email type with no template.
var ErrUnknownTemplate = errors.New("unknown email template")

// ErrNotConfigured is returned by Send when no SMTP host is set.
var ErrNotConfigured = errors.New("smtp not configured")

// Config holds SMTP settings.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

// Sender delivers a built message. *gomail.Dialer implements it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer renders transactional templates and sends them over SMTP.
type Mailer struct {
	cfg    Config
	sender Sender
	logger *zap.Logger
}

// New creates a mailer that dials cfg.Host per message.
func New(cfg Config, logger *zap.Logger) *Mailer {
	var sender Sender
	if cfg.Host != "" {
		sender = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}
	return NewWithSender(cfg, sender, logger)
}

// NewWithSender creates a mailer with a custom sender.
func NewWithSender(cfg Config, sender Sender, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{cfg: cfg, sender: sender, logger: logger}
}

// Send renders the template for emailType with data and delivers it to recipient.
// The rendered subject is returned even when delivery fails.
func (m *Mailer) Send(ctx context.Context, emailType, recipient string, data map[string]string) (string, error) {
	subject, body, err := Render(emailType, data)
	if err != nil {
		return "", err
	}
	if m.sender == nil {
		return subject, ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return subject, err
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.FromAddress, m.cfg.FromName)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.sender.DialAndSend(msg); err != nil {
		return subject, fmt.Errorf("smtp send: %w", err)
	}
	m.logger.Debug("email sent", zap.String("email_type", emailType), zap.String("recipient", recipient))
	return subject, nil
}
