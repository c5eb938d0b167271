package auth

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/guileen/finledger/config"
	"github.com/guileen/finledger/logger"
	"github.com/wneessen/go-mail"
)

const smtpTimeout = 30 * time.Second

// Mailer delivers verification and reset codes.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends plain text mail through an SMTP relay.
type SMTPMailer struct {
	host string
	from string
	opts []mail.Option
}

// NewSMTPMailer checks the relay settings. A connection is opened per
// message; nothing is dialed here.
func NewSMTPMailer(cfg config.SMTPConfig) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithTLSPolicy(tlsPolicy(cfg.TLSPolicy)),
		mail.WithTLSConfig(&tls.Config{
			ServerName:         cfg.Host,
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		}),
		mail.WithTimeout(smtpTimeout),
	}
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	if _, err := mail.NewClient(cfg.Host, opts...); err != nil {
		return nil, fmt.Errorf("smtp relay %s: %w", cfg.Host, err)
	}

	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTPMailer{host: cfg.Host, from: from, opts: opts}, nil
}

func tlsPolicy(name string) mail.TLSPolicy {
	switch name {
	case config.SMTPTLSMandatory:
		return mail.TLSMandatory
	case config.SMTPTLSNone:
		return mail.NoTLS
	default:
		return mail.TLSOpportunistic
	}
}

// newMessage builds a UTF-8 plain text message; header values are encoded
// by go-mail, so a subject or address cannot inject headers.
func newMessage(from, to, subject, body string) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("mail sender %q: %w", from, err)
	}
	if err := m.To(to); err != nil {
		return nil, fmt.Errorf("mail recipient %q: %w", to, err)
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, body)
	return m, nil
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg, err := newMessage(m.from, to, subject, body)
	if err != nil {
		return err
	}
	client, err := mail.NewClient(m.host, m.opts...)
	if err != nil {
		return fmt.Errorf("smtp relay %s: %w", m.host, err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail via %s: %w", m.host, err)
	}
	logger.InfoContext(ctx, "mail sent", logger.Component("auth"), logger.String("to", to))
	return nil
}

// LogMailer writes messages to the log instead of sending them. It is used
// when no SMTP host is configured.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, to, subject, body string) error {
	logger.InfoContext(ctx, "mail not sent, no smtp host configured",
		logger.Component("auth"),
		logger.String("to", to),
		logger.String("subject", subject),
		logger.String("body", body),
	)
	return nil
}

// NewMailer picks SMTP when a host is configured and logging otherwise.
func NewMailer(cfg config.SMTPConfig) (Mailer, error) {
	if cfg.Host == "" {
		return LogMailer{}, nil
	}
	return NewSMTPMailer(cfg)
}
