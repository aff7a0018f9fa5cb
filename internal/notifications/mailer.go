package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/angelmondragon/returns-engine/pkg/config"
	"github.com/angelmondragon/returns-engine/pkg/logger"
)

// Channel delivers a rendered message to one recipient.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, to Recipient, msg Message) error
}

// SMTPChannel sends notifications as plain text email.
type SMTPChannel struct {
	from   string
	client *mail.Client
}

// NewSMTPChannel builds an SMTP channel. It returns a nil Channel when no
// host is configured.
func NewSMTPChannel(cfg config.SMTPConfig) (Channel, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, nil
	}
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPChannel{from: cfg.From, client: client}, nil
}

func (c *SMTPChannel) Name() string { return "smtp" }

func (c *SMTPChannel) Deliver(ctx context.Context, to Recipient, msg Message) error {
	if strings.TrimSpace(to.Email) == "" {
		return fmt.Errorf("recipient email missing")
	}
	m := mail.NewMsg()
	if err := m.From(c.from); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := m.AddToFormat(to.Name, to.Email); err != nil {
		return fmt.Errorf("to address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, greeting(to)+msg.Body)
	return c.client.DialAndSendWithContext(ctx, m)
}

// LogChannel writes each notification to the structured log instead of
// sending it. The dispatcher falls back to it when no other channel is
// configured.
type LogChannel struct {
	logg *logger.Logger
}

// NewLogChannel builds a log-only channel.
func NewLogChannel(logg *logger.Logger) *LogChannel {
	return &LogChannel{logg: logg}
}

func (c *LogChannel) Name() string { return "log" }

func (c *LogChannel) Deliver(ctx context.Context, to Recipient, msg Message) error {
	c.logg.Info(c.logg.WithFields(ctx, map[string]any{
		"recipient": to.Email,
		"subject":   msg.Subject,
		"type":      string(msg.Type),
	}), "notification dispatched")
	return nil
}

func greeting(to Recipient) string {
	if to.Name == "" {
		return "Hello,\n\n"
	}
	return fmt.Sprintf("Hello %s,\n\n", to.Name)
}
