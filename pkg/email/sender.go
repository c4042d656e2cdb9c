package email

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/oficinaflow/oficinaflow-backend/pkg/config"
	"github.com/oficinaflow/oficinaflow-backend/pkg/logger"
)

var (
	ErrFailedToSendEmail = errors.New("email: failed to send")
	ErrInvalidConfig     = errors.New("email: invalid config")
	ErrInvalidParams     = errors.New("email: invalid params")
)

// Sender delivers a rendered transactional email.
type Sender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

// SendEmailParams represents the parameters for sending an email.
type SendEmailParams struct {
	SendTo   string `json:"send_to"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	Tag      string `json:"tag,omitempty"`
}

// Validate checks the recipient address and that there is something to send.
func (p SendEmailParams) Validate() error {
	if strings.TrimSpace(p.SendTo) == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidParams)
	}
	if !validAddress(p.SendTo) {
		return fmt.Errorf("%w: recipient %q is not a valid address", ErrInvalidParams, p.SendTo)
	}
	if strings.TrimSpace(p.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidParams)
	}
	if strings.TrimSpace(p.BodyHTML) == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidParams)
	}
	return nil
}

// NewSender picks Postmark when both tokens are configured and the disk-backed
// dev sender otherwise.
func NewSender(ctx context.Context, cfg config.EmailConfig, logg *logger.Logger) (Sender, error) {
	if cfg.PostmarkEnabled() {
		sender, err := NewPostmarkSender(cfg)
		if err != nil {
			return nil, err
		}
		if logg != nil {
			logg.Info(ctx, "email delivery via postmark")
		}
		return sender, nil
	}
	if logg != nil {
		logg.Warn(logg.WithField(ctx, "dir", cfg.DevOutboxDir), "postmark not configured; emails written to disk")
	}
	return NewDevSender(cfg.DevOutboxDir), nil
}

func validAddress(addr string) bool {
	parsed, err := mail.ParseAddress(strings.TrimSpace(addr))
	if err != nil {
		return false
	}
	return parsed.Address == strings.TrimSpace(addr)
}
