// Package email provides the outbound transactional email providers.
package email

import (
	"context"
	"fmt"
)

type Provider interface {
	SendEmail(ctx context.Context, email *Email) error
}

type Email struct {
	To          string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// Attachment is an inline file attached to an email, used by the retention
// job to ship the archive export.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

type Config struct {
	Provider string
	APIKey   string
	From     string
	Domain   string // for Mailgun
}

var ErrNotConfigured = fmt.Errorf("email provider is not configured: set EMAIL_PROVIDER and its credentials")

func NewProvider(config Config) (Provider, error) {
	switch config.Provider {
	case "resend":
		return NewResendProvider(config.APIKey, config.From), nil
	case "mailgun":
		return NewMailgunProvider(config.APIKey, config.Domain, config.From), nil
	case "disabled", "":
		return disabledProvider{}, nil
	default:
		return nil, fmt.Errorf("EMAIL_PROVIDER must be either 'resend', 'mailgun', or 'disabled'")
	}
}

// disabledProvider stands in when no email credentials are configured. Every
// send fails loudly so callers log the gap instead of silently dropping mail.
type disabledProvider struct{}

func (disabledProvider) SendEmail(ctx context.Context, email *Email) error {
	_ = ctx
	_ = email
	return ErrNotConfigured
}
