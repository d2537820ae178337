package notify

import (
	"context"
	"fmt"

	"github.com/cowritehq/cowrite/pkg/slogx"
)

// Mailer delivers account emails. The service layer never builds URLs or
// message bodies itself; it hands the raw token to the mailer and moves on.
type Mailer interface {
	// PasswordReset sends a reset link carrying the raw reset token.
	PasswordReset(ctx context.Context, email, token string) error

	// Invitation sends a circle invitation link carrying the raw invite token.
	Invitation(ctx context.Context, email, token, circleName string) error
}

// LogMailer writes the mail that would be sent to the structured log.
// It stands in for a real delivery backend in dev and test environments.
type LogMailer struct {
	// BaseURL is the public URL of the web frontend, used to build links.
	BaseURL string
}

func NewLogMailer(baseURL string) *LogMailer {
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}
	return &LogMailer{BaseURL: baseURL}
}

func (m *LogMailer) PasswordReset(ctx context.Context, email, token string) error {
	log := slogx.FromContext(ctx)
	log.Info("mail: password reset",
		"to", email,
		"reset_url", fmt.Sprintf("%s/reset-password/%s", m.BaseURL, token),
	)
	return nil
}

func (m *LogMailer) Invitation(ctx context.Context, email, token, circleName string) error {
	log := slogx.FromContext(ctx)
	log.Info("mail: invitation",
		"to", email,
		"circle", circleName,
		"invite_url", fmt.Sprintf("%s/invitations/%s", m.BaseURL, token),
	)
	return nil
}
