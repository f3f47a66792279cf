package email

import (
	"context"
	"time"

	"planquarter/internal/i18n"
)

// Notices delivers lifecycle messages through a Sender, localized per the
// request locale carried in the context. It satisfies the auth.Notifier
// contract.
type Notices struct {
	Sender   *Sender
	TokenTTL time.Duration
}

func NewNotices(sender *Sender, tokenTTL time.Duration) *Notices {
	return &Notices{Sender: sender, TokenTTL: tokenTTL}
}

func (n *Notices) SendVerificationNotice(ctx context.Context, to, fullName, verifyLink string) error {
	content := i18n.VerificationEmail(i18n.FromContext(ctx), fullName, verifyLink, n.ttlDays())
	return n.Sender.Send(ctx, to, content.Subject, content.Text, content.HTML)
}

func (n *Notices) SendPasswordResetNotice(ctx context.Context, to, fullName, resetLink string) error {
	content := i18n.PasswordResetEmail(i18n.FromContext(ctx), fullName, resetLink, n.ttlDays())
	return n.Sender.Send(ctx, to, content.Subject, content.Text, content.HTML)
}

func (n *Notices) ttlDays() int {
	days := int(n.TokenTTL / (24 * time.Hour))
	if days < 1 {
		days = 1
	}
	return days
}
