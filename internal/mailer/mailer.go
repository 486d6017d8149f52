package mailer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"accounthub/api/internal/config"
)

const verificationSubject = "Verify email"

// Mailer delivers account verification messages over SMTP.
type Mailer struct {
	client  *mail.Client
	from    string
	baseURL string
	log     zerolog.Logger
}

func New(cfg config.MailConfig, log zerolog.Logger) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	return &Mailer{
		client:  client,
		from:    cfg.From,
		baseURL: cfg.BaseURL,
		log:     log,
	}, nil
}

// SendVerification mails the stored verification token to the address.
// The operation only counts as successful once the transport accepts
// the message.
func (m *Mailer) SendVerification(ctx context.Context, to string, verificationToken string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(verificationSubject)
	msg.SetBodyString(mail.TypeTextHTML, VerificationBody(m.baseURL, verificationToken))

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}

	m.log.Debug().Str("to", to).Msg("verification email sent")
	return nil
}

// VerificationBody renders the HTML body with the verification link.
func VerificationBody(baseURL string, verificationToken string) string {
	return fmt.Sprintf(
		`<a target="_blank" href="%s/users/verify/%s">Click to verify</a>`,
		baseURL, verificationToken,
	)
}
