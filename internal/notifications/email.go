package notifications

import (
	"fmt"

	"github.com/wneessen/go-mail"
)

// Gmail SMTP defaults, matching the original setup.
const (
	defaultSMTPHost = "smtp.gmail.com"
	defaultSMTPPort = 587
)

func (e *Email) Name() string {
	return "email"
}

// Send mails the message to the configured address (self-addressed).
func (e *Email) Send(subject, body string) error {
	host := e.Host
	if host == "" {
		host = defaultSMTPHost
	}
	port := e.Port
	if port == 0 {
		port = defaultSMTPPort
	}

	msg := mail.NewMsg()
	if err := msg.From(e.Address); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(e.Address); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(host,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(e.Address),
		mail.WithPassword(e.Password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("failed to build SMTP client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send notification via email: %w", err)
	}
	return nil
}
