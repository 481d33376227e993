package notification

import (
	"context"

	"gopkg.in/gomail.v2"

	"github.com/tourdesk/service-booking/internal/common/domain"
)

// MailDialer is the subset of gomail.Dialer used here.
type MailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier mails customers who left an address.
type EmailNotifier struct {
	dialer MailDialer
	from   string
}

// NewEmailNotifier creates an EmailNotifier sending as from.
func NewEmailNotifier(dialer MailDialer, from string) *EmailNotifier {
	return &EmailNotifier{dialer: dialer, from: from}
}

// NewSMTPDialer returns a gomail dialer for the given server.
func NewSMTPDialer(host string, port int, username, password string) *gomail.Dialer {
	return gomail.NewDialer(host, port, username, password)
}

// Notify implements Notifier. Events for customers without e-mail are skipped.
func (n *EmailNotifier) Notify(_ context.Context, event Event) error {
	if event.Customer.Email == "" {
		return nil
	}

	subject, body := Render(event)
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", event.Customer.Email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := n.dialer.DialAndSend(m); err != nil {
		return domain.NewExternalServiceError("smtp", err)
	}
	return nil
}
