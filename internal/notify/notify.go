// Package notify renders and delivers the shop's transactional emails.
package notify

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/auth"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/order"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/reminder"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/returns"
)

//go:embed templates/*.html
var templateFS embed.FS

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Transport delivers rendered messages.
type Transport interface {
	Send(ctx context.Context, m Message) error
}

var (
	_ auth.Mailer       = (*Mailer)(nil)
	_ order.Notifier    = (*Mailer)(nil)
	_ returns.Notifier  = (*Mailer)(nil)
	_ reminder.Notifier = (*Mailer)(nil)
)

// Mailer builds every notification from embedded templates.
type Mailer struct {
	transport Transport
	appURL    string
	tmpl      *template.Template
}

// NewMailer creates a Mailer. Links in emails point at appURL.
func NewMailer(t Transport, appURL string) (*Mailer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "parse templates")
	}
	return &Mailer{transport: t, appURL: strings.TrimRight(appURL, "/"), tmpl: tmpl}, nil
}

// SendVerification mails the email verification link.
func (m *Mailer) SendVerification(ctx context.Context, email, name, token string) error {
	return m.send(ctx, email, "Verify your Bamboo Shop account", "verify-email.html", map[string]any{
		"Name": name,
		"URL":  m.appURL + "/auth/verify?token=" + url.QueryEscape(token),
	})
}

// SendPasswordReset mails the password reset link.
func (m *Mailer) SendPasswordReset(ctx context.Context, email, name, token string) error {
	return m.send(ctx, email, "Reset your Bamboo Shop password", "reset-password.html", map[string]any{
		"Name": name,
		"URL":  m.appURL + "/auth/reset-password?token=" + url.QueryEscape(token),
	})
}

// SendOrderConfirmation mails the order summary.
func (m *Mailer) SendOrderConfirmation(ctx context.Context, email, name string, o *order.Order) error {
	subject := "Your Bamboo Shop Order #" + itoa(o.ID) + " Confirmation"
	return m.send(ctx, email, subject, "order-confirmation.html", map[string]any{
		"Name":   name,
		"Order":  o,
		"AppURL": m.appURL,
	})
}

// SendReturnReceived acknowledges a return request.
func (m *Mailer) SendReturnReceived(ctx context.Context, email, name string, r *returns.Request) error {
	return m.send(ctx, email, "Return Request Received", "return-request-received.html", map[string]any{
		"Name":   name,
		"Return": r,
		"AppURL": m.appURL,
	})
}

// SendCartReminder lists the carts a user left behind.
func (m *Mailer) SendCartReminder(ctx context.Context, email, name string, items []reminder.Cart) error {
	return m.send(ctx, email, "Your cart is waiting for you!", "cart-reminder.html", map[string]any{
		"Name":   name,
		"Items":  items,
		"AppURL": m.appURL,
	})
}

func (m *Mailer) send(ctx context.Context, to, subject, name string, data any) error {
	var buf bytes.Buffer
	if err := m.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return errors.Wrapf(err, "render %s", name)
	}
	if err := m.transport.Send(ctx, Message{To: to, Subject: subject, HTML: buf.String()}); err != nil {
		return errors.Wrapf(err, "send %s", name)
	}
	return nil
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
