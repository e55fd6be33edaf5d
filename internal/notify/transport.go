package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// SMTPConfig configures outgoing mail.
type SMTPConfig struct {
	Host     string `usage:"SMTP host; empty logs emails instead of sending"`
	Port     int    `default:"587" usage:"SMTP port"`
	Username string `usage:"SMTP username"`
	Password string `usage:"SMTP password"`
	From     string `default:"no-reply@bambooshop.com.bd" usage:"sender address"`
}

// SMTPTransport sends mail through an SMTP relay.
type SMTPTransport struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPTransport creates an SMTPTransport.
func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	return &SMTPTransport{cfg: cfg, send: smtp.SendMail}
}

// Send delivers m as an HTML email.
func (t *SMTPTransport) Send(_ context.Context, m Message) error {
	var auth smtp.Auth
	if t.cfg.Username != "" {
		auth = smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)
	}
	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
	return t.send(addr, auth, t.cfg.From, []string{m.To}, t.render(m))
}

func (t *SMTPTransport) render(m Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: \"Bamboo Shop\" <%s>\r\n", t.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", m.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", m.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(m.HTML)
	return []byte(b.String())
}

// LogTransport writes messages to the request logger instead of sending them.
type LogTransport struct{}

// Send logs m.
func (LogTransport) Send(ctx context.Context, m Message) error {
	zctx.From(ctx).Info("Email",
		zap.String("to", m.To),
		zap.String("subject", m.Subject),
		zap.Int("bytes", len(m.HTML)),
	)
	return nil
}

// NewTransport picks SMTP when a host is configured and logging otherwise.
func NewTransport(cfg SMTPConfig) Transport {
	if cfg.Host == "" {
		return LogTransport{}
	}
	return NewSMTPTransport(cfg)
}
