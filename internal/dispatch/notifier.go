package dispatch

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/smtp"
	"strings"
)

// Message is one outbound notification with an optional PDF attachment.
type Message struct {
	To         []string
	Subject    string
	HTML       string
	Attachment []byte
	Filename   string
}

// Notifier delivers rendered documents to recipients.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig carries mail relay settings.
type SMTPConfig struct {
	Addr     string
	From     string
	Username string
	Password string
	Host     string
}

// SMTPNotifier sends MIME mail through a plain SMTP relay.
type SMTPNotifier struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPNotifier constructs an SMTPNotifier.
func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, send: smtp.SendMail}
}

// Send delivers the message. The context deadline is not enforced below the
// SMTP dial; Asynq's task timeout bounds the whole delivery instead.
func (n *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("smtp: message has no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	return n.send(n.cfg.Addr, auth, n.cfg.From, msg.To, encodeMIME(n.cfg.From, msg))
}

const mimeBoundary = "quarry-document-boundary"

func encodeMIME(from string, msg Message) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", mimeBoundary)

	fmt.Fprintf(&buf, "--%s\r\n", mimeBoundary)
	buf.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	buf.WriteString(msg.HTML)
	buf.WriteString("\r\n")

	if len(msg.Attachment) > 0 {
		fmt.Fprintf(&buf, "--%s\r\n", mimeBoundary)
		buf.WriteString("Content-Type: application/pdf\r\n")
		buf.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&buf, "Content-Disposition: attachment; filename=%q\r\n\r\n", msg.Filename)
		encoded := base64.StdEncoding.EncodeToString(msg.Attachment)
		for len(encoded) > 76 {
			buf.WriteString(encoded[:76])
			buf.WriteString("\r\n")
			encoded = encoded[76:]
		}
		buf.WriteString(encoded)
		buf.WriteString("\r\n")
	}
	fmt.Fprintf(&buf, "--%s--\r\n", mimeBoundary)
	return buf.Bytes()
}
