package monitor

import (
	"fmt"
	"io"
	"net/smtp"
	"strings"
	"time"
)

// Notifier delivers monitor alerts.
type Notifier interface {
	Notify(subject, body string) error
}

// LogNotifier writes notifications to a writer, one line per alert.
type LogNotifier struct {
	w io.Writer
}

// NewLogNotifier creates a notifier that logs to w.
func NewLogNotifier(w io.Writer) *LogNotifier {
	return &LogNotifier{w: w}
}

// Notify writes the alert with a timestamp.
func (n *LogNotifier) Notify(subject, body string) error {
	_, err := fmt.Fprintf(n.w, "%s [alert] %s: %s\n",
		time.Now().Format(time.RFC3339), subject, body)
	return err
}

// SMTPConfig describes the mail relay for SMTPNotifier.
type SMTPConfig struct {
	Addr     string // host:port
	From     string
	To       []string
	Username string // empty disables authentication
	Password string
}

// SMTPNotifier sends notifications as plain-text mail.
type SMTPNotifier struct {
	cfg SMTPConfig
	// send is swappable for tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPNotifier creates a mail notifier.
func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, send: smtp.SendMail}
}

// Notify sends the alert to every configured recipient.
func (n *SMTPNotifier) Notify(subject, body string) error {
	if len(n.cfg.To) == 0 {
		return fmt.Errorf("monitor: no mail recipients configured")
	}

	var auth smtp.Auth
	if n.cfg.Username != "" {
		host := n.cfg.Addr
		if i := strings.IndexByte(host, ':'); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, host)
	}

	msg := buildMessage(n.cfg.From, n.cfg.To, subject, body)
	if err := n.send(n.cfg.Addr, auth, n.cfg.From, n.cfg.To, msg); err != nil {
		return fmt.Errorf("monitor: send mail: %w", err)
	}
	return nil
}

func buildMessage(from string, to []string, subject, body string) []byte {
	var sb strings.Builder
	sb.WriteString("From: " + from + "\r\n")
	sb.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	sb.WriteString("Subject: pixelci: " + subject + "\r\n")
	sb.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	sb.WriteString("\r\n")
	return []byte(sb.String())
}
