package notification

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

type SMTPConfig struct {
	Host      string
	Port      string
	Username  string
	Password  string
	FromName  string
	FromEmail string
}

var errHeaderInjection = errors.New("header value contains a line break")

var headerSafe = strings.NewReplacer("\r", " ", "\n", " ")

// SMTPDispatcher sends plain-text mail through an authenticated relay. Every
// connection is bound to the context passed to Send.
type SMTPDispatcher struct {
	cfg    SMTPConfig
	auth   smtp.Auth
	dialer net.Dialer
}

func NewSMTPDispatcher(cfg SMTPConfig) *SMTPDispatcher {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPDispatcher{cfg: cfg, auth: auth}
}

func (d *SMTPDispatcher) from() string {
	addr := d.cfg.FromEmail
	if addr == "" {
		addr = d.cfg.Username
	}
	if d.cfg.FromName == "" {
		return addr
	}
	return fmt.Sprintf("%q <%s>", d.cfg.FromName, addr)
}

func (d *SMTPDispatcher) envelopeFrom() string {
	if d.cfg.FromEmail != "" {
		return d.cfg.FromEmail
	}
	return d.cfg.Username
}

func (d *SMTPDispatcher) compose(msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + d.from() + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + headerSafe.Replace(msg.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// Send delivers msg in one SMTP session. The connection is closed as soon as
// ctx is done, so a silent relay never outlives the caller's deadline.
func (d *SMTPDispatcher) Send(ctx context.Context, msg Message) error {
	if strings.ContainsAny(msg.To, "\r\n") {
		return fmt.Errorf("smtp send to %q: %w", msg.To, errHeaderInjection)
	}

	conn, err := d.dialer.DialContext(ctx, "tcp", net.JoinHostPort(d.cfg.Host, d.cfg.Port))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("smtp dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := d.deliver(conn, msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func (d *SMTPDispatcher) deliver(conn net.Conn, msg Message) error {
	c, err := smtp.NewClient(conn, d.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: d.cfg.Host}); err != nil {
			return err
		}
	}
	if d.auth != nil {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("relay does not support AUTH")
		}
		if err := c.Auth(d.auth); err != nil {
			return err
		}
	}

	if err := c.Mail(d.envelopeFrom()); err != nil {
		return err
	}
	if err := c.Rcpt(msg.To); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(d.compose(msg)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
