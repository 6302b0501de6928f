// Package mailer sends transactional email directly over SMTP, through the
// mail queue, or to the log in development.
package mailer

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// DefaultSMTPTimeout bounds a send whose context carries no deadline.
const DefaultSMTPTimeout = 20 * time.Second

type SMTP struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

// Send delivers msg in one SMTP session. The connection deadline follows
// ctx, and cancelling ctx closes the connection.
func (m *SMTP) Send(ctx context.Context, msg Message) error {
	const op = "mailer.SMTP.Send"

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultSMTPTimeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(m.Host, m.Port))
	if err != nil {
		return fmt.Errorf("%s: dial: %w", op, err)
	}
	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		_ = conn.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c, err := smtp.NewClient(conn, m.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("%s: %w", op, contextErr(ctx, err))
	}
	defer c.Close()

	if err := m.deliver(c, msg); err != nil {
		return fmt.Errorf("%s: %w", op, contextErr(ctx, err))
	}
	return nil
}

func (m *SMTP) deliver(c *smtp.Client, msg Message) error {
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if m.User != "" {
		if err := c.Auth(smtp.PlainAuth("", m.User, m.Password, m.Host)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := c.Mail(m.From); err != nil {
		return err
	}
	if err := c.Rcpt(msg.To); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(m.render(msg)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (m *SMTP) render(msg Message) []byte {
	return []byte("Subject: " + msg.Subject + "\r\n" +
		"From: " + m.From + "\r\n" +
		"To: " + msg.To + "\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		msg.Body + "\r\n")
}

// contextErr reports ctx's error when ctx ended the session. A deadline
// timeout on the connection means ctx is expiring at the same instant.
func contextErr(ctx context.Context, err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		<-ctx.Done()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}

// Log writes messages to the logger instead of delivering them.
type Log struct {
	Logger *log.Logger
}

func (m *Log) Send(_ context.Context, msg Message) error {
	m.Logger.WithFields(log.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info(strings.TrimSpace(msg.Body))
	return nil
}

type publisher interface {
	Publish(ctx context.Context, message any) error
}

// Queued hands messages to the mail worker. When the queue rejects a
// message and Fallback is set, the message is sent through Fallback.
type Queued struct {
	Publisher publisher
	Fallback  Mailer
	Logger    *log.Logger
}

func (m *Queued) Send(ctx context.Context, msg Message) error {
	const op = "mailer.Queued.Send"

	err := m.Publisher.Publish(ctx, msg)
	if err == nil {
		return nil
	}
	if m.Fallback == nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if m.Logger != nil {
		m.Logger.WithError(err).WithField("to", msg.To).Warn("Mail queue unavailable, sending directly")
	}
	if ferr := m.Fallback.Send(ctx, msg); ferr != nil {
		return fmt.Errorf("%s: %w", op, errors.Join(err, ferr))
	}
	return nil
}

// Decode parses a queued message body.
func Decode(body []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, fmt.Errorf("mailer.Decode: %w", err)
	}
	if msg.To == "" {
		return Message{}, fmt.Errorf("mailer.Decode: message without recipient")
	}
	return msg, nil
}
