// Package notify delivers transactional e-mail.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"github.com/safar/license-store/internal/config"
	"github.com/sirupsen/logrus"
)

type Message struct {
	To      string
	Subject string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender sends HTML mail through an SMTP relay. Port 465 uses implicit
// TLS; any other port relies on STARTTLS.
type SMTPSender struct {
	cfg config.SMTPConfig
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("send email: empty recipient")
	}

	body := buildMessage(s.cfg.FromName, s.cfg.FromAddr, msg)
	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)

	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}

	if s.cfg.Port != "465" {
		if err := smtp.SendMail(addr, auth, s.cfg.FromAddr, []string{msg.To}, body); err != nil {
			return fmt.Errorf("send email: %w", err)
		}
		return nil
	}

	dialer := &tls.Dialer{Config: &tls.Config{ServerName: s.cfg.Host}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(s.cfg.FromAddr); err != nil {
		return fmt.Errorf("smtp mail: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}

	return client.Quit()
}

func buildMessage(fromName, fromAddr string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", fromName, fromAddr)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.HTML)
	return []byte(b.String())
}

// LogSender only logs messages. It stands in when SMTP is not configured.
type LogSender struct {
	Logger *logrus.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	s.Logger.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("email delivery disabled, message dropped")
	return nil
}

// AsyncSender hands messages to the wrapped sender on a background goroutine
// so request handlers never wait on mail delivery. Failures are logged at
// warn.
type AsyncSender struct {
	next    Sender
	logger  *logrus.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsyncSender(next Sender, logger *logrus.Logger, timeout time.Duration) *AsyncSender {
	return &AsyncSender{next: next, logger: logger, timeout: timeout}
}

func (a *AsyncSender) Send(_ context.Context, msg Message) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		if err := a.next.Send(ctx, msg); err != nil {
			a.logger.WithError(err).WithFields(logrus.Fields{
				"to":      msg.To,
				"subject": msg.Subject,
			}).Warn("failed to send notification")
		}
	}()
	return nil
}

// Wait blocks until every queued message has been attempted.
func (a *AsyncSender) Wait() {
	a.wg.Wait()
}
