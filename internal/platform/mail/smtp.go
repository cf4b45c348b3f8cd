package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	netmail "net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/baovptse192440/NongSanProject-sub002/internal/services"
)

// SMTPConfig configures the SMTP relay used for outgoing mail.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPSender delivers composed messages through an SMTP relay with STARTTLS and PLAIN auth.
type SMTPSender struct {
	addr     string
	auth     smtp.Auth
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	clock    func() time.Time
}

var _ services.MailSender = (*SMTPSender)(nil)

// SMTPOption customises the SMTP sender.
type SMTPOption func(*SMTPSender)

// WithSMTPSendFunc replaces smtp.SendMail.
func WithSMTPSendFunc(fn func(addr string, a smtp.Auth, from string, to []string, msg []byte) error) SMTPOption {
	return func(s *SMTPSender) {
		if fn != nil {
			s.sendMail = fn
		}
	}
}

// WithSMTPClock overrides the clock used for the Date header.
func WithSMTPClock(clock func() time.Time) SMTPOption {
	return func(s *SMTPSender) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewSMTPSender constructs an SMTP sender. Auth is only configured when a username is set.
func NewSMTPSender(cfg SMTPConfig, opts ...SMTPOption) (*SMTPSender, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, errors.New("smtp sender: host is required")
	}
	port := cfg.Port
	if port <= 0 {
		port = 587
	}
	sender := &SMTPSender{
		addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		sendMail: smtp.SendMail,
		clock:    time.Now,
	}
	if user := strings.TrimSpace(cfg.Username); user != "" {
		sender.auth = smtp.PlainAuth("", user, cfg.Password, host)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(sender)
		}
	}
	return sender, nil
}

// Send renders msg as multipart/alternative and hands it to the relay.
// net/smtp has no context support, so ctx is only checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg services.MailMessage) error {
	if s == nil {
		return errors.New("smtp sender: not initialised")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	from, err := netmail.ParseAddress(msg.From)
	if err != nil {
		return fmt.Errorf("smtp sender: invalid from address: %w", err)
	}
	if len(msg.To) == 0 {
		return errors.New("smtp sender: at least one recipient is required")
	}

	body, err := BuildMessage(msg, s.clock())
	if err != nil {
		return err
	}
	if err := s.sendMail(s.addr, s.auth, from.Address, msg.To, body); err != nil {
		return fmt.Errorf("smtp sender: send: %w", err)
	}
	return nil
}

// BuildMessage encodes msg as an RFC 5322 message with text and HTML alternatives.
func BuildMessage(msg services.MailMessage, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	headers := []string{
		"From: " + msg.From,
		"To: " + strings.Join(msg.To, ", "),
		"Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject),
		"Date: " + now.UTC().Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary=" + writer.Boundary(),
	}
	buf.WriteString(strings.Join(headers, "\r\n"))
	buf.WriteString("\r\n\r\n")

	parts := []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=utf-8", msg.Text},
		{"text/html; charset=utf-8", msg.HTML},
	}
	for _, part := range parts {
		if strings.TrimSpace(part.body) == "" {
			continue
		}
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", part.contentType)
		header.Set("Content-Transfer-Encoding", "8bit")
		w, err := writer.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("smtp sender: create part: %w", err)
		}
		if _, err := w.Write([]byte(normalizeNewlines(part.body))); err != nil {
			return nil, fmt.Errorf("smtp sender: write part: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("smtp sender: close message: %w", err)
	}
	return buf.Bytes(), nil
}

func normalizeNewlines(value string) string {
	value = strings.ReplaceAll(value, "\r\n", "\n")
	return strings.ReplaceAll(value, "\n", "\r\n")
}
