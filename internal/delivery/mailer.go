package delivery

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/obentoo/aptaudit/internal/common/system"
)

// Message is a single-part mail message.
type Message struct {
	From    string
	To      []string
	Subject string
	// HTML selects a text/html body instead of text/plain
	HTML bool
	Body string
	// Date defaults to the time the message is built
	Date time.Time
}

// Mailer sends one message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// build converts m into a go-mail message.
// A recipient without a domain ("root") takes the domain of the sender.
func (m Message) build() (*mail.Msg, error) {
	if len(m.To) == 0 {
		return nil, ErrNoRecipient
	}

	msg := mail.NewMsg()
	if err := msg.From(m.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.From, err)
	}
	domain := ""
	if at := strings.LastIndex(m.From, "@"); at >= 0 {
		domain = strings.TrimSuffix(m.From[at+1:], ">")
	}
	rcpts := make([]string, 0, len(m.To))
	for _, to := range m.To {
		rcpts = append(rcpts, qualify(to, domain))
	}
	if err := msg.To(rcpts...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(m.Subject)

	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}
	msg.SetDateWithValue(date)

	contentType := mail.TypeTextPlain
	if m.HTML {
		contentType = mail.TypeTextHTML
	}
	msg.SetBodyString(contentType, m.Body)
	return msg, nil
}

// qualify appends @domain to a bare local name
func qualify(addr, domain string) string {
	addr = strings.TrimSpace(addr)
	if domain == "" || strings.Contains(addr, "@") {
		return addr
	}
	return addr + "@" + domain
}

// SendmailMailer pipes messages to a local sendmail binary.
type SendmailMailer struct {
	exec system.Executor
	path string
}

// NewSendmailMailer creates a mailer that runs `path -t -oi`.
func NewSendmailMailer(exec system.Executor, path string) *SendmailMailer {
	if path == "" {
		path = "/usr/sbin/sendmail"
	}
	return &SendmailMailer{exec: exec, path: path}
}

// Send hands the encoded message to sendmail. Recipients are read from the headers.
func (s *SendmailMailer) Send(ctx context.Context, msg Message) error {
	m, err := msg.build()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMailFailed, err)
	}
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return fmt.Errorf("%w: %w", ErrMailFailed, err)
	}
	if _, err := s.exec.RunWithInput(ctx, buf.Bytes(), s.path, "-t", "-oi"); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMailFailed, s.path, err)
	}
	return nil
}

// SMTPConfig holds the connection settings for SMTPMailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPMailer submits messages to an SMTP server.
// STARTTLS is used whenever the server offers it; PLAIN auth only when a username is set.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer creates an SMTP mailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 25
	}
	return &SMTPMailer{cfg: cfg}
}

// Addr returns host:port.
func (s *SMTPMailer) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Send delivers msg over one SMTP session.
func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	m, err := msg.build()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMailFailed, err)
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("%w: smtp %s: %w", ErrMailFailed, s.Addr(), err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("%w: smtp %s: %w", ErrMailFailed, s.Addr(), err)
	}
	return nil
}

// Ensure both mailers implement Mailer
var (
	_ Mailer = (*SendmailMailer)(nil)
	_ Mailer = (*SMTPMailer)(nil)
)
