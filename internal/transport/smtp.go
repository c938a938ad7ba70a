package transport

import (
	"fmt"
	"io"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// SMTPOptions configures a relay connection.
type SMTPOptions struct {
	Host     string
	Port     int
	Auth     string // "", "plain" or "login"
	Username string
	Password string
}

// SMTPTransport relays messages through an SMTP smarthost.
type SMTPTransport struct {
	opts SMTPOptions
}

var _ Transport = (*SMTPTransport)(nil)

func NewSMTPTransport(opts SMTPOptions) *SMTPTransport {
	return &SMTPTransport{opts: opts}
}

func (t *SMTPTransport) Send(env Envelope, raw io.Reader) error {
	addr := fmt.Sprintf("%s:%d", t.opts.Host, t.opts.Port)

	c, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer c.Close()

	switch t.opts.Auth {
	case "":
	case "plain":
		if err := c.Auth(sasl.NewPlainClient("", t.opts.Username, t.opts.Password)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	case "login":
		if err := c.Auth(sasl.NewLoginClient(t.opts.Username, t.opts.Password)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	default:
		return fmt.Errorf("unknown smtp auth mechanism: %s", t.opts.Auth)
	}

	if err := c.Mail(env.MailFrom, nil); err != nil {
		return fmt.Errorf("mail from %s: %w", env.MailFrom, err)
	}
	for _, rcpt := range env.Recipients {
		if err := c.Rcpt(rcpt, nil); err != nil {
			return fmt.Errorf("rcpt to %s: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := io.Copy(w, raw); err != nil {
		w.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish message: %w", err)
	}

	return c.Quit()
}
