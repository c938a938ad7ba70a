// Package transport delivers outbound mail. The engine hands a fully
// formed raw MIME payload to a Transport; delivery reports success or
// failure only, with no partial-delivery granularity.
package transport

import (
	"fmt"
	"io"

	"groupsync/internal/config"
)

// Envelope carries the delivery parameters for one outbound message.
type Envelope struct {
	Sender     string   // address the user declared in the From header
	MailFrom   string   // envelope-from handed to the transport
	Recipients []string
	Subject    string
}

// Transport performs delivery of a raw MIME payload.
type Transport interface {
	Send(env Envelope, raw io.Reader) error
}

// NewTransportFromConfig creates a Transport based on the config type.
func NewTransportFromConfig(cfg config.TransportConfig) (Transport, error) {
	switch cfg.Type {
	case "sendmail":
		if cfg.SendmailPath == "" {
			return nil, fmt.Errorf("sendmail transport requires sendmail_path to be set")
		}
		return NewSendmailTransport(cfg.SendmailPath), nil
	case "smtp":
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("smtp transport requires smtp_host to be set")
		}
		port := cfg.SMTPPort
		if port == 0 {
			port = 25
		}
		return NewSMTPTransport(SMTPOptions{
			Host:     cfg.SMTPHost,
			Port:     port,
			Auth:     cfg.SMTPAuth,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
		}), nil
	default:
		return nil, fmt.Errorf("unknown transport type: %s", cfg.Type)
	}
}
