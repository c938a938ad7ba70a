package transport

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"
)

// SendmailTransport pipes the raw message into a local sendmail binary.
type SendmailTransport struct {
	path string
}

var _ Transport = (*SendmailTransport)(nil)

func NewSendmailTransport(path string) *SendmailTransport {
	return &SendmailTransport{path: path}
}

func (t *SendmailTransport) Send(env Envelope, raw io.Reader) error {
	args := []string{"-f", env.MailFrom}
	args = append(args, env.Recipients...)

	// Local delivery agents expect bare LF line endings.
	data, err := io.ReadAll(raw)
	if err != nil {
		return fmt.Errorf("reading message: %w", err)
	}
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))

	cmd := exec.Command(t.path, args...)
	cmd.Stdin = bytes.NewReader(data)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("sendmail %s: %w: %s", t.path, err, stderr.String())
		}
		return fmt.Errorf("sendmail %s: %w", t.path, err)
	}
	return nil
}
