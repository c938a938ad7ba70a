package transport

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"groupsync/internal/config"
)

func TestNewTransportFromConfig(t *testing.T) {
	t.Run("sendmail", func(t *testing.T) {
		tr, err := NewTransportFromConfig(config.TransportConfig{
			Type:         "sendmail",
			SendmailPath: "/usr/sbin/sendmail",
		})
		if err != nil {
			t.Fatalf("NewTransportFromConfig() error = %v", err)
		}
		if _, ok := tr.(*SendmailTransport); !ok {
			t.Errorf("NewTransportFromConfig() = %T, want *SendmailTransport", tr)
		}
	})

	t.Run("sendmail requires a path", func(t *testing.T) {
		if _, err := NewTransportFromConfig(config.TransportConfig{Type: "sendmail"}); err == nil {
			t.Error("NewTransportFromConfig() accepted a sendmail config without a path")
		}
	})

	t.Run("smtp", func(t *testing.T) {
		tr, err := NewTransportFromConfig(config.TransportConfig{
			Type:     "smtp",
			SMTPHost: "relay.example.com",
			SMTPPort: 587,
		})
		if err != nil {
			t.Fatalf("NewTransportFromConfig() error = %v", err)
		}
		st, ok := tr.(*SMTPTransport)
		if !ok {
			t.Fatalf("NewTransportFromConfig() = %T, want *SMTPTransport", tr)
		}
		if st.opts.Port != 587 {
			t.Errorf("port = %d, want 587", st.opts.Port)
		}
	})

	t.Run("smtp defaults the port to 25", func(t *testing.T) {
		tr, err := NewTransportFromConfig(config.TransportConfig{
			Type:     "smtp",
			SMTPHost: "relay.example.com",
		})
		if err != nil {
			t.Fatalf("NewTransportFromConfig() error = %v", err)
		}
		if st := tr.(*SMTPTransport); st.opts.Port != 25 {
			t.Errorf("port = %d, want 25", st.opts.Port)
		}
	})

	t.Run("smtp requires a host", func(t *testing.T) {
		if _, err := NewTransportFromConfig(config.TransportConfig{Type: "smtp"}); err == nil {
			t.Error("NewTransportFromConfig() accepted an smtp config without a host")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := NewTransportFromConfig(config.TransportConfig{Type: "pigeon"}); err == nil {
			t.Error("NewTransportFromConfig() accepted an unknown transport type")
		}
	})
}

func TestSendmailTransport_Send(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a shell")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "fake-sendmail")
	contents := "#!/bin/sh\necho \"$@\" > \"" + dir + "/args\"\ncat > \"" + dir + "/body\"\n"
	if err := os.WriteFile(script, []byte(contents), 0755); err != nil {
		t.Fatalf("writing fake sendmail: %v", err)
	}

	tr := NewSendmailTransport(script)
	env := Envelope{
		Sender:     "alice@example.com",
		MailFrom:   "alice@example.com",
		Recipients: []string{"bob@example.com", "carol@example.com"},
	}
	if err := tr.Send(env, strings.NewReader("Subject: hi\r\n\r\nline one\r\nline two\r\n")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	args, err := os.ReadFile(filepath.Join(dir, "args"))
	if err != nil {
		t.Fatalf("reading recorded args: %v", err)
	}
	want := "-f alice@example.com bob@example.com carol@example.com"
	if got := strings.TrimSpace(string(args)); got != want {
		t.Errorf("sendmail args = %q, want %q", got, want)
	}

	body, err := os.ReadFile(filepath.Join(dir, "body"))
	if err != nil {
		t.Fatalf("reading recorded body: %v", err)
	}
	if string(body) != "Subject: hi\n\nline one\nline two\n" {
		t.Errorf("piped body = %q, want LF line endings", body)
	}
}

func TestSendmailTransport_SendFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a shell")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "fake-sendmail")
	contents := "#!/bin/sh\necho \"queue refused\" >&2\nexit 1\n"
	if err := os.WriteFile(script, []byte(contents), 0755); err != nil {
		t.Fatalf("writing fake sendmail: %v", err)
	}

	tr := NewSendmailTransport(script)
	err := tr.Send(Envelope{MailFrom: "a@example.com", Recipients: []string{"b@example.com"}}, strings.NewReader("x"))
	if err == nil {
		t.Fatal("Send() succeeded against a failing binary")
	}
	if !strings.Contains(err.Error(), "queue refused") {
		t.Errorf("Send() error = %v, want the binary's stderr included", err)
	}
}
