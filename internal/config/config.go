package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for groupsync.
type Config struct {
	Hostname  string          `toml:"hostname"` // used for generated Message-IDs
	LogDir    string          `toml:"log_dir"`
	Database  DatabaseConfig  `toml:"database"`
	BlobStore BlobStoreConfig `toml:"blobstore"`
	Transport TransportConfig `toml:"transport"`
	Mail      MailConfig      `toml:"mail"`
}

// DatabaseConfig represents configuration for the groupware store.
type DatabaseConfig struct {
	Path string `toml:"path"` // sqlite file path, or ":memory:"
}

// BlobStoreConfig represents configuration for message payload storage.
// This uses a tagged union pattern - the Type field determines which other
// fields are relevant.
type BlobStoreConfig struct {
	Type string `toml:"type"` // "filesystem", "userdb", or "memory"

	// Shared by filesystem and userdb backends.
	DataDir string `toml:"data_dir,omitempty"`

	// Filesystem-specific: shard payload files into digit-pair
	// subdirectories instead of one flat directory.
	Sharded bool `toml:"sharded,omitempty"`

	// Userdb-specific: zlib-compress stored payloads.
	Compress bool `toml:"compress,omitempty"`
}

// TransportConfig represents configuration for outbound mail delivery.
// This uses a tagged union pattern - the Type field determines which other
// fields are relevant.
type TransportConfig struct {
	Type string `toml:"type"` // "sendmail" or "smtp"

	// Sendmail-specific fields (only used when Type == "sendmail")
	SendmailPath string `toml:"sendmail_path,omitempty"`

	// SMTP-specific fields (only used when Type == "smtp")
	SMTPHost string `toml:"smtp_host,omitempty"`
	SMTPPort int    `toml:"smtp_port,omitempty"`
	SMTPAuth string `toml:"smtp_auth,omitempty"` // "", "plain" or "login"
	SMTPUser string `toml:"smtp_user,omitempty"`
	SMTPPass string `toml:"smtp_pass,omitempty"`
}

// MailConfig holds mail storage policy settings.
type MailConfig struct {
	// InlineLimit is the max body size in bytes kept in the message row;
	// larger payloads are externalized to the blob store.
	InlineLimit int64 `toml:"inline_limit"`
}

// NewConfig creates a new Config with the provided values and defaults.
func NewConfig(hostname, baseDir string) *Config {
	return &Config{
		Hostname: hostname,
		LogDir:   filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Path: filepath.Join(baseDir, "groupsync.db"),
		},
		BlobStore: BlobStoreConfig{
			Type:    "filesystem",
			DataDir: filepath.Join(baseDir, "data"),
			Sharded: true,
		},
		Transport: TransportConfig{
			Type:         "sendmail",
			SendmailPath: "/usr/sbin/sendmail",
		},
		Mail: MailConfig{
			InlineLimit: 32 * 1024,
		},
	}
}

// Validate checks that all required settings are present. A failure here is
// fatal at startup.
func (c *Config) Validate() error {
	if c.Hostname == "" {
		return fmt.Errorf("hostname is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	switch c.BlobStore.Type {
	case "filesystem", "userdb":
		if c.BlobStore.DataDir == "" {
			return fmt.Errorf("blobstore.data_dir is required for type %q", c.BlobStore.Type)
		}
	case "memory":
	default:
		return fmt.Errorf("unknown blobstore type: %q", c.BlobStore.Type)
	}
	switch c.Transport.Type {
	case "sendmail":
		if c.Transport.SendmailPath == "" {
			return fmt.Errorf("transport.sendmail_path is required for type %q", c.Transport.Type)
		}
	case "smtp":
		if c.Transport.SMTPHost == "" {
			return fmt.Errorf("transport.smtp_host is required for type %q", c.Transport.Type)
		}
	default:
		return fmt.Errorf("unknown transport type: %q", c.Transport.Type)
	}
	if c.Mail.InlineLimit < 0 {
		return fmt.Errorf("mail.inline_limit must not be negative")
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
