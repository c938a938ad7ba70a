// Command groupsync is the operator CLI for the groupware sync store:
// config management, schema migration and per-account diagnostics that
// exercise the same engine operations the protocol host drives.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"groupsync/internal/app"
	"groupsync/internal/config"
	"groupsync/internal/engine"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a SyncApp. The caller must defer
// app.Close(). operation identifies the CLI command being run.
func newApp(operation string) (*app.SyncApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewSyncApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// newLoggedInApp creates a SyncApp and authenticates the given account.
// The password comes from GROUPSYNC_PASSWORD or an interactive prompt.
func newLoggedInApp(operation, email string) (*app.SyncApp, error) {
	a, err := newApp(operation)
	if err != nil {
		return nil, err
	}

	password, err := readPassword(email)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := a.Login(email, password); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func readPassword(email string) (string, error) {
	if pw := os.Getenv("GROUPSYNC_PASSWORD"); pw != "" {
		return pw, nil
	}
	fmt.Fprintf(os.Stderr, "Password for %s: ", email)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

var rootCmd = &cobra.Command{
	Use:   "groupsync",
	Short: "Groupware sync store for mail, calendar, tasks and contacts",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostname, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("determining hostname: %w", err)
		}

		cfg := config.NewConfig(hostname, defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Hostname: %s\n", hostname)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Hostname:  %s\n", cfg.Hostname)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Database:  %s\n", cfg.Database.Path)
		fmt.Printf("Blobstore: %s (%s)\n", cfg.BlobStore.Type, cfg.BlobStore.DataDir)
		fmt.Printf("Transport: %s\n", cfg.Transport.Type)
		return nil
	},
}

// migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the sync store schema to the latest version",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
		if err := app.Migrate(cfg); err != nil {
			return err
		}
		fmt.Println("Schema is up to date.")
		return nil
	},
}

// login command
var loginCmd = &cobra.Command{
	Use:   "login EMAIL",
	Short: "Verify account credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newLoggedInApp("Login", args[0])
		if err != nil {
			var denied *engine.AuthError
			if errors.As(err, &denied) {
				fmt.Printf("Denied: %s\n", denied.Reason)
				return nil
			}
			return err
		}
		defer a.Close()

		fmt.Println("Login OK")
		return nil
	},
}

// folders command
var foldersCmd = &cobra.Command{
	Use:   "folders EMAIL",
	Short: "List the account's synchronizable folders",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newLoggedInApp("ListFolders", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		folders, err := a.ListFolders()
		if err != nil {
			return err
		}
		for _, f := range folders {
			fmt.Printf("%-14s  parent:%-10s  %s\n", f.ID, f.ParentID, f.DisplayName)
		}
		return nil
	},
}

// items command
var itemsCmd = &cobra.Command{
	Use:   "items EMAIL FOLDER",
	Short: "List the items of one folder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cutoff, _ := cmd.Flags().GetInt64("cutoff")

		a, err := newLoggedInApp("ListItems", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.ListItems(args[1], cutoff)
		if err != nil {
			return err
		}
		if len(stats) == 0 {
			fmt.Println("No items.")
			return nil
		}
		for _, s := range stats {
			fmt.Printf("%-10d  mod:%-12d  flag:%d\n", s.ID, s.Mod, s.Flag)
		}
		return nil
	},
}

// fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch EMAIL FOLDER ID",
	Short: "Render one item in its protocol form",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		itemID, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid item id: %s", args[2])
		}
		mime, _ := cmd.Flags().GetBool("mime")
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newLoggedInApp("FetchItem", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		opts := engine.RenderOptions{
			BodyPreference:  []engine.BodyType{engine.BodyTypePlain},
			MIMESupport:     mime,
			TruncationLimit: limit,
			ProtocolVersion: 14.1,
		}
		if mime {
			opts.BodyPreference = []engine.BodyType{engine.BodyTypeMIME}
		}

		item, err := a.FetchItem(args[1], itemID, opts)
		if err != nil {
			return err
		}
		printItem(item)
		return nil
	},
}

func printItem(item engine.Item) {
	switch v := item.(type) {
	case *engine.MailItem:
		fmt.Printf("Subject: %s\nFrom: %s\nTo: %s\nDate: %d\nRead: %v\n",
			v.Subject, v.From, v.To, v.Date, v.Read)
		for _, att := range v.Attachments {
			fmt.Printf("Attachment: %s (%s, %d bytes) ref=%s\n",
				att.Name, att.ContentType, att.Size, att.Ref)
		}
		if v.Body != nil {
			fmt.Printf("Body (type %d, truncated %v):\n%s\n",
				v.Body.Type, v.Body.Truncated, v.Body.Data)
		}
	case *engine.EventItem:
		fmt.Printf("Subject: %s\nLocation: %s\nStart: %d\nEnd: %d\nAllDay: %v\n",
			v.Subject, v.Location, v.Start, v.End, v.AllDay)
		for _, att := range v.Attendees {
			fmt.Printf("Attendee: %s <%s>\n", att.Name, att.Email)
		}
	case *engine.TaskItem:
		fmt.Printf("Subject: %s\nComplete: %v\nDue: %d\n", v.Subject, v.Complete, v.Due)
	case *engine.ContactItem:
		fmt.Printf("Name: %s %s\nEmail: %s\nCompany: %s\n",
			v.FirstName, v.LastName, v.Email, v.Company)
	}
}

// attachment command
var attachmentCmd = &cobra.Command{
	Use:   "attachment EMAIL REF",
	Short: "Fetch one MIME part by composite reference",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newLoggedInApp("FetchAttachment", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		rc, contentType, err := a.FetchAttachment(args[1])
		if err != nil {
			return err
		}
		defer rc.Close()

		fmt.Fprintf(os.Stderr, "Content-Type: %s\n", contentType)
		if _, err := io.Copy(os.Stdout, rc); err != nil {
			return fmt.Errorf("writing attachment: %w", err)
		}
		return nil
	},
}

// send command
var sendCmd = &cobra.Command{
	Use:   "send EMAIL FILE",
	Short: "Send a raw MIME message as the account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("reading message file: %w", err)
		}

		a, err := newLoggedInApp("SendMail", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SendMail(raw); err != nil {
			return fmt.Errorf("send failed: %w", err)
		}
		fmt.Println("Message sent.")
		return nil
	},
}

// generations command
var generationsCmd = &cobra.Command{
	Use:   "generations EMAIL",
	Short: "Show the account's change generation counters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newLoggedInApp("Generations", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		content, structure, err := a.Generations()
		if err != nil {
			return err
		}
		fmt.Printf("content:   %d\nstructure: %d\n", content, structure)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(foldersCmd)
	rootCmd.AddCommand(itemsCmd)
	itemsCmd.Flags().Int64("cutoff", 0, "Minimum receipt timestamp for mail listings")
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().Bool("mime", false, "Request raw MIME passthrough")
	fetchCmd.Flags().Int("limit", 0, "Max body bytes to return (0 = unlimited)")
	rootCmd.AddCommand(attachmentCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(generationsCmd)
}
