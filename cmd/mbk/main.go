package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mbk-go/internal/app"
	"mbk-go/internal/config"
	"mbk-go/internal/frame"
	"mbk-go/internal/mb"
)

// envPassphrase, when set, is used instead of prompting.
const envPassphrase = "MBK_PASSPHRASE"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an MBKApp. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "export", "import").
func newApp(ctx context.Context, operation string) (*app.MBKApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewMBKApp(ctx, cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// newUnlockedApp is newApp followed by unlocking the backup key.
func newUnlockedApp(ctx context.Context, operation string) (*app.MBKApp, error) {
	a, err := newApp(ctx, operation)
	if err != nil {
		return nil, err
	}
	if !a.Keys().IsConfigured() {
		a.Close()
		return nil, errors.New("no backup key configured: run 'mbk keys init' first")
	}
	passphrase, err := readPassphrase("Passphrase: ")
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := a.Keys().Unlock(passphrase); err != nil {
		a.Close()
		return nil, fmt.Errorf("unlocking backup key: %w", err)
	}
	return a, nil
}

func readPassphrase(prompt string) (string, error) {
	if p := os.Getenv(envPassphrase); p != "" {
		return p, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no terminal to prompt for a passphrase; set %s", envPassphrase)
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

// newPassphrase prompts twice and insists both entries match.
func newPassphrase() (string, error) {
	p, err := readPassphrase("New passphrase: ")
	if err != nil {
		return "", err
	}
	if os.Getenv(envPassphrase) != "" {
		return p, nil
	}
	confirm, err := readPassphrase("Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	if p != confirm {
		return "", errors.New("passphrases do not match")
	}
	if p == "" {
		return "", errors.New("passphrase must not be empty")
	}
	return p, nil
}

// describeFailure turns a decode failure into the message shown to the user.
func describeFailure(err error) error {
	switch mb.Classify(err) {
	case mb.FailureTampered:
		return fmt.Errorf("backup corrupted or tampered: %w", err)
	case mb.FailureTruncated:
		return fmt.Errorf("backup truncated or incomplete: %w", err)
	case mb.FailureUnsupported:
		return fmt.Errorf("backup format unsupported: %w", err)
	default:
		return err
	}
}

func printSummary(s *mb.Summary) {
	if s.Header != nil {
		fmt.Printf("Backup time: %s\n", time.UnixMilli(int64(s.Header.BackupTimeMs)).UTC().Format(time.RFC3339))
	}
	for k := frame.KindAccount; k <= frame.KindStickerPack; k++ {
		if n := s.Counts[k]; n > 0 {
			fmt.Printf("  %-14s %d\n", k, n)
		}
	}
	fmt.Printf("  %-14s %d\n", "total", s.Total())
}

var rootCmd = &cobra.Command{
	Use:          "mbk",
	Short:        "Encrypted message account backups",
	SilenceUsage: true,
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
		aci, _ := cmd.Flags().GetString("aci")
		pni, _ := cmd.Flags().GetString("pni")
		e164, _ := cmd.Flags().GetUint64("e164")

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(aci, defaults.BaseDir)
		cfg.Account.PNI = pni
		cfg.Account.E164 = e164
		if err := cfg.Validate(); err != nil {
			return err
		}

		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Account:  %s\n", aci)
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)
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

		cfg, err := config.ReadFromFile(defaults.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Account:  %s\n", cfg.Account.ACI)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Vault:    %s (%s)\n", cfg.Vault.Name, cfg.Vault.Type)
		fmt.Printf("Database: %s\n", cfg.Database.Type)
		fmt.Printf("Staging:  %s\n", cfg.Staging.Type)
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the vault is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "check")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Check(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Vault OK")
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the backup key",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new backup key",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "keys")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := newPassphrase()
		if err != nil {
			return err
		}
		if err := a.Keys().Setup(passphrase); err != nil {
			return fmt.Errorf("creating backup key: %w", err)
		}
		fmt.Println("Backup key created.")
		return nil
	},
}

var keysImportCmd = &cobra.Command{
	Use:   "import HEXKEY",
	Short: "Store an existing backup key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := hex.DecodeString(args[0])
		if err != nil {
			return fmt.Errorf("decoding key: %w", err)
		}

		a, err := newApp(cmd.Context(), "keys")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := newPassphrase()
		if err != nil {
			return err
		}
		if err := a.Keys().SetupWithKey(passphrase, key); err != nil {
			return fmt.Errorf("storing backup key: %w", err)
		}
		fmt.Println("Backup key stored.")
		return nil
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Back up local state to the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newUnlockedApp(cmd.Context(), "export")
		if err != nil {
			return err
		}
		defer a.Close()

		record, err := a.Export(cmd.Context())
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		fmt.Printf("Exported %s (%d bytes)\n", record.Name, record.Size)
		printSummary(record.Summary)
		return nil
	},
}

// import command
var importCmd = &cobra.Command{
	Use:   "import NAME",
	Short: "Replace local state with a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newUnlockedApp(cmd.Context(), "import")
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.Import(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("import failed: %w", describeFailure(err))
		}

		fmt.Printf("Imported %s\n", args[0])
		printSummary(summary)
		return nil
	},
}

// verify command
var verifyCmd = &cobra.Command{
	Use:   "verify NAME",
	Short: "Check that a backup decodes and authenticates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newUnlockedApp(cmd.Context(), "verify")
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.Verify(cmd.Context(), args[0])
		if err != nil {
			return describeFailure(err)
		}

		fmt.Printf("%s OK\n", args[0])
		printSummary(summary)
		return nil
	},
}

// diff command
var diffCmd = &cobra.Command{
	Use:   "diff NAME_A NAME_B",
	Short: "Compare the content of two backups",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newUnlockedApp(cmd.Context(), "diff")
		if err != nil {
			return err
		}
		defer a.Close()

		d, err := a.Diff(cmd.Context(), args[0], args[1])
		if err != nil {
			return describeFailure(err)
		}
		if d == "" {
			fmt.Println("Backups are equivalent.")
			return nil
		}
		fmt.Print(d)
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups in the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "list")
		if err != nil {
			return err
		}
		defer a.Close()

		objs, err := a.ListBackups(cmd.Context())
		if err != nil {
			return err
		}
		if len(objs) == 0 {
			fmt.Println("No backups.")
			return nil
		}
		for _, o := range objs {
			fmt.Printf("%s  %10d  %s\n", o.Name, o.Size, o.ModifiedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View backup operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context(), "history")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.GetHistory(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No backup operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				d := op.FinishedAt.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-8s  %s  %-8s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().String("aci", "", "Account ACI (UUID)")
	configInitCmd.Flags().String("pni", "", "Account PNI (UUID)")
	configInitCmd.Flags().Uint64("e164", 0, "Account phone number")
	configInitCmd.MarkFlagRequired("aci")
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configCheckCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)
	keysCmd.AddCommand(keysImportCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
