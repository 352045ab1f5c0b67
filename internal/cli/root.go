package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/w3f/edunews/internal/config"
	"github.com/w3f/edunews/internal/engine"
	"github.com/w3f/edunews/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	Network    string
	ConfigFile string

	// Config is resolved before any subcommand runs.
	Config config.Config
	Logger *slog.Logger

	// FlowGenerator allows overriding the flow token generator (for testing).
	// If nil, registrations use UUIDv7 tokens.
	FlowGenerator engine.FlowTokenGenerator

	viper *viper.Viper
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the edunews CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	opts.viper = viper.New()

	cmd := &cobra.Command{
		Use:   "edunews",
		Short: "edunews - articles anchored on three ledgers",
		Long: `Register articles as linked records on the issuance, registry and
identity ledgers, and verify them across all three.

A registration mints one NFT for the article in the publisher's collection,
records the content hash and a binding signature on the registry ledger,
and can be checked against the publisher's identity record.`,
		Version:       ir.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitInvalidInput, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			opts.Logger = setupLogging(cmd.ErrOrStderr(), opts.Verbose)

			if err := opts.viper.BindPFlag("network", cmd.Root().PersistentFlags().Lookup("network")); err != nil {
				return err
			}
			cfg, err := config.Load(opts.viper, opts.ConfigFile)
			if err != nil {
				return WrapExitError(ExitInvalidInput, "invalid configuration", err)
			}
			opts.Config = cfg
			opts.Logger.Debug("configuration loaded", "network", cfg.Network, "file", cfg.ConfigFile)
			return nil
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitInvalidInput, "invalid flags", err)
	})

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Network, "network", "", "network to use (local|devnet|memory or a configured name)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default $HOME/.edunews/config.yaml)")

	// Add subcommands
	cmd.AddCommand(NewRegisterCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewIdentityCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))
	cmd.AddCommand(NewDevnetCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// setupLogging installs a text handler on w as the default logger, at
// Debug level when verbose.
func setupLogging(w io.Writer, verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
