package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/sharefile-go/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagProfile    string
	flagChunkSize  string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// CLIFlags is a snapshot of the global flags taken after parsing.
type CLIFlags struct {
	ConfigPath string
	Profile    string
	JSON       bool
	Verbose    bool
	Quiet      bool
}

// CLIContext carries the resolved profile, logger and output streams to
// every subcommand. Built once in PersistentPreRunE.
type CLIContext struct {
	Flags   CLIFlags
	Profile *config.ResolvedProfile
	Logger  *slog.Logger
	Stdout  io.Writer
	Stderr  io.Writer
}

type cliContextKey struct{}

// errNoCLIContext means a command ran without the root pre-run.
var errNoCLIContext = errors.New("internal error: command context not initialized")

// cliContextFrom returns the CLIContext stored by the root pre-run.
func cliContextFrom(ctx context.Context) (*CLIContext, error) {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cc == nil {
		return nil, errNoCLIContext
	}

	return cc, nil
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sharefile-go",
		Short:   "ShareFile CLI client",
		Long:    "A command-line client for the ShareFile v3 API.",
		Version: version,
		// Silence Cobra's default error/usage printing; main reports errors.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := loadCLIContext(cmd)
			if err != nil {
				return err
			}

			cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cc))

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVarP(&flagProfile, "profile", "p", "", "profile name from the config file")
	cmd.PersistentFlags().StringVar(&flagChunkSize, "chunk-size", "", "upload chunk size (e.g. 8MiB)")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	// Register subcommands.
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newStatCmd())
	cmd.AddCommand(newMkdirCmd())
	cmd.AddCommand(newRmCmd())
	cmd.AddCommand(newCpCmd())
	cmd.AddCommand(newRenameCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newShareCmd())
	cmd.AddCommand(newLinkCmd())
	cmd.AddCommand(newACLCmd())
	cmd.AddCommand(newThumbnailCmd())

	return cmd
}

// loadCLIContext resolves the effective configuration from the four-layer
// override chain and builds the logger for the command.
func loadCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	flags := CLIFlags{
		ConfigPath: flagConfigPath,
		Profile:    flagProfile,
		JSON:       flagJSON,
		Verbose:    flagVerbose,
		Quiet:      flagQuiet,
	}

	cli := config.CLIOverrides{
		ConfigPath: flags.ConfigPath,
		Profile:    flags.Profile,
		ChunkSize:  flagChunkSize,
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := buildLogger(resolved.LogLevel, flags)
	logger.Debug("config resolved",
		slog.String("profile", resolved.Name),
		slog.String("hostname", resolved.Hostname),
		slog.String("token_store", resolved.TokenStore),
	)

	return &CLIContext{
		Flags:   flags,
		Profile: resolved,
		Logger:  logger,
		Stdout:  cmd.OutOrStdout(),
		Stderr:  cmd.ErrOrStderr(),
	}, nil
}

// buildLogger creates an slog.Logger from the configured level and CLI
// flags. Config-file log level provides the baseline; --verbose and --quiet
// override it.
func buildLogger(configLevel string, flags CLIFlags) *slog.Logger {
	level := slog.LevelInfo

	switch configLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if flags.Verbose {
		level = slog.LevelDebug
	}

	if flags.Quiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
