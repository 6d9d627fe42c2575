// Package cli implements the pokedex command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/pokedex/internal/app"
	"github.com/jonwraymond/pokedex/internal/config"
)

// Version is set at build time with -ldflags.
var Version = "dev"

type rootFlags struct {
	configPath string
	addr       string
	debug      bool
	envFile    string
}

// NewRootCommand builds the command tree. The root command runs serve.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "pokedex",
		Short:         "Pokedex entity information service",
		Long:          `Pokedex answers entity lookups from PokeAPI and optionally rewrites descriptions through FunTranslations.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags, cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "config.yaml", "config file")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before the config")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&flags.addr, "addr", "", "listen address (overrides server.addr)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags, cmd.ErrOrStderr())
		},
	})
	root.AddCommand(newConfigCommand(flags))

	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func loadConfig(flags *rootFlags) (*config.Config, error) {
	// A missing .env file is normal outside local development.
	if err := godotenv.Load(flags.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file %s: %w", flags.envFile, err)
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", flags.configPath, err)
	}
	if flags.addr != "" {
		cfg.Server.Addr = flags.addr
	}
	if flags.debug {
		cfg.Observe.Logging.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(ctx context.Context, flags *rootFlags, logOut io.Writer) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg, app.WithLogWriter(logOut), app.WithVersion(Version))
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	return a.Run(ctx, nil)
}
