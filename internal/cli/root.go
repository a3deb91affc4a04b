// Package cli implements the sessionctl command tree. It is a thin shell
// over the session manager: every command settles the session via one
// Initialize pass and then performs its action.
package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/adminkit/session/internal/api"
	"github.com/adminkit/session/internal/config"
	"github.com/adminkit/session/internal/gate"
	"github.com/adminkit/session/internal/logging"
	"github.com/adminkit/session/internal/session"
	"github.com/adminkit/session/internal/tokenstore"
)

type runtime struct {
	cfg  *config.Config
	mgr  *session.Manager
	gate *gate.Gate
	log  logging.Logger
}

var (
	flagServer  string
	flagDB      string
	flagTimeout int
	flagGuest   bool
	flagVerbose bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sessionctl",
		Short: "Manage the admin API session from the terminal",
		Long: `sessionctl drives the admin session state machine: it logs in against
the backend auth endpoints, persists the bearer token pair locally,
refreshes it when expired, and reports which features the current
session may access.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&flagServer, "server", "s", "", "base URL of the backend API")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "path of the local token database")
	root.PersistentFlags().IntVarP(&flagTimeout, "timeout", "t", 0, "request timeout in seconds")
	root.PersistentFlags().BoolVar(&flagGuest, "guest", true, "fall back to guest mode when not authenticated")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newStatusCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newRetryCmd(),
		newGateCmd(),
	)
	return root
}

// newRuntime resolves configuration (defaults, .env, environment, flags)
// and wires the manager.
func newRuntime(ctx context.Context, cmd *cobra.Command) *runtime {
	cfg := config.Load()
	if flagServer != "" {
		cfg.APIBaseURL = flagServer
	}
	if flagDB != "" {
		cfg.TokenDBPath = flagDB
	}
	if flagTimeout > 0 {
		cfg.RequestTimeout = time.Duration(flagTimeout) * time.Second
	}
	if cmd.Root().PersistentFlags().Changed("guest") {
		cfg.AllowGuest = flagGuest
	}

	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	log := logging.NewTextLogger(os.Stderr, level)

	store := tokenstore.Open(ctx, cfg.TokenDBPath, log)
	client := api.NewHTTPClient(cfg.APIBaseURL, log, api.WithTimeout(cfg.RequestTimeout))
	mgr := session.NewManager(client, store, session.Config{
		AllowGuest: cfg.AllowGuest,
		Logger:     log,
	})

	return &runtime{
		cfg:  cfg,
		mgr:  mgr,
		gate: gate.New(gate.DefaultFeatures()),
		log:  log,
	}
}

// Execute runs the root command with the given context.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}
