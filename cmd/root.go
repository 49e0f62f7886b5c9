package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nakari-agent/server/internal/config"
	"github.com/nakari-agent/server/internal/console"
	logx "github.com/nakari-agent/server/pkg/logger"
)

type rootOptions struct {
	envFile        string
	conversationID string
	metricsAddr    string
}

// Execute runs the nakari CLI until the command finishes or the process is interrupted.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	var cfg *config.AppConfig

	root := &cobra.Command{
		Use:           "nakari",
		Short:         "An agent that curates its own graph memory",
		Long:          "nakari talks with you and decides for itself what to remember, storing memories in a schema-free Neo4j graph.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(opts.envFile)
			if err != nil {
				return err
			}
			cfg = loaded
			logx.Init(logx.LoggerOpts{Environment: cfg.Environment, Level: cfg.LogLevel})
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, cfg, opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Path to a .env file loaded before reading the environment")
	root.PersistentFlags().StringVar(&opts.conversationID, "conversation", "", "Conversation id whose history to continue (default: a new random id)")
	root.PersistentFlags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")

	root.AddCommand(
		newAskCmd(func() *config.AppConfig { return cfg }, opts),
		newSchemaCmd(func() *config.AppConfig { return cfg }),
	)
	return root
}

func (o *rootOptions) conversation() string {
	if o.conversationID != "" {
		return o.conversationID
	}
	o.conversationID = uuid.NewString()
	return o.conversationID
}

func runREPL(cmd *cobra.Command, cfg *config.AppConfig, opts *rootOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	printer := console.NewPrinter(out, cfg.Prompt.AgentName)

	if err := cfg.ValidateAgent(); err != nil {
		return err
	}

	printer.Info("Connecting to Neo4j...")
	a, err := buildApp(ctx, cfg, appOptions{withAgent: true, metricsAddr: opts.metricsAddr})
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if a.searchEnabled {
		printer.Info("Search client configured.")
	} else {
		printer.Info("Search client not configured (optional).")
	}
	conversationID := opts.conversation()
	printer.Info("Connected! Conversation " + conversationID)
	fmt.Fprintln(out)

	printer.Header("I am " + printer.Name() + ". I don't play a character, I am.")
	printer.Help()
	fmt.Fprintln(out)

	return console.NewREPL(a.agent, a.gateway, printer, cmd.InOrStdin(), conversationID).Run(ctx)
}
