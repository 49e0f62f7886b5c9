package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nakari-agent/server/internal/agent/model"
	"github.com/nakari-agent/server/internal/config"
)

func newAskCmd(cfg func() *config.AppConfig, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <message>",
		Short: "Send a single message and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			if err := c.ValidateAgent(); err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := buildApp(ctx, c, appOptions{withAgent: true, metricsAddr: opts.metricsAddr})
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			answer, err := a.agent.Invoke(ctx, model.QueryInput{
				ConversationID: opts.conversation(),
				Query:          strings.Join(args, " "),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
}
