package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nakari-agent/server/internal/config"
)

func newSchemaCmd(cfg func() *config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the labels, relationship types and property keys of the memory graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, cfg(), appOptions{})
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			snapshot, err := a.gateway.InspectSchema(ctx)
			if err != nil {
				return err
			}
			raw, err := json.MarshalIndent(snapshot, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return nil
		},
	}
}
