package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Konsultn-Engineering/sqlmap/datasource"
)

// NewPingCommand creates the ping command.
func NewPingCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Connect to every configured store and ping it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := GetConfig(cmd.Context())
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			reg, err := datasource.Open(ctx, cfg.Registry())
			if err != nil {
				return err
			}
			defer func() {
				if err := reg.Close(); err != nil {
					GetLogger(cmd.Context()).Warn("close stores", "error", err)
				}
			}()

			if err := reg.Ping(ctx); err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "GROUP\tSTORES\tSTATUS")
			for _, name := range reg.GroupNames() {
				g, _ := reg.Group(name)
				fmt.Fprintf(tw, "%s\t%d\tok\n", name, len(g.Stores()))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Overall connect and ping timeout")
	return cmd
}
