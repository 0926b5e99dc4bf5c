package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/junsooki/deskview/internal/config"
	"github.com/junsooki/deskview/internal/signaling"
)

func NewHostsCommand(cfg *config.Desktop) *cobra.Command {
	return &cobra.Command{
		Use:     "hosts",
		Short:   "List the desktop hosts registered with the signaling relay",
		Example: `  deskview hosts --signaling ws://relay:8080`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHosts(cmd.Context(), cmd, cfg)
		},
	}
}

func runHosts(ctx context.Context, cmd *cobra.Command, cfg *config.Desktop) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	hosts, err := signaling.ListHosts(ctx, cfg.SignalingURL, cfg.ControllerID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(hosts) == 0 {
		fmt.Fprintln(out, "no hosts registered")
		return nil
	}
	for _, h := range hosts {
		state := "offline"
		if h.Online {
			state = "online"
		}
		fmt.Fprintf(out, "%s\t%s\n", h.ID, state)
	}
	return nil
}
