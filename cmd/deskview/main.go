package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/junsooki/deskview/internal/config"
	"github.com/junsooki/deskview/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("deskview failed")
		os.Exit(1)
	}
}

// NewRootCommand builds the deskview command tree.
func NewRootCommand() *cobra.Command {
	v := config.NewViper()
	var desktop config.Desktop

	root := &cobra.Command{
		Use:           "deskview",
		Short:         "View and control remote desktops over TDP",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var logCfg config.Logging
			logCfg.Set(v)
			if err := logging.Setup(logCfg); err != nil {
				return err
			}
			desktop.Set(v)
			return nil
		},
	}

	must(config.Logging{}.Init(root, v))
	must(config.Desktop{}.Init(root, v))

	root.AddCommand(
		NewDesktopCommand(&desktop),
		NewScreenshotCommand(v, &desktop),
		NewSSHCommand(v),
		NewHostsCommand(&desktop),
	)
	return root
}

func must(err error) {
	if err != nil {
		log.Fatal().Err(err).Msg("bad flag setup")
	}
}

