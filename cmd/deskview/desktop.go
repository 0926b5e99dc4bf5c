package main

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/junsooki/deskview/internal/canvas"
	"github.com/junsooki/deskview/internal/config"
	"github.com/junsooki/deskview/internal/display"
	"github.com/junsooki/deskview/internal/session"
	"github.com/junsooki/deskview/internal/tdp"
)

func NewDesktopCommand(cfg *config.Desktop) *cobra.Command {
	return &cobra.Command{
		Use:   "desktop",
		Short: "Open a remote desktop in a window",
		Example: `  deskview desktop --url wss://proxy.example.com/desktop --user alice
  deskview desktop --signaling ws://relay:8080 --host host-1a2b`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runDesktop(cfg)
		},
	}
}

func runDesktop(cfg *config.Desktop) error {
	logger := log.With().Str("module", "desktop").Logger()
	logger.Info().
		Str("controller", cfg.ControllerID).
		Str("url", cfg.URL).
		Str("host", cfg.HostID).
		Msg("deskview starting")

	sched := canvas.NewRefreshScheduler()
	surface := display.NewEbitenSurface(cfg.Width, cfg.Height, sched)
	desk := session.NewDesktop(nil)

	style := canvas.Style{Title: "deskview", Width: cfg.Width, Height: cfg.Height}
	rcfg := desk.Config(style)
	rcfg.MaxQueuedFrames = cfg.MaxQueuedFrames
	renderer := canvas.New[*tdp.Client](surface, rcfg, sched, log.Logger)

	cli, release := newClient(cfg)
	defer release()

	// Binding dials, which must not hold up the window loop.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		renderer.Bind(cli)
	}()

	// Ebitengine must own the main goroutine.
	err := surface.Run()
	wg.Wait()
	renderer.Close()

	status, text := desk.Status()
	logger.Info().Str("status", string(status)).Str("text", text).Int("frames", desk.FramesPainted()).Msg("desktop closed")
	return err
}
