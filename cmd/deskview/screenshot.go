package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/utils/clock"

	"github.com/junsooki/deskview/internal/canvas"
	"github.com/junsooki/deskview/internal/config"
	"github.com/junsooki/deskview/internal/encoder"
	"github.com/junsooki/deskview/internal/session"
	"github.com/junsooki/deskview/internal/tdp"
)

func NewScreenshotCommand(v *viper.Viper, desktop *config.Desktop) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "screenshot",
		Short:   "Render a remote desktop headlessly and save it as PNG",
		Example: `  deskview screenshot --url wss://proxy.example.com/desktop --wait 5s -o desk.png`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := desktop.Validate(); err != nil {
				return err
			}
			var shot config.Screenshot
			shot.Set(v)
			if err := shot.Validate(); err != nil {
				return err
			}
			return runScreenshot(cmd.Context(), desktop, &shot)
		},
	}
	must(config.Screenshot{}.Init(cmd, v))
	return cmd
}

func runScreenshot(ctx context.Context, cfg *config.Desktop, shot *config.Screenshot) error {
	logger := log.With().Str("module", "screenshot").Logger()

	surface := canvas.NewImageSurface(cfg.Width, cfg.Height)
	sched := canvas.NewRefreshScheduler()
	desk := session.NewDesktop(nil)
	rcfg := desk.Config(canvas.Style{Title: "screenshot"})
	rcfg.MaxQueuedFrames = cfg.MaxQueuedFrames
	renderer := canvas.New[*tdp.Client](surface, rcfg, sched, log.Logger)

	ctx, cancel := context.WithTimeout(ctx, shot.Wait)
	defer cancel()
	go sched.Run(ctx, clock.RealClock{}, canvas.DefaultRefreshInterval)

	cli, release := newClient(cfg)
	defer release()
	renderer.Bind(cli)
	<-ctx.Done()
	renderer.Close()

	status, text := desk.Status()
	if status == session.StatusError {
		return errors.Errorf("desktop session failed: %s", text)
	}
	if desk.FramesPainted() == 0 {
		logger.Warn().Dur("wait", shot.Wait).Msg("no frames arrived, writing a blank image")
	}

	b := surface.Context().Bounds()
	w := max(1, int(float64(b.Dx())*shot.Scale))
	h := max(1, int(float64(b.Dy())*shot.Scale))
	data, err := encoder.NewPNGEncoder(shot.Fast).Encode(surface.Snapshot(w, h))
	if err != nil {
		return err
	}
	if err := os.WriteFile(shot.Output, data, 0o644); err != nil {
		return errors.Wrap(err, "write screenshot")
	}
	logger.Info().Str("file", shot.Output).Int("frames", desk.FramesPainted()).Msg("screenshot saved")
	return nil
}
