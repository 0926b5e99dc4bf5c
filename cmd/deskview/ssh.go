package main

import (
	"context"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/junsooki/deskview/internal/config"
	"github.com/junsooki/deskview/internal/terminal"
	"github.com/junsooki/deskview/internal/tty"
)

func NewSSHCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ssh",
		Short: "Attach the local terminal to a remote SSH session",
		Example: `  deskview ssh --ssh.url wss://proxy.example.com/term --ssh.login root --ssh.server node-1
  deskview ssh --ssh.url wss://proxy.example.com/term --ssh.sid 3f0c...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg config.SSH
			cfg.Set(v)
			if cfg.URL == "" {
				return errors.New("--ssh.url is required")
			}
			return runSSH(cmd.Context(), &cfg)
		},
	}
	must(config.SSH{}.Init(cmd, v))
	return cmd
}

// consoleWorkspace hosts the single terminal document of the ssh command.
type consoleWorkspace struct {
	once sync.Once
	done chan struct{}
}

func (w *consoleWorkspace) CloseTab(int) {
	w.once.Do(func() { close(w.done) })
}

func (w *consoleWorkspace) UpdateDocument(_ int, u terminal.DocumentUpdate) {
	logger := log.With().Str("module", "ssh").Logger()
	switch u.Status {
	case terminal.DocumentConnected:
		logger.Info().Str("title", u.Title).Msg("connected")
	case terminal.DocumentDisconnected:
		logger.Info().Msg("disconnected")
		w.CloseTab(0)
	}
}

func runSSH(ctx context.Context, cfg *config.SSH) error {
	backend := &terminal.DirectBackend{URL: cfg.URL, Hostname: cfg.Hostname, Login: cfg.Login}
	ws := &consoleWorkspace{done: make(chan struct{})}
	doc := terminal.Document{
		ClusterID: cfg.Cluster,
		SessionID: cfg.SessionID,
		ServerID:  cfg.Server,
		Login:     cfg.Login,
	}

	sess := terminal.New(doc, backend, ws)
	if err := sess.Start(ctx); err != nil {
		return err
	}
	defer sess.Cleanup()

	stream, ok := sess.Stream().(*tty.Tty)
	if !ok {
		return errors.New("unexpected terminal stream")
	}
	stream.On(tty.EventData, func(p any) {
		if data, ok := p.([]byte); ok {
			_, _ = os.Stdout.Write(data)
		}
	})

	if err := stream.Connect(ctx); err != nil {
		return err
	}
	defer stream.Close()

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return errors.Wrap(err, "raw terminal")
		}
		defer term.Restore(fd, state)

		if w, h, err := term.GetSize(fd); err == nil {
			_ = stream.Resize(w, h)
		}
	}

	go func() {
		buf := make([]byte, 1024)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				if stream.Send(append([]byte(nil), buf[:n]...)) != nil {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	select {
	case <-ws.done:
	case <-ctx.Done():
	}
	return nil
}
