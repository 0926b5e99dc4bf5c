// Package config binds command-line flags and DESKVIEW_* environment
// variables into typed settings. Each settings type registers its flags in
// Init and reads the resolved values back in Set.
package config

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "DESKVIEW"

// NewViper returns a viper instance that also reads DESKVIEW_* variables,
// with dots and dashes in keys mapped to underscores.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func bind(v *viper.Viper, flags *pflag.FlagSet, names ...string) error {
	for _, name := range names {
		if err := v.BindPFlag(name, flags.Lookup(name)); err != nil {
			return errors.Wrapf(err, "bind flag %s", name)
		}
	}
	return nil
}

// Logging settings.
type Logging struct {
	Level   string
	Console bool
}

func (Logging) Init(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.PersistentFlags()
	flags.String("log.level", "info", "log level (trace, debug, info, warn, error)")
	flags.Bool("log.console", false, "human readable log output even when stderr is not a terminal")
	return bind(v, flags, "log.level", "log.console")
}

func (s *Logging) Set(v *viper.Viper) {
	s.Level = v.GetString("log.level")
	s.Console = v.GetBool("log.console")
}

// Desktop settings for the remote desktop connection.
type Desktop struct {
	// URL of a TDP websocket. When empty the relay is used.
	URL          string
	SignalingURL string
	HostID       string
	ControllerID string
	ICEServers   []string

	Username        string
	Width           int
	Height          int
	MaxQueuedFrames int
	DialTimeout     time.Duration
}

func (Desktop) Init(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.PersistentFlags()
	flags.String("url", "", "TDP websocket URL")
	flags.String("signaling", "ws://localhost:8080", "signaling relay URL, used when --url is empty")
	flags.String("host", "", "host ID to reach through the relay")
	flags.String("id", "", "controller ID (generated if empty)")
	flags.StringSlice("ice", nil, "ICE server URLs")
	flags.String("user", "", "username announced to the desktop")
	flags.Int("width", 1280, "initial screen width")
	flags.Int("height", 720, "initial screen height")
	flags.Int("max-queued-frames", 0, "drop the oldest frames beyond this many per refresh (0 keeps all)")
	flags.Duration("dial-timeout", 15*time.Second, "connection timeout")
	return bind(v, flags, "url", "signaling", "host", "id", "ice", "user",
		"width", "height", "max-queued-frames", "dial-timeout")
}

func (s *Desktop) Set(v *viper.Viper) {
	s.URL = v.GetString("url")
	s.SignalingURL = v.GetString("signaling")
	s.HostID = v.GetString("host")
	s.ControllerID = v.GetString("id")
	s.ICEServers = v.GetStringSlice("ice")
	s.Username = v.GetString("user")
	s.Width = v.GetInt("width")
	s.Height = v.GetInt("height")
	s.MaxQueuedFrames = v.GetInt("max-queued-frames")
	s.DialTimeout = v.GetDuration("dial-timeout")

	if s.ControllerID == "" {
		s.ControllerID = "controller-" + uuid.NewString()
	}
}

// Validate reports settings that cannot produce a connection.
func (s *Desktop) Validate() error {
	if s.URL == "" && s.HostID == "" {
		return errors.New("either --url or --host is required")
	}
	if s.Width <= 0 || s.Height <= 0 {
		return errors.Errorf("invalid screen size %dx%d", s.Width, s.Height)
	}
	if s.MaxQueuedFrames < 0 {
		return errors.New("max-queued-frames must not be negative")
	}
	return nil
}

// MaxScreenshotScale bounds the capture scale factor.
const MaxScreenshotScale = 4

// Screenshot settings for headless capture.
type Screenshot struct {
	Output string
	Wait   time.Duration
	Scale  float64
	Fast   bool
}

func (Screenshot) Init(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.Flags()
	flags.StringP("output", "o", "screenshot.png", "file to write")
	flags.Duration("wait", 3*time.Second, "how long to render before capturing")
	flags.Float64("scale", 1, "scale factor applied to the capture")
	flags.Bool("fast", false, "favor encoding speed over size")
	return bind(v, flags, "output", "wait", "scale", "fast")
}

func (s *Screenshot) Set(v *viper.Viper) {
	s.Output = v.GetString("output")
	s.Wait = v.GetDuration("wait")
	s.Scale = v.GetFloat64("scale")
	s.Fast = v.GetBool("fast")
}

// Validate rejects scale factors outside (0, MaxScreenshotScale].
func (s *Screenshot) Validate() error {
	if s.Scale <= 0 || s.Scale > MaxScreenshotScale {
		return errors.Errorf("scale must be in (0, %d], got %g", MaxScreenshotScale, s.Scale)
	}
	if s.Output == "" {
		return errors.New("output file is required")
	}
	return nil
}

// SSH settings for the terminal command.
type SSH struct {
	URL       string
	Cluster   string
	Server    string
	Login     string
	Hostname  string
	SessionID string
}

func (SSH) Init(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.Flags()
	flags.String("ssh.url", "", "terminal websocket URL")
	flags.String("ssh.cluster", "", "cluster name")
	flags.String("ssh.server", "", "server ID")
	flags.String("ssh.login", "", "login to create a new session with")
	flags.String("ssh.hostname", "", "hostname shown in the title")
	flags.String("ssh.sid", "", "join an existing session instead of creating one")
	return bind(v, flags, "ssh.url", "ssh.cluster", "ssh.server", "ssh.login", "ssh.hostname", "ssh.sid")
}

func (s *SSH) Set(v *viper.Viper) {
	s.URL = v.GetString("ssh.url")
	s.Cluster = v.GetString("ssh.cluster")
	s.Server = v.GetString("ssh.server")
	s.Login = v.GetString("ssh.login")
	s.Hostname = v.GetString("ssh.hostname")
	s.SessionID = v.GetString("ssh.sid")
}
