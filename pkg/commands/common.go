// Package commands implements the ostag CLI commands.
package commands

import (
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/rebasekit/ostag/pkg/config"
	"github.com/rebasekit/ostag/pkg/xlog"
)

// NewCommonOptions returns a *CommonOptions with default values.
func NewCommonOptions() *CommonOptions {
	return &CommonOptions{}
}

// CommonOptions are options shared by all commands.
type CommonOptions struct {
	ConfigPath string
	Debug      bool
}

// Flags returns the []cli.Flag related to current options.
func (o *CommonOptions) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Sources:     cli.EnvVars("OSTAG_CONFIG"),
			Usage:       "path to the configuration file",
			Destination: &o.ConfigPath,
			Persistent:  true,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Aliases:     []string{"d"},
			Sources:     cli.EnvVars("OSTAG_DEBUG"),
			Usage:       "enable debug logging",
			Destination: &o.Debug,
			Persistent:  true,
		},
	}
}

// Path returns the configuration file location, preferring the flag value.
func (o *CommonOptions) Path() string {
	if o.ConfigPath != "" {
		return o.ConfigPath
	}
	return config.Path()
}

// LoadConfig loads the configuration file and applies the debug setting to
// the default logger.
func (o *CommonOptions) LoadConfig() (config.Config, error) {
	cfg, err := config.Load(o.Path())
	if err != nil {
		return config.Config{}, err
	}
	if o.Debug || cfg.Settings.DebugMode {
		xlog.SetLevel(slog.LevelDebug)
	}
	return cfg, nil
}
