package commands

import (
	"context"
	"os"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/rebasekit/ostag/pkg/cmdhelper"
	"github.com/rebasekit/ostag/pkg/config"
	"github.com/rebasekit/ostag/pkg/errdefs"
)

// NewConfigCommand returns a command with default values.
func NewConfigCommand(common *CommonOptions) *ConfigCommand {
	return &ConfigCommand{CommonOptions: common}
}

// ConfigCommand manages the configuration file.
type ConfigCommand struct {
	*CommonOptions
}

// ToCLI transforms to a *cli.Command.
func (c *ConfigCommand) ToCLI() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage the configuration file",
		Commands: []*cli.Command{
			NewConfigInitCommand(c.CommonOptions).ToCLI(),
			NewConfigPathCommand(c.CommonOptions).ToCLI(),
		},
	}
}

// NewConfigInitCommand returns a command with default values.
func NewConfigInitCommand(common *CommonOptions) *ConfigInitCommand {
	return &ConfigInitCommand{CommonOptions: common}
}

// ConfigInitCommand writes the built-in defaults to the configuration file.
type ConfigInitCommand struct {
	*CommonOptions
	Force bool
}

// ToCLI transforms to a *cli.Command.
func (c *ConfigInitCommand) ToCLI() *cli.Command {
	return &cli.Command{
		Name:   "init",
		Usage:  "Write the default configuration file",
		Flags:  c.Flags(),
		Before: cli.BeforeFunc(cmdhelper.NoArgs()),
		Action: c.Run,
	}
}

// Flags defines the flags related to the current command.
func (c *ConfigInitCommand) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "force",
			Aliases:     []string{"f"},
			Usage:       "overwrite an existing configuration file",
			Destination: &c.Force,
		},
	}
}

// Run is the main function for the current command.
func (c *ConfigInitCommand) Run(_ context.Context, cmd *cli.Command) error {
	path := c.Path()
	if _, err := os.Stat(path); err == nil && !c.Force {
		return errdefs.Newf(errdefs.ErrInvalidParameter,
			"%s already exists, use --force to overwrite", path)
	}
	if err := config.Write(afero.NewOsFs(), path, config.Default()); err != nil {
		return err
	}
	cmdhelper.Fprintf(cmd.Writer, "Wrote default configuration to %s", path)
	return nil
}

// NewConfigPathCommand returns a command with default values.
func NewConfigPathCommand(common *CommonOptions) *ConfigPathCommand {
	return &ConfigPathCommand{CommonOptions: common}
}

// ConfigPathCommand prints the resolved configuration file location.
type ConfigPathCommand struct {
	*CommonOptions
}

// ToCLI transforms to a *cli.Command.
func (c *ConfigPathCommand) ToCLI() *cli.Command {
	return &cli.Command{
		Name:   "path",
		Usage:  "Print the configuration file location",
		Before: cli.BeforeFunc(cmdhelper.NoArgs()),
		Action: c.Run,
	}
}

// Run is the main function for the current command.
func (c *ConfigPathCommand) Run(_ context.Context, cmd *cli.Command) error {
	cmdhelper.Fprintf(cmd.Writer, c.Path())
	return nil
}
