// Package main is the entry of the application.
package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/rebasekit/ostag/pkg/cmdhelper"
	"github.com/rebasekit/ostag/pkg/commands"
)

const (
	appName = "ostag"
)

func main() {
	common := commands.NewCommonOptions()
	app := cli.Command{
		Name:                  appName,
		Usage:                 "Ostag discovers rebase targets by listing container registry tags",
		Suggest:               true,
		EnableShellCompletion: true,
		HideVersion:           true,
		Flags:                 common.Flags(),
		Commands: []*cli.Command{
			commands.NewTagsCommand(common).ToCLI(),
			commands.NewConfigCommand(common).ToCLI(),
			commands.NewVersionCommand().ToCLI(),
		},
		ExitErrHandler: func(ctx context.Context, c *cli.Command, err error) {
			cli.HandleExitCoder(err)
			cmdhelper.Fprintf(c.ErrWriter, "Error: %+v\n", err)
			os.Exit(1)
		},
	}
	//nolint:errcheck // already checked in root command ExitErrHandler
	_ = app.Run(context.Background(), os.Args)
}
