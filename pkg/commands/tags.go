package commands

import (
	"context"
	"net/http"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/rebasekit/ostag/pkg/cmdhelper"
	"github.com/rebasekit/ostag/pkg/discover"
	"github.com/rebasekit/ostag/pkg/registry"
)

// NewTagsCommand returns a command with default values.
func NewTagsCommand(common *CommonOptions) *TagsCommand {
	return &TagsCommand{
		CommonOptions: common,
		clients:       defaultClientFactory,
	}
}

// TagsCommand lists the filtered, version-ordered tags of a repository.
type TagsCommand struct {
	*CommonOptions
	Limit int64

	clients discover.ClientFactory
}

// ToCLI transforms to a *cli.Command.
func (c *TagsCommand) ToCLI() *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "List available tags for an image reference",
		UsageText: `ostag tags [OPTIONS] IMAGE

# List the newest tags of a repository
$ ostag tags ghcr.io/ublue-os/bazzite

# Restrict the list to the testing channel
$ ostag tags ghcr.io/ublue-os/bazzite:testing

# Rebase URLs work as-is
$ ostag tags ostree-image-signed:docker://ghcr.io/astrovm/amyos:latest
`,
		ArgsUsage: "IMAGE",
		Flags:     c.Flags(),
		Before:    cli.BeforeFunc(cmdhelper.ExactArgs(1)),
		Action:    c.Run,
	}
}

// Flags defines the flags related to the current command.
func (c *TagsCommand) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "maximum number of tags to print, 0 uses the configured default",
			Destination: &c.Limit,
			Value:       c.Limit,
		},
	}
}

// Run is the main function for the current command.
func (c *TagsCommand) Run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}
	rules, err := cfg.CompileRules()
	if err != nil {
		return err
	}
	service := discover.NewService(c.clients, rules, cfg.Settings.MaxTagsDisplay)
	found, err := service.GetFilteredTags(ctx, cmd.Args().First(), int(c.Limit))
	if err != nil {
		return err
	}
	for _, tag := range found {
		cmdhelper.Fprintf(cmd.Writer, tag)
	}
	return nil
}

func defaultClientFactory(host string) discover.TagLister {
	cache := registry.NewFileTokenCache(afero.NewOsFs(), host)
	source := registry.NewTokenSource(http.DefaultClient, cache, registry.WithAuthHost(host))
	return registry.NewClient(source, registry.Options{Host: host})
}
