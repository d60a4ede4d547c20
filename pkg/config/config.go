// Package config loads and writes the TOML configuration file, providing the
// built-in repository rules when no file exists.
package config

import (
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/afero"

	"github.com/rebasekit/ostag/pkg/errdefs"
	"github.com/rebasekit/ostag/pkg/tags"
)

const (
	// DefaultFileName is the configuration file name under the user config
	// directory.
	DefaultFileName = "ostag.toml"

	// MaxTagsDisplayLimit is the upper bound accepted for
	// settings.max_tags_display.
	MaxTagsDisplayLimit = 1000
)

// Settings holds the global knobs.
type Settings struct {
	MaxTagsDisplay int  `koanf:"max_tags_display"`
	DebugMode      bool `koanf:"debug_mode"`
}

// ContainerURLs lists the rebase targets offered by the CLI.
type ContainerURLs struct {
	Default string   `koanf:"default"`
	Options []string `koanf:"options"`
}

// Config is the root of the configuration file.
type Config struct {
	Settings      Settings                 `koanf:"settings"`
	Repositories  map[string]tags.RuleSpec `koanf:"repositories"`
	ContainerURLs ContainerURLs            `koanf:"container_urls"`
}

// StandardFilterPatterns returns the exclusion patterns shared by the
// regular uBlue style repositories.
func StandardFilterPatterns() []string {
	return []string{
		`^sha256-.*\.sig$`,
		`^sha256-.*`,
		`^sha256:.*`,
		`^[0-9a-fA-F]{40,64}$`,
		`^<.*>$`,
		`^(latest|testing|stable|unstable)$`,
		`^testing\..*`,
		`^stable\..*`,
		`^unstable\..*`,
		`^\d{1,2}$`,
		`^(latest|testing|stable|unstable)-\d{1,2}$`,
		`^\d{1,2}-(testing|stable|unstable)$`,
	}
}

// StandardIgnoreTags returns the exact-match ignore list shared by the
// regular repositories.
func StandardIgnoreTags() []string {
	return []string{"latest", "testing", "stable", "unstable"}
}

func standardRuleSpec() tags.RuleSpec {
	return tags.RuleSpec{
		FilterPatterns: StandardFilterPatterns(),
		IgnoreTags:     StandardIgnoreTags(),
	}
}

// amyosRuleSpec keeps "latest" usable: latest.YYYYMMDD aliases are rewritten
// to bare dates and the latest context selects those.
func amyosRuleSpec() tags.RuleSpec {
	return tags.RuleSpec{
		FilterPatterns: []string{
			`^sha256-.*\.sig$`,
			`^<.*>$`,
			`^(testing|stable|unstable)$`,
			`^testing\..*`,
			`^stable\..*`,
			`^unstable\..*`,
			`^\d{1,2}$`,
			`^(latest|testing|stable|unstable)-\d{1,2}$`,
			`^\d{1,2}-(testing|stable|unstable)$`,
		},
		IgnoreTags: []string{"testing", "stable", "unstable"},
		TransformPatterns: []tags.TransformSpec{
			{Pattern: `^latest\.(\d{8})$`, Replacement: `$1`},
		},
		LatestDotHandling: "transform_dates_only",
	}
}

// Default returns the built-in configuration.
func Default() Config {
	repositories := map[string]tags.RuleSpec{
		"wombatfromhell/bazzite-nix":             standardRuleSpec(),
		"wombatfromhell/bazzite-nix-cachyos":     standardRuleSpec(),
		"wombatfromhell/bazzite-nvidia-open-nix": standardRuleSpec(),
		"ublue-os/bazzite":                       standardRuleSpec(),
		"ublue-os/bazzite-nvidia-open":           standardRuleSpec(),
		"astrovm/amyos":                          amyosRuleSpec(),
	}
	return Config{
		Settings: Settings{
			MaxTagsDisplay: tags.DefaultMaxResults,
		},
		Repositories: repositories,
		ContainerURLs: ContainerURLs{
			Default: "ghcr.io/wombatfromhell/bazzite-nix:testing",
			Options: []string{
				"ghcr.io/wombatfromhell/bazzite-nix:testing",
				"ghcr.io/wombatfromhell/bazzite-nix:stable",
				"ghcr.io/wombatfromhell/bazzite-nix-cachyos:testing",
				"ghcr.io/wombatfromhell/bazzite-nvidia-open-nix:stable",
				"ghcr.io/ublue-os/bazzite:testing",
				"ghcr.io/ublue-os/bazzite:stable",
				"ghcr.io/ublue-os/bazzite-nvidia-open:stable",
				"ghcr.io/astrovm/amyos:latest",
			},
		},
	}
}

// Path returns the configuration file location, honoring XDG_CONFIG_HOME.
func Path() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, DefaultFileName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultFileName
	}
	return filepath.Join(home, ".config", DefaultFileName)
}

// Load reads the configuration file at path, layered over the built-in
// defaults. A missing file yields the defaults. Repository sections that omit
// filter_patterns or ignore_tags fall back to the standard lists.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, errdefs.Newf(errdefs.ErrConfiguration, "stat %s: %v", path, err)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return Config{}, errdefs.Newf(errdefs.ErrConfiguration, "load %s: %v", path, err)
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, errdefs.Newf(errdefs.ErrConfiguration, "parse %s: %v", path, err)
	}
	for name, spec := range cfg.Repositories {
		if spec.FilterPatterns == nil {
			spec.FilterPatterns = StandardFilterPatterns()
		}
		if spec.IgnoreTags == nil {
			spec.IgnoreTags = StandardIgnoreTags()
		}
		cfg.Repositories[name] = spec
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings bounds.
func (c Config) Validate() error {
	if c.Settings.MaxTagsDisplay <= 0 {
		return errdefs.Newf(errdefs.ErrConfiguration,
			"max_tags_display must be positive, got %d", c.Settings.MaxTagsDisplay)
	}
	if c.Settings.MaxTagsDisplay > MaxTagsDisplayLimit {
		return errdefs.Newf(errdefs.ErrConfiguration,
			"max_tags_display too large (max %d), got %d", MaxTagsDisplayLimit, c.Settings.MaxTagsDisplay)
	}
	return nil
}

// CompileRules compiles every repository section into the lookup table used
// by the discovery service. Invalid patterns fail here, before any network
// activity.
func (c Config) CompileRules() (*tags.RuleSet, error) {
	set := tags.NewRuleSet()
	for name, spec := range c.Repositories {
		rules, err := tags.CompileRules(name, spec)
		if err != nil {
			return nil, err
		}
		set.Put(rules)
	}
	return set, nil
}

// Write serializes the configuration as TOML at path, creating parent
// directories as needed.
func Write(fsys afero.Fs, path string, cfg Config) error {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(cfg, "koanf"), nil); err != nil {
		return errdefs.Newf(errdefs.ErrConfiguration, "collect configuration: %v", err)
	}
	data, err := k.Marshal(toml.Parser())
	if err != nil {
		return errdefs.Newf(errdefs.ErrConfiguration, "serialize configuration: %v", err)
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(fsys, path, data, 0o644)
}
