package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebasekit/ostag/pkg/config"
	"github.com/rebasekit/ostag/pkg/errdefs"
	"github.com/rebasekit/ostag/pkg/tags"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	set, err := cfg.CompileRules()
	require.NoError(t, err)
	assert.Equal(t, len(cfg.Repositories), set.Len())

	assert.Equal(t, tags.DefaultMaxResults, cfg.Settings.MaxTagsDisplay)
	assert.Contains(t, cfg.Repositories, "ublue-os/bazzite")

	amyos := cfg.Repositories["astrovm/amyos"]
	assert.Equal(t, "transform_dates_only", amyos.LatestDotHandling)
	require.Len(t, amyos.TransformPatterns, 1)
	assert.Equal(t, `^latest\.(\d{8})$`, amyos.TransformPatterns[0].Pattern)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), config.DefaultFileName))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfigFile(t, `
[settings]
max_tags_display = 10
debug_mode = true

[repositories."someone/custom"]
ignore_tags = ["nightly"]
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Settings.MaxTagsDisplay)
	assert.True(t, cfg.Settings.DebugMode)

	// Built-in repositories survive alongside the new section.
	assert.Contains(t, cfg.Repositories, "ublue-os/bazzite")

	custom, ok := cfg.Repositories["someone/custom"]
	require.True(t, ok)
	assert.Equal(t, []string{"nightly"}, custom.IgnoreTags)
	// Omitted filter_patterns fall back to the standard list.
	assert.Equal(t, config.StandardFilterPatterns(), custom.FilterPatterns)
}

func TestLoadExplicitEmptyListsStay(t *testing.T) {
	path := writeConfigFile(t, `
[repositories."someone/custom"]
filter_patterns = []
ignore_tags = []
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	custom := cfg.Repositories["someone/custom"]
	assert.Empty(t, custom.FilterPatterns)
	assert.NotNil(t, custom.FilterPatterns)
	assert.Empty(t, custom.IgnoreTags)
}

func TestLoadInvalidFile(t *testing.T) {
	testcases := []struct {
		name    string
		content string
	}{
		{
			name:    "invalid toml",
			content: `settings = [unclosed`,
		},
		{
			name: "max tags not positive",
			content: `
[settings]
max_tags_display = 0
`,
		},
		{
			name: "max tags too large",
			content: `
[settings]
max_tags_display = 5000
`,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Load(writeConfigFile(t, tc.content))
			assert.ErrorIs(t, err, errdefs.ErrConfiguration)
		})
	}
}

func TestCompileRulesBadPattern(t *testing.T) {
	cfg := config.Default()
	cfg.Repositories["broken/repo"] = tags.RuleSpec{FilterPatterns: []string{`^(unclosed$`}}

	_, err := cfg.CompileRules()
	assert.ErrorIs(t, err, errdefs.ErrConfiguration)
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", config.DefaultFileName)
	require.NoError(t, config.Write(afero.NewOsFs(), path, config.Default()))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}
