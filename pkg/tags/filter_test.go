package tags_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebasekit/ostag/pkg/errdefs"
	"github.com/rebasekit/ostag/pkg/tags"
)

func mustCompile(t *testing.T, name string, spec tags.RuleSpec) *tags.Rules {
	t.Helper()
	r, err := tags.CompileRules(name, spec)
	require.NoError(t, err)
	return r
}

func TestCompileRules(t *testing.T) {
	testcases := []struct {
		name    string
		spec    tags.RuleSpec
		wantErr error
	}{
		{
			name: "valid",
			spec: tags.RuleSpec{
				FilterPatterns:    []string{`^\d{1,2}$`},
				TransformPatterns: []tags.TransformSpec{{Pattern: `^latest\.(\d{8})$`, Replacement: "$1"}},
				LatestDotHandling: "transform_dates_only",
			},
		},
		{
			name:    "invalid filter pattern",
			spec:    tags.RuleSpec{FilterPatterns: []string{`^(unclosed$`}},
			wantErr: errdefs.ErrConfiguration,
		},
		{
			name:    "invalid transform pattern",
			spec:    tags.RuleSpec{TransformPatterns: []tags.TransformSpec{{Pattern: `[`, Replacement: "x"}}},
			wantErr: errdefs.ErrConfiguration,
		},
		{
			name:    "transform without pattern",
			spec:    tags.RuleSpec{TransformPatterns: []tags.TransformSpec{{Replacement: "x"}}},
			wantErr: errdefs.ErrConfiguration,
		},
		{
			name:    "unknown latest dot handling",
			spec:    tags.RuleSpec{LatestDotHandling: "always"},
			wantErr: errdefs.ErrConfiguration,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tags.CompileRules("example/repo", tc.spec)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRulesApplyExclusion(t *testing.T) {
	rules := mustCompile(t, "example/repo", tags.RuleSpec{
		FilterPatterns: []string{`^\d{1,2}$`},
		IgnoreTags:     []string{"Nightly"},
	})

	testcases := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "bare aliases dropped",
			in:   []string{"latest", "Testing", "stable", "unstable", "41.20250101"},
			want: []string{"41.20250101"},
		},
		{
			name: "signature tags dropped",
			in:   []string{"sha256-abc.sig", "41.20250101.sig", "41.20250101"},
			want: []string{"41.20250101"},
		},
		{
			name: "sha256 forms dropped",
			in: []string{
				"sha256-0a1b2c",
				"sha256:0a1b2c",
				"0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
				"41.20250101",
			},
			want: []string{"41.20250101"},
		},
		{
			name: "filter patterns match lowercased tag",
			in:   []string{"41", "7", "41.20250101"},
			want: []string{"41.20250101"},
		},
		{
			name: "ignore list is case insensitive",
			in:   []string{"nightly", "NIGHTLY", "41.20250101"},
			want: []string{"41.20250101"},
		},
		{
			name: "latest dot without transform dropped",
			in:   []string{"latest.20250101", "latest.rc1", "latest.", "41.20250101"},
			want: []string{"41.20250101"},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, rules.Apply(tc.in, tags.ContextNone))
		})
	}
}

func TestRulesApplyIncludeSHA256(t *testing.T) {
	rules := mustCompile(t, "example/repo", tags.RuleSpec{IncludeSHA256Tags: true})
	got := rules.Apply([]string{"sha256-0a1b2c", "41.20250101"}, tags.ContextNone)
	assert.Equal(t, []string{"sha256-0a1b2c", "41.20250101"}, got)
}

func TestRulesApplyTransform(t *testing.T) {
	rules := mustCompile(t, "example/repo", tags.RuleSpec{
		TransformPatterns: []tags.TransformSpec{
			{Pattern: `^latest\.(\d{8})$`, Replacement: "$1"},
			{Pattern: `^(\d{8})$`, Replacement: "never-$1"},
		},
	})

	got := rules.Apply([]string{"latest.20250101", "41.20250103"}, tags.ContextNone)
	assert.Equal(t, []string{"20250101", "41.20250103"}, got)

	// First match wins: the second rule never sees the output of the first,
	// so re-applying the pipeline to its own output is stable apart from
	// rules that deliberately chain.
	again := rules.Apply(got, tags.ContextNone)
	assert.Equal(t, []string{"never-20250101", "41.20250103"}, again)

	idempotent := mustCompile(t, "example/repo", tags.RuleSpec{
		TransformPatterns: []tags.TransformSpec{
			{Pattern: `^latest\.(\d{8})$`, Replacement: "$1"},
		},
	})
	once := idempotent.Apply([]string{"latest.20250101", "41.20250103"}, tags.ContextNone)
	twice := idempotent.Apply(once, tags.ContextNone)
	assert.Equal(t, once, twice)
}

func TestRulesApplyContext(t *testing.T) {
	rules := mustCompile(t, "example/repo", tags.RuleSpec{})
	in := []string{
		"testing-41.20250101", "stable-41.20250105", "unstable-41.20250102",
		"41.20250103", "20250104",
	}

	testcases := []struct {
		name string
		ctx  tags.Context
		want []string
	}{
		{
			name: "none keeps everything",
			ctx:  tags.ContextNone,
			want: in,
		},
		{
			name: "testing keeps only testing prefix",
			ctx:  tags.ContextTesting,
			want: []string{"testing-41.20250101"},
		},
		{
			name: "stable keeps only stable prefix",
			ctx:  tags.ContextStable,
			want: []string{"stable-41.20250105"},
		},
		{
			name: "unstable keeps only unstable prefix",
			ctx:  tags.ContextUnstable,
			want: []string{"unstable-41.20250102"},
		},
		{
			name: "latest without transform mode keeps latest prefix only",
			ctx:  tags.ContextLatest,
			want: []string{},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, rules.Apply(in, tc.ctx))
		})
	}
}

func TestRulesApplyLatestTransformDatesOnly(t *testing.T) {
	rules := mustCompile(t, "astrovm/amyos", tags.RuleSpec{
		TransformPatterns: []tags.TransformSpec{
			{Pattern: `^latest\.(\d{8})$`, Replacement: "$1"},
		},
		LatestDotHandling: "transform_dates_only",
	})

	in := []string{"latest.20250102", "testing-41.20250101", "20250101.2", "v2-beta"}
	got := rules.Apply(in, tags.ContextLatest)
	assert.Equal(t, []string{"20250102", "20250101.2"}, got)
}

func TestRulesApplyDedup(t *testing.T) {
	rules := mustCompile(t, "example/repo", tags.RuleSpec{})

	testcases := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "prefixed replaces unprefixed in place",
			in:   []string{"41.20250101.2", "testing-41.20250101.2", "41.20250102"},
			want: []string{"testing-41.20250101.2", "41.20250102"},
		},
		{
			name: "unprefixed duplicate of prefixed dropped",
			in:   []string{"testing-20250101", "20250101"},
			want: []string{"testing-20250101"},
		},
		{
			name: "first prefixed wins across channels",
			in:   []string{"testing-20250101", "stable-20250101"},
			want: []string{"testing-20250101"},
		},
		{
			name: "distinct subversions survive",
			in:   []string{"41.20250101", "41.20250101.1", "41.20250101.2"},
			want: []string{"41.20250101", "41.20250101.1", "41.20250101.2"},
		},
		{
			name: "series and date-only forms do not collide",
			in:   []string{"41.20250101", "20250101"},
			want: []string{"41.20250101", "20250101"},
		},
		{
			name: "exact repeats of unversioned tags collapse",
			in:   []string{"gts", "gts", "gts-nvidia"},
			want: []string{"gts", "gts-nvidia"},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, rules.Apply(tc.in, tags.ContextNone))
		})
	}
}

func TestDiscoveryPipeline(t *testing.T) {
	rules := mustCompile(t, "example/repo", tags.RuleSpec{
		FilterPatterns: []string{`^v\d+$`},
	})
	raw := []string{"v1", "testing-20250101", "20250101", "20250102.1", "latest", "sha256-abc123"}

	t.Run("no context", func(t *testing.T) {
		filtered := rules.Apply(raw, tags.ContextNone)
		got := tags.SortAndLimit(filtered, 0)
		assert.Equal(t, []string{"20250102.1", "testing-20250101"}, got)
	})

	t.Run("testing context", func(t *testing.T) {
		filtered := rules.Apply(raw, tags.ContextTesting)
		got := tags.SortAndLimit(filtered, 0)
		assert.Equal(t, []string{"testing-20250101"}, got)
	})
}
