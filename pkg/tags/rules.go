// Package tags implements the semantic half of tag discovery: repository
// specific exclusion, transformation, context selection, version based
// deduplication and ordering of raw registry tags.
package tags

import (
	"regexp"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/rebasekit/ostag/pkg/errdefs"
)

// LatestDotMode controls how the "latest" context resolves tags.
type LatestDotMode int

const (
	// LatestDotNone keeps the generic behavior: the "latest" context selects
	// tags with the literal "latest-" prefix.
	LatestDotNone LatestDotMode = iota
	// LatestDotTransformDatesOnly makes the "latest" context select bare
	// date tags (YYYYMMDD[.SUBVER]), i.e. the transformed form of
	// "latest.YYYYMMDD" aliases.
	LatestDotTransformDatesOnly
)

// ParseLatestDotMode parses the configuration string form of LatestDotMode.
func ParseLatestDotMode(s string) (LatestDotMode, error) {
	switch s {
	case "":
		return LatestDotNone, nil
	case "transform_dates_only":
		return LatestDotTransformDatesOnly, nil
	}
	return LatestDotNone, errdefs.Newf(errdefs.ErrConfiguration,
		"latest_dot_handling must be empty or %q, got %q", "transform_dates_only", s)
}

// TransformSpec is one rewrite rule in configuration form. Replacement uses
// Go regexp expansion syntax ($1, ${name}).
type TransformSpec struct {
	Pattern     string `koanf:"pattern" toml:"pattern"`
	Replacement string `koanf:"replacement" toml:"replacement"`
}

// RuleSpec is the plain configuration form of repository rules, as read from
// the TOML configuration file.
type RuleSpec struct {
	IncludeSHA256Tags bool            `koanf:"include_sha256_tags" toml:"include_sha256_tags"`
	FilterPatterns    []string        `koanf:"filter_patterns" toml:"filter_patterns"`
	IgnoreTags        []string        `koanf:"ignore_tags" toml:"ignore_tags"`
	TransformPatterns []TransformSpec `koanf:"transform_patterns" toml:"transform_patterns"`
	LatestDotHandling string          `koanf:"latest_dot_handling" toml:"latest_dot_handling"`
}

type transformRule struct {
	re          *regexp.Regexp
	replacement string
}

// Rules holds the resolved, compiled filter rules for one repository.
// Compilation happens once at configuration-resolution time so that an
// invalid pattern surfaces before any network activity. Immutable after
// CompileRules returns.
type Rules struct {
	name          string
	includeSHA256 bool
	filters       []*regexp.Regexp
	ignore        map[string]struct{}
	transforms    []transformRule
	latestDot     LatestDotMode
}

// CompileRules validates and compiles a RuleSpec for the named repository.
// Any invalid regexp fails with ErrConfiguration.
func CompileRules(name string, spec RuleSpec) (*Rules, error) {
	r := &Rules{
		name:          name,
		includeSHA256: spec.IncludeSHA256Tags,
		ignore:        make(map[string]struct{}, len(spec.IgnoreTags)),
	}
	for _, pattern := range spec.FilterPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, errdefs.Newf(errdefs.ErrConfiguration,
				"repository %s: invalid filter pattern %q: %v", name, pattern, err)
		}
		r.filters = append(r.filters, re)
	}
	for _, tag := range spec.IgnoreTags {
		r.ignore[strings.ToLower(tag)] = struct{}{}
	}
	for _, t := range spec.TransformPatterns {
		if t.Pattern == "" {
			return nil, errdefs.Newf(errdefs.ErrConfiguration,
				"repository %s: transform rule is missing a pattern", name)
		}
		re, err := regexp.Compile(t.Pattern)
		if err != nil {
			return nil, errdefs.Newf(errdefs.ErrConfiguration,
				"repository %s: invalid transform pattern %q: %v", name, t.Pattern, err)
		}
		r.transforms = append(r.transforms, transformRule{re: re, replacement: t.Replacement})
	}
	mode, err := ParseLatestDotMode(spec.LatestDotHandling)
	if err != nil {
		return nil, errdefs.Newf(errdefs.ErrConfiguration, "repository %s: %v", name, err)
	}
	r.latestDot = mode
	return r, nil
}

// EmptyRules returns rules with no filters for repositories without an
// explicit configuration entry.
func EmptyRules(name string) *Rules {
	return &Rules{name: name, ignore: map[string]struct{}{}}
}

// Name returns the repository name the rules belong to.
func (r *Rules) Name() string { return r.name }

// LatestDotHandling returns the resolved latest-dot mode.
func (r *Rules) LatestDotHandling() LatestDotMode { return r.latestDot }

// RuleSet is the lookup table from repository name to its resolved rules.
// It is resolved once at startup and read-mostly afterwards.
type RuleSet struct {
	m *xsync.MapOf[string, *Rules]
}

// NewRuleSet returns an empty rule set.
func NewRuleSet() *RuleSet {
	return &RuleSet{m: xsync.NewMapOf[string, *Rules]()}
}

// Put registers the rules under their repository name.
func (s *RuleSet) Put(r *Rules) {
	s.m.Store(r.name, r)
}

// Get returns the rules for the repository, or empty rules when the
// repository has no configuration entry.
func (s *RuleSet) Get(repository string) *Rules {
	if r, ok := s.m.Load(repository); ok {
		return r
	}
	return EmptyRules(repository)
}

// Len returns the count of configured repositories.
func (s *RuleSet) Len() int {
	return s.m.Size()
}
