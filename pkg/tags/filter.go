package tags

import (
	"regexp"
	"strings"

	"github.com/rebasekit/ostag/pkg/xlog"
)

var (
	// Bare channel aliases are floating pointers, not versions, and never
	// survive filtering.
	bareAliases = map[string]struct{}{
		"latest":   {},
		"testing":  {},
		"stable":   {},
		"unstable": {},
	}

	// sha256 content tags come in three shapes: "sha256-<hex>", "sha256:<hex>"
	// and a bare 40 to 64 character hex string.
	bareHexRE = regexp.MustCompile(`^[0-9a-f]{40,64}$`)

	// bareDateRE matches the transformed date form selected by the "latest"
	// context under LatestDotTransformDatesOnly.
	bareDateRE = regexp.MustCompile(`^\d{8}(?:\.\d+)?$`)
)

// Apply runs the full pipeline over raw registry tags: exclusion, transforms,
// context selection and version deduplication, in that order. Order of
// surviving tags follows first appearance in the input. The input slice is
// never mutated.
func (r *Rules) Apply(raw []string, ctx Context) []string {
	kept := make([]string, 0, len(raw))
	for _, tag := range raw {
		if r.excluded(tag) {
			continue
		}
		kept = append(kept, r.transform(tag))
	}
	kept = r.selectContext(kept, ctx)
	kept = dedupVersions(kept)
	xlog.Debugf("filtered %d raw tags down to %d for %s (context=%s)",
		len(raw), len(kept), r.name, ctx)
	return kept
}

// excluded reports whether the tag is dropped before any transformation.
// All comparisons run on the lowercased tag.
func (r *Rules) excluded(tag string) bool {
	lower := strings.ToLower(tag)
	if _, ok := bareAliases[lower]; ok {
		return true
	}
	if strings.HasSuffix(lower, ".sig") {
		return true
	}
	// "latest.<suffix>" aliases are only meaningful when a transform can
	// rewrite them into a bare date.
	if suffix, ok := strings.CutPrefix(lower, "latest."); ok {
		if !isDateSuffix(suffix) || len(r.transforms) == 0 {
			return true
		}
	}
	if !r.includeSHA256 && isSHA256Tag(lower) {
		return true
	}
	for _, re := range r.filters {
		if re.MatchString(lower) {
			return true
		}
	}
	_, ignored := r.ignore[lower]
	return ignored
}

// transform applies the first matching rewrite rule. Rules after the first
// match are not consulted.
func (r *Rules) transform(tag string) string {
	for _, t := range r.transforms {
		if t.re.MatchString(tag) {
			return t.re.ReplaceAllString(tag, t.replacement)
		}
	}
	return tag
}

// selectContext keeps only tags belonging to the requested channel.
func (r *Rules) selectContext(in []string, ctx Context) []string {
	if ctx == ContextNone {
		return in
	}
	keep := func(tag string) bool {
		return strings.HasPrefix(tag, ctx.Prefix())
	}
	if ctx == ContextLatest && r.latestDot == LatestDotTransformDatesOnly {
		keep = bareDateRE.MatchString
	}
	out := in[:0:0]
	for _, tag := range in {
		if keep(tag) {
			out = append(out, tag)
		}
	}
	return out
}

func isDateSuffix(s string) bool {
	if len(s) < 8 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isSHA256Tag(lower string) bool {
	return strings.HasPrefix(lower, "sha256-") ||
		strings.HasPrefix(lower, "sha256:") ||
		bareHexRE.MatchString(lower)
}

// dedupVersions collapses tags naming the same build. Two tags collide when
// they parse to the same (series, date, subversion) triple; a channel-prefixed
// tag replaces its unprefixed twin in place, so the slot keeps its original
// position. Unversioned tags only collide on exact string equality, which
// covers repeats across registry pages.
func dedupVersions(in []string) []string {
	type slot struct {
		index    int
		prefixed bool
	}
	out := make([]string, 0, len(in))
	seen := make(map[versionID]slot, len(in))
	seenRaw := make(map[string]struct{}, len(in))
	for _, tag := range in {
		key, ok := parseVersion(tag)
		if !ok {
			if _, dup := seenRaw[tag]; !dup {
				seenRaw[tag] = struct{}{}
				out = append(out, tag)
			}
			continue
		}
		prev, dup := seen[key.id]
		if !dup {
			seen[key.id] = slot{index: len(out), prefixed: key.prefixed}
			out = append(out, tag)
			continue
		}
		if key.prefixed && !prev.prefixed {
			out[prev.index] = tag
			seen[key.id] = slot{index: prev.index, prefixed: true}
		}
	}
	return out
}
