package tags

import (
	"regexp"
	"sort"

	"github.com/spf13/cast"
)

// DefaultMaxResults bounds the tag list handed back to callers when no limit
// is configured.
const DefaultMaxResults = 30

var (
	// seriesVersionRE matches "41.20250101.2" style tags, with an optional
	// channel prefix.
	seriesVersionRE = regexp.MustCompile(`^(testing-|stable-|unstable-)?(\d{2})\.(\d{8})(?:\.(\d+))?$`)
	// dateVersionRE matches bare "20250101.2" style tags, with an optional
	// channel prefix.
	dateVersionRE = regexp.MustCompile(`^(testing-|stable-|unstable-)?(\d{8})(?:\.(\d+))?$`)
)

// versionID identifies one build independent of its channel prefix. Tags with
// equal versionID are duplicates of each other. series stays a string so the
// date-only form (empty series) never collides with an explicit series.
type versionID struct {
	series string
	date   string
	subver int
}

type versionKey struct {
	id       versionID
	prefixed bool
}

// parseVersion extracts the build identity from a tag. The second return is
// false for tags that do not follow either versioned naming scheme.
func parseVersion(tag string) (versionKey, bool) {
	if m := seriesVersionRE.FindStringSubmatch(tag); m != nil {
		return versionKey{
			id: versionID{
				series: m[2],
				date:   m[3],
				subver: cast.ToInt(m[4]),
			},
			prefixed: m[1] != "",
		}, true
	}
	if m := dateVersionRE.FindStringSubmatch(tag); m != nil {
		return versionKey{
			id: versionID{
				date:   m[2],
				subver: cast.ToInt(m[3]),
			},
			prefixed: m[1] != "",
		}, true
	}
	return versionKey{}, false
}

// SortAndLimit orders tags newest first and truncates to limit. Versioned
// tags sort by build date, then subversion, then channel-prefixed before
// plain, then series. Tags outside the versioning scheme sort after all
// versioned ones, in reverse lexical order. A non-positive limit falls back
// to DefaultMaxResults. The input slice is not mutated.
func SortAndLimit(in []string, limit int) []string {
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	type entry struct {
		tag string
		key versionKey
		ok  bool
	}
	entries := make([]entry, len(in))
	for i, tag := range in {
		key, ok := parseVersion(tag)
		entries[i] = entry{tag: tag, key: key, ok: ok}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.ok != b.ok {
			return a.ok
		}
		if !a.ok {
			return a.tag > b.tag
		}
		if a.key.id.date != b.key.id.date {
			return a.key.id.date > b.key.id.date
		}
		if a.key.id.subver != b.key.id.subver {
			return a.key.id.subver > b.key.id.subver
		}
		if a.key.prefixed != b.key.prefixed {
			return a.key.prefixed
		}
		return a.key.id.series > b.key.id.series
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.tag
	}
	return out
}
