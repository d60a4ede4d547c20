package tags

// Context is the semantic channel encoded as a tag prefix, parsed from the
// trailing ":context" segment of an image reference.
type Context string

const (
	// ContextNone means no channel was requested. Both prefixed and
	// unprefixed tags are kept.
	ContextNone Context = ""
	// ContextTesting selects tags prefixed with "testing-".
	ContextTesting Context = "testing"
	// ContextStable selects tags prefixed with "stable-".
	ContextStable Context = "stable"
	// ContextUnstable selects tags prefixed with "unstable-".
	ContextUnstable Context = "unstable"
	// ContextLatest selects the "latest" channel. Repositories that publish
	// "latest.YYYYMMDD" aliases resolve it through the transformed bare date
	// form, see LatestDotTransformDatesOnly.
	ContextLatest Context = "latest"
)

// ParseContext reports whether s names a known context and returns it.
func ParseContext(s string) (Context, bool) {
	switch Context(s) {
	case ContextTesting, ContextStable, ContextUnstable, ContextLatest:
		return Context(s), true
	}
	return ContextNone, false
}

// Prefix returns the literal tag prefix selecting this context, e.g.
// "testing-". The none context has no prefix.
func (c Context) Prefix() string {
	if c == ContextNone {
		return ""
	}
	return string(c) + "-"
}

// String implements fmt.Stringer.
func (c Context) String() string {
	if c == ContextNone {
		return "none"
	}
	return string(c)
}
