// Package imageref parses container image references as they appear in
// rebase URLs, including the ostree transport prefixes and an optional
// trailing channel context.
package imageref

import (
	"strings"

	"github.com/distribution/reference"

	"github.com/rebasekit/ostag/pkg/errdefs"
	"github.com/rebasekit/ostag/pkg/tags"
)

// DefaultRegistry is assumed when the reference carries no registry host.
const DefaultRegistry = "ghcr.io"

// ostree transport prefixes accepted in rebase URLs, longest first.
var transportPrefixes = []string{
	"ostree-image-signed:docker://",
	"ostree-image-unsigned:docker://",
	"docker://",
}

// Reference is a parsed rebase URL. Tag holds the raw trailing tag segment;
// Context is set only when that segment names a known channel.
type Reference struct {
	Registry   string
	Repository string
	Tag        string
	Context    tags.Context
}

// Name returns "registry/repository" without tag or transport.
func (r Reference) Name() string {
	return r.Registry + "/" + r.Repository
}

// String rebuilds the reference including the tag when present.
func (r Reference) String() string {
	if r.Tag == "" {
		return r.Name()
	}
	return r.Name() + ":" + r.Tag
}

// Parse parses a rebase URL or plain image reference. Transport prefixes are
// stripped, a missing registry host defaults to DefaultRegistry, and a
// trailing ":testing"/":stable"/":unstable"/":latest" segment is recognized
// as the channel context.
func Parse(raw string) (Reference, error) {
	if raw == "" {
		return Reference{}, errdefs.Newf(errdefs.ErrInvalidParameter, "image reference is empty")
	}
	rest := raw
	for _, prefix := range transportPrefixes {
		if s, ok := strings.CutPrefix(rest, prefix); ok {
			rest = s
			break
		}
	}

	var tag string
	if i := strings.LastIndex(rest, ":"); i > strings.LastIndex(rest, "/") {
		tag = rest[i+1:]
		rest = rest[:i]
	}

	// A first path segment without a dot is a repository namespace, not a
	// registry host.
	if first, _, _ := strings.Cut(rest, "/"); !strings.Contains(first, ".") {
		rest = DefaultRegistry + "/" + rest
	}

	named, err := reference.ParseNamed(rest)
	if err != nil {
		return Reference{}, errdefs.Newf(errdefs.ErrInvalidParameter,
			"invalid image reference %q: %v", raw, err)
	}

	ref := Reference{
		Registry:   reference.Domain(named),
		Repository: reference.Path(named),
		Tag:        tag,
	}
	if ctx, ok := tags.ParseContext(tag); ok {
		ref.Context = ctx
	}
	return ref, nil
}
