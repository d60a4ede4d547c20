// Package discover wires the registry client and the per-repository tag
// rules into the single lookup operation consumed by the CLI layer.
package discover

import (
	"context"

	"github.com/rebasekit/ostag/pkg/imageref"
	"github.com/rebasekit/ostag/pkg/tags"
	"github.com/rebasekit/ostag/pkg/xlog"
)

// TagLister enumerates the raw tags of one repository.
type TagLister interface {
	GetAllTags(ctx context.Context, repository string) ([]string, error)
}

// ClientFactory returns the TagLister for a registry host.
type ClientFactory func(host string) TagLister

// Service resolves image references to their filtered, version-ordered tag
// lists.
type Service struct {
	clients    ClientFactory
	rules      *tags.RuleSet
	maxResults int
}

// NewService returns a Service. maxResults is the fallback result bound used
// when a call does not pass its own.
func NewService(clients ClientFactory, rules *tags.RuleSet, maxResults int) *Service {
	if maxResults <= 0 {
		maxResults = tags.DefaultMaxResults
	}
	return &Service{
		clients:    clients,
		rules:      rules,
		maxResults: maxResults,
	}
}

// GetFilteredTags fetches every tag of the referenced repository, applies the
// repository's rules with the context parsed from the reference, and returns
// the newest maxResults tags. Rule compilation already happened at startup,
// so a rule problem never surfaces here.
func (s *Service) GetFilteredTags(ctx context.Context, rawRef string, maxResults int) ([]string, error) {
	ref, err := imageref.Parse(rawRef)
	if err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		maxResults = s.maxResults
	}
	rules := s.rules.Get(ref.Repository)

	raw, err := s.clients(ref.Registry).GetAllTags(ctx, ref.Repository)
	if err != nil {
		return nil, err
	}
	filtered := rules.Apply(raw, ref.Context)
	result := tags.SortAndLimit(filtered, maxResults)
	xlog.Debugf("%s: %d raw tags, %d after filtering, returning %d",
		ref.Name(), len(raw), len(filtered), len(result))
	return result, nil
}
