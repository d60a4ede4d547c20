package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cast"

	"github.com/rebasekit/ostag/pkg/errdefs"
	"github.com/rebasekit/ostag/pkg/util/xhttp"
	"github.com/rebasekit/ostag/pkg/util/xio"
	"github.com/rebasekit/ostag/pkg/xlog"
)

const (
	// DefaultHost is the registry host queried when none is configured.
	DefaultHost = "ghcr.io"
	// DefaultPageSize is the page size requested via the "n" query parameter.
	DefaultPageSize = 200
	// DefaultMaxPages bounds the pagination loop against cyclic or malformed
	// Link chains.
	DefaultMaxPages = 50
	// DefaultRequestTimeout bounds each individual round trip.
	DefaultRequestTimeout = 30 * time.Second
)

// errUnauthorized marks a 401/403 page response so the pagination loop can
// run the single refresh-and-retry cycle.
var errUnauthorized = errors.New("registry rejected the bearer token")

// Options configures a Client. The zero value picks sensible defaults.
type Options struct {
	// Host is the registry host, e.g. "ghcr.io".
	Host string
	// PageSize is the number of tags requested per page.
	PageSize int
	// MaxPages bounds the pagination loop.
	MaxPages int
	// RequestTimeout bounds each individual page or token request.
	RequestTimeout time.Duration
	// HTTPClient is the transport used for page fetches. Defaults to
	// http.DefaultClient.
	HTTPClient xhttp.Client
	// Clock is used for request timing. Defaults to the wall clock.
	Clock clock.Clock
}

func (o Options) withDefaults() Options {
	if o.Host == "" {
		o.Host = DefaultHost
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.HTTPClient == nil {
		o.HTTPClient = http.DefaultClient
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	return o
}

// Client lists tags from one registry host. Pagination is strictly
// sequential since each cursor depends on the prior response.
type Client struct {
	opts   Options
	tokens *TokenSource
}

// NewClient returns a Client drawing bearer tokens from the given source.
func NewClient(tokens *TokenSource, opts Options) *Client {
	return &Client{
		opts:   opts.withDefaults(),
		tokens: tokens,
	}
}

// Host returns the registry host the client talks to.
func (c *Client) Host() string {
	return c.opts.Host
}

// GetAllTags returns the raw tag names of the repository across all pages,
// in the order the registry returned them. Duplicates across pages are
// possible and left to the caller. A 401/403 on any page triggers exactly one
// token refresh and retry of that page; a second rejection fails with
// ErrAuth. More than MaxPages chained pages fail with ErrPaginationBound.
func (c *Client) GetAllTags(ctx context.Context, repository string) ([]string, error) {
	token, err := c.tokens.Token(ctx, repository)
	if err != nil {
		return nil, err
	}

	start := c.opts.Clock.Now()
	all := make([]string, 0, c.opts.PageSize)
	next, err := c.firstPageURL(repository)
	if err != nil {
		return nil, err
	}
	for pageNum := 1; next != nil; pageNum++ {
		if pageNum > c.opts.MaxPages {
			return nil, errdefs.Newf(errdefs.ErrPaginationBound,
				"%s: Link chain exceeds %d pages", repository, c.opts.MaxPages)
		}
		xlog.Debugf("fetching page %d for %s", pageNum, repository)
		pg, err := c.fetchPage(ctx, next, token)
		if errors.Is(err, errUnauthorized) {
			xlog.Debugf("token rejected on page %d for %s, refreshing", pageNum, repository)
			token, err = c.tokens.Refresh(ctx, repository)
			if err != nil {
				return nil, err
			}
			pg, err = c.fetchPage(ctx, next, token)
			if errors.Is(err, errUnauthorized) {
				return nil, errdefs.Newf(errdefs.ErrAuth,
					"%s: registry rejected the refreshed token", repository)
			}
		}
		if err != nil {
			return nil, err
		}
		all = append(all, pg.tags...)
		next = pg.next
	}
	xlog.Debugf("fetched %d tags for %s in %s", len(all), repository, c.opts.Clock.Since(start))
	return all, nil
}

func (c *Client) firstPageURL(repository string) (*url.URL, error) {
	host, scheme, err := xhttp.ParseHostScheme(c.opts.Host)
	if err != nil {
		return nil, errdefs.Newf(errdefs.ErrConfiguration, "invalid registry host %q: %v", c.opts.Host, err)
	}
	if scheme == "" {
		scheme = "https"
	}
	u := &url.URL{Scheme: scheme, Host: host, Path: "/v2/" + repository + "/tags/list"}
	query := u.Query()
	query.Set("n", cast.ToString(c.opts.PageSize))
	u.RawQuery = query.Encode()
	return u, nil
}

type tagsResponse struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

type page struct {
	tags []string
	next *url.URL
}

// fetchPage performs exactly one request, reading both the tag list body and
// the pagination cursor from the same response.
func (c *Client) fetchPage(ctx context.Context, u *url.URL, token string) (page, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return page{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return page{}, xhttp.MakeRequestError(req, err)
	}
	defer xio.CloseAndLogError(resp.Body, "close tag list response body")

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return page{}, errUnauthorized
	}
	if err := xhttp.Success(resp); err != nil {
		return page{}, err
	}

	var payload tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return page{}, errdefs.Newf(errdefs.ErrMalformedResponse,
			"decode tag list from %s: %v", u.Redacted(), err)
	}
	next, err := nextPageURL(u, resp.Header.Get("Link"))
	if err != nil {
		return page{}, err
	}
	return page{tags: payload.Tags, next: next}, nil
}

var linkRelNextRE = regexp.MustCompile(`;\s*rel\s*=\s*"?next"?`)

// nextPageURL extracts the rel="next" target from the Link response header.
// Relative targets are resolved against the request URL. No Link header, or
// one without a rel="next" element, means the last page was reached.
func nextPageURL(base *url.URL, link string) (*url.URL, error) {
	if link == "" {
		return nil, nil
	}
	for _, element := range strings.Split(link, ",") {
		element = strings.TrimSpace(element)
		if !strings.HasPrefix(element, "<") {
			return nil, errdefs.Newf(errdefs.ErrMalformedResponse, "invalid Link header %q", link)
		}
		end := strings.IndexByte(element, '>')
		if end < 0 {
			return nil, errdefs.Newf(errdefs.ErrMalformedResponse, "invalid Link header %q", link)
		}
		if !linkRelNextRE.MatchString(element[end+1:]) {
			continue
		}
		target, err := url.Parse(strings.TrimSpace(element[1:end]))
		if err != nil {
			return nil, errdefs.Newf(errdefs.ErrMalformedResponse,
				"invalid Link target in %q: %v", link, err)
		}
		return base.ResolveReference(target), nil
	}
	return nil, nil
}
