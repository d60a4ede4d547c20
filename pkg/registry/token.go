// Package registry implements a read-only tag enumeration client for
// OCI-compatible registries, with bearer token acquisition and Link-header
// pagination.
package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/rebasekit/ostag/pkg/errdefs"
	"github.com/rebasekit/ostag/pkg/util/xcache"
	"github.com/rebasekit/ostag/pkg/util/xhttp"
	"github.com/rebasekit/ostag/pkg/util/xio"
	"github.com/rebasekit/ostag/pkg/xlog"
)

const (
	// DefaultAuthHost is the token exchange endpoint host.
	DefaultAuthHost = "ghcr.io"
)

// TokenCache persists one bearer token across process invocations. The cache
// is shared between concurrent runs, so implementations must make writes
// atomic; readers never lock.
type TokenCache interface {
	// Load returns the cached token, or empty when none is cached.
	Load(ctx context.Context) (string, error)
	// Store overwrites the cached token atomically.
	Store(ctx context.Context, token string) error
	// Invalidate removes the cached token. Removing an absent token is not
	// an error.
	Invalidate(ctx context.Context) error
}

// FileTokenCache stores the token as plain text in a single well-known file,
// one per registry host.
type FileTokenCache struct {
	fs   afero.Fs
	path string
}

// NewFileTokenCache returns a cache under the system temp directory keyed by
// registry host.
func NewFileTokenCache(fsys afero.Fs, host string) *FileTokenCache {
	return NewFileTokenCacheAt(fsys, filepath.Join(os.TempDir(), "ostag-token-"+host))
}

// NewFileTokenCacheAt returns a cache at an explicit path.
func NewFileTokenCacheAt(fsys afero.Fs, path string) *FileTokenCache {
	return &FileTokenCache{fs: fsys, path: path}
}

// Path returns the cache file location.
func (c *FileTokenCache) Path() string {
	return c.path
}

// Load implements TokenCache. A missing file means no token is cached.
func (c *FileTokenCache) Load(_ context.Context) (string, error) {
	content, err := afero.ReadFile(c.fs, c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(content)), nil
}

// Store implements TokenCache. The token is written to a temp file first and
// renamed into place, so a concurrent reader sees either the old or the new
// complete token, never a partial write.
func (c *FileTokenCache) Store(_ context.Context, token string) error {
	tmp, err := afero.TempFile(c.fs, filepath.Dir(c.path), filepath.Base(c.path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(token); err != nil {
		xio.CloseAndSkipError(tmp)
		_ = c.fs.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = c.fs.Remove(tmp.Name())
		return err
	}
	return c.fs.Rename(tmp.Name(), c.path)
}

// Invalidate implements TokenCache.
func (c *FileTokenCache) Invalidate(_ context.Context) error {
	if err := c.fs.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// TokenSource acquires and caches pull-scope bearer tokens. Token validity is
// established lazily: the source never checks expiry, callers refresh after
// the registry rejects a cached token.
type TokenSource struct {
	client   xhttp.Client
	cache    TokenCache
	authHost string
	service  string
	timeout  time.Duration
	mem      xcache.Cache[string]
}

// TokenSourceOption configures a TokenSource.
type TokenSourceOption func(*TokenSource)

// WithAuthHost overrides the token exchange host.
func WithAuthHost(host string) TokenSourceOption {
	return func(s *TokenSource) {
		s.authHost = host
	}
}

// WithService sets the "service" query parameter sent to the token endpoint.
func WithService(service string) TokenSourceOption {
	return func(s *TokenSource) {
		s.service = service
	}
}

// WithRequestTimeout overrides the per-exchange request timeout.
func WithRequestTimeout(timeout time.Duration) TokenSourceOption {
	return func(s *TokenSource) {
		s.timeout = timeout
	}
}

// NewTokenSource returns a TokenSource backed by the given HTTP client and
// persistent cache.
func NewTokenSource(client xhttp.Client, cache TokenCache, options ...TokenSourceOption) *TokenSource {
	s := &TokenSource{
		client:   client,
		cache:    cache,
		authHost: DefaultAuthHost,
		timeout:  DefaultRequestTimeout,
		mem:      xcache.NewMemory[string](),
	}
	for _, apply := range options {
		apply(s)
	}
	return s
}

// Token returns a token with pull scope on the repository, preferring the
// in-process memo, then the persistent cache, then a fresh exchange.
func (s *TokenSource) Token(ctx context.Context, repository string) (string, error) {
	token, ok := s.mem.Get(ctx, repository, xcache.WithLoader(
		func(ctx context.Context, _ string) (string, bool) {
			cached, err := s.cache.Load(ctx)
			if err != nil {
				xlog.Warnf("unable to read cached token: %v", err)
				return "", false
			}
			return cached, cached != ""
		}))
	if ok {
		return token, nil
	}
	return s.Refresh(ctx, repository)
}

// Refresh discards any cached token and exchanges a new one. Failure to
// persist the new token is logged but not fatal, the token is still usable
// for this invocation.
func (s *TokenSource) Refresh(ctx context.Context, repository string) (string, error) {
	s.mem.Delete(ctx, repository)
	if err := s.cache.Invalidate(ctx); err != nil {
		xlog.Warnf("unable to invalidate cached token: %v", err)
	}
	token, err := s.exchange(ctx, repository)
	if err != nil {
		return "", err
	}
	if err := s.cache.Store(ctx, token); err != nil {
		xlog.Warnf("unable to cache token: %v", err)
	}
	s.mem.Set(ctx, repository, token)
	return token, nil
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (s *TokenSource) exchange(ctx context.Context, repository string) (string, error) {
	host, scheme, err := xhttp.ParseHostScheme(s.authHost)
	if err != nil {
		return "", errdefs.Newf(errdefs.ErrConfiguration, "invalid auth host %q: %v", s.authHost, err)
	}
	if scheme == "" {
		scheme = "https"
	}
	endpoint := url.URL{Scheme: scheme, Host: host, Path: "/token"}
	query := endpoint.Query()
	if s.service != "" {
		query.Set("service", s.service)
	}
	query.Set("scope", "repository:"+repository+":pull")
	endpoint.RawQuery = query.Encode()

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", errdefs.NewE(errdefs.ErrAuth, xhttp.MakeRequestError(req, err))
	}
	defer xio.CloseAndLogError(resp.Body, "close token response body")

	if err := xhttp.Success(resp); err != nil {
		return "", errdefs.NewE(errdefs.ErrAuth, err)
	}
	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", errdefs.NewE(errdefs.ErrAuth,
			errdefs.Newf(errdefs.ErrMalformedResponse, "decode token response: %v", err))
	}
	if payload.Token == "" {
		return "", errdefs.Newf(errdefs.ErrAuth, "token endpoint returned no token for %s", repository)
	}
	xlog.Debugf("obtained new token for scope repository:%s:pull", repository)
	return payload.Token, nil
}
