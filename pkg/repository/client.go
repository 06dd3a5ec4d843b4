// Package repository downloads artifacts and metadata from remote Maven
// repositories into the artifact cache.
//
// Every download is verified against the repository's published SHA-1 when
// one exists. A repository answering not-found (or bad request) is skipped
// in favour of the next one; transport failures are logged and also move on.
// Only a checksum mismatch aborts a fetch outright.
//
// Requests go through a per-host circuit breaker and are retried with
// exponential backoff on transient failures, honoring Retry-After. Not-found answers can be
// remembered in a [cache.Cache] so repeated lookups skip the network.
package repository

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/moxie/pkg/artifacts"
	"github.com/matzehuels/moxie/pkg/cache"
	"github.com/matzehuels/moxie/pkg/errors"
	"github.com/matzehuels/moxie/pkg/httputil"
	"github.com/matzehuels/moxie/pkg/maven"
	"github.com/matzehuels/moxie/pkg/observability"
)

// Options configure a [Client].
type Options struct {
	Repositories []Repository
	Cache        *artifacts.Cache // required
	HTTPClient   *http.Client     // nil uses httputil.NewClient defaults
	Misses       cache.Cache      // remembers not-found answers; nil disables
	UpdatePolicy UpdatePolicy     // zero value uses DefaultUpdatePolicy
	Offline      bool
	Retries      int           // attempts per request, default 3
	RetryDelay   time.Duration // initial backoff, default 1s
	Logger       *log.Logger
	Now          func() time.Time
}

// Client fetches from an ordered list of repositories. It is safe for
// concurrent use; concurrent fetches of the same file share one download.
type Client struct {
	repos    []*remote
	cache    *artifacts.Cache
	http     *http.Client
	policy   UpdatePolicy
	offline  bool
	retry    httputil.Policy
	logger   *log.Logger
	now      func() time.Time
	breakers *breakers
	flight   singleflight.Group
}

type remote struct {
	Repository
	misses  cache.Cache
	missTTL time.Duration
}

// NewClient validates opts and creates a Client.
func NewClient(opts Options) (*Client, error) {
	if opts.Cache == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "repository client needs an artifact cache")
	}
	c := &Client{
		cache:    opts.Cache,
		http:     opts.HTTPClient,
		policy:   opts.UpdatePolicy,
		offline:  opts.Offline,
		retry:    httputil.DefaultPolicy,
		logger:   opts.Logger,
		now:      opts.Now,
		breakers: newBreakers(),
	}
	if c.http == nil {
		c.http = httputil.NewClient(httputil.TransportOptions{})
	}
	if c.policy.Kind == "" {
		c.policy = DefaultUpdatePolicy
	}
	if opts.Retries > 0 {
		c.retry.Attempts = opts.Retries
	}
	if opts.RetryDelay > 0 {
		c.retry.Delay = opts.RetryDelay
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}

	for _, r := range opts.Repositories {
		if err := errors.ValidateURL(r.URL); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "repository %s", r.ID)
		}
		policy := c.policy
		if r.UpdatePolicy != "" {
			p, err := ParseUpdatePolicy(r.UpdatePolicy)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "repository %s", r.ID)
			}
			policy = p
		}
		rm := &remote{Repository: r, missTTL: policy.MissTTL()}
		if opts.Misses != nil {
			rm.misses = cache.NewPrefixed(opts.Misses, "miss:"+artifacts.OriginFolder(r.URL)+":")
		}
		c.repos = append(c.repos, rm)
	}
	return c, nil
}

// Repositories returns the configured repositories in search order.
func (c *Client) Repositories() []Repository {
	out := make([]Repository, len(c.repos))
	for i, r := range c.repos {
		out[i] = r.Repository
	}
	return out
}

// Offline reports whether network access is disabled.
func (c *Client) Offline() bool { return c.offline }

// Cache returns the artifact cache the client writes to.
func (c *Client) Cache() *artifacts.Cache { return c.cache }

// BreakerState reports each contacted host's breaker as "open" or "closed".
func (c *Client) BreakerState() map[string]string { return c.breakers.state() }

// Fetch makes sure dep's file with extension ext is cached and returns its
// path. Meta-versions are resolved first. Cached files are returned without
// network access.
func (c *Client) Fetch(ctx context.Context, dep *maven.Dependency, ext string) (string, error) {
	if ext == "" {
		ext = dep.Extension()
	}
	if dep.IsSystem() {
		if _, err := os.Stat(dep.Path); err != nil {
			return "", errors.Wrap(errors.ErrCodeArtifactNotFound, err, "system dependency %s", dep.Coordinates())
		}
		return dep.Path, nil
	}
	if dep.IsMetaVersion() && dep.Revision == "" {
		resolved, err := c.ResolveVersion(ctx, dep)
		if err != nil {
			return "", err
		}
		dep = resolved
	}

	if path, ok := c.cache.Locate(dep, ext); ok {
		observability.Cache().OnCacheHit(ctx, "artifact")
		return path, nil
	}
	observability.Cache().OnCacheMiss(ctx, "artifact")

	key := dep.DetailedCoordinates() + "@" + dep.ResolvedVersion() + "." + ext
	v, err, _ := c.flight.Do(key, func() (any, error) {
		if path, ok := c.cache.Locate(dep, ext); ok {
			return path, nil
		}
		return c.download(ctx, dep, ext)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) download(ctx context.Context, dep *maven.Dependency, ext string) (string, error) {
	if c.offline {
		return "", errors.New(errors.ErrCodeOffline, "%s (%s) is not cached and network access is disabled", dep.Coordinates(), ext)
	}
	var lastErr error
	for _, repo := range c.repos {
		if !repo.Serves(dep) {
			continue
		}
		path, err := c.downloadFrom(ctx, repo, dep, ext)
		switch {
		case err == nil:
			return path, nil
		case errors.IsNotFound(err):
			c.logger.Debug("not in repository", "repository", repo.ID, "artifact", dep.Coordinates(), "ext", ext)
		case errors.IsFatal(err):
			return "", err
		default:
			c.logger.Warn("download failed", "repository", repo.ID, "artifact", dep.Coordinates(), "err", err)
			lastErr = err
		}
	}
	if lastErr != nil {
		return "", errors.Wrap(errors.ErrCodeNetwork, lastErr, "fetch %s (%s)", dep.Coordinates(), ext)
	}
	return "", errors.New(errors.ErrCodeArtifactNotFound, "%s (%s) not found in any repository", dep.Coordinates(), ext)
}

func (c *Client) downloadFrom(ctx context.Context, repo *remote, dep *maven.Dependency, ext string) (string, error) {
	u := repo.ArtifactURL(dep, ext)
	if repo.missed(ctx, u) {
		return "", errors.New(errors.ErrCodeArtifactNotFound, "%s (remembered miss)", u)
	}

	expected, err := c.expectedChecksum(ctx, repo, dep, ext)
	if err != nil {
		if errors.IsNotFound(err) {
			repo.remember(ctx, u)
		}
		return "", err
	}

	resp, err := c.get(ctx, repo, http.MethodGet, u)
	if err != nil {
		if errors.IsNotFound(err) {
			repo.remember(ctx, u)
		}
		return "", err
	}
	defer resp.Body.Close()

	located := dep.Clone()
	located.Origin = repo.URL
	st, err := c.cache.Stage(located, ext)
	if err != nil {
		return "", err
	}
	h := newHasher()
	n, err := io.Copy(io.MultiWriter(st, h), resp.Body)
	if err != nil {
		st.Abort()
		return "", errors.Wrap(errors.ErrCodeNetwork, err, "read %s", u)
	}
	if got := hexSum(h); expected != "" && got != expected {
		st.Abort()
		return "", errors.New(errors.ErrCodeChecksumMismatch, "%s: expected sha1 %s, got %s", u, expected, got)
	}
	modTime := lastModified(resp)
	if err := st.Commit(modTime); err != nil {
		return "", err
	}
	observability.Cache().OnCacheSet(ctx, "artifact", int(n))

	now := c.now().UTC()
	if err := c.cache.UpdateData(located, func(d *artifacts.Data) {
		d.Origin = repo.URL
		d.LastDownloaded = now
		d.LastChecked = now
		if !dep.IsSnapshot() && !modTime.IsZero() {
			d.LastUpdated = modTime.UTC()
		}
	}); err != nil {
		c.logger.Warn("could not record side-data", "artifact", dep.Coordinates(), "err", err)
	}
	c.logger.Debug("downloaded", "url", u, "bytes", n, "verified", expected != "")
	return st.Path(), nil
}

// expectedChecksum returns the published SHA-1 of dep's file, caching the
// .sha1 file beside the artifact. When none is published it probes the
// artifact itself and returns "" if it exists.
func (c *Client) expectedChecksum(ctx context.Context, repo *remote, dep *maven.Dependency, ext string) (string, error) {
	located := dep.Clone()
	located.Origin = repo.URL
	sumExt := ext + checksumExt
	if raw, err := os.ReadFile(c.cache.Path(located, sumExt)); err == nil {
		if sum, ok := parseChecksum(raw); ok {
			return sum, nil
		}
	}

	raw, err := c.getBytes(ctx, repo, repo.ArtifactURL(dep, sumExt))
	switch {
	case err == nil:
		if sum, ok := parseChecksum(raw); ok {
			if _, err := c.cache.Write(located, sumExt, raw, time.Time{}); err != nil {
				c.logger.Debug("could not cache checksum", "artifact", dep.Coordinates(), "err", err)
			}
			return sum, nil
		}
		c.logger.Warn("ignoring unreadable checksum", "url", repo.ArtifactURL(dep, sumExt))
	case errors.IsNotFound(err):
	default:
		return "", err
	}

	resp, err := c.get(ctx, repo, http.MethodHead, repo.ArtifactURL(dep, ext))
	if isHeadRefused(err) {
		c.logger.Debug("HEAD not supported, downloading unverified", "artifact", dep.Coordinates(), "repository", repo.ID)
		return "", nil
	}
	if err != nil {
		return "", err
	}
	resp.Body.Close()
	c.logger.Debug("no checksum published", "artifact", dep.Coordinates(), "ext", ext, "repository", repo.ID)
	return "", nil
}

// get performs one request under the host's breaker, retrying transient
// failures.
func (c *Client) get(ctx context.Context, repo *remote, method, u string) (*http.Response, error) {
	var resp *http.Response
	err := c.breakers.call(u, func() error {
		return c.retry.Do(ctx, func() error {
			r, err := c.do(ctx, repo, method, u)
			if err != nil {
				return err
			}
			resp = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) getBytes(ctx context.Context, repo *remote, u string) ([]byte, error) {
	resp, err := c.get(ctx, repo, http.MethodGet, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "read %s", u)
	}
	return data, nil
}

func (c *Client) do(ctx context.Context, repo *remote, method, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "request %s", u)
	}
	if repo.Username != "" {
		req.SetBasicAuth(repo.Username, repo.Password)
	}

	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, host, path, err)
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrCodeNetwork, ctx.Err(), "%s %s", method, u)
		}
		return nil, &httputil.RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "%s %s", method, u)}
	}
	hooks.OnResponse(ctx, method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp, method, u); err != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func checkStatus(resp *http.Response, method, u string) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound, code == http.StatusGone, code == http.StatusBadRequest:
		return errors.New(errors.ErrCodeArtifactNotFound, "%s %s: status %d", method, u, code)
	case method == http.MethodHead && (code == http.StatusMethodNotAllowed || code == http.StatusNotImplemented):
		return &headRefusedError{status: code}
	case code >= 500, code == http.StatusTooManyRequests:
		return &httputil.RetryableError{
			Err:   errors.New(errors.ErrCodeNetwork, "%s %s: status %d", method, u, code),
			After: httputil.RetryAfter(resp),
		}
	default:
		return errors.New(errors.ErrCodeNetwork, "%s %s: status %d", method, u, code)
	}
}

// headRefusedError is a server's refusal of the HEAD method itself, which
// says nothing about whether the artifact exists.
type headRefusedError struct{ status int }

func (e *headRefusedError) Error() string {
	return fmt.Sprintf("HEAD not supported: status %d", e.status)
}

func isHeadRefused(err error) bool {
	_, ok := err.(*headRefusedError)
	return ok
}

func lastModified(resp *http.Response) time.Time {
	t, err := http.ParseTime(resp.Header.Get("Last-Modified"))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (r *remote) missed(ctx context.Context, u string) bool {
	if r.misses == nil {
		return false
	}
	_, ok, err := r.misses.Get(ctx, u)
	if ok && err == nil {
		observability.Cache().OnCacheHit(ctx, "miss")
		return true
	}
	return false
}

func (r *remote) remember(ctx context.Context, u string) {
	if r.misses == nil || r.missTTL <= 0 {
		return
	}
	_ = r.misses.Set(ctx, u, []byte{1}, r.missTTL)
}
