// Package repository implements the Repository Client: fetching POM and
// JAR bytes from a Maven-layout HTTP repository. It carries no cache of
// its own (spec §4.2) — the maven package's Computer memoises POMs for a pass and
// the buildcache package persists JAR bytes to disk.
package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"gopkg.in/op/go-logging.v1"

	"github.com/steelcrab/polytunnel/src/coordinate"
	"github.com/steelcrab/polytunnel/src/errs"
)

var log = logging.MustGetLogger("repository")

// Default timeouts per spec §5: 30s connect, 120s total per request.
const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultTotalTimeout   = 120 * time.Second
	DefaultMaxRetries     = 2
)

// A Client fetches POM and JAR resources from a Maven-layout HTTP
// repository. It is safe for concurrent use.
type Client struct {
	repo       coordinate.Repository
	http       *retryablehttp.Client
	retryMax   int
}

// Options configures a Client beyond the spec's defaults; the zero value
// uses DefaultConnectTimeout/DefaultTotalTimeout/DefaultMaxRetries.
type Options struct {
	ConnectTimeout time.Duration
	TotalTimeout   time.Duration
	MaxRetries     int
}

// New constructs a Client for the given repository. A plain-HTTP URL is
// only accepted when repo.AllowInsecureHTTP is set (spec §4.2: "HTTP is
// allowed only for explicit plain-HTTP repository URLs").
func New(repo coordinate.Repository, opts Options) (*Client, error) {
	if strings.HasPrefix(repo.URL, "http://") && !repo.AllowInsecureHTTP {
		return nil, fmt.Errorf("repository %s uses plain HTTP but allow_insecure_http is not set", repo.Name)
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.TotalTimeout == 0 {
		opts.TotalTimeout = DefaultTotalTimeout
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = DefaultMaxRetries
	}

	rc := retryablehttp.NewClient()
	rc.Logger = nil // we log ourselves, at our own verbosity
	rc.RetryMax = opts.MaxRetries
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.HTTPClient = &http.Client{
		Timeout: opts.TotalTimeout,
		Transport: &http.Transport{
			DialContext:           (&net.Dialer{Timeout: opts.ConnectTimeout}).DialContext,
			TLSHandshakeTimeout:   opts.ConnectTimeout,
			ResponseHeaderTimeout: opts.TotalTimeout,
		},
	}
	rc.CheckRetry = checkRetry

	return &Client{repo: repo, http: rc, retryMax: opts.MaxRetries}, nil
}

// checkRetry retries only transient transport failures: connection resets
// and timeouts. A non-2xx status or a successfully-received body is never
// retried here — those are surfaced as typed errors by the caller instead
// (spec §4.2, §7).
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	if resp.StatusCode == 0 {
		return true, nil
	}
	return false, nil
}

var htmlPrefixes = [][]byte{
	[]byte("<!doctype html"),
	[]byte("<!DOCTYPE html"),
	[]byte("<html"),
	[]byte("<HTML"),
}

// looksLikeHTML reports whether body begins with an HTML doctype or root
// tag, the "error disguised as success" signature some CDNs emit for
// missing artifacts with a 200 status (spec §4.2).
func looksLikeHTML(body []byte) bool {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	for _, prefix := range htmlPrefixes {
		if bytes.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// FetchPom fetches the POM XML for c.
func (cl *Client) FetchPom(ctx context.Context, c coordinate.Coordinate) ([]byte, error) {
	return cl.fetch(ctx, c.PomPath())
}

// FetchJar fetches the JAR bytes for c.
func (cl *Client) FetchJar(ctx context.Context, c coordinate.Coordinate) ([]byte, error) {
	return cl.fetch(ctx, c.JarPath())
}

// Search looks up candidate Coordinates matching a free-text query. It is
// optional per spec §4.2 and used only by the (out-of-core) `add` command;
// callers in this repository do not invoke it, but it is part of the
// Client contract so an external CLI layer can.
func (cl *Client) Search(ctx context.Context, q string) ([]coordinate.Coordinate, error) {
	searchURL := strings.TrimRight(cl.repo.URL, "/") + "/search?q=" + url.QueryEscape(q)
	body, err := cl.get(ctx, searchURL)
	if err != nil {
		return nil, err
	}
	return parseSearchResults(body)
}

func (cl *Client) fetch(ctx context.Context, repoRelativePath string) ([]byte, error) {
	full := strings.TrimRight(cl.repo.URL, "/") + "/" + repoRelativePath
	return cl.get(ctx, full)
}

func (cl *Client) get(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, &errs.RepositoryError{Kind: errs.KindTransport, URL: fullURL, Cause: err}
	}
	log.Debug("GET %s", fullURL)
	resp, err := cl.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &errs.RepositoryError{Kind: errs.KindTimeout, URL: fullURL, Cause: err}
		}
		return nil, &errs.RepositoryError{Kind: errs.KindTransport, URL: fullURL, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &errs.RepositoryError{Kind: errs.KindHTTPStatus, URL: fullURL, Code: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.RepositoryError{Kind: errs.KindTransport, URL: fullURL, Cause: err}
	}
	if looksLikeHTML(body) {
		return nil, &errs.RepositoryError{Kind: errs.KindUnexpectedHTML, URL: fullURL}
	}
	return body, nil
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	var t timeouter
	for e := err; e != nil; {
		if te, ok := e.(timeouter); ok {
			t = te
			break
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return t != nil && t.Timeout()
}
