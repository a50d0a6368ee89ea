// Package http provides an SSRF-safe implementation of pagesignal.Fetcher.
//
// Every hop of a fetch, the first request and each redirect target alike,
// resolves the host, checks all resolved addresses against an AddressPolicy
// and then dials only those addresses, so a DNS answer cannot change between
// the check and the connection.
package http

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/pagesignal"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/idna"
	"golang.org/x/text/transform"
)

// Ensure Fetcher implements pagesignal.Fetcher at compile time.
var _ pagesignal.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves HTML documents from untrusted URLs. It issues plain GET
// requests only and does not execute JavaScript.
type Fetcher struct {
	timeout      time.Duration
	maxBodyBytes int64
	maxRedirects int
	userAgent    string
	resolver     Resolver
	allow        AddressPolicy
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the overall deadline of a fetch, covering every redirect
// hop and the body read. Defaults to pagesignal.DefaultTimeout (12s).
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithMaxBodyBytes sets the largest accepted response body.
func WithMaxBodyBytes(n int64) Option {
	return func(f *Fetcher) {
		f.maxBodyBytes = n
	}
}

// WithMaxRedirects sets how many redirects a fetch may follow.
func WithMaxRedirects(n int) Option {
	return func(f *Fetcher) {
		f.maxRedirects = n
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithResolver replaces net.DefaultResolver.
func WithResolver(r Resolver) Option {
	return func(f *Fetcher) {
		f.resolver = r
	}
}

// WithAddressPolicy replaces PublicOnly. Tests use it to reach loopback
// servers.
func WithAddressPolicy(p AddressPolicy) Option {
	return func(f *Fetcher) {
		f.allow = p
	}
}

// NewFetcher creates a new Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:      pagesignal.DefaultTimeout,
		maxBodyBytes: pagesignal.DefaultMaxBodyBytes,
		maxRedirects: pagesignal.DefaultMaxRedirects,
		userAgent:    pagesignal.DefaultUserAgent,
		resolver:     net.DefaultResolver,
		allow:        PublicOnly,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the HTML document at rawURL. Failures are returned as
// *pagesignal.Error values carrying one of the fetch failure codes.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*pagesignal.FetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	res, err := f.fetch(ctx, rawURL)
	if err != nil {
		return nil, f.classify(err)
	}
	return res, nil
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) (*pagesignal.FetchResult, error) {
	current, err := url.Parse(rawURL)
	if err != nil {
		return nil, pagesignal.Errorf(pagesignal.EINVALIDSCHEME, "invalid URL %q", rawURL)
	}

	for redirects := 0; ; redirects++ {
		if err := checkScheme(current); err != nil {
			return nil, err
		}

		addrs, err := f.resolve(ctx, current.Hostname())
		if err != nil {
			return nil, err
		}

		resp, err := f.do(ctx, current, addrs)
		if err != nil {
			return nil, err
		}

		if isRedirect(resp.StatusCode) {
			location := resp.Header.Get("Location")
			resp.Body.Close()
			if location == "" {
				return nil, pagesignal.StatusError(resp.StatusCode)
			}
			if redirects >= f.maxRedirects {
				return nil, pagesignal.Errorf(pagesignal.ENETWORK, "stopped after %d redirects", f.maxRedirects)
			}
			next, err := current.Parse(location)
			if err != nil {
				return nil, pagesignal.Errorf(pagesignal.ENETWORK, "invalid redirect location %q", location)
			}
			current = next
			continue
		}

		body, err := f.read(resp)
		if err != nil {
			return nil, err
		}
		return &pagesignal.FetchResult{
			Body:     body,
			FinalURL: current.String(),
		}, nil
	}
}

// resolve returns the addresses of host, failing if any of them is rejected
// by the address policy.
func (f *Fetcher) resolve(ctx context.Context, host string) ([]netip.Addr, error) {
	if host == "" {
		return nil, pagesignal.Errorf(pagesignal.EDNS, "missing host")
	}

	var addrs []netip.Addr
	if addr, err := netip.ParseAddr(host); err == nil {
		addrs = []netip.Addr{addr}
	} else {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return nil, pagesignal.Errorf(pagesignal.EDNS, "invalid host name %q", host)
		}
		addrs, err = f.resolver.LookupNetIP(ctx, "ip", ascii)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, pagesignal.Errorf(pagesignal.EDNS, "DNS lookup failed for %s", host)
		}
		if len(addrs) == 0 {
			return nil, pagesignal.Errorf(pagesignal.EDNS, "no addresses found for %s", host)
		}
	}

	for _, addr := range addrs {
		if !f.allow(addr) {
			return nil, pagesignal.Errorf(pagesignal.EPRIVATE, "blocked private network address %s for host %s", addr, host)
		}
	}
	return addrs, nil
}

// do issues a single GET for u over connections pinned to addrs. Redirects
// are returned to the caller unfollowed.
func (f *Fetcher) do(ctx context.Context, u *url.URL, addrs []netip.Addr) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, pagesignal.Errorf(pagesignal.ENETWORK, "invalid request: %v", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html")

	client := &http.Client{
		Transport: &http.Transport{
			Proxy:             nil,
			DialContext:       pinnedDialer(addrs),
			DisableKeepAlives: true,
			ForceAttemptHTTP2: true,
		},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return client.Do(req)
}

// read validates the final response and returns its decoded body.
func (f *Fetcher) read(resp *http.Response) (string, error) {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", pagesignal.StatusError(resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		if contentType == "" {
			contentType = "none"
		}
		return "", pagesignal.Errorf(pagesignal.ECONTENTTYPE, "unexpected content type: %s", contentType)
	}

	if resp.ContentLength > f.maxBodyBytes {
		return "", tooLarge(f.maxBodyBytes)
	}

	body, err := readCapped(resp.Body, f.maxBodyBytes)
	if err != nil {
		return "", err
	}
	return decodeBody(body, contentType), nil
}

// classify maps transport failures onto fetch failure codes.
func (f *Fetcher) classify(err error) error {
	var e *pagesignal.Error
	if errors.As(err, &e) {
		return e
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return pagesignal.Errorf(pagesignal.ETIMEOUT, "request timed out after %s", f.timeout)
	}
	// A cancelled fetch never yields a partial result.
	if errors.Is(err, context.Canceled) {
		return pagesignal.Errorf(pagesignal.ETIMEOUT, "request cancelled")
	}
	return pagesignal.Errorf(pagesignal.ENETWORK, "network error: %v", err)
}

func pinnedDialer(addrs []netip.Addr) func(ctx context.Context, network, address string) (net.Conn, error) {
	var dialer net.Dialer
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		_, port, err := net.SplitHostPort(address)
		if err != nil {
			return nil, err
		}
		var lastErr error
		for _, addr := range addrs {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(addr.String(), port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
		return nil, lastErr
	}
}

func checkScheme(u *url.URL) error {
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return nil
	default:
		return pagesignal.Errorf(pagesignal.EINVALIDSCHEME, "unsupported URL scheme %q", u.Scheme)
	}
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// readCapped reads r to the end, failing with ETOOLARGE as soon as more
// than limit bytes arrive. At most limit+1 bytes are ever buffered.
func readCapped(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, tooLarge(limit)
	}
	return body, nil
}

func tooLarge(limit int64) error {
	return pagesignal.Errorf(pagesignal.ETOOLARGE, "response exceeds %d bytes", limit)
}

// decodeBody converts body to UTF-8 using the charset declared by a BOM, the
// Content-Type header or a <meta> tag. Undeclared bodies are read as UTF-8
// with invalid sequences replaced.
func decodeBody(body []byte, contentType string) string {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if name != "utf-8" && (certain || declaresCharset(body)) {
		if out, _, err := transform.Bytes(enc.NewDecoder(), body); err == nil {
			return string(out)
		}
	}
	return strings.ToValidUTF8(string(body), "\uFFFD")
}

// declaresCharset reports whether the document head names a non-UTF-8
// charset in a <meta> tag. Without a declaration DetermineEncoding guesses
// windows-1252 unless the content is non-ASCII valid UTF-8, so the head is
// cleaned and given a trailing "é" to turn the guess into "utf-8".
func declaresCharset(body []byte) bool {
	head := strings.ToValidUTF8(string(body[:min(len(body), 1022)]), "")
	_, name, _ := charset.DetermineEncoding([]byte(head+"é"), "text/html")
	return name != "utf-8"
}

