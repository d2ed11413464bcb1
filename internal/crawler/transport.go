package crawler

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/proxy"
)

// maxRedirects bounds redirect chains so redirect loops terminate.
const maxRedirects = 10

// ClientOption configures the HTTP client built by NewHTTPClient.
type ClientOption func(*clientOptions)

type clientOptions struct {
	timeout   time.Duration
	proxyAddr string
	cookie    string
	headers   map[string]string
}

// WithClientTimeout bounds a single request, including redirects and body read.
func WithClientTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

// WithSOCKS5Proxy routes all connections through a SOCKS5 proxy at addr ("host:port").
func WithSOCKS5Proxy(addr string) ClientOption {
	return func(o *clientOptions) {
		o.proxyAddr = addr
	}
}

// WithCookie sends a raw cookie string ("a=1; b=2") with every request.
func WithCookie(cookie string) ClientOption {
	return func(o *clientOptions) {
		o.cookie = cookie
	}
}

// WithHeaders sends extra headers with every request.
func WithHeaders(headers map[string]string) ClientOption {
	return func(o *clientOptions) {
		o.headers = headers
	}
}

// NewHTTPClient builds the HTTP client used by HTTPFetcher.
//
// The transport is a clone of http.DefaultTransport, optionally dialing
// through a SOCKS5 proxy, and is instrumented with otelhttp so every fetch
// emits a client span when a tracer provider is installed.
//
// Design decision: Cookies and headers are injected by a RoundTripper rather
// than per request so that redirects carry them too.
func NewHTTPClient(opts ...ClientOption) (*http.Client, error) {
	o := &clientOptions{timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(o)
	}

	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("unexpected default transport type %T", http.DefaultTransport)
	}
	transport := base.Clone()

	if o.proxyAddr != "" {
		dialer, err := proxy.SOCKS5("tcp", o.proxyAddr, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		contextDialer, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("SOCKS5 dialer for %s does not support contexts", o.proxyAddr)
		}
		transport.Proxy = nil
		transport.DialContext = contextDialer.DialContext
	}

	var rt http.RoundTripper = transport
	if o.cookie != "" || len(o.headers) > 0 {
		rt = &headerInjectingTransport{base: rt, cookie: o.cookie, headers: o.headers}
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &http.Client{
		Transport:     otelhttp.NewTransport(rt),
		Timeout:       o.timeout,
		Jar:           jar,
		CheckRedirect: checkRedirect,
	}, nil
}

// checkRedirect keeps redirect chains on the host of the first request and
// stops them after maxRedirects hops.
func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) == 0 {
		return nil
	}
	origin := via[0].URL
	if normalizeHost(strings.ToLower(req.URL.Scheme), req.URL.Host) != normalizeHost(strings.ToLower(origin.Scheme), origin.Host) {
		return fmt.Errorf("%w: %s redirects to %s", ErrOffSiteRedirect, origin.Redacted(), req.URL.Redacted())
	}
	if len(via) >= maxRedirects {
		return http.ErrUseLastResponse
	}
	return nil
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// custom headers and cookies into every request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}

	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
