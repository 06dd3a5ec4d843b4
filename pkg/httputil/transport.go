package httputil

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/dnscache"
)

// Default timeouts for repository traffic.
const (
	DefaultConnectTimeout = 20 * time.Second
	DefaultReadTimeout    = 60 * time.Second
)

// TransportOptions configure [NewTransport].
type TransportOptions struct {
	ConnectTimeout time.Duration // dial timeout, default 20s
	ReadTimeout    time.Duration // wait for response headers, default 60s
	Proxies        []Proxy
	UserAgent      string
}

var (
	resolverOnce sync.Once
	resolver     *dnscache.Resolver
)

// sharedResolver returns the process-wide DNS cache, refreshed every five
// minutes.
func sharedResolver() *dnscache.Resolver {
	resolverOnce.Do(func() {
		resolver = &dnscache.Resolver{}
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				resolver.Refresh(true)
			}
		}()
	})
	return resolver
}

// NewTransport builds a RoundTripper with a DNS-caching dialer, connect and
// read timeouts, and proxy selection. Requests routed through a proxy with
// credentials carry a Proxy-Authorization header; https targets receive it
// on the CONNECT request.
func NewTransport(opts TransportOptions) http.RoundTripper {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	dialer := &net.Dialer{
		Timeout:   opts.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}
	res := sharedResolver()
	proxies := append([]Proxy(nil), opts.Proxies...)

	base := &http.Transport{
		Proxy: ProxyFunc(proxies),
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := res.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}
			for _, ip := range ips {
				conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
				if err == nil {
					return conn, nil
				}
			}
			return nil, fmt.Errorf("failed to dial any resolved IP for %s", host)
		},
		GetProxyConnectHeader: func(_ context.Context, proxyURL *url.URL, _ string) (http.Header, error) {
			for _, p := range proxies {
				if p.Active && p.URL().Host == proxyURL.Host && p.RequiresAuth() {
					return http.Header{"Proxy-Authorization": {p.AuthorizationHeader()}}, nil
				}
			}
			return nil, nil
		},
		ResponseHeaderTimeout: opts.ReadTimeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &transport{base: base, proxies: proxies, userAgent: opts.UserAgent}
}

type transport struct {
	base      http.RoundTripper
	proxies   []Proxy
	userAgent string
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	p := SelectProxy(t.proxies, req.URL)
	needsAuth := p != nil && p.RequiresAuth() && req.URL.Scheme == "http"
	if t.userAgent == "" && !needsAuth {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	if t.userAgent != "" && r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", t.userAgent)
	}
	if needsAuth {
		r.Header.Set("Proxy-Authorization", p.AuthorizationHeader())
	}
	return t.base.RoundTrip(r)
}

// NewClient returns an http.Client over [NewTransport]. Per-request
// deadlines come from the request context.
func NewClient(opts TransportOptions) *http.Client {
	return &http.Client{Transport: NewTransport(opts)}
}
