package httputil

import (
	"encoding/base64"
	"net"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// Proxy is an HTTP proxy definition as found in settings and project
// descriptors.
type Proxy struct {
	ID       string `toml:"id"`
	Active   bool   `toml:"active"`
	Protocol string `toml:"protocol"` // scheme of the targets it serves, default http
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	// NonProxyHosts are glob patterns ("*.corp.example.com", "localhost")
	// for hosts reached directly.
	NonProxyHosts []string `toml:"nonProxyHosts"`
}

// URL returns the proxy address. Credentials are not embedded; they travel
// in the Proxy-Authorization header.
func (p Proxy) URL() *url.URL {
	port := p.Port
	if port == 0 {
		port = 80
	}
	return &url.URL{Scheme: "http", Host: net.JoinHostPort(p.Host, strconv.Itoa(port))}
}

// RequiresAuth reports whether the proxy has credentials.
func (p Proxy) RequiresAuth() bool { return p.Username != "" }

// AuthorizationHeader returns the Proxy-Authorization value, "Basic
// base64(user:pass)", or "" when the proxy needs no credentials.
func (p Proxy) AuthorizationHeader() string {
	if !p.RequiresAuth() {
		return ""
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(p.Username+":"+p.Password))
}

// Bypasses reports whether host matches one of the non-proxy patterns.
func (p Proxy) Bypasses(host string) bool {
	host = strings.ToLower(host)
	for _, pattern := range p.NonProxyHosts {
		for _, alt := range strings.Split(pattern, "|") {
			alt = strings.ToLower(strings.TrimSpace(alt))
			if alt == "" {
				continue
			}
			if ok, _ := path.Match(alt, host); ok {
				return true
			}
		}
	}
	return false
}

func (p Proxy) serves(scheme string) bool {
	proto := strings.ToLower(p.Protocol)
	if proto == "" {
		proto = "http"
	}
	// an http proxy tunnels https as well
	return proto == scheme || (proto == "http" && scheme == "https")
}

// SelectProxy returns the first active proxy that serves u, or nil for a
// direct connection.
func SelectProxy(proxies []Proxy, u *url.URL) *Proxy {
	if u == nil {
		return nil
	}
	for i := range proxies {
		p := &proxies[i]
		if !p.Active || p.Host == "" {
			continue
		}
		if !p.serves(u.Scheme) || p.Bypasses(u.Hostname()) {
			continue
		}
		return p
	}
	return nil
}

// ProxyFunc adapts a proxy list to [http.Transport.Proxy].
func ProxyFunc(proxies []Proxy) func(*http.Request) (*url.URL, error) {
	return func(req *http.Request) (*url.URL, error) {
		if p := SelectProxy(proxies, req.URL); p != nil {
			return p.URL(), nil
		}
		return nil, nil
	}
}
