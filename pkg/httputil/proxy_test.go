package httputil

import (
	"net/url"
	"testing"
)

func TestProxy_Bypasses(t *testing.T) {
	p := Proxy{NonProxyHosts: []string{"*.corp.example.com|localhost", "10.0.*"}}
	tests := []struct {
		host string
		want bool
	}{
		{"repo.corp.example.com", true},
		{"REPO.Corp.Example.com", true},
		{"localhost", true},
		{"10.0.3.4", true},
		{"repo1.maven.org", false},
		{"corp.example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			if got := p.Bypasses(tt.host); got != tt.want {
				t.Errorf("Bypasses(%q) = %v, want %v", tt.host, got, tt.want)
			}
		})
	}
}

func TestProxy_AuthorizationHeader(t *testing.T) {
	if got := (Proxy{}).AuthorizationHeader(); got != "" {
		t.Errorf("AuthorizationHeader() = %q, want empty", got)
	}
	p := Proxy{Username: "Aladdin", Password: "open sesame"}
	if got, want := p.AuthorizationHeader(), "Basic QWxhZGRpbjpvcGVuIHNlc2FtZQ=="; got != want {
		t.Errorf("AuthorizationHeader() = %q, want %q", got, want)
	}
}

func TestSelectProxy(t *testing.T) {
	proxies := []Proxy{
		{ID: "off", Active: false, Host: "off.example.com"},
		{ID: "ftp", Active: true, Protocol: "ftp", Host: "ftp.example.com"},
		{ID: "corp", Active: true, Host: "proxy.example.com", Port: 3128, NonProxyHosts: []string{"*.internal"}},
	}
	tests := []struct {
		raw  string
		want string
	}{
		{"http://repo1.maven.org/maven2/", "corp"},
		{"https://repo1.maven.org/maven2/", "corp"},
		{"http://nexus.internal/repo/", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			u, _ := url.Parse(tt.raw)
			got := SelectProxy(proxies, u)
			id := ""
			if got != nil {
				id = got.ID
			}
			if id != tt.want {
				t.Errorf("SelectProxy(%s) = %q, want %q", tt.raw, id, tt.want)
			}
		})
	}

	if u := proxies[2].URL().String(); u != "http://proxy.example.com:3128" {
		t.Errorf("URL() = %q", u)
	}
}
