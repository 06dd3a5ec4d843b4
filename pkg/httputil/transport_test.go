package httputil

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func TestTransport_ProxyAuthorization(t *testing.T) {
	var gotAuth, gotURL, gotAgent string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Proxy-Authorization")
		gotAgent = r.Header.Get("User-Agent")
		gotURL = r.URL.String()
		io.WriteString(w, "proxied")
	}))
	defer proxy.Close()

	host, port, _ := net.SplitHostPort(proxy.Listener.Addr().String())
	portNum, _ := strconv.Atoi(port)
	client := NewClient(TransportOptions{
		UserAgent: "moxie-test",
		Proxies: []Proxy{{
			ID: "test", Active: true, Host: host, Port: portNum,
			Username: "user", Password: "pass",
		}},
	})

	resp, err := client.Get("http://repo.example.test/maven2/g/a/1/a-1.pom")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if string(body) != "proxied" {
		t.Errorf("body = %q, want proxied", body)
	}
	if gotAuth != "Basic dXNlcjpwYXNz" {
		t.Errorf("Proxy-Authorization = %q", gotAuth)
	}
	if gotURL != "http://repo.example.test/maven2/g/a/1/a-1.pom" {
		t.Errorf("proxy saw URL %q, want absolute target", gotURL)
	}
	if gotAgent != "moxie-test" {
		t.Errorf("User-Agent = %q", gotAgent)
	}
}

func TestTransport_Direct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Proxy-Authorization") != "" {
			t.Error("direct request carried Proxy-Authorization")
		}
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	client := NewClient(TransportOptions{})
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
