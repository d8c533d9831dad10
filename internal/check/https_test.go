package check

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/fletchck/fletchck/internal/domain"
)

// serverOpts extracts hostname/port options pointing at a test server.
func serverOpts(t *testing.T, rawURL string) domain.Options {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	return domain.Options{
		"hostname":   u.Hostname(),
		"port":       port,
		"selfsigned": true,
	}
}

// closedPort returns an address nothing is listening on.
func closedPort(t *testing.T) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()
	return "127.0.0.1", addr.Port
}

func TestHTTPSProber_PassesOnAnyResponse(t *testing.T) {
	hits := 0
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := &httpsProber{opts: serverOpts(t, srv.URL)}
	res := p.Probe(context.Background())
	if !res.Success {
		t.Fatalf("expected pass on 503, got %+v", res)
	}
	if hits != 1 {
		t.Fatalf("hits = %d, want 1", hits)
	}
}

func TestHTTPSProber_DoesNotFollowRedirects(t *testing.T) {
	hits := 0
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer srv.Close()

	p := &httpsProber{opts: serverOpts(t, srv.URL)}
	res := p.Probe(context.Background())
	if !res.Success {
		t.Fatalf("expected pass on redirect, got %+v", res)
	}
	if hits != 1 {
		t.Fatalf("hits = %d, redirect was followed", hits)
	}
}

func TestHTTPSProber_CustomMethodAndPath(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/healthz" {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	opts := serverOpts(t, srv.URL)
	opts["reqType"] = "GET"
	opts["reqPath"] = "/healthz"
	p := &httpsProber{opts: opts}
	if res := p.Probe(context.Background()); !res.Success {
		t.Fatalf("expected pass, got %+v", res)
	}
}

func TestHTTPSProber_ConnectionRefusedFails(t *testing.T) {
	host, port := closedPort(t)
	p := &httpsProber{opts: domain.Options{"hostname": host, "port": port, "selfsigned": true}}
	res := p.Probe(context.Background())
	if res.Success {
		t.Fatalf("expected failure, got %+v", res)
	}
	if !strings.Contains(res.Message, host) {
		t.Fatalf("message should name the target: %q", res.Message)
	}
}

func TestHTTPSProber_ExpiryWindow(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	opts := serverOpts(t, srv.URL)
	opts["expiryDays"] = 1 << 20
	p := &httpsProber{opts: opts}
	res := p.Probe(context.Background())
	if res.Success {
		t.Fatalf("expected expiry failure, got %+v", res)
	}
	if !strings.Contains(res.Message, "certificate expires") {
		t.Fatalf("message = %q", res.Message)
	}
}
