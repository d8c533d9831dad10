package check

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fletchck/fletchck/internal/domain"
)

func httpsDef(name string, opts domain.Options) *domain.CheckDefinition {
	return &domain.CheckDefinition{
		Name:    name,
		Type:    domain.CheckHTTPS,
		Retries: 1,
		Options: opts,
	}
}

func TestSequenceProber_AllMembersPass(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	defs := map[string]*domain.CheckDefinition{
		"a": httpsDef("a", serverOpts(t, srv.URL)),
		"b": httpsDef("b", serverOpts(t, srv.URL)),
	}
	lookup := func(name string) (*domain.CheckDefinition, bool) {
		d, ok := defs[name]
		return d, ok
	}
	p := &sequenceProber{names: []string{"a", "b"}, lookup: lookup}
	res := p.Probe(context.Background())
	if !res.Success {
		t.Fatalf("expected pass, got %+v", res)
	}
	if res.Message != "2 checks passed" {
		t.Fatalf("message = %q", res.Message)
	}
}

func TestSequenceProber_StopsAtFirstFailure(t *testing.T) {
	srvHits := 0
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srvHits++
	}))
	defer srv.Close()
	host, port := closedPort(t)

	defs := map[string]*domain.CheckDefinition{
		"up":   httpsDef("up", serverOpts(t, srv.URL)),
		"down": httpsDef("down", domain.Options{"hostname": host, "port": port, "selfsigned": true}),
	}
	lookup := func(name string) (*domain.CheckDefinition, bool) {
		d, ok := defs[name]
		return d, ok
	}

	// "up" runs, "down" fails, the second "up" must never execute
	p := &sequenceProber{names: []string{"up", "down", "up"}, lookup: lookup}
	res := p.Probe(context.Background())
	if res.Success {
		t.Fatalf("expected failure, got %+v", res)
	}
	if !strings.HasPrefix(res.Message, "down: ") {
		t.Fatalf("message should name the failing member: %q", res.Message)
	}
	if srvHits != 1 {
		t.Fatalf("hits = %d, members after the failure were executed", srvHits)
	}
}

func TestSequenceProber_MemberRetriesApply(t *testing.T) {
	host, port := closedPort(t)

	flaky := httpsDef("flaky", domain.Options{"hostname": host, "port": port, "selfsigned": true})
	flaky.Retries = 3
	defs := map[string]*domain.CheckDefinition{"flaky": flaky}
	lookup := func(name string) (*domain.CheckDefinition, bool) {
		d, ok := defs[name]
		return d, ok
	}

	p := &sequenceProber{names: []string{"flaky"}, lookup: lookup}
	res := p.Probe(context.Background())
	if res.Success {
		t.Fatalf("expected failure, got %+v", res)
	}
	if !strings.Contains(res.Message, "(after 3 attempts)") {
		t.Fatalf("member retries not applied: %q", res.Message)
	}
}

func TestSequenceProber_UnknownMemberFails(t *testing.T) {
	lookup := func(string) (*domain.CheckDefinition, bool) { return nil, false }
	p := &sequenceProber{names: []string{"ghost"}, lookup: lookup}
	res := p.Probe(context.Background())
	if res.Success || res.Message != "ghost: unknown check" {
		t.Fatalf("got %+v", res)
	}
}

func TestSequenceProber_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &sequenceProber{names: []string{"a"}, lookup: nil}
	res := p.Probe(ctx)
	if res.Success {
		t.Fatalf("expected failure on cancelled context, got %+v", res)
	}
}
