package check

import (
	"context"
	"net"
	"strings"

	"github.com/fletchck/fletchck/internal/domain"
)

// dnsProber checks that a hostname resolves to at least one address.
type dnsProber struct {
	opts domain.Options
}

func (p *dnsProber) Probe(ctx context.Context) Result {
	host := p.opts.Str("hostname", "")
	if host == "" {
		return failf("dns: no hostname configured")
	}
	var r net.Resolver
	addrs, err := r.LookupHost(ctx, host)
	if err != nil {
		return failf("%s: %v", host, err)
	}
	if len(addrs) == 0 {
		return failf("%s: no addresses", host)
	}
	return passf("%s resolves to %s", host, strings.Join(addrs, ", "))
}
