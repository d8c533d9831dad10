package check

import (
	"context"
	"net/http"
	"net/url"

	"github.com/fletchck/fletchck/internal/domain"
)

// httpsProber checks an HTTPS service. Any HTTP response passes; the
// server certificate must also clear the expiry window.
type httpsProber struct {
	opts domain.Options
}

func (p *httpsProber) Probe(ctx context.Context) Result {
	host, addr := hostPort(p.opts, 443)
	selfsigned := p.opts.Bool("selfsigned", false)
	method := p.opts.Str("reqType", http.MethodHead)
	path := p.opts.Str("reqPath", "/")

	u := url.URL{Scheme: "https", Host: addr, Path: path}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return failf("%s: %v", addr, err)
	}
	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig:   tlsConfig(host, selfsigned),
			DisableKeepAlives: true,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		return failf("%s: %v", addr, err)
	}
	defer resp.Body.Close()

	if resp.TLS != nil {
		days := p.opts.Int("expiryDays", defaultCertExpiryDays)
		if err := certExpiry(resp.TLS.PeerCertificates, days); err != nil {
			return failf("%s: %v", addr, err)
		}
	}
	return passf("%s %s", addr, resp.Status)
}
