package check

import (
	"context"
	"crypto/tls"

	"github.com/fletchck/fletchck/internal/domain"
)

// certProber performs a TLS handshake and fails when the presented
// leaf certificate expires within the configured window. An optional
// probe string is sent after the handshake to keep picky servers from
// logging an empty connection.
type certProber struct {
	opts domain.Options
}

func (p *certProber) Probe(ctx context.Context) Result {
	host, addr := hostPort(p.opts, 443)
	selfsigned := p.opts.Bool("selfsigned", false)
	days := p.opts.Int("expiryDays", defaultCertExpiryDays)

	td := tls.Dialer{Config: tlsConfig(host, selfsigned)}
	conn, err := td.DialContext(ctx, "tcp", addr)
	if err != nil {
		return failf("%s: %v", addr, err)
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		conn.SetDeadline(dl)
	}

	tc := conn.(*tls.Conn)
	if err := certExpiry(tc.ConnectionState().PeerCertificates, days); err != nil {
		return failf("%s: %v", addr, err)
	}
	if probe := p.opts.Str("probe", ""); probe != "" {
		if _, err := tc.Write([]byte(probe)); err != nil {
			return failf("%s probe: %v", addr, err)
		}
		buf := make([]byte, 1024)
		tc.Read(buf)
	}
	return passf("%s certificate ok", addr)
}
