package check

import (
	"context"
	"crypto/tls"
	"net"
	"net/smtp"

	"github.com/fletchck/fletchck/internal/domain"
)

const smtpHelloName = "fletchck"

// smtpProber checks an SMTP service: connect, EHLO, optional STARTTLS
// with certificate expiry enforcement, NOOP, QUIT.
type smtpProber struct {
	opts domain.Options
}

func (p *smtpProber) Probe(ctx context.Context) Result {
	host, addr := hostPort(p.opts, 25)
	useTLS := p.opts.Bool("tls", true)
	selfsigned := p.opts.Bool("selfsigned", false)

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return failf("%s: %v", addr, err)
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		conn.SetDeadline(dl)
	}

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return failf("%s: %v", addr, err)
	}
	defer c.Close()
	if err := c.Hello(smtpHelloName); err != nil {
		return failf("%s ehlo: %v", addr, err)
	}
	if useTLS {
		if err := c.StartTLS(tlsConfig(host, selfsigned)); err != nil {
			return failf("%s starttls: %v", addr, err)
		}
		if state, ok := c.TLSConnectionState(); ok {
			days := p.opts.Int("expiryDays", defaultCertExpiryDays)
			if err := certExpiry(state.PeerCertificates, days); err != nil {
				return failf("%s: %v", addr, err)
			}
		}
	}
	if err := c.Noop(); err != nil {
		return failf("%s noop: %v", addr, err)
	}
	if err := c.Quit(); err != nil {
		return failf("%s quit: %v", addr, err)
	}
	return passf("%s smtp ok", addr)
}

// submitProber checks an implicit-TLS mail submission service
// (submissions / SMTPS).
type submitProber struct {
	opts domain.Options
}

func (p *submitProber) Probe(ctx context.Context) Result {
	host, addr := hostPort(p.opts, 465)
	selfsigned := p.opts.Bool("selfsigned", false)

	td := tls.Dialer{Config: tlsConfig(host, selfsigned)}
	conn, err := td.DialContext(ctx, "tcp", addr)
	if err != nil {
		return failf("%s: %v", addr, err)
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		conn.SetDeadline(dl)
	}

	days := p.opts.Int("expiryDays", defaultCertExpiryDays)
	if tc, ok := conn.(*tls.Conn); ok {
		if err := certExpiry(tc.ConnectionState().PeerCertificates, days); err != nil {
			return failf("%s: %v", addr, err)
		}
	}

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return failf("%s: %v", addr, err)
	}
	defer c.Close()
	if err := c.Hello(smtpHelloName); err != nil {
		return failf("%s ehlo: %v", addr, err)
	}
	if err := c.Noop(); err != nil {
		return failf("%s noop: %v", addr, err)
	}
	if err := c.Quit(); err != nil {
		return failf("%s quit: %v", addr, err)
	}
	return passf("%s submit ok", addr)
}
