package check

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/fletchck/fletchck/internal/domain"
)

// imapProber checks an IMAP-over-TLS service: greeting, NOOP, LOGOUT.
type imapProber struct {
	opts domain.Options
}

func (p *imapProber) Probe(ctx context.Context) Result {
	host, addr := hostPort(p.opts, 993)
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

	r := bufio.NewReader(conn)
	greeting, err := r.ReadString('\n')
	if err != nil {
		return failf("%s greeting: %v", addr, err)
	}
	if !strings.HasPrefix(greeting, "* OK") {
		return failf("%s unexpected greeting: %s", addr, strings.TrimSpace(greeting))
	}
	if err := imapCommand(conn, r, "a1", "NOOP"); err != nil {
		return failf("%s noop: %v", addr, err)
	}
	if err := imapCommand(conn, r, "a2", "LOGOUT"); err != nil {
		return failf("%s logout: %v", addr, err)
	}
	return passf("%s imap ok", addr)
}

// imapCommand sends one tagged command and reads lines until the
// tagged response, requiring an OK status.
func imapCommand(conn interface{ Write([]byte) (int, error) }, r *bufio.Reader, tag, cmd string) error {
	if _, err := fmt.Fprintf(conn, "%s %s\r\n", tag, cmd); err != nil {
		return err
	}
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, tag+" ") {
			if !strings.HasPrefix(line, tag+" OK") {
				return fmt.Errorf("server said %s", line)
			}
			return nil
		}
	}
}
