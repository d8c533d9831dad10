// Package check implements the protocol probes. Every prober reports
// network, protocol and timeout problems as a failing Result with a
// diagnostic message, never as an error to the caller.
package check

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"time"

	"github.com/fletchck/fletchck/internal/domain"
)

// defaultCertExpiryDays is the minimum remaining certificate lifetime
// before TLS-speaking probes report failure.
const defaultCertExpiryDays = 7

// Result is the outcome of a single probe execution.
type Result struct {
	Success bool
	Message string
}

// Prober performs one execution of a check's probe logic.
type Prober interface {
	Probe(ctx context.Context) Result
}

// Lookup resolves a check definition by name, used by sequence probes
// to reach their members.
type Lookup func(name string) (*domain.CheckDefinition, bool)

// New builds the prober for a check definition.
func New(def *domain.CheckDefinition, lookup Lookup) (Prober, error) {
	switch def.Type {
	case domain.CheckSMTP:
		return &smtpProber{opts: def.Options}, nil
	case domain.CheckSubmit:
		return &submitProber{opts: def.Options}, nil
	case domain.CheckIMAP:
		return &imapProber{opts: def.Options}, nil
	case domain.CheckHTTPS:
		return &httpsProber{opts: def.Options}, nil
	case domain.CheckCert:
		return &certProber{opts: def.Options}, nil
	case domain.CheckSSH:
		return &sshProber{opts: def.Options}, nil
	case domain.CheckDNS:
		return &dnsProber{opts: def.Options}, nil
	case domain.CheckSequence:
		return &sequenceProber{
			names:  def.Options.StrList("checks"),
			lookup: lookup,
		}, nil
	default:
		return nil, fmt.Errorf("unknown check type %q", def.Type)
	}
}

// WithRetries wraps p so a failing probe is re-attempted up to
// attempts times, returning the first success.
func WithRetries(p Prober, attempts int) Prober {
	if attempts <= 1 {
		return p
	}
	return &retryProber{inner: p, attempts: attempts}
}

type retryProber struct {
	inner    Prober
	attempts int
}

func (r *retryProber) Probe(ctx context.Context) Result {
	var last Result
	for i := 0; i < r.attempts; i++ {
		last = r.inner.Probe(ctx)
		if last.Success {
			return last
		}
		if ctx.Err() != nil {
			break
		}
	}
	last.Message = fmt.Sprintf("%s (after %d attempts)", last.Message, r.attempts)
	return last
}

// tlsConfig builds the client TLS configuration; selfsigned disables
// chain and hostname verification.
func tlsConfig(serverName string, selfsigned bool) *tls.Config {
	return &tls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: selfsigned,
	}
}

// certExpiry fails when the leaf certificate expires within days.
func certExpiry(certs []*x509.Certificate, days int) error {
	if len(certs) == 0 {
		return nil
	}
	left := int(time.Until(certs[0].NotAfter).Hours() / 24)
	if left < days {
		return fmt.Errorf("certificate expires in %d days", left)
	}
	return nil
}

func hostPort(opts domain.Options, defPort int) (string, string) {
	host := opts.Str("hostname", "")
	port := opts.Int("port", defPort)
	return host, fmt.Sprintf("%s:%d", host, port)
}

func failf(format string, args ...any) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

func passf(format string, args ...any) Result {
	return Result{Success: true, Message: fmt.Sprintf(format, args...)}
}
