package check

import (
	"context"
	"encoding/base64"
	"net"

	"golang.org/x/crypto/ssh"

	"github.com/fletchck/fletchck/internal/domain"
)

// sshProber performs the SSH transport handshake up to host key
// verification without authenticating. When a hostkey option is set,
// the remote key must match it; otherwise any presented key passes.
type sshProber struct {
	opts domain.Options
}

func (p *sshProber) Probe(ctx context.Context) Result {
	host, addr := hostPort(p.opts, 22)
	pinned := p.opts.Str("hostkey", "")

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return failf("%s: %v", addr, err)
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		conn.SetDeadline(dl)
	}

	var seenKey string
	mismatch := false
	cfg := &ssh.ClientConfig{
		User: "fletchck",
		HostKeyCallback: func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			seenKey = base64.StdEncoding.EncodeToString(key.Marshal())
			if pinned != "" && seenKey != pinned {
				mismatch = true
				return failHostKey
			}
			return nil
		},
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err == nil {
		// Server accepted the none auth; close the session down.
		ssh.NewClient(c, chans, reqs).Close()
		return passf("%s ssh ok (%s)", addr, host)
	}
	if mismatch {
		return failf("%s: host key mismatch", addr)
	}
	if seenKey == "" {
		return failf("%s: %v", addr, err)
	}
	// Handshake reached host key verification; the expected auth
	// refusal after it still counts as a healthy pre-auth service.
	return passf("%s ssh pre-auth ok", addr)
}

var failHostKey = &hostKeyError{}

type hostKeyError struct{}

func (*hostKeyError) Error() string { return "host key mismatch" }
