package check

import (
	"context"
	"fmt"
)

// sequenceProber runs the probe logic of each referenced check in list
// order, stopping at the first failure. It is a one-shot composite: it
// never touches the members' own runtime state or schedules.
type sequenceProber struct {
	names  []string
	lookup Lookup
}

func (p *sequenceProber) Probe(ctx context.Context) Result {
	for _, name := range p.names {
		if ctx.Err() != nil {
			return failf("%s: %v", name, ctx.Err())
		}
		def, ok := p.lookup(name)
		if !ok {
			return failf("%s: unknown check", name)
		}
		member, err := New(def, p.lookup)
		if err != nil {
			return failf("%s: %v", name, err)
		}
		res := WithRetries(member, def.Retries).Probe(ctx)
		if !res.Success {
			return Result{
				Success: false,
				Message: fmt.Sprintf("%s: %s", name, res.Message),
			}
		}
	}
	return passf("%d checks passed", len(p.names))
}
