package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fletchck/fletchck/internal/domain"
)

// Dispatcher fans a transition event out to the named actions. Each
// send is independent: one failure is logged and the remaining actions
// are still attempted; nothing is retried.
type Dispatcher struct {
	log     *zap.Logger
	senders map[string]Sender
	timeout time.Duration
}

// NewDispatcher builds senders for every validated action definition.
func NewDispatcher(log *zap.Logger, actions map[string]*domain.ActionDefinition, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	d := &Dispatcher{
		log:     log,
		senders: make(map[string]Sender, len(actions)),
		timeout: timeout,
	}
	for name, def := range actions {
		s, err := NewSender(def, log)
		if err != nil {
			// The registry rejects unknown types before this point.
			log.Warn("action_skipped", zap.String("action", name), zap.Error(err))
			continue
		}
		d.senders[name] = s
	}
	return d
}

// Dispatch sends ev through each named action in order.
func (d *Dispatcher) Dispatch(ctx context.Context, refs []string, ev Event) {
	for _, name := range refs {
		s, ok := d.senders[name]
		if !ok {
			d.log.Warn("action_unknown", zap.String("action", name), zap.String("check", ev.Check))
			continue
		}
		sctx, cancel := context.WithTimeout(ctx, d.timeout)
		err := s.Send(sctx, ev)
		cancel()
		if err != nil {
			d.log.Warn("action_failed",
				zap.String("action", name),
				zap.String("check", ev.Check),
				zap.Error(err),
			)
			continue
		}
		d.log.Info("action_sent",
			zap.String("action", name),
			zap.String("check", ev.Check),
			zap.String("status", string(ev.Status)),
		)
	}
}
