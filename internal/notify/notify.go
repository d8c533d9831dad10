// Package notify delivers status-transition notifications through the
// configured actions. Delivery is best effort: a failed send is logged
// and never affects the check that triggered it.
package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fletchck/fletchck/internal/domain"
)

// Event describes one status transition.
type Event struct {
	Check   string        `json:"check"`
	Status  domain.Status `json:"status"`
	Time    time.Time     `json:"time"`
	Message string        `json:"message"`
}

// Sender delivers one notification.
type Sender interface {
	Send(ctx context.Context, ev Event) error
}

// NewSender builds the sender for an action definition.
func NewSender(def *domain.ActionDefinition, log *zap.Logger) (Sender, error) {
	switch def.Type {
	case domain.ActionLog:
		return &LogSender{Logger: log}, nil
	case domain.ActionEmail:
		return NewEmailSender(def.Options), nil
	case domain.ActionSMS:
		return NewSMSSender(def.Options), nil
	default:
		return nil, fmt.Errorf("unknown action type %q", def.Type)
	}
}

// LogSender writes the transition to the site log.
type LogSender struct {
	Logger *zap.Logger
}

func (s *LogSender) Send(_ context.Context, ev Event) error {
	s.Logger.Warn("check_transition",
		zap.String("check", ev.Check),
		zap.String("status", string(ev.Status)),
		zap.Time("at", ev.Time),
		zap.String("message", ev.Message),
	)
	return nil
}
