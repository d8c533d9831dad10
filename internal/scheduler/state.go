package scheduler

import (
	"time"

	"github.com/fletchck/fletchck/internal/check"
	"github.com/fletchck/fletchck/internal/domain"
)

// applyResult advances a check's runtime state for one executed (not
// blocked) attempt. It returns whether the status transitioned between
// Passing and Failing, whether that transition should notify, and the
// history record that was appended.
//
// Success always resets the consecutive-failure counter; a check only
// becomes Failing when the counter first reaches the threshold, and
// repeated failures while already Failing never re-notify.
func applyResult(def *domain.CheckDefinition, st *domain.RuntimeState, res check.Result, now time.Time) (changed, wantNotify bool, rec domain.Result) {
	rec = domain.Result{Time: now, Success: res.Success, Message: res.Message}

	if res.Success {
		st.ConsecutiveFailures = 0
		if st.Status == domain.StatusFailing {
			changed = true
			wantNotify = def.PassAction
			st.LastTransition = now
		}
		st.Status = domain.StatusPassing
	} else {
		st.ConsecutiveFailures++
		if st.Status != domain.StatusFailing && st.ConsecutiveFailures >= def.Threshold {
			changed = true
			wantNotify = def.FailAction
			st.Status = domain.StatusFailing
			st.LastTransition = now
		}
	}

	rec.Status = st.Status
	st.LastResult = &rec
	st.AppendHistory(rec)
	return changed, wantNotify, rec
}
