// Package domain holds the check and action definitions plus the
// runtime state the scheduler maintains for each check.
package domain

import "github.com/fletchck/fletchck/internal/trigger"

// Supported check types.
const (
	CheckSMTP     = "smtp"
	CheckSubmit   = "submit"
	CheckIMAP     = "imap"
	CheckHTTPS    = "https"
	CheckCert     = "cert"
	CheckSSH      = "ssh"
	CheckDNS      = "dns"
	CheckSequence = "sequence"
)

// Supported action types.
const (
	ActionLog   = "log"
	ActionEmail = "email"
	ActionSMS   = "sms"
)

// CheckTypes lists every recognised check type.
var CheckTypes = []string{
	CheckSMTP, CheckSubmit, CheckIMAP, CheckHTTPS,
	CheckCert, CheckSSH, CheckDNS, CheckSequence,
}

// ActionTypes lists every recognised action type.
var ActionTypes = []string{ActionLog, ActionEmail, ActionSMS}

// CheckDefinition is the immutable configuration of a single check.
// Execution never mutates it; all mutable state lives in RuntimeState.
type CheckDefinition struct {
	Name       string
	Type       string
	Trigger    trigger.Trigger // nil means never auto-scheduled
	Threshold  int             // consecutive failures before Failing
	Retries    int             // probe attempts per execution
	FailAction bool            // notify on transition to Failing
	PassAction bool            // notify on transition to Passing
	Options    Options
	ActionRefs []string
	DependsOn  []string
}

// ActionDefinition is the immutable configuration of a notification
// action.
type ActionDefinition struct {
	Name    string
	Type    string
	Options Options
}

// KnownCheckType reports whether t names a supported check type.
func KnownCheckType(t string) bool {
	for _, k := range CheckTypes {
		if k == t {
			return true
		}
	}
	return false
}

// KnownActionType reports whether t names a supported action type.
func KnownActionType(t string) bool {
	for _, k := range ActionTypes {
		if k == t {
			return true
		}
	}
	return false
}
