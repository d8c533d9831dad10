package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fletchck/fletchck/internal/domain"
)

// fakeSender records sends and can be told to fail.
type fakeSender struct {
	fail  bool
	sends []Event
}

func (f *fakeSender) Send(ctx context.Context, ev Event) error {
	f.sends = append(f.sends, ev)
	if f.fail {
		return errors.New("boom")
	}
	return nil
}

func TestDispatcher_OneFailureDoesNotStopOthers(t *testing.T) {
	first := &fakeSender{fail: true}
	second := &fakeSender{}
	d := &Dispatcher{
		log:     zap.NewNop(),
		senders: map[string]Sender{"first": first, "second": second},
		timeout: time.Second,
	}
	ev := Event{Check: "mail", Status: domain.StatusFailing, Message: "connect refused"}
	d.Dispatch(context.Background(), []string{"first", "second"}, ev)

	if len(first.sends) != 1 || len(second.sends) != 1 {
		t.Fatalf("sends = %d/%d, want 1/1", len(first.sends), len(second.sends))
	}
}

func TestDispatcher_UnknownRefSkipped(t *testing.T) {
	s := &fakeSender{}
	d := &Dispatcher{
		log:     zap.NewNop(),
		senders: map[string]Sender{"ops": s},
		timeout: time.Second,
	}
	d.Dispatch(context.Background(), []string{"ghost", "ops"}, Event{Check: "mail"})
	if len(s.sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(s.sends))
	}
}

func TestNewDispatcher_BuildsConfiguredSenders(t *testing.T) {
	actions := map[string]*domain.ActionDefinition{
		"ops":  {Name: "ops", Type: domain.ActionLog},
		"text": {Name: "text", Type: domain.ActionSMS, Options: domain.Options{"url": "https://example.com"}},
		"bad":  {Name: "bad", Type: "pager"},
	}
	d := NewDispatcher(zap.NewNop(), actions, 0)
	if _, ok := d.senders["ops"]; !ok {
		t.Fatalf("log sender missing")
	}
	if _, ok := d.senders["text"]; !ok {
		t.Fatalf("sms sender missing")
	}
	if _, ok := d.senders["bad"]; ok {
		t.Fatalf("unknown type should be skipped")
	}
	if d.timeout != 30*time.Second {
		t.Fatalf("timeout default wrong: %v", d.timeout)
	}
}

func TestSMSSender_PostsPayload(t *testing.T) {
	var got smsPayload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
	}))
	defer srv.Close()

	s := NewSMSSender(domain.Options{
		"url":        srv.URL,
		"apikey":     "k123",
		"sender":     "fletchck",
		"recipients": []string{"+15551234"},
	})
	ev := Event{Check: "mail", Status: domain.StatusFailing, Message: "connect refused"}
	if err := s.Send(context.Background(), ev); err != nil {
		t.Fatalf("send: %v", err)
	}
	if auth != "Bearer k123" {
		t.Fatalf("auth = %q", auth)
	}
	if !strings.Contains(got.Message, "mail FAILING") {
		t.Fatalf("message = %q", got.Message)
	}
	if len(got.Recipients) != 1 || got.Recipients[0] != "+15551234" {
		t.Fatalf("recipients = %v", got.Recipients)
	}
}

func TestSMSSender_GatewayErrorReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewSMSSender(domain.Options{"url": srv.URL, "recipients": []string{"+1"}})
	err := s.Send(context.Background(), Event{Check: "mail"})
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected gateway error, got %v", err)
	}
}

func TestSMSSender_Unconfigured(t *testing.T) {
	s := NewSMSSender(domain.Options{})
	if err := s.Send(context.Background(), Event{}); err == nil {
		t.Fatalf("expected configuration error")
	}
}

func TestEmailSender_Unconfigured(t *testing.T) {
	s := NewEmailSender(domain.Options{"hostname": "mail.example.com"})
	if err := s.Send(context.Background(), Event{}); err == nil {
		t.Fatalf("expected configuration error")
	}
}

func TestEmailSender_MessageFormat(t *testing.T) {
	s := NewEmailSender(domain.Options{
		"hostname":   "mail.example.com",
		"sender":     "monitor@example.com",
		"recipients": []string{"ops@example.com", "oncall@example.com"},
	})
	ev := Event{
		Check:   "web",
		Status:  domain.StatusPassing,
		Time:    time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
		Message: "recovered",
	}
	msg := s.message(ev)
	for _, want := range []string{
		"From: monitor@example.com",
		"To: ops@example.com, oncall@example.com",
		"Subject: fletchck alert: web PASSING",
		"Check web is passing",
		"recovered",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestNewSender_UnknownType(t *testing.T) {
	if _, err := NewSender(&domain.ActionDefinition{Type: "pager"}, zap.NewNop()); err == nil {
		t.Fatalf("expected error")
	}
}
