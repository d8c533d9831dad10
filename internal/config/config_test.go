package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fletchck/fletchck/internal/domain"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	site, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if site.Listen != "127.0.0.1:8093" || site.Workers != 8 || site.Timeout != 10 {
		t.Fatalf("defaults wrong: %+v", site)
	}
	if site.Checks == nil || site.Actions == nil {
		t.Fatalf("maps should be initialised")
	}
}

func TestLoad_JSONAppliesCheckDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.json")
	raw := `{
 "listen": ":9000",
 "checks": {
  "mail": {
   "type": "smtp",
   "trigger": {"interval": {"minutes": 5}},
   "options": {"hostname": "mx.example.com"}
  }
 }
}`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	site, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if site.Listen != ":9000" {
		t.Fatalf("listen = %q", site.Listen)
	}
	c := site.Checks["mail"]
	if c == nil || c.Type != "smtp" {
		t.Fatalf("check missing: %+v", site.Checks)
	}
	if c.Threshold != 1 || c.Retries != 1 {
		t.Fatalf("check defaults not applied: %+v", c)
	}
	if c.Trigger == nil || c.Trigger.Interval == nil || c.Trigger.Interval.Minutes != 5 {
		t.Fatalf("trigger wrong: %+v", c.Trigger)
	}
}

func TestLoad_YAMLByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	raw := `
listen: ":9001"
actions:
  ops:
    type: log
checks:
  web:
    type: https
    threshold: 2
    trigger:
      cron:
        hour: 6
        minute: "0,30"
    options:
      hostname: example.com
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	site, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	c := site.Checks["web"]
	if c == nil || c.Threshold != 2 {
		t.Fatalf("check wrong: %+v", c)
	}
	if c.Trigger == nil || c.Trigger.Cron == nil || string(c.Trigger.Cron.Hour) != "6" {
		t.Fatalf("cron trigger wrong: %+v", c.Trigger)
	}
	if site.Actions["ops"].Type != "log" {
		t.Fatalf("action wrong: %+v", site.Actions)
	}
}

func TestLoad_RejectsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestSave_RoundTripsDataBlocks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.json")

	site := Default()
	site.Checks["mail"] = &CheckConfig{
		Type:      "smtp",
		Threshold: 2,
		Retries:   1,
		Options:   domain.Options{"hostname": "mx.example.com"},
	}
	at := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	site.SetData(map[string]domain.StateData{
		"mail": {
			Status:              domain.StatusFailing,
			ConsecutiveFailures: 3,
			LastTransition:      at,
			History: []domain.Result{
				{Time: at, Success: false, Status: domain.StatusFailing, Message: "connect refused"},
			},
		},
		"ghost": {Status: domain.StatusPassing}, // no matching check, ignored
	})

	if err := site.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if fi.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v, want 0600", fi.Mode().Perm())
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	c := got.Checks["mail"]
	if c == nil || c.Data == nil {
		t.Fatalf("data block not persisted: %+v", got.Checks)
	}
	if c.Data.Status != domain.StatusFailing || c.Data.ConsecutiveFailures != 3 {
		t.Fatalf("data wrong: %+v", c.Data)
	}
	if len(c.Data.History) != 1 || c.Data.History[0].Message != "connect refused" {
		t.Fatalf("history wrong: %+v", c.Data.History)
	}
	if _, ok := got.Checks["ghost"]; ok {
		t.Fatalf("ghost check should not exist")
	}

	// the temp file must not linger after a successful save
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if e.Name() != "site.json" {
			t.Fatalf("leftover file %q", e.Name())
		}
	}
}

func TestIsYAML(t *testing.T) {
	if !isYAML("a/b/site.YAML") || !isYAML("site.yml") {
		t.Fatalf("yaml extensions not recognised")
	}
	if isYAML("site.json") || isYAML("site") {
		t.Fatalf("non yaml misclassified")
	}
}
