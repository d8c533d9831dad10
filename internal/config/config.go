// Package config loads and saves the site configuration document.
// JSON is the native format; files ending in .yaml or .yml are decoded
// as YAML.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fletchck/fletchck/internal/domain"
	"github.com/fletchck/fletchck/internal/trigger"
)

// Site is the full on-disk configuration.
type Site struct {
	Listen       string                  `json:"listen,omitempty" yaml:"listen,omitempty"`
	LogDir       string                  `json:"logDir,omitempty" yaml:"logDir,omitempty"`
	Database     string                  `json:"database,omitempty" yaml:"database,omitempty"`
	Timeout      int                     `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Workers      int                     `json:"workers,omitempty" yaml:"workers,omitempty"`
	HistorySize  int                     `json:"historySize,omitempty" yaml:"historySize,omitempty"`
	GraceSeconds int                     `json:"graceSeconds,omitempty" yaml:"graceSeconds,omitempty"`
	PublicKeys   []string                `json:"publicKeys,omitempty" yaml:"publicKeys,omitempty"`
	AdminKeys    []string                `json:"adminKeys,omitempty" yaml:"adminKeys,omitempty"`
	Actions      map[string]ActionConfig `json:"actions" yaml:"actions"`
	Checks       map[string]*CheckConfig `json:"checks" yaml:"checks"`
}

// ActionConfig configures one named notification action.
type ActionConfig struct {
	Type    string         `json:"type" yaml:"type"`
	Options domain.Options `json:"options,omitempty" yaml:"options,omitempty"`
}

// CheckConfig configures one named check. Data carries runtime state
// persisted from a previous run.
type CheckConfig struct {
	Type       string            `json:"type" yaml:"type"`
	Trigger    *trigger.Spec     `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	Threshold  int               `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Retries    int               `json:"retries,omitempty" yaml:"retries,omitempty"`
	FailAction *bool             `json:"failAction,omitempty" yaml:"failAction,omitempty"`
	PassAction *bool             `json:"passAction,omitempty" yaml:"passAction,omitempty"`
	Options    domain.Options    `json:"options,omitempty" yaml:"options,omitempty"`
	Actions    []string          `json:"actions,omitempty" yaml:"actions,omitempty"`
	Depends    []string          `json:"depends,omitempty" yaml:"depends,omitempty"`
	Data       *domain.StateData `json:"data,omitempty" yaml:"data,omitempty"`
}

// Default returns a site with usable local defaults and no checks.
func Default() *Site {
	return &Site{
		Listen:       "127.0.0.1:8093",
		LogDir:       "logs",
		Timeout:      10,
		Workers:      8,
		HistorySize:  domain.DefaultHistorySize,
		GraceSeconds: 15,
		Actions:      map[string]ActionConfig{},
		Checks:       map[string]*CheckConfig{},
	}
}

// Load reads the site configuration at path, applying defaults for
// unset fields. A missing file returns the defaults.
func Load(path string) (*Site, error) {
	site := Default()
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return site, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if isYAML(path) {
		err = yaml.Unmarshal(raw, site)
	} else {
		err = json.Unmarshal(raw, site)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	site.applyDefaults()
	return site, nil
}

func (s *Site) applyDefaults() {
	def := Default()
	if s.Listen == "" {
		s.Listen = def.Listen
	}
	if s.LogDir == "" {
		s.LogDir = def.LogDir
	}
	if s.Timeout <= 0 {
		s.Timeout = def.Timeout
	}
	if s.Workers < 1 {
		s.Workers = def.Workers
	}
	if s.HistorySize < 1 {
		s.HistorySize = def.HistorySize
	}
	if s.GraceSeconds < 0 {
		s.GraceSeconds = def.GraceSeconds
	}
	if s.Actions == nil {
		s.Actions = map[string]ActionConfig{}
	}
	if s.Checks == nil {
		s.Checks = map[string]*CheckConfig{}
	}
	for _, c := range s.Checks {
		if c.Threshold < 1 {
			c.Threshold = 1
		}
		if c.Retries < 1 {
			c.Retries = 1
		}
	}
}

// SetData records runtime state blocks for persistence on the next
// Save. Names without a matching check are ignored.
func (s *Site) SetData(states map[string]domain.StateData) {
	for name, data := range states {
		if c, ok := s.Checks[name]; ok {
			d := data
			c.Data = &d
		}
	}
}

// Save writes the configuration atomically: the document is written to
// a temp file in the target directory and renamed over path.
func (s *Site) Save(path string) error {
	var raw []byte
	var err error
	if isYAML(path) {
		raw, err = yaml.Marshal(s)
	} else {
		raw, err = json.MarshalIndent(s, "", " ")
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "sav_*.tmp")
	if err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("save config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("save config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
