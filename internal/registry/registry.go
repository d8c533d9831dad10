// Package registry turns a site configuration into a validated set of
// check and action definitions. A build is all-or-nothing: any
// unresolved reference or cycle fails the whole load so a reload never
// partially applies.
package registry

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/fletchck/fletchck/internal/config"
	"github.com/fletchck/fletchck/internal/domain"
	"github.com/fletchck/fletchck/internal/trigger"
)

// Registry holds validated, immutable definitions.
type Registry struct {
	checks  map[string]*domain.CheckDefinition
	actions map[string]*domain.ActionDefinition
}

// Build validates the site configuration and returns the registry, or
// an aggregate error naming every problem found. A malformed trigger
// is not fatal: the check is left unscheduled with a warning.
func Build(log *zap.Logger, site *config.Site) (*Registry, error) {
	r := &Registry{
		checks:  make(map[string]*domain.CheckDefinition, len(site.Checks)),
		actions: make(map[string]*domain.ActionDefinition, len(site.Actions)),
	}
	var errs error

	for name, ac := range site.Actions {
		if !domain.KnownActionType(ac.Type) {
			errs = multierr.Append(errs, fmt.Errorf("action %q: unknown type %q", name, ac.Type))
			continue
		}
		r.actions[name] = &domain.ActionDefinition{
			Name:    name,
			Type:    ac.Type,
			Options: ac.Options,
		}
	}

	for name, cc := range site.Checks {
		if !domain.KnownCheckType(cc.Type) {
			errs = multierr.Append(errs, fmt.Errorf("check %q: unknown type %q", name, cc.Type))
			continue
		}
		if cc.Threshold < 1 {
			errs = multierr.Append(errs, fmt.Errorf("check %q: threshold must be >= 1", name))
			continue
		}
		def := &domain.CheckDefinition{
			Name:       name,
			Type:       cc.Type,
			Threshold:  cc.Threshold,
			Retries:    cc.Retries,
			FailAction: cc.FailAction == nil || *cc.FailAction,
			PassAction: cc.PassAction == nil || *cc.PassAction,
			Options:    cc.Options,
			ActionRefs: cc.Actions,
			DependsOn:  cc.Depends,
		}
		if def.Retries < 1 {
			def.Retries = 1
		}
		if cc.Trigger != nil {
			trig, err := trigger.New(cc.Trigger)
			if err != nil {
				log.Warn("check_trigger_disabled",
					zap.String("check", name),
					zap.Error(err),
				)
			} else {
				def.Trigger = trig
			}
		}
		r.checks[name] = def
	}

	errs = multierr.Append(errs, r.resolveRefs())
	errs = multierr.Append(errs, r.detectCycles("dependency", func(d *domain.CheckDefinition) []string {
		return d.DependsOn
	}))
	errs = multierr.Append(errs, r.detectCycles("sequence", sequenceMembers))
	if errs != nil {
		return nil, fmt.Errorf("invalid configuration: %w", errs)
	}
	return r, nil
}

func sequenceMembers(d *domain.CheckDefinition) []string {
	if d.Type != domain.CheckSequence {
		return nil
	}
	return d.Options.StrList("checks")
}

func (r *Registry) resolveRefs() error {
	var errs error
	for name, def := range r.checks {
		for _, a := range def.ActionRefs {
			if _, ok := r.actions[a]; !ok {
				errs = multierr.Append(errs, fmt.Errorf("check %q: unknown action %q", name, a))
			}
		}
		for _, d := range def.DependsOn {
			if _, ok := r.checks[d]; !ok {
				errs = multierr.Append(errs, fmt.Errorf("check %q: unknown dependency %q", name, d))
			}
		}
		for _, m := range sequenceMembers(def) {
			if _, ok := r.checks[m]; !ok {
				errs = multierr.Append(errs, fmt.Errorf("sequence %q: unknown check %q", name, m))
			}
		}
	}
	return errs
}

// detectCycles runs a DFS with recursion-stack coloring over the graph
// induced by edges.
func (r *Registry) detectCycles(kind string, edges func(*domain.CheckDefinition) []string) error {
	const (
		white = 0 // unvisited
		grey  = 1 // on the recursion stack
		black = 2 // done
	)
	color := make(map[string]int, len(r.checks))
	var errs error
	var visit func(name string) bool
	visit = func(name string) bool {
		def, ok := r.checks[name]
		if !ok {
			return false
		}
		switch color[name] {
		case grey:
			return true
		case black:
			return false
		}
		color[name] = grey
		for _, next := range edges(def) {
			if visit(next) {
				if color[name] == grey {
					errs = multierr.Append(errs,
						fmt.Errorf("%s cycle involving %q", kind, name))
				}
				color[name] = black
				return false
			}
		}
		color[name] = black
		return false
	}
	for name := range r.checks {
		visit(name)
	}
	return errs
}

// Check returns the named check definition.
func (r *Registry) Check(name string) (*domain.CheckDefinition, bool) {
	def, ok := r.checks[name]
	return def, ok
}

// Action returns the named action definition.
func (r *Registry) Action(name string) (*domain.ActionDefinition, bool) {
	def, ok := r.actions[name]
	return def, ok
}

// Actions returns the action definition map.
func (r *Registry) Actions() map[string]*domain.ActionDefinition {
	return r.actions
}

// CheckNames returns the check names in sorted order.
func (r *Registry) CheckNames() []string {
	names := make([]string, 0, len(r.checks))
	for n := range r.checks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
