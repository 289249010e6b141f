package rules

import (
	"fmt"
	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
)

// Engine holds compiled exclusion filters. A capability matching any filter is
// removed from a component before resolution.
type Engine struct {
	Rules []CompiledRule
}

type Rule struct {
	Description string
	Filter      string
}

type CompiledRule struct {
	Description string
	Filter      *vm.Program
}

type InputDevice struct {
	ID           string
	Label        string
	Name         string
	Manufacturer string
}

type Input struct {
	Device     InputDevice
	Component  string
	Capability string
}

func NewEngine(rules []Rule) (*Engine, error) {
	cr, err := compileRules(rules)
	if err != nil {
		return nil, err
	}

	return &Engine{Rules: cr}, nil
}

func compileRules(rules []Rule) ([]CompiledRule, error) {
	var compiledRules []CompiledRule

	for _, rule := range rules {
		cf, err := expr.Compile(rule.Filter, expr.Env(Input{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("filter compilation: %s: %w", rule.Description, err)
		}

		compiledRules = append(compiledRules, CompiledRule{
			Description: rule.Description,
			Filter:      cf,
		})
	}

	return compiledRules, nil
}

func (e *Engine) Excluded(in Input) (bool, error) {
	if e == nil {
		return false, nil
	}

	for _, r := range e.Rules {
		out, err := expr.Run(r.Filter, in)
		if err != nil {
			return false, fmt.Errorf("filter execution: %s: %w", r.Description, err)
		}

		if matched, ok := out.(bool); ok && matched {
			return true, nil
		}
	}

	return false, nil
}

// Filter returns the capabilities of a component that no exclusion matches,
// preserving order. A filter that fails to execute excludes nothing.
func (e *Engine) Filter(device InputDevice, component string, capabilities []string) []string {
	var kept []string

	for _, c := range capabilities {
		if excluded, err := e.Excluded(Input{Device: device, Component: component, Capability: c}); err == nil && excluded {
			continue
		}

		kept = append(kept, c)
	}

	return kept
}
