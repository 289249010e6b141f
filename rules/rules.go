package rules

import "sort"

// CombinatorRule claims a group of capabilities for a single service when every
// Required capability is present. Optional capabilities are claimed alongside
// if they are still unclaimed.
type CombinatorRule struct {
	Required    []string
	Optional    []string
	ServiceType string
}

// SingleRule maps one capability onto a service type.
type SingleRule struct {
	Capability  string
	ServiceType string
}

// Table is an ordered, immutable set of resolution rules.
type Table struct {
	combinators []CombinatorRule
	singles     []SingleRule
}

type Resolution struct {
	ServiceType  string
	Capabilities []string
}

func NewTable(combinators []CombinatorRule, singles []SingleRule) Table {
	c := make([]CombinatorRule, len(combinators))
	for i, r := range combinators {
		c[i] = CombinatorRule{
			Required:    append([]string(nil), r.Required...),
			Optional:    append([]string(nil), r.Optional...),
			ServiceType: r.ServiceType,
		}
	}

	sort.SliceStable(c, func(i, j int) bool {
		return len(c[i].Required) > len(c[j].Required)
	})

	return Table{
		combinators: c,
		singles:     append([]SingleRule(nil), singles...),
	}
}

// Resolve greedily maps a component's capabilities onto services. Combinators
// with more required capabilities are tried first, then single capability
// rules in table order. Capabilities no rule matches are left unclaimed.
func (t Table) Resolve(capabilities []string) []Resolution {
	remaining := make(map[string]bool, len(capabilities))
	for _, c := range capabilities {
		remaining[c] = true
	}

	var resolutions []Resolution

	for _, r := range t.combinators {
		if !containsAll(remaining, r.Required) {
			continue
		}

		claimed := append([]string(nil), r.Required...)
		for _, o := range r.Optional {
			if remaining[o] && !contains(claimed, o) {
				claimed = append(claimed, o)
			}
		}

		for _, c := range claimed {
			delete(remaining, c)
		}

		resolutions = append(resolutions, Resolution{ServiceType: r.ServiceType, Capabilities: claimed})
	}

	for _, s := range t.singles {
		if remaining[s.Capability] {
			delete(remaining, s.Capability)
			resolutions = append(resolutions, Resolution{ServiceType: s.ServiceType, Capabilities: []string{s.Capability}})
		}
	}

	return resolutions
}

// Supports reports whether any rule in the table could claim the capability.
func (t Table) Supports(capability string) bool {
	for _, s := range t.singles {
		if s.Capability == capability {
			return true
		}
	}

	for _, r := range t.combinators {
		if contains(r.Required, capability) || contains(r.Optional, capability) {
			return true
		}
	}

	return false
}

func containsAll(set map[string]bool, want []string) bool {
	for _, w := range want {
		if !set[w] {
			return false
		}
	}

	return true
}

func contains(list []string, s string) bool {
	for _, l := range list {
		if l == s {
			return true
		}
	}

	return false
}
