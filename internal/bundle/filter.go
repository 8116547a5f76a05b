// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package bundle

import (
	"fmt"
	"strings"

	"github.com/woozymasta/pathrules"
)

// EntryFilter selects archive entries by name rules, name prefix and size.
// The zero value selects every entry.
type EntryFilter struct {
	// Prefix keeps entries equal to or below this slash-separated prefix.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	// Rules are include/exclude patterns evaluated in order.
	Rules []pathrules.Rule `json:"rules,omitempty" yaml:"rules,omitempty"`
	// MinSize drops entries whose decoded size is smaller.
	MinSize uint32 `json:"min_size,omitempty" yaml:"min_size,omitempty"`
}

// ParseRules turns command-line patterns into rules. A leading "!" excludes.
func ParseRules(patterns []string) []pathrules.Rule {
	rules := make([]pathrules.Rule, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		action := pathrules.ActionInclude
		if strings.HasPrefix(p, "!") {
			action = pathrules.ActionExclude
			p = p[1:]
		}
		if p == "" {
			continue
		}

		rules = append(rules, pathrules.Rule{Action: action, Pattern: p})
	}

	return rules
}

// Apply returns the entries of entries selected by f, in input order.
func (f EntryFilter) Apply(entries []EntryInfo) ([]EntryInfo, error) {
	matcher, err := f.matcher()
	if err != nil {
		return nil, err
	}

	prefix := NormalizeName(f.Prefix)
	out := make([]EntryInfo, 0, len(entries))
	for i := range entries {
		entry := entries[i]
		name := NormalizeName(entry.Name)

		if prefix != "" && name != prefix && !strings.HasPrefix(name, prefix+"/") {
			continue
		}
		if entry.Size() < f.MinSize {
			continue
		}
		if matcher != nil && !matcher.Included(name, false) {
			continue
		}

		out = append(out, entry)
	}

	return out, nil
}

// matcher compiles f.Rules. With only exclude rules every other name is kept.
func (f EntryFilter) matcher() (*pathrules.Matcher, error) {
	rules := normalizeCompressRules(f.Rules)
	if len(rules) == 0 {
		return nil, nil
	}

	def := pathrules.ActionInclude
	for _, r := range rules {
		if r.Action == pathrules.ActionInclude {
			def = pathrules.ActionExclude
			break
		}
	}

	m, err := pathrules.NewMatcher(rules, pathrules.MatcherOptions{CaseInsensitive: true, DefaultAction: def})
	if err != nil {
		return nil, fmt.Errorf("%w: compile filter: %w", ErrInvalidCompressPattern, err)
	}

	return m, nil
}
