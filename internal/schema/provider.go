// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package schema

import (
	"fmt"

	"github.com/dwstkar490-afk/UABEA-CLI/internal/assets"
)

// Provider resolves field templates for records: the container's own type
// tree first, then the class database for the container's engine version.
type Provider struct {
	cache *Cache
}

// NewProvider returns a provider backed by cache. A nil cache limits
// resolution to containers that carry a type tree.
func NewProvider(cache *Cache) *Provider {
	return &Provider{cache: cache}
}

// Template returns the field template of info inside f.
func (p *Provider) Template(f *assets.File, info assets.RecordInfo) (*Field, error) {
	return p.TemplateFor(f, info, f.EngineVersion)
}

// TemplateFor is Template with the class database looked up for engine
// instead of the engine version recorded in f.
func (p *Provider) TemplateFor(f *assets.File, info assets.RecordInfo, engine string) (*Field, error) {
	typ, err := f.TypeOf(info)
	if err != nil {
		return nil, err
	}

	if f.TypeTree && len(typ.Descriptor) > 0 {
		root, err := UnmarshalDescriptor(typ.Descriptor)
		if err != nil {
			return nil, fmt.Errorf("record %d type tree: %w", info.PathID, err)
		}

		return root, nil
	}

	if p == nil || p.cache == nil {
		return nil, fmt.Errorf("%w: record %d class %d", ErrNoTemplate, info.PathID, info.ClassID)
	}

	set, err := p.cache.Classes(engine)
	if err != nil {
		return nil, fmt.Errorf("%w: record %d: %w", ErrNoTemplate, info.PathID, err)
	}

	class, ok := set.Class(info.ClassID)
	if !ok {
		return nil, fmt.Errorf("%w: record %d class %d", ErrNoTemplate, info.PathID, info.ClassID)
	}

	return class.Root, nil
}

// TypeName returns the template root type of info, falling back to ClassName.
func (p *Provider) TypeName(f *assets.File, info assets.RecordInfo) string {
	root, err := p.Template(f, info)
	if err == nil && root.Type != "" {
		return root.Type
	}

	return ClassName(info.ClassID)
}
