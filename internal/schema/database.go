// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package schema

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Class is one class template of the class database.
type Class struct {
	Root *Field `json:"root" yaml:"root"`
	Name string `json:"name" yaml:"name"`
	ID   int32  `json:"id" yaml:"id"`
}

// VersionSet holds the classes valid for engine versions starting with Engine.
type VersionSet struct {
	Engine  string  `json:"engine" yaml:"engine"`
	Classes []Class `json:"classes" yaml:"classes"`
}

// Database is a class database covering one or more engine version families.
type Database struct {
	Versions []VersionSet `json:"versions" yaml:"versions"`
}

// ClassSet is the resolved class table of one engine version.
type ClassSet struct {
	byID   map[int32]*Class
	Engine string
}

// Class returns the class with id.
func (s *ClassSet) Class(id int32) (*Class, bool) {
	if s == nil {
		return nil, false
	}

	c, ok := s.byID[id]
	return c, ok
}

// Len returns the class count.
func (s *ClassSet) Len() int {
	if s == nil {
		return 0
	}

	return len(s.byID)
}

// LoadDatabase reads a YAML class database file.
func LoadDatabase(path string) (*Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open class database: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadDatabase(f)
}

// ReadDatabase decodes a YAML class database.
func ReadDatabase(r io.Reader) (*Database, error) {
	var db Database
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&db); err != nil {
		return nil, fmt.Errorf("decode class database: %w", err)
	}

	for _, set := range db.Versions {
		for _, c := range set.Classes {
			if c.Root == nil {
				return nil, fmt.Errorf("class database: class %d (%s) has no root", c.ID, c.Name)
			}
		}
	}

	return &db, nil
}

// Resolve returns the class set whose Engine is the longest prefix of engine.
// An empty Engine entry matches every version.
func (db *Database) Resolve(engine string) (*ClassSet, error) {
	best := -1
	for i, set := range db.Versions {
		if !strings.HasPrefix(engine, set.Engine) {
			continue
		}
		if best < 0 || len(set.Engine) > len(db.Versions[best].Engine) {
			best = i
		}
	}

	if best < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDatabaseVersion, engine)
	}

	set := db.Versions[best]
	out := &ClassSet{Engine: set.Engine, byID: make(map[int32]*Class, len(set.Classes))}
	for i := range set.Classes {
		out.byID[set.Classes[i].ID] = &set.Classes[i]
	}

	return out, nil
}
