// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package schema

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of engine versions kept resolved.
const DefaultCacheSize = 16

// Cache is a lazily populated class lookup keyed by engine version.
// The database is loaded on first use; a Cache lives for one process run and
// is passed explicitly to the code that needs it.
type Cache struct {
	load func() (*Database, error)
	sets *lru.Cache[string, *ClassSet]
	db   *Database
	err  error
	once sync.Once
}

// NewCache returns a cache that loads the YAML database at path on first use.
// An empty path yields a cache with no classes.
func NewCache(path string, size int) (*Cache, error) {
	load := func() (*Database, error) {
		if path == "" {
			return &Database{}, nil
		}

		return LoadDatabase(path)
	}

	return newCache(load, size)
}

// NewCacheFromDatabase returns a cache over an already loaded database.
func NewCacheFromDatabase(db *Database, size int) (*Cache, error) {
	return newCache(func() (*Database, error) { return db, nil }, size)
}

func newCache(load func() (*Database, error), size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}

	sets, err := lru.New[string, *ClassSet](size)
	if err != nil {
		return nil, err
	}

	return &Cache{load: load, sets: sets}, nil
}

// Classes returns the class set for engine, resolving and caching it on first request.
func (c *Cache) Classes(engine string) (*ClassSet, error) {
	if set, ok := c.sets.Get(engine); ok {
		return set, nil
	}

	c.once.Do(func() {
		c.db, c.err = c.load()
	})
	if c.err != nil {
		return nil, c.err
	}

	set, err := c.db.Resolve(engine)
	if err != nil {
		return nil, err
	}

	c.sets.Add(engine, set)
	return set, nil
}

// Loaded reports how many engine versions are currently resolved.
func (c *Cache) Loaded() int {
	return c.sets.Len()
}
