// Copyright 2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache bounds how many compiled catalogs a long-running host keeps
// resident. A service that reloads its template configuration (or serves
// several distinct catalogs) shouldn't re-run the XML loader every time it
// sees a fingerprint it has already compiled.
package cache

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/fastpb-io/fastpb/internal/catalog"
)

// Cache is an LRU of compiled catalogs keyed by their blake3 fingerprint
// (see Catalog.Fingerprint).
type Cache struct {
	lru *lru.Cache
}

// New returns a Cache holding at most size compiled catalogs.
func New(size int) (*Cache, error) {
	l, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l}, nil
}

// Get returns the catalog stored under key, if any.
func (c *Cache) Get(key [32]byte) (*catalog.Catalog, bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*catalog.Catalog), true
}

// Put stores cat under its own fingerprint and returns the key used, so
// the caller doesn't need to fingerprint it twice.
func (c *Cache) Put(cat *catalog.Catalog) [32]byte {
	key := cat.Fingerprint()
	c.lru.Add(key, cat)
	return key
}

// Len reports how many catalogs are currently cached.
func (c *Cache) Len() int { return c.lru.Len() }
