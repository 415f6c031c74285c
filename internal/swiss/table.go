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

// Package swiss is a small fixed-capacity open-addressing table of int32
// keys that does not allocate after construction. No other package in this
// module imports it: the catalog resolves template ids with a Go map.
//
// This is a simplified, safe-Go relative of a SIMD swiss table: the same
// open-addressing idea (linear probing over a power-of-two bucket array), but
// operating on ordinary Go slices instead of control-byte words, since the
// tables the codec needs (a few dozen to a few thousand template ids per
// catalog) are far too small for the control-byte trick to pay for its
// unsafe-pointer complexity.
package swiss

// Table is a fixed-capacity open-addressing table mapping int32 keys to
// uint32 values. It never grows past its initial capacity: inserting past
// capacity fails, which is exactly the saturation behavior a bounded
// dictionary-slot or template-id table needs.
type Table struct {
	keys []int32
	vals []uint32
	used []bool
	mask uint32

	count, cap int
}

// New returns a Table with room for 2^bits entries (bits in [1,31]).
func New(bits int) *Table {
	n := 1 << uint(bits)
	t := &Table{
		keys: make([]int32, n),
		vals: make([]uint32, n),
		used: make([]bool, n),
		mask: uint32(n - 1),
		cap:  n,
	}
	return t
}

func hash32(k int32) uint32 {
	// fnv-1a scrambling, but constants trimmed to 32-bit: adequate for a
	// small, fixed table where we mainly need to avoid pathological
	// clustering for sequential ids.
	h := uint32(2166136261)
	u := uint32(k)
	for i := 0; i < 4; i++ {
		h ^= (u >> (8 * i)) & 0xFF
		h *= 16777619
	}
	return h
}

// Insert adds key -> val. Returns false if the table is already saturated
// and key is not already present. A table never fills its last slot: one
// slot stays empty so find's linear probe always has a stopping point,
// so a table of capacity 2^bits holds at most 2^bits-1 distinct keys.
func (t *Table) Insert(key int32, val uint32) bool {
	if idx, ok := t.find(key); ok {
		t.vals[idx] = val
		return true
	}
	if t.count >= t.cap-1 {
		return false
	}
	idx := hash32(key) & t.mask
	for t.used[idx] {
		idx = (idx + 1) & t.mask
	}
	t.keys[idx] = key
	t.vals[idx] = val
	t.used[idx] = true
	t.count++
	return true
}

// Lookup returns the value for key and whether it was present.
func (t *Table) Lookup(key int32) (uint32, bool) {
	idx, ok := t.find(key)
	if !ok {
		return 0, false
	}
	return t.vals[idx], true
}

func (t *Table) find(key int32) (uint32, bool) {
	idx := hash32(key) & t.mask
	for i := 0; i <= int(t.mask); i++ {
		if !t.used[idx] {
			return 0, false
		}
		if t.keys[idx] == key {
			return idx, true
		}
		idx = (idx + 1) & t.mask
	}
	return 0, false
}

// Len returns the number of entries currently stored.
func (t *Table) Len() int { return t.count }

// Cap returns the table's fixed capacity.
func (t *Table) Cap() int { return t.cap }
