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

// Package heap implements LocalHeap: the per-instance byte storage backing
// the string-family Copy/Default/Delta/Tail operators.
//
// Storage is a single gap-buffer-style arena. Each dictionary slot owns a
// (start, length, capacity) triple into that arena; growing a slot past its
// capacity reallocates it to the end of the arena and leaves the old bytes
// behind as "wasted" space, which periodic compaction reclaims.
package heap

import "bytes"

type slot struct {
	start, length, capacity int
}

// Heap is LocalHeap: a fixed number of instance slots backed by one growable
// byte arena.
type Heap struct {
	data   []byte
	slots  []slot
	wasted int
}

// New returns a Heap with room for numInstances dictionary slots, all
// initially empty.
func New(numInstances int) *Heap {
	return &Heap{slots: make([]slot, numInstances)}
}

// Len reports how many instance slots this heap manages.
func (h *Heap) Len() int { return len(h.slots) }

// IsSet reports whether the slot has storage allocated in the arena, which
// it first gets when a non-empty value is stored in it; a slot that has only
// ever been set to the empty string reports false.
func (h *Heap) IsSet(instance int) bool { return h.slots[instance].capacity > 0 }

// Get returns the current bytes stored in instance. The returned slice
// aliases the heap's arena and is only valid until the next mutating call on
// this Heap (Set/AppendTail/PrependHead may trigger compaction, which moves
// bytes around).
func (h *Heap) Get(instance int) []byte {
	s := h.slots[instance]
	return h.data[s.start : s.start+s.length]
}

// GetView returns a sub-slice of instance's current value starting at
// offset, length bytes long, without copying.
func (h *Heap) GetView(instance, offset, length int) []byte {
	s := h.slots[instance]
	start := s.start + offset
	return h.data[start : start+length]
}

// Equals reports whether instance's current value equals other.
func (h *Heap) Equals(instance int, other []byte) bool {
	return bytes.Equal(h.Get(instance), other)
}

// Set replaces instance's value outright.
func (h *Heap) Set(instance int, value []byte) {
	s := &h.slots[instance]
	if len(value) <= s.capacity {
		copy(h.data[s.start:], value)
		s.length = len(value)
		return
	}
	h.reallocate(instance, value)
}

// AppendTail implements the Tail string operator: the first commonPrefix
// bytes of the current value are kept, and the remainder is replaced with
// tail.
func (h *Heap) AppendTail(instance int, tail []byte, commonPrefix int) {
	cur := h.Get(instance)
	next := make([]byte, 0, commonPrefix+len(tail))
	next = append(next, cur[:commonPrefix]...)
	next = append(next, tail...)
	h.Set(instance, next)
}

// PrependHead mirrors AppendTail at the front: the last commonSuffix bytes
// of the current value are kept, and head is prepended.
func (h *Heap) PrependHead(instance int, head []byte, commonSuffix int) {
	cur := h.Get(instance)
	suffix := cur[len(cur)-commonSuffix:]
	next := make([]byte, 0, len(head)+commonSuffix)
	next = append(next, head...)
	next = append(next, suffix...)
	h.Set(instance, next)
}

func (h *Heap) reallocate(instance int, value []byte) {
	s := &h.slots[instance]
	h.wasted += s.capacity

	// Grow with a little slack so repeated small appends (Tail/Delta on
	// strings) don't reallocate every call.
	newCap := len(value) + len(value)/2
	if newCap < 16 {
		newCap = 16
	}

	s.start = len(h.data)
	s.length = len(value)
	s.capacity = newCap
	h.data = append(h.data, value...)
	h.data = append(h.data, make([]byte, newCap-len(value))...)

	// Compact once wasted space exceeds 87.5% of the arena, i.e. free
	// headroom has fallen below a 12.5% floor.
	if len(h.data) > 0 && h.wasted*8 > len(h.data)*7 {
		h.compact()
	}
}

func (h *Heap) compact() {
	newData := make([]byte, 0, len(h.data)-h.wasted)
	for i := range h.slots {
		s := &h.slots[i]
		if s.capacity == 0 {
			continue
		}
		newStart := len(newData)
		newData = append(newData, h.data[s.start:s.start+s.length]...)
		newData = append(newData, make([]byte, s.capacity-s.length)...)
		s.start = newStart
	}
	h.data = newData
	h.wasted = 0
}

// Reset clears every slot back to empty without releasing the arena.
func (h *Heap) Reset() {
	for i := range h.slots {
		h.slots[i] = slot{}
	}
	h.data = h.data[:0]
	h.wasted = 0
}
