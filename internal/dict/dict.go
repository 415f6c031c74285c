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

// Package dict implements DictionaryFactory: the per-field previous-value
// storage that backs the Copy, Increment, Delta, Default and Tail
// operators, plus the reset-group machinery that restores subsets of that
// storage to their initial values on message boundaries.
//
// A Dictionary is three parallel arrays, one per storage kind (int32,
// int64, and heap-backed bytes), each slot addressed by a token's instance
// field. Presence is tracked separately from value, since "the field has
// never been assigned" (Undefined) and "the field is present but null"
// (Null) are distinct states a Copy operator must tell apart.
package dict

import (
	"github.com/fastpb-io/fastpb/internal/heap"
)

// Presence records what a dictionary slot currently holds.
type Presence uint8

const (
	// Undefined is the state of a slot that has never been assigned. A
	// Copy/Increment operator reading an Undefined slot treats it as null;
	// a field's declared default reaches its slot as an Assigned value when
	// Factory.NewDictionary builds the Dictionary, so such a slot is not
	// Undefined to begin with.
	Undefined Presence = iota
	// Assigned means the slot holds a concrete value.
	Assigned
	// Null means the slot was explicitly set absent by a prior field.
	Null
)

// Dictionary holds the live previous-value state for one decoder or
// encoder instance. Slot indices are dense per kind, assigned by the
// catalog compiler from each field's token instance number.
type Dictionary struct {
	Int32         []int32
	int32Presence []Presence

	Int64         []int64
	int64Presence []Presence

	Bytes         *heap.Heap
	bytesPresence []Presence
}

// New allocates a Dictionary with the given slot counts, all slots
// Undefined.
func New(numInt32, numInt64, numBytes int) *Dictionary {
	return &Dictionary{
		Int32:         make([]int32, numInt32),
		int32Presence: make([]Presence, numInt32),
		Int64:         make([]int64, numInt64),
		int64Presence: make([]Presence, numInt64),
		Bytes:         heap.New(numBytes),
		bytesPresence: make([]Presence, numBytes),
	}
}

// Int32Presence reports the presence state of an int32 slot.
func (d *Dictionary) Int32Presence(slot int) Presence { return d.int32Presence[slot] }

// SetInt32 assigns a concrete value to an int32 slot.
func (d *Dictionary) SetInt32(slot int, v int32) {
	d.Int32[slot] = v
	d.int32Presence[slot] = Assigned
}

// SetInt32Null marks an int32 slot absent.
func (d *Dictionary) SetInt32Null(slot int) {
	d.int32Presence[slot] = Null
}

// Int64Presence reports the presence state of an int64 slot.
func (d *Dictionary) Int64Presence(slot int) Presence { return d.int64Presence[slot] }

// SetInt64 assigns a concrete value to an int64 slot.
func (d *Dictionary) SetInt64(slot int, v int64) {
	d.Int64[slot] = v
	d.int64Presence[slot] = Assigned
}

// SetInt64Null marks an int64 slot absent.
func (d *Dictionary) SetInt64Null(slot int) {
	d.int64Presence[slot] = Null
}

// BytesPresence reports the presence state of a bytes slot.
func (d *Dictionary) BytesPresence(slot int) Presence { return d.bytesPresence[slot] }

// GetBytes returns the current bytes of a slot. Only valid when
// BytesPresence(slot) == Assigned.
func (d *Dictionary) GetBytes(slot int) []byte { return d.Bytes.Get(slot) }

// SetBytes assigns a concrete value to a bytes slot.
func (d *Dictionary) SetBytes(slot int, v []byte) {
	d.Bytes.Set(slot, v)
	d.bytesPresence[slot] = Assigned
}

// SetBytesNull marks a bytes slot absent.
func (d *Dictionary) SetBytesNull(slot int) {
	d.bytesPresence[slot] = Null
}

// TailBytes applies the Tail string operator: keep the first commonPrefix
// bytes of the slot's current value and append tail.
func (d *Dictionary) TailBytes(slot int, tail []byte, commonPrefix int) {
	d.Bytes.AppendTail(slot, tail, commonPrefix)
	d.bytesPresence[slot] = Assigned
}

// Clone returns a deep copy of d, used to seed a fresh decoder/encoder
// instance from a template's compiled default dictionary without aliasing
// its backing arrays.
func (d *Dictionary) Clone() *Dictionary {
	out := New(len(d.Int32), len(d.Int64), d.Bytes.Len())
	copy(out.Int32, d.Int32)
	copy(out.int32Presence, d.int32Presence)
	copy(out.Int64, d.Int64)
	copy(out.int64Presence, d.int64Presence)
	copy(out.bytesPresence, d.bytesPresence)
	for i := 0; i < d.Bytes.Len(); i++ {
		if d.bytesPresence[i] != Undefined {
			out.Bytes.Set(i, d.Bytes.Get(i))
		}
	}
	return out
}
