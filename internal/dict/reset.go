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

package dict

import (
	deepcopy "github.com/tiendc/go-deepcopy"
)

// SlotKind selects which of a Dictionary's three parallel arrays a
// ResetEntry targets.
type SlotKind uint8

const (
	Int32Slot SlotKind = iota
	Int64Slot
	BytesSlot
)

// ResetEntry is one (slot, initial value) pair executed when its owning
// reset group fires.
type ResetEntry struct {
	Kind          SlotKind
	Slot          int
	Int32Initial  int32
	Int64Initial  int64
	BytesInitial  []byte
	InitialAbsent bool // true if the field has no declared default (resets to Undefined)
}

// ResetGroup is a named collection of reset entries. The catalog compiles
// one per explicit dictionary= name an XML field declares; a group only
// fires when some template's own ResetGroups names it (an XML template's
// reset="yes" attribute or an explicit <reset value="name"/>). A field
// that never names a ResetGroup is never a member of one: its slot simply
// keeps whatever value the last message left there.
type ResetGroup struct {
	Name    string
	Entries []ResetEntry
}

// Apply resets every slot named by g back to its initial value.
func (g ResetGroup) Apply(d *Dictionary) {
	for _, e := range g.Entries {
		switch e.Kind {
		case Int32Slot:
			if e.InitialAbsent {
				d.int32Presence[e.Slot] = Undefined
			} else {
				d.SetInt32(e.Slot, e.Int32Initial)
			}
		case Int64Slot:
			if e.InitialAbsent {
				d.int64Presence[e.Slot] = Undefined
			} else {
				d.SetInt64(e.Slot, e.Int64Initial)
			}
		case BytesSlot:
			if e.InitialAbsent {
				d.bytesPresence[e.Slot] = Undefined
			} else {
				d.SetBytes(e.Slot, e.BytesInitial)
			}
		}
	}
}

// Defaults is the catalog-compiled snapshot of every dictionary slot's
// initial value, keyed by slot index within each of the three arrays. A
// Factory clones this snapshot to seed each new decoder/encoder instance,
// rather than replaying reset entries one at a time.
type Defaults struct {
	Int32 []int32
	Int64 []int64
	Bytes [][]byte
}

// Factory is the compiled DictionaryFactory for one catalog: a defaults
// snapshot plus the named reset groups that can restore subsets of a live
// Dictionary to those defaults mid-stream.
type Factory struct {
	NumInt32, NumInt64, NumBytes int
	Defaults                     Defaults
	Groups                       map[string]ResetGroup
}

// NewFactory returns an empty Factory sized for the given slot counts.
func NewFactory(numInt32, numInt64, numBytes int) *Factory {
	return &Factory{
		NumInt32: numInt32,
		NumInt64: numInt64,
		NumBytes: numBytes,
		Groups:   make(map[string]ResetGroup),
	}
}

// NewDictionary builds a fresh Dictionary from f's defaults. The defaults
// snapshot is deep-copied first so mutating the returned Dictionary can
// never alias, and thus corrupt, the Factory's own template state or
// another instance built from the same Factory.
func (f *Factory) NewDictionary() (*Dictionary, error) {
	var snap Defaults
	if err := deepcopy.Copy(&snap, f.Defaults); err != nil {
		return nil, err
	}

	d := New(f.NumInt32, f.NumInt64, f.NumBytes)
	for i, v := range snap.Int32 {
		d.SetInt32(i, v)
	}
	for i, v := range snap.Int64 {
		d.SetInt64(i, v)
	}
	for i, v := range snap.Bytes {
		if v != nil {
			d.SetBytes(i, v)
		}
	}
	return d, nil
}

// Reset applies every entry in the named group to d; a name with no
// compiled group does nothing. No group, "global" included, is applied
// automatically per message: the reactor calls Reset only for the names a
// selected template's ResetGroups lists.
func (f *Factory) Reset(name string, d *Dictionary) {
	if g, ok := f.Groups[name]; ok {
		g.Apply(d)
	}
}
