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

// Package catalog implements CatalogLoader: it turns a stream of template
// events (as an external XML parser would emit them) into a compiled
// Catalog — a flattened token script plus the per-template offsets,
// dictionary layout, reset groups, and PMap size bounds the reactor and
// dispatch tables need to execute it.
//
// It also implements the catalog's binary interchange format (see
// binary.go), so a host can persist a compiled Catalog and reload it
// without re-running the loader.
package catalog

import (
	"fmt"

	"lukechampine.com/blake3"

	"github.com/fastpb-io/fastpb/internal/dict"
	"github.com/fastpb-io/fastpb/internal/token"
)

// TemplateInfo is one compiled template's metadata.
type TemplateInfo struct {
	ID      int
	Name    string
	Start   int // index into Catalog.Script where this template's Group-open token sits
	Limit   int // exclusive index one past this template's Group-close token
	HasPMap bool

	// ResetGroups are the reset groups fired when this template is
	// selected. Empty means selecting the template resets nothing.
	ResetGroups []string
}

// FragmentInfo sizes one fragment boundary: a template's top-level
// fragment, or one repetition of a sequence's inner group. Keyed by the
// token index of the fragment's opening Group token. internal/reactor reads
// only the keys (to find where a sequence body starts); it sizes its ring
// reservations from the script itself, publishing a two-slot header per
// message and then one fragment per run of fields between sequence
// boundaries.
type FragmentInfo struct {
	SlabSlots int // the fragment's own-level field slots, plus two for a header and a trailing slot
	ScriptLen int // number of script tokens executed per repetition
}

// Catalog is the compiled, ready-to-execute form of a set of FAST
// templates.
type Catalog struct {
	Script []token.Token

	Templates    []TemplateInfo
	templateByID map[int]int

	Fragments map[int]FragmentInfo

	MaxPMapBytes int

	// Constants holds the declared value for every Constant-operator
	// string field, indexed by the token's instance field.
	Constants [][]byte

	Dict *dict.Factory
}

// TemplateByID looks up a compiled template by its wire id.
func (c *Catalog) TemplateByID(id int) (TemplateInfo, bool) {
	idx, ok := c.templateByID[id]
	if !ok {
		return TemplateInfo{}, false
	}
	return c.Templates[idx], true
}

// Fingerprint returns a content hash of the compiled script and dictionary
// layout, stable across runs and platforms for identical template input.
// Used as the catalog cache key (internal/catalog/cache) and to detect a
// cached fingerprint whose backing template set has silently changed.
func (c *Catalog) Fingerprint() [32]byte {
	h := blake3.New(32, nil)
	for _, tok := range c.Script {
		var b [4]byte
		b[0] = byte(tok)
		b[1] = byte(tok >> 8)
		b[2] = byte(tok >> 16)
		b[3] = byte(tok >> 24)
		h.Write(b[:])
	}
	for _, t := range c.Templates {
		fmt.Fprintf(h, "|%d:%s:%d:%d", t.ID, t.Name, t.Start, t.Limit)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
