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

package catalog

import "github.com/fastpb-io/fastpb/internal/token"

// FieldSpec describes one scalar field as the external XML-to-event layer
// would report it: everything the Builder needs to emit a token and wire up
// its dictionary slot, independent of how the field's declaration was
// spelled in the source template.
type FieldSpec struct {
	Name string
	Type token.Type
	Op   token.Op

	// Instance selects the dictionary slot this field's operator reads and
	// writes. Pass -1 to have the Builder assign the next free slot for
	// Type's dictionary array (the common case; explicit instances are only
	// needed when two fields intentionally share dictionary state).
	Instance int

	// ResetGroup names the dictionary this field's Copy/Increment/Delta/Tail
	// state belongs to for reset purposes. Empty means the slot simply
	// persists across messages and templates, the FAST default: Copy keeps
	// reusing the previous value and Increment keeps advancing from it. A
	// non-empty name buckets the slot into that named group, which only
	// fires when some StartTemplate.ResetGroups lists it by name.
	ResetGroup string

	HasDefault   bool
	Int32Default int32
	Int64Default int64
	BytesDefault []byte
}

// DecimalSpec describes a decimal field, which the wire and dictionary both
// treat as two independent subfields: an exponent and a
// mantissa, each with its own operator and instance.
type DecimalSpec struct {
	Name       string
	Exponent   FieldSpec
	Mantissa   FieldSpec
	ResetGroup string
}

// StartTemplate begins building the token script for a template.
type StartTemplate struct {
	TemplateID int
	Name       string
	HasPMap    bool

	// ResetGroups names the reset groups fired when this template is
	// selected, the way an XML template's reset="yes" attribute (or an
	// explicit <reset value="dictionaryName"/>) would name them. Nil or
	// empty means selecting this template resets nothing: every field's
	// dictionary slot just keeps whatever value the last message using it
	// left there.
	ResetGroups []string
}

// EndTemplate closes the template most recently started.
type EndTemplate struct{}

// FieldEvent emits one scalar field into the currently open template/group.
type FieldEvent struct{ Field FieldSpec }

// DecimalEvent emits one decimal field (exponent+mantissa) into the
// currently open template/group.
type DecimalEvent struct{ Decimal DecimalSpec }

// StartGroup opens a nested (non-repeating) group.
type StartGroup struct{ HasPMap bool }

// EndGroup closes the most recently opened group.
type EndGroup struct{}

// StartSequence opens a repeating group, preceded by its GroupLength field.
type StartSequence struct {
	LengthField FieldSpec
	HasPMap     bool
}

// EndSequence closes the most recently opened sequence.
type EndSequence struct{}
