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

// Package token defines the packed 32-bit instruction the catalog compiler
// emits and the reactor/dispatch tables execute: one Token per scalar field,
// group boundary, or sequence length in a template's flattened script.
//
// The packed form is kept for hot-path table lookups (a Token is a plain
// uint32, cheap to store in a big flat slice and to hash for dispatch-table
// indexing); Unpack/Pack convert to and from the tagged Go struct at the
// catalog/dispatch boundary, where readability matters more than density.
package token

// Type is the base wire type a Token operates on.
type Type uint8

const (
	Int32 Type = iota
	Int32Opt
	Int64
	Int64Opt
	DecimalExponent
	DecimalExponentOpt
	DecimalMantissa
	DecimalMantissaOpt
	AsciiText
	AsciiTextOpt
	UnicodeText
	UnicodeTextOpt
	ByteVector
	ByteVectorOpt
	Group
	GroupLength
	Dictionary
	numTypes
)

// Optional reports whether t is the optional variant of its base type.
func (t Type) Optional() bool {
	switch t {
	case Int32Opt, Int64Opt, DecimalExponentOpt, DecimalMantissaOpt,
		AsciiTextOpt, UnicodeTextOpt, ByteVectorOpt:
		return true
	default:
		return false
	}
}

// IsText reports whether t is one of the string-family types (ascii/unicode
// text or byte vector), the only types that use LocalHeap-backed operators.
func (t Type) IsText() bool {
	switch t {
	case AsciiText, AsciiTextOpt, UnicodeText, UnicodeTextOpt, ByteVector, ByteVectorOpt:
		return true
	default:
		return false
	}
}

func (t Type) String() string {
	names := [...]string{
		"Int32", "Int32Opt", "Int64", "Int64Opt",
		"DecimalExponent", "DecimalExponentOpt", "DecimalMantissa", "DecimalMantissaOpt",
		"AsciiText", "AsciiTextOpt", "UnicodeText", "UnicodeTextOpt",
		"ByteVector", "ByteVectorOpt", "Group", "GroupLength", "Dictionary",
	}
	if int(t) < len(names) {
		return names[t]
	}
	return "Type(?)"
}

// Op is a FAST field operator.
type Op uint8

const (
	None Op = iota
	Constant
	Default
	Copy
	Increment
	Delta
	Tail
	numOps
)

func (o Op) String() string {
	names := [...]string{"None", "Constant", "Default", "Copy", "Increment", "Delta", "Tail"}
	if int(o) < len(names) {
		return names[o]
	}
	return "Op(?)"
}

// UsesPMapBit reports whether this operator/optionality combination consumes
// one PMap bit. This table is the single source of truth
// shared by both the encoder and decoder; a mismatch here would desync the
// stream undetectably within a message.
//
// Constant is the one operator where optionality changes the answer: a
// mandatory constant field is never transmitted at all (there is nothing to
// decide), while an optional one still needs a bit to distinguish null from
// the declared constant.
func (o Op) UsesPMapBit(optional bool) bool {
	switch o {
	case Constant:
		return optional
	case Default, Copy, Increment, Tail:
		return true
	default: // None, Delta
		return false
	}
}

// Field bit widths within the packed 32-bit Token:
// {type:5, operator:4, optional:1, absentOverride:1, instance:20, extra:1}.
const (
	typeBits     = 5
	opBits       = 4
	optBits      = 1
	overrideBits = 1
	instanceBits = 20
	extraBits    = 1

	typeShift     = 0
	opShift       = typeShift + typeBits
	optShift      = opShift + opBits
	overrideShift = optShift + optBits
	instanceShift = overrideShift + overrideBits
	extraShift    = instanceShift + instanceBits

	typeMask     = 1<<typeBits - 1
	opMask       = 1<<opBits - 1
	optMask      = 1<<optBits - 1
	overrideMask = 1<<overrideBits - 1
	instanceMask = 1<<instanceBits - 1
	extraMask    = 1<<extraBits - 1
)

// MaxInstance is the largest dictionary-slot instance index a Token can
// address.
const MaxInstance = instanceMask

// Token is the packed 32-bit wire form. See Field for the unpacked view.
type Token uint32

// Field is the unpacked, readable view of a Token.
//
// For Type == Group, Op's low bit is repurposed as the open(1)/close(0) flag
// and AbsentOverride is repurposed as HasPMap, since groups don't carry an
// operator or optionality of their own; GroupOpen/GroupClose/GroupHasPMap
// read those bits with the right names.
type Field struct {
	Type           Type
	Op             Op
	Optional       bool
	AbsentOverride bool
	Instance       int
	Extra          bool
}

// Pack encodes f into its wire Token form.
func Pack(f Field) Token {
	var t uint32
	t |= uint32(f.Type&typeMask) << typeShift
	t |= uint32(f.Op&opMask) << opShift
	if f.Optional {
		t |= 1 << optShift
	}
	if f.AbsentOverride {
		t |= 1 << overrideShift
	}
	t |= uint32(f.Instance&instanceMask) << instanceShift
	if f.Extra {
		t |= 1 << extraShift
	}
	return Token(t)
}

// Unpack decodes t into a Field.
func (t Token) Unpack() Field {
	u := uint32(t)
	return Field{
		Type:           Type((u >> typeShift) & typeMask),
		Op:             Op((u >> opShift) & opMask),
		Optional:       (u>>optShift)&optMask != 0,
		AbsentOverride: (u>>overrideShift)&overrideMask != 0,
		Instance:       int((u >> instanceShift) & instanceMask),
		Extra:          (u>>extraShift)&extraMask != 0,
	}
}

// Type returns the packed type field without a full unpack.
func (t Token) Type() Type { return Type((uint32(t) >> typeShift) & typeMask) }

// Op returns the packed operator field without a full unpack.
func (t Token) Op() Op { return Op((uint32(t) >> opShift) & opMask) }

// Optional returns the packed optionality bit without a full unpack.
func (t Token) Optional() bool { return (uint32(t)>>optShift)&optMask != 0 }

// Instance returns the packed dictionary-slot instance index.
func (t Token) Instance() int { return int((uint32(t) >> instanceShift) & instanceMask) }

// GroupOpen reports whether a Group token opens (vs. closes) its group.
func (t Token) GroupOpen() bool { return (uint32(t)>>opShift)&1 != 0 }

// GroupHasPMap reports whether a Group token's group pushes a PMap.
func (t Token) GroupHasPMap() bool { return (uint32(t)>>overrideShift)&1 != 0 }

// DispatchKey packs (type, operator, optional) into a small dense index
// suitable for indexing a flat archetype table, favoring a dense fn-pointer table
// preference for a dense fn-pointer table over polymorphic dispatch.
func (t Token) DispatchKey() int {
	opt := 0
	if t.Optional() {
		opt = 1
	}
	return (int(t.Type())<<opBits|int(t.Op()))<<1 | opt
}

// DispatchTableSize is the number of distinct dispatch keys, used to size a
// flat archetype table.
const DispatchTableSize = int(numTypes) << opBits << 1
