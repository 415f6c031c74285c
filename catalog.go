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

package fastpb

import (
	"github.com/fastpb-io/fastpb/internal/catalog"
	"github.com/fastpb-io/fastpb/internal/token"
)

// The field and event types a CatalogBuilder accepts, re-exported so a
// caller driving it from an external XML template parser never needs to
// import internal/catalog or internal/token directly.
type (
	FieldSpec     = catalog.FieldSpec
	DecimalSpec   = catalog.DecimalSpec
	StartTemplate = catalog.StartTemplate
	EndTemplate   = catalog.EndTemplate
	FieldEvent    = catalog.FieldEvent
	DecimalEvent  = catalog.DecimalEvent
	StartGroup    = catalog.StartGroup
	EndGroup      = catalog.EndGroup
	StartSequence = catalog.StartSequence
	EndSequence   = catalog.EndSequence
)

// The field operator and type constants a CatalogBuilder's FieldSpec.Op
// and FieldSpec.Type accept.
const (
	OpNone      = token.None
	OpConstant  = token.Constant
	OpDefault   = token.Default
	OpCopy      = token.Copy
	OpIncrement = token.Increment
	OpDelta     = token.Delta
	OpTail      = token.Tail
)

const (
	TypeInt32              = token.Int32
	TypeInt32Opt           = token.Int32Opt
	TypeInt64              = token.Int64
	TypeInt64Opt           = token.Int64Opt
	TypeDecimalExponent    = token.DecimalExponent
	TypeDecimalExponentOpt = token.DecimalExponentOpt
	TypeDecimalMantissa    = token.DecimalMantissa
	TypeDecimalMantissaOpt = token.DecimalMantissaOpt
	TypeAsciiText          = token.AsciiText
	TypeAsciiTextOpt       = token.AsciiTextOpt
	TypeUnicodeText        = token.UnicodeText
	TypeUnicodeTextOpt     = token.UnicodeTextOpt
	TypeByteVector         = token.ByteVector
	TypeByteVectorOpt      = token.ByteVectorOpt
)

// Catalog is the compiled, ready-to-execute form of a set of FAST
// templates. Build one with a CatalogBuilder, or reload one a prior
// compile persisted with LoadCatalogBinary.
type Catalog struct {
	inner *catalog.Catalog
}

// TemplateInfo is one compiled template's metadata.
type TemplateInfo = catalog.TemplateInfo

// TemplateByID looks up a compiled template by its wire id.
func (c *Catalog) TemplateByID(id int) (TemplateInfo, bool) { return c.inner.TemplateByID(id) }

// Templates lists every template the catalog compiled, in declaration
// order.
func (c *Catalog) Templates() []TemplateInfo { return c.inner.Templates }

// Fingerprint returns a content hash of the compiled script and
// dictionary layout, stable across runs and platforms for identical
// template input.
func (c *Catalog) Fingerprint() [32]byte { return c.inner.Fingerprint() }

// MarshalBinary produces the catalog's binary interchange format, so a
// host can persist a compiled Catalog and reload it without re-running
// the builder against the original template XML.
func (c *Catalog) MarshalBinary() ([]byte, error) { return c.inner.MarshalBinary() }

// LoadCatalogBinary rebuilds a Catalog from bytes produced by
// (*Catalog).MarshalBinary.
func LoadCatalogBinary(data []byte) (*Catalog, error) {
	inner, err := catalog.UnmarshalBinary(data)
	if err != nil {
		return nil, &Error{Kind: ErrCatalogError, Err: err}
	}
	return &Catalog{inner: inner}, nil
}

// CatalogBuilder compiles a stream of template events, in the order an
// external XML parser would emit them for a FAST template file, into a
// Catalog.
type CatalogBuilder struct {
	b *catalog.Builder
}

// NewCatalogBuilder returns an empty CatalogBuilder.
func NewCatalogBuilder() *CatalogBuilder {
	return &CatalogBuilder{b: catalog.NewBuilder()}
}

// StartTemplate opens a new template definition.
func (cb *CatalogBuilder) StartTemplate(ev StartTemplate) error { return cb.b.StartTemplate(ev) }

// EndTemplate closes the template opened by the last StartTemplate.
func (cb *CatalogBuilder) EndTemplate() error { return cb.b.EndTemplate() }

// StartGroup opens a nested, non-repeating group.
func (cb *CatalogBuilder) StartGroup(ev StartGroup) error { return cb.b.StartGroup(ev) }

// EndGroup closes the group opened by the last StartGroup.
func (cb *CatalogBuilder) EndGroup() error { return cb.b.EndGroup() }

// StartSequence opens a repeating group, declaring the length field that
// precedes its repetitions.
func (cb *CatalogBuilder) StartSequence(ev StartSequence) error { return cb.b.StartSequence(ev) }

// EndSequence closes the sequence opened by the last StartSequence.
func (cb *CatalogBuilder) EndSequence() error { return cb.b.EndSequence() }

// Field declares one scalar or text field at the current position.
func (cb *CatalogBuilder) Field(ev FieldEvent) error { return cb.b.Field(ev) }

// Decimal declares one decimal field, compiled as an exponent/mantissa
// subfield pair.
func (cb *CatalogBuilder) Decimal(ev DecimalEvent) error { return cb.b.Decimal(ev) }

// Build compiles the events fed so far into a ready-to-execute Catalog.
// The builder must not be used afterward.
func (cb *CatalogBuilder) Build() (*Catalog, error) {
	inner, err := cb.b.Build()
	if err != nil {
		return nil, &Error{Kind: ErrCatalogError, Err: err}
	}
	return &Catalog{inner: inner}, nil
}
