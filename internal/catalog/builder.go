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

import (
	"fmt"

	"github.com/fastpb-io/fastpb/internal/dict"
	"github.com/fastpb-io/fastpb/internal/token"
)

// frag accumulates the slab/script size of one fragment: a template's
// top-level body, or one repetition of a sequence's inner group. Plain
// (non-repeating) nested groups have no accumulator of their own; their
// tokens fold into the nearest enclosing template or sequence fragment,
// since the reactor never suspends mid-group.
type frag struct {
	openIdx         int
	slabSlots       int
	scriptLen       int
	isTemplateOrSeq bool
}

// pmapScope tracks how many PMap-consuming fields a group or template with
// its own presence map has accumulated. A field inside a nested group that
// does not declare its own PMap contributes its bit to the nearest
// enclosing scope that does, per FAST's PMap-scope composition rule.
type pmapScope struct {
	hasPMap bool
	bits    int
}

// Builder incrementally compiles a Catalog from a stream of template
// events, exactly as an external XML SAX parser would emit them field by
// field, group by group.
type Builder struct {
	script []token.Token

	templates    []TemplateInfo
	templateByID map[int]int
	fragments    map[int]FragmentInfo
	constants    [][]byte

	nextInt32, nextInt64, nextBytes int
	int32Defaults                  map[int]int32
	int64Defaults                  map[int]int64
	bytesDefaults                  map[int][]byte

	resetGroups map[string]*dict.ResetGroup

	fragStack []*frag
	pmapStack []*pmapScope

	curTemplateID   int
	curTemplateName string
	curResetGroups  []string
	inTemplate      bool

	maxPMapBits int

	err error
}

// NewBuilder returns an empty Builder ready to compile a template set.
func NewBuilder() *Builder {
	return &Builder{
		templateByID:  make(map[int]int),
		fragments:     make(map[int]FragmentInfo),
		int32Defaults: make(map[int]int32),
		int64Defaults: make(map[int]int64),
		bytesDefaults: make(map[int][]byte),
		resetGroups:   make(map[string]*dict.ResetGroup),
	}
}

func (b *Builder) fail(template, field, reason string) error {
	if b.err == nil {
		b.err = newError(template, field, reason)
	}
	return b.err
}

// StartTemplate opens a new template. Every event between StartTemplate and
// the matching EndTemplate belongs to this template's own fragment (or a
// sequence fragment nested within it).
func (b *Builder) StartTemplate(ev StartTemplate) error {
	if b.err != nil {
		return b.err
	}
	if b.inTemplate {
		return b.fail(ev.Name, "", "StartTemplate while another template is open")
	}
	if _, dup := b.templateByID[ev.TemplateID]; dup {
		return b.fail(ev.Name, "", fmt.Sprintf("duplicate template id %d", ev.TemplateID))
	}
	b.inTemplate = true
	b.curTemplateID = ev.TemplateID
	b.curTemplateName = ev.Name
	b.curResetGroups = ev.ResetGroups

	openIdx := len(b.script)
	b.emitBracket(token.Field{Type: token.Group, Op: 1, AbsentOverride: ev.HasPMap})
	b.pmapStack = append(b.pmapStack, &pmapScope{hasPMap: ev.HasPMap})
	b.fragStack = append(b.fragStack, &frag{openIdx: openIdx, isTemplateOrSeq: true, scriptLen: 1})
	return nil
}

// EndTemplate closes the template opened by the matching StartTemplate.
func (b *Builder) EndTemplate() error {
	if b.err != nil {
		return b.err
	}
	if !b.inTemplate {
		return b.fail("", "", "EndTemplate without a matching StartTemplate")
	}
	f := b.popFrag()
	b.emitBracket(token.Field{Type: token.Group, Op: 0})
	f.scriptLen++
	scope := b.popPMap()
	if scope.hasPMap && scope.bits > b.maxPMapBits {
		b.maxPMapBits = scope.bits
	}

	info := TemplateInfo{
		ID:          b.curTemplateID,
		Name:        b.curTemplateName,
		Start:       f.openIdx,
		Limit:       len(b.script),
		HasPMap:     scope.hasPMap,
		ResetGroups: b.curResetGroups,
	}
	b.templateByID[info.ID] = len(b.templates)
	b.templates = append(b.templates, info)
	b.fragments[f.openIdx] = FragmentInfo{SlabSlots: f.slabSlots + 2, ScriptLen: f.scriptLen}

	b.inTemplate = false
	return nil
}

// StartGroup opens a plain, non-repeating nested group.
func (b *Builder) StartGroup(ev StartGroup) error {
	if b.err != nil {
		return b.err
	}
	b.emitToken(token.Field{Type: token.Group, Op: 1, AbsentOverride: ev.HasPMap})
	b.pmapStack = append(b.pmapStack, &pmapScope{hasPMap: ev.HasPMap})
	return nil
}

// EndGroup closes the most recently opened plain group.
func (b *Builder) EndGroup() error {
	if b.err != nil {
		return b.err
	}
	if len(b.pmapStack) == 0 {
		return b.fail(b.curTemplateName, "", "EndGroup without a matching StartGroup")
	}
	b.emitToken(token.Field{Type: token.Group, Op: 0})
	scope := b.popPMap()
	if scope.hasPMap && scope.bits > b.maxPMapBits {
		b.maxPMapBits = scope.bits
	}
	return nil
}

// StartSequence opens a repeating group, first emitting its GroupLength
// field into the enclosing fragment, then pushing a new fragment
// accumulator for the repeated body.
func (b *Builder) StartSequence(ev StartSequence) error {
	if b.err != nil {
		return b.err
	}
	lenSpec := ev.LengthField
	lenSpec.Type = token.GroupLength
	if _, err := b.assignAndEmit(lenSpec); err != nil {
		return err
	}

	openIdx := len(b.script)
	b.emitBracket(token.Field{Type: token.Group, Op: 1, AbsentOverride: ev.HasPMap})
	b.pmapStack = append(b.pmapStack, &pmapScope{hasPMap: ev.HasPMap})
	b.fragStack = append(b.fragStack, &frag{openIdx: openIdx, isTemplateOrSeq: true, scriptLen: 1})
	return nil
}

// EndSequence closes the sequence body opened by the matching StartSequence.
func (b *Builder) EndSequence() error {
	if b.err != nil {
		return b.err
	}
	if len(b.fragStack) == 0 || !b.fragStack[len(b.fragStack)-1].isTemplateOrSeq {
		return b.fail(b.curTemplateName, "", "EndSequence without a matching StartSequence")
	}
	f := b.popFrag()
	b.emitBracket(token.Field{Type: token.Group, Op: 0})
	f.scriptLen++
	scope := b.popPMap()
	if scope.hasPMap && scope.bits > b.maxPMapBits {
		b.maxPMapBits = scope.bits
	}
	b.fragments[f.openIdx] = FragmentInfo{SlabSlots: f.slabSlots + 2, ScriptLen: f.scriptLen}
	return nil
}

// Field emits one scalar field into the currently open template or group.
func (b *Builder) Field(ev FieldEvent) error {
	if b.err != nil {
		return b.err
	}
	if !b.inTemplate {
		return b.fail("", ev.Field.Name, "field declared outside any template")
	}
	_, err := b.assignAndEmit(ev.Field)
	return err
}

// Decimal emits a decimal field as two subfield tokens (exponent, then
// mantissa).
func (b *Builder) Decimal(ev DecimalEvent) error {
	if b.err != nil {
		return b.err
	}
	d := ev.Decimal
	if d.Exponent.Type != token.DecimalExponent && d.Exponent.Type != token.DecimalExponentOpt {
		return b.fail(b.curTemplateName, d.Name, "decimal without an exponent subfield")
	}
	if d.Mantissa.Type != token.DecimalMantissa && d.Mantissa.Type != token.DecimalMantissaOpt {
		return b.fail(b.curTemplateName, d.Name, "decimal without a mantissa subfield")
	}
	if d.Exponent.ResetGroup == "" {
		d.Exponent.ResetGroup = d.ResetGroup
	}
	if d.Mantissa.ResetGroup == "" {
		d.Mantissa.ResetGroup = d.ResetGroup
	}
	if _, err := b.assignAndEmit(d.Exponent); err != nil {
		return err
	}
	_, err := b.assignAndEmit(d.Mantissa)
	return err
}

// Build finalizes the compiled Catalog. The Builder must not be reused
// afterward.
func (b *Builder) Build() (*Catalog, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.inTemplate {
		return nil, b.fail(b.curTemplateName, "", "template left open at Build")
	}

	f := dict.NewFactory(b.nextInt32, b.nextInt64, b.nextBytes)
	f.Defaults.Int32 = make([]int32, b.nextInt32)
	for i, v := range b.int32Defaults {
		f.Defaults.Int32[i] = v
	}
	f.Defaults.Int64 = make([]int64, b.nextInt64)
	for i, v := range b.int64Defaults {
		f.Defaults.Int64[i] = v
	}
	f.Defaults.Bytes = make([][]byte, b.nextBytes)
	for i, v := range b.bytesDefaults {
		f.Defaults.Bytes[i] = v
	}
	for name, g := range b.resetGroups {
		f.Groups[name] = *g
	}

	return &Catalog{
		Script:       b.script,
		Templates:    b.templates,
		templateByID: b.templateByID,
		Fragments:    b.fragments,
		MaxPMapBytes: pmapBitsToBytes(b.maxPMapBits),
		Constants:    b.constants,
		Dict:         f,
	}, nil
}

func pmapBitsToBytes(bits int) int {
	if bits == 0 {
		return 0
	}
	return (bits + 6) / 7
}

// emitToken appends tok to the script and to the nearest enclosing
// template/sequence fragment accumulator, if any.
func (b *Builder) emitToken(f token.Field) {
	tok := token.Pack(f)
	b.script = append(b.script, tok)
	if n := len(b.fragStack); n > 0 {
		acc := b.fragStack[n-1]
		acc.scriptLen++
		acc.slabSlots += f.Type.SlabSlots()
	}
}

// emitBracket appends a Group open/close token without touching the
// current top fragment accumulator's scriptLen, since a bracket token
// belongs to the fragment it opens/closes, not to whichever fragment
// happens to be on top of the stack at the moment. The callers count it
// themselves: an open bracket through the new fragment's initial scriptLen
// of 1, a close bracket by bumping the popped fragment's scriptLen after
// popping it.
func (b *Builder) emitBracket(f token.Field) {
	b.script = append(b.script, token.Pack(f))
}

func (b *Builder) popFrag() *frag {
	n := len(b.fragStack)
	f := b.fragStack[n-1]
	b.fragStack = b.fragStack[:n-1]
	return f
}

func (b *Builder) popPMap() *pmapScope {
	n := len(b.pmapStack)
	s := b.pmapStack[n-1]
	b.pmapStack = b.pmapStack[:n-1]
	return s
}

func (b *Builder) consumePMapBit() {
	for i := len(b.pmapStack) - 1; i >= 0; i-- {
		if b.pmapStack[i].hasPMap {
			b.pmapStack[i].bits++
			return
		}
	}
}

// assignAndEmit resolves spec's dictionary slot (assigning one if
// spec.Instance < 0), records its default and reset-group membership, and
// emits its token.
func (b *Builder) assignAndEmit(spec FieldSpec) (int, error) {
	if spec.Op.UsesPMapBit(spec.Type.Optional()) {
		b.consumePMapBit()
	}

	instance := spec.Instance
	kind, hasSlot := slotKindOf(spec.Type)
	if hasSlot {
		if instance < 0 {
			switch kind {
			case dict.Int32Slot:
				instance = b.nextInt32
				b.nextInt32++
			case dict.Int64Slot:
				instance = b.nextInt64
				b.nextInt64++
			case dict.BytesSlot:
				instance = b.nextBytes
				b.nextBytes++
			}
		} else {
			switch kind {
			case dict.Int32Slot:
				if instance >= b.nextInt32 {
					b.nextInt32 = instance + 1
				}
			case dict.Int64Slot:
				if instance >= b.nextInt64 {
					b.nextInt64 = instance + 1
				}
			case dict.BytesSlot:
				if instance >= b.nextBytes {
					b.nextBytes = instance + 1
				}
			}
		}

		if spec.HasDefault {
			switch kind {
			case dict.Int32Slot:
				b.int32Defaults[instance] = spec.Int32Default
			case dict.Int64Slot:
				b.int64Defaults[instance] = spec.Int64Default
			case dict.BytesSlot:
				b.bytesDefaults[instance] = spec.BytesDefault
			}
		}

		if spec.Type == token.AsciiTextOpt || spec.Type == token.AsciiText ||
			spec.Type == token.UnicodeTextOpt || spec.Type == token.UnicodeText ||
			spec.Type == token.ByteVectorOpt || spec.Type == token.ByteVector {
			if spec.Op == token.Constant {
				b.registerConstant(instance, spec.BytesDefault)
			}
		}

		// A field with no explicit ResetGroup simply keeps its dictionary
		// slot value across messages and templates, FAST's default: it is
		// never bucketed into a reset group at all.
		if spec.ResetGroup != "" {
			g := b.resetGroups[spec.ResetGroup]
			if g == nil {
				g = &dict.ResetGroup{Name: spec.ResetGroup}
				b.resetGroups[spec.ResetGroup] = g
			}
			entry := dict.ResetEntry{Kind: kind, Slot: instance, InitialAbsent: !spec.HasDefault}
			switch kind {
			case dict.Int32Slot:
				entry.Int32Initial = spec.Int32Default
			case dict.Int64Slot:
				entry.Int64Initial = spec.Int64Default
			case dict.BytesSlot:
				entry.BytesInitial = spec.BytesDefault
			}
			g.Entries = append(g.Entries, entry)
		}
	} else {
		if instance < 0 {
			instance = 0
		}
	}

	b.emitToken(token.Field{
		Type:     spec.Type,
		Op:       spec.Op,
		Optional: spec.Type.Optional(),
		Instance: instance,
	})
	return instance, nil
}

func (b *Builder) registerConstant(instance int, value []byte) {
	for len(b.constants) <= instance {
		b.constants = append(b.constants, nil)
	}
	b.constants[instance] = value
}

func slotKindOf(t token.Type) (dict.SlotKind, bool) {
	switch t {
	case token.Int32, token.Int32Opt, token.DecimalExponent, token.DecimalExponentOpt, token.GroupLength:
		return dict.Int32Slot, true
	case token.Int64, token.Int64Opt, token.DecimalMantissa, token.DecimalMantissaOpt:
		return dict.Int64Slot, true
	case token.AsciiText, token.AsciiTextOpt, token.UnicodeText, token.UnicodeTextOpt,
		token.ByteVector, token.ByteVectorOpt:
		return dict.BytesSlot, true
	default:
		return 0, false
	}
}
