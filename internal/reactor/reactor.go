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

package reactor

import (
	"context"
	"errors"
	"io"
	"runtime"

	"github.com/fastpb-io/fastpb/internal/catalog"
	"github.com/fastpb-io/fastpb/internal/dict"
	"github.com/fastpb-io/fastpb/internal/dispatch"
	"github.com/fastpb-io/fastpb/internal/prim"
	"github.com/fastpb-io/fastpb/internal/ring"
	"github.com/fastpb-io/fastpb/internal/token"
)

// Fragment describes one decoded top-level message: which template it was
// and the preamble bytes (if configured) that preceded its template id on
// the wire. The message's field values themselves are not returned here;
// the caller drains them from the ring this Reactor was built with: a
// two-slot header fragment naming the template, then one fragment per run
// of fields between sequence boundaries (repeated per sequence repetition),
// each holding the run's field slots plus a trailing bytes-consumed slot.
type Fragment struct {
	TemplateID int
	Preamble   []byte
}

// Reactor is the decode-side state machine: it reads a template's token
// script against a byte stream and publishes one ring fragment per
// template body and per sequence repetition. A Reactor is bound to exactly
// one goroutine for its lifetime, enforced (in debug builds) through the
// same affinity check as the ring.Producer it drives.
type Reactor struct {
	cat  *catalog.Catalog
	dict *dict.Dictionary
	rd   *prim.Reader
	prod *ring.Producer

	preambleBytes int
	pmapStack     *prim.Stack[prim.PMapReader]

	state      State
	templateID int
	cursor     int
}

// New returns a Reactor that decodes against cat, reading wire bytes from
// rd and publishing fragments to prod. preambleBytes is the fixed-size
// per-message header (spec's Config.preambleBytes) copied verbatim ahead
// of every template id; pass 0 if the wire carries none.
func New(cat *catalog.Catalog, rd *prim.Reader, prod *ring.Producer, preambleBytes int) (*Reactor, error) {
	d, err := cat.Dict.NewDictionary()
	if err != nil {
		return nil, err
	}
	return &Reactor{
		cat:           cat,
		dict:          d,
		rd:            rd,
		prod:          prod,
		preambleBytes: preambleBytes,
		pmapStack:     prim.NewStack[prim.PMapReader](8),
	}, nil
}

// State reports the machine's current state.
func (r *Reactor) State() State { return r.state }

// Next decodes exactly one top-level message: it resolves the next
// template id, resets the dictionaries its reset groups name, executes
// every field in the template (recursing into any sequences), and
// publishes one ring fragment per template body and per sequence
// repetition along the way. It returns io.EOF once the source is
// exhausted at a clean message boundary, after publishing the ring's EOF
// sentinel.
func (r *Reactor) Next(ctx context.Context) (Fragment, error) {
	if r.state == EndOfStream {
		return Fragment{}, io.EOF
	}

	info, preamble, err := r.awaitTemplate(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			r.state = EndOfStream
			r.prod.PublishEOF()
			return Fragment{}, io.EOF
		}
		return Fragment{}, err
	}
	r.templateID = info.ID
	r.state = InMessage

	bodyClose := info.Limit - 1
	for r.cursor < bodyClose {
		stopIdx, count, err := r.runFragment(ctx, bodyClose)
		if err != nil {
			return Fragment{}, err
		}
		if stopIdx < bodyClose {
			if err := r.runSequence(ctx, stopIdx, count); err != nil {
				return Fragment{}, err
			}
		}
	}
	if info.HasPMap {
		r.pmapStack.Pop()
	}
	r.cursor = info.Limit
	r.state = AwaitTemplate

	return Fragment{TemplateID: info.ID, Preamble: preamble}, nil
}

// awaitTemplate reads the preamble and template id, resolves the template,
// resets its dictionaries, opens its PMap if it has one, and publishes the
// two-slot header fragment naming it. It reports io.EOF (not an error) when
// the source is exhausted before any byte of a new message was consumed.
func (r *Reactor) awaitTemplate(ctx context.Context) (catalog.TemplateInfo, []byte, error) {
	startOffset := r.rd.Offset

	var preamble []byte
	if r.preambleBytes > 0 {
		b, err := r.rd.ReadRaw(r.preambleBytes)
		if err != nil {
			if r.rd.Offset == startOffset {
				return catalog.TemplateInfo{}, nil, io.EOF
			}
			return catalog.TemplateInfo{}, nil, wrapErr(r.templateID, r.cursor, r.rd.Offset, err)
		}
		preamble = b
	}

	idOffset := r.rd.Offset
	id, err := r.rd.ReadVarUint()
	if err != nil {
		if r.rd.Offset == idOffset {
			return catalog.TemplateInfo{}, nil, io.EOF
		}
		return catalog.TemplateInfo{}, nil, wrapErr(r.templateID, r.cursor, r.rd.Offset, err)
	}

	info, ok := r.cat.TemplateByID(int(id))
	if !ok {
		return catalog.TemplateInfo{}, nil, wrapErr(r.templateID, r.cursor, r.rd.Offset, &ErrUnknownTemplate{TemplateID: int(id)})
	}

	for _, name := range info.ResetGroups {
		r.cat.Dict.Reset(name, r.dict)
	}

	const headerSlots = 2
	for !r.prod.Reserve(headerSlots) {
		if err := ctxErr(ctx); err != nil {
			return catalog.TemplateInfo{}, nil, err
		}
		runtime.Gosched()
	}
	r.prod.WriteSlot(0, int32(info.ID))
	r.prod.Publish(headerSlots, false)

	if info.HasPMap {
		pm, err := prim.OpenPMap(r.rd, r.cat.MaxPMapBytes)
		if err != nil {
			return catalog.TemplateInfo{}, nil, wrapErr(info.ID, r.cursor, r.rd.Offset, err)
		}
		r.pmapStack.Push(pm)
	}
	r.cursor = info.Start + 1

	return info, preamble, nil
}

// runFragment executes tokens from r.cursor up to the first of: a nested
// sequence's Group-open token, or endIdx (this body's own closing
// bracket). It reserves and publishes exactly one ring fragment sized to
// whatever it actually scans, so a template or sequence body that mixes
// fixed fields with sequences ends up as several small ring fragments
// rather than one the catalog never sized as such.
//
// It returns the index it stopped at (== endIdx if the whole body ran
// without hitting a sequence) and, when it stopped at a sequence, the
// value of that sequence's GroupLength field, which by construction is
// always the last field of the run that just ran.
func (r *Reactor) runFragment(ctx context.Context, endIdx int) (stopIdx int, seqCount int32, err error) {
	start := r.cursor
	i, slabSlots := scanRun(r.cat.Script, r.cat.Fragments, start, endIdx)

	n := slabSlots + 1
	for !r.prod.Reserve(n) {
		if err := ctxErr(ctx); err != nil {
			return 0, 0, err
		}
		runtime.Gosched()
	}

	slot := 0
	var lastNumeric int32
	var groupPushed []bool
	for idx := start; idx < i; idx++ {
		tok := r.cat.Script[idx]
		if tok.Type() == token.Group {
			if tok.GroupOpen() {
				hasPMap := tok.GroupHasPMap()
				if hasPMap {
					pm, perr := prim.OpenPMap(r.rd, r.cat.MaxPMapBytes)
					if perr != nil {
						r.prod.Abandon()
						return 0, 0, wrapErr(r.templateID, idx, r.rd.Offset, perr)
					}
					r.pmapStack.Push(pm)
				}
				groupPushed = append(groupPushed, hasPMap)
			} else {
				hasPMap := groupPushed[len(groupPushed)-1]
				groupPushed = groupPushed[:len(groupPushed)-1]
				if hasPMap {
					r.pmapStack.Pop()
				}
			}
			continue
		}

		if tok.Type() == token.DecimalExponent || tok.Type() == token.DecimalExponentOpt {
			v, err := r.decodeField(idx, tok)
			if err != nil {
				r.prod.Abandon()
				return 0, 0, err
			}
			r.prod.WriteSlot(slot, decimalExponentSlot(v))
			slot++
			if v.Null {
				r.prod.WriteSlot(slot, int64Hi(NullInt64))
				r.prod.WriteSlot(slot+1, int64Lo(NullInt64))
				slot += 2
				idx++ // the mantissa subfield is omitted from the wire entirely
			}
			continue
		}

		v, err := r.decodeField(idx, tok)
		if err != nil {
			r.prod.Abandon()
			return 0, 0, err
		}
		written, werr := r.writeValue(&slot, tok.Type(), v)
		if werr != nil {
			r.prod.Abandon()
			return 0, 0, wrapErr(r.templateID, idx, r.rd.Offset, werr)
		}
		lastNumeric = written
	}

	r.prod.Publish(n, false)
	r.cursor = i
	return i, lastNumeric, nil
}

// runSequence executes count repetitions of the sequence body opened at
// seqOpenIdx, recursing into runFragment/runSequence exactly as a
// template's own body does, since a sequence body can itself mix fields
// with further nested sequences.
func (r *Reactor) runSequence(ctx context.Context, seqOpenIdx int, count int32) error {
	tok := r.cat.Script[seqOpenIdx]
	hasPMap := tok.GroupHasPMap()
	closeIdx := matchingClose(r.cat.Script, seqOpenIdx)

	prevState := r.state
	r.state = InSequence
	defer func() { r.state = prevState }()

	for rep := int32(0); rep < count; rep++ {
		r.cursor = seqOpenIdx + 1
		if hasPMap {
			pm, err := prim.OpenPMap(r.rd, r.cat.MaxPMapBytes)
			if err != nil {
				return wrapErr(r.templateID, seqOpenIdx, r.rd.Offset, err)
			}
			r.pmapStack.Push(pm)
		}
		for r.cursor < closeIdx {
			stopIdx, nested, err := r.runFragment(ctx, closeIdx)
			if err != nil {
				return err
			}
			if stopIdx < closeIdx {
				if err := r.runSequence(ctx, stopIdx, nested); err != nil {
					return err
				}
			}
		}
		if hasPMap {
			r.pmapStack.Pop()
		}
	}
	r.cursor = closeIdx + 1
	return nil
}

func (r *Reactor) decodeField(idx int, tok token.Token) (dispatch.Value, error) {
	pm, err := r.currentPMap(tok, idx)
	if err != nil {
		return dispatch.Value{}, err
	}
	v, err := dispatch.Decode(tok, r.rd, pm, r.dict, r.cat.Constants)
	if err != nil {
		return dispatch.Value{}, wrapErr(r.templateID, idx, r.rd.Offset, err)
	}
	return v, nil
}

func (r *Reactor) currentPMap(tok token.Token, idx int) (*prim.PMapReader, error) {
	f := tok.Unpack()
	if !f.Op.UsesPMapBit(f.Optional) {
		return &prim.PMapReader{}, nil
	}
	if r.pmapStack.Len() == 0 {
		return nil, wrapErr(r.templateID, idx, r.rd.Offset, &ErrNoPMapScope{Cursor: idx})
	}
	return r.pmapStack.Top(), nil
}

// writeValue writes v's ring representation starting at *slot, advances
// *slot past it, and returns the value as an int32 for the GroupLength
// case (the only caller that needs the plain numeric result back).
func (r *Reactor) writeValue(slot *int, ty token.Type, v dispatch.Value) (int32, error) {
	switch ty {
	case token.Int64, token.Int64Opt, token.DecimalMantissa, token.DecimalMantissaOpt:
		hi, lo := int64Hi(v.Int), int64Lo(v.Int)
		if v.Null {
			hi, lo = int64Hi(NullInt64), int64Lo(NullInt64)
		}
		r.prod.WriteSlot(*slot, hi)
		r.prod.WriteSlot(*slot+1, lo)
		*slot += 2
		return 0, nil
	case token.AsciiText, token.AsciiTextOpt, token.UnicodeText, token.UnicodeTextOpt,
		token.ByteVector, token.ByteVectorOpt:
		if v.Null {
			r.prod.WriteSlot(*slot, 0)
			r.prod.WriteSlot(*slot+1, nullBytesLength)
			*slot += 2
			return 0, nil
		}
		meta, err := r.prod.AppendBytes(v.Bytes)
		if err != nil {
			return 0, err
		}
		r.prod.WriteSlot(*slot, meta)
		r.prod.WriteSlot(*slot+1, int32(len(v.Bytes)))
		*slot += 2
		return 0, nil
	default:
		n := int32(v.Int)
		if v.Null {
			n = NullInt32
		}
		r.prod.WriteSlot(*slot, n)
		*slot++
		return n, nil
	}
}

func decimalExponentSlot(v dispatch.Value) int32 {
	if v.Null {
		return NullInt32
	}
	return int32(v.Int)
}

// matchingClose returns the index of the Group-close token that matches
// the Group-open at openIdx, treating every intervening group (plain or
// sequence) as ordinary nesting to skip over.
func matchingClose(script []token.Token, openIdx int) int {
	depth := 0
	for i := openIdx + 1; i < len(script); i++ {
		tok := script[i]
		if tok.Type() != token.Group {
			continue
		}
		if tok.GroupOpen() {
			depth++
			continue
		}
		if depth == 0 {
			return i
		}
		depth--
	}
	return len(script) - 1
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
