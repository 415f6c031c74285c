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
	"fmt"
	"io"
	"runtime"

	"github.com/fastpb-io/fastpb/internal/catalog"
	"github.com/fastpb-io/fastpb/internal/dict"
	"github.com/fastpb-io/fastpb/internal/dispatch"
	"github.com/fastpb-io/fastpb/internal/prim"
	"github.com/fastpb-io/fastpb/internal/ring"
	"github.com/fastpb-io/fastpb/internal/token"
)

// pmapFrame is one open PMap scope on the encode side: the presence bits
// accumulated so far, and a scratch buffer the scope's fields write their
// bytes into. FAST requires a group's PMap byte run to precede its field
// bytes on the wire, but dispatch.Encode pushes a field's bit and writes its
// bytes in the same call, so both have to land somewhere other than the
// wire directly; the scratch buffer holds the fields, in order, until the
// scope closes and its own PMap bytes are finally known.
type pmapFrame struct {
	pm   prim.PMapWriter
	sink *prim.SliceSink
	sw   *prim.Writer
}

// Writer is the encode-side state machine: it drains ring fragments a host
// produced through the same token script and serializes them to wire bytes
// in FAST order. A Writer is bound to exactly one goroutine for its
// lifetime, following the ring.Consumer it drives.
type Writer struct {
	cat  *catalog.Catalog
	dict *dict.Dictionary
	wr   *prim.Writer
	cons *ring.Consumer

	preambleBytes int
	pmapStack     *prim.Stack[pmapFrame]

	state      State
	templateID int
	cursor     int
}

// NewWriter returns a Writer that encodes against cat, draining fragments
// from cons and writing wire bytes to wr.
func NewWriter(cat *catalog.Catalog, wr *prim.Writer, cons *ring.Consumer, preambleBytes int) (*Writer, error) {
	d, err := cat.Dict.NewDictionary()
	if err != nil {
		return nil, err
	}
	return &Writer{
		cat:           cat,
		dict:          d,
		wr:            wr,
		cons:          cons,
		preambleBytes: preambleBytes,
		pmapStack:     prim.NewStack[pmapFrame](8),
	}, nil
}

// State reports the machine's current state.
func (w *Writer) State() State { return w.state }

// Next drains and serializes exactly one top-level message. preamble is
// written verbatim ahead of the template id and must be exactly
// preambleBytes long, since (unlike every other field) it never passes
// through the ring. It returns io.EOF once the ring's end-of-stream
// sentinel has been drained.
func (w *Writer) Next(ctx context.Context, preamble []byte) (int, error) {
	if w.state == EndOfStream {
		return 0, io.EOF
	}
	if len(preamble) != w.preambleBytes {
		return 0, fmt.Errorf("reactor: preamble is %d bytes, want %d", len(preamble), w.preambleBytes)
	}

	msgID, err := w.awaitMsgID(ctx)
	if err != nil {
		return 0, err
	}
	if msgID == ring.MsgEOF {
		if err := w.claim(ctx, 2); err != nil {
			return 0, err
		}
		w.cons.Release(2)
		w.state = EndOfStream
		return 0, io.EOF
	}

	info, ok := w.cat.TemplateByID(int(msgID))
	if !ok {
		return 0, &ErrUnknownTemplate{TemplateID: int(msgID)}
	}
	if err := w.claim(ctx, 2); err != nil {
		return 0, err
	}
	w.cons.Release(2)

	w.templateID = info.ID
	w.state = InMessage

	for _, name := range info.ResetGroups {
		w.cat.Dict.Reset(name, w.dict)
	}

	if w.preambleBytes > 0 {
		if err := w.wr.WriteRawBytes(preamble); err != nil {
			return 0, err
		}
	}
	if err := w.wr.WriteVarUint(uint64(info.ID)); err != nil {
		return 0, wrapErr(info.ID, w.cursor, 0, err)
	}
	if info.HasPMap {
		w.pushFrame()
	}

	bodyClose := info.Limit - 1
	w.cursor = info.Start + 1
	for w.cursor < bodyClose {
		stopIdx, count, err := w.runFragment(ctx, bodyClose)
		if err != nil {
			return 0, err
		}
		if stopIdx < bodyClose {
			if err := w.runSequence(ctx, stopIdx, count); err != nil {
				return 0, err
			}
		}
	}
	if info.HasPMap {
		if err := w.closeFrame(); err != nil {
			return 0, err
		}
	}
	w.cursor = info.Limit
	w.state = AwaitTemplate

	if err := w.wr.Flush(); err != nil {
		return 0, wrapErr(info.ID, w.cursor, 0, err)
	}
	return info.ID, nil
}

// awaitMsgID polls the ring for the next fragment's header id, yielding to
// the scheduler between attempts since a Writer must never block
// indefinitely waiting on an idle producer.
func (w *Writer) awaitMsgID(ctx context.Context) (int32, error) {
	for {
		if id, ok := w.cons.PeekMsgID(); ok {
			return id, nil
		}
		if err := ctxErr(ctx); err != nil {
			return 0, err
		}
		runtime.Gosched()
	}
}

func (w *Writer) claim(ctx context.Context, n int) error {
	for !w.cons.TryRead(n) {
		if err := ctxErr(ctx); err != nil {
			return err
		}
		runtime.Gosched()
	}
	return nil
}

// runFragment mirrors Reactor.runFragment: it claims one ring fragment
// sized by scanning the same run of tokens, then serializes each field's
// ring value to the currently open PMap scope's scratch writer (or
// directly to the wire, if no scope is open at all).
func (w *Writer) runFragment(ctx context.Context, endIdx int) (stopIdx int, seqCount int32, err error) {
	start := w.cursor
	i, slabSlots := scanRun(w.cat.Script, w.cat.Fragments, start, endIdx)
	n := slabSlots + 1

	if err := w.claim(ctx, n); err != nil {
		return 0, 0, err
	}

	slot := 0
	var lastNumeric int32
	var groupPushed []bool
	for idx := start; idx < i; idx++ {
		tok := w.cat.Script[idx]
		if tok.Type() == token.Group {
			if tok.GroupOpen() {
				hasPMap := tok.GroupHasPMap()
				if hasPMap {
					w.pushFrame()
				}
				groupPushed = append(groupPushed, hasPMap)
			} else {
				hasPMap := groupPushed[len(groupPushed)-1]
				groupPushed = groupPushed[:len(groupPushed)-1]
				if hasPMap {
					if err := w.closeFrame(); err != nil {
						w.cons.Release(n)
						return 0, 0, err
					}
				}
			}
			continue
		}

		if tok.Type() == token.DecimalExponent || tok.Type() == token.DecimalExponentOpt {
			raw := w.cons.ReadSlot(slot)
			slot++
			isNull := raw == NullInt32
			v := dispatch.Value{Int: int64(raw)}
			if isNull {
				v = dispatch.Value{Null: true}
			}
			if err := w.encodeField(idx, tok, v); err != nil {
				w.cons.Release(n)
				return 0, 0, err
			}
			if isNull {
				slot += 2 // skip the paired mantissa's ring placeholder slots
				idx++     // and its script token: nothing was written for it
			}
			continue
		}

		v := w.readValue(&slot, tok.Type())
		if err := w.encodeField(idx, tok, v); err != nil {
			w.cons.Release(n)
			return 0, 0, err
		}
		if tok.Type() == token.GroupLength {
			lastNumeric = int32(v.Int)
		}
	}

	w.cons.Release(n)
	w.cursor = i
	return i, lastNumeric, nil
}

// runSequence mirrors Reactor.runSequence: it re-derives the sequence's
// closing bracket by the same bracket-matching scan and repeats the body
// count times, opening and closing the sequence's own PMap scope (if any)
// once per repetition.
func (w *Writer) runSequence(ctx context.Context, seqOpenIdx int, count int32) error {
	tok := w.cat.Script[seqOpenIdx]
	hasPMap := tok.GroupHasPMap()
	closeIdx := matchingClose(w.cat.Script, seqOpenIdx)

	prevState := w.state
	w.state = InSequence
	defer func() { w.state = prevState }()

	for rep := int32(0); rep < count; rep++ {
		w.cursor = seqOpenIdx + 1
		if hasPMap {
			w.pushFrame()
		}
		for w.cursor < closeIdx {
			stopIdx, nested, err := w.runFragment(ctx, closeIdx)
			if err != nil {
				return err
			}
			if stopIdx < closeIdx {
				if err := w.runSequence(ctx, stopIdx, nested); err != nil {
					return err
				}
			}
		}
		if hasPMap {
			if err := w.closeFrame(); err != nil {
				return err
			}
		}
	}
	w.cursor = closeIdx + 1
	return nil
}

func (w *Writer) encodeField(idx int, tok token.Token, v dispatch.Value) error {
	pm, err := w.currentPMap(tok, idx)
	if err != nil {
		return err
	}
	if err := dispatch.Encode(tok, w.currentSink(), pm, w.dict, w.cat.Constants, v); err != nil {
		return wrapErr(w.templateID, idx, 0, err)
	}
	return nil
}

func (w *Writer) currentPMap(tok token.Token, idx int) (*prim.PMapWriter, error) {
	f := tok.Unpack()
	if !f.Op.UsesPMapBit(f.Optional) {
		return nil, nil
	}
	if w.pmapStack.Len() == 0 {
		return nil, wrapErr(w.templateID, idx, 0, &ErrNoPMapScope{Cursor: idx})
	}
	return &w.pmapStack.Top().pm, nil
}

func (w *Writer) currentSink() *prim.Writer {
	if w.pmapStack.Len() == 0 {
		return w.wr
	}
	return w.pmapStack.Top().sw
}

func (w *Writer) pushFrame() {
	sink := &prim.SliceSink{}
	f := pmapFrame{
		pm:   prim.NewPMapWriter(w.cat.MaxPMapBytes * 7),
		sink: sink,
		sw:   prim.NewWriter(sink, prim.DefaultBufferSize),
	}
	w.pmapStack.Push(f)
}

// closeFrame flushes the top scope's scratch buffer and emits its PMap
// bytes followed by its field bytes into whatever comes next: the parent
// scope's scratch writer if this scope was nested, or the real wire writer
// if it was outermost.
func (w *Writer) closeFrame() error {
	f := w.pmapStack.Pop()
	if err := f.sw.Flush(); err != nil {
		return err
	}
	dest := w.wr
	if w.pmapStack.Len() > 0 {
		dest = w.pmapStack.Top().sw
	}
	if err := dest.WriteRawBytes(f.pm.Encode()); err != nil {
		return err
	}
	return dest.WriteRawBytes(f.sink.Buf)
}

// readValue reads ty's ring representation starting at *slot and advances
// *slot past it, the mirror image of Reactor.writeValue.
func (w *Writer) readValue(slot *int, ty token.Type) dispatch.Value {
	switch ty {
	case token.Int64, token.Int64Opt, token.DecimalMantissa, token.DecimalMantissaOpt:
		hi, lo := w.cons.ReadSlot(*slot), w.cons.ReadSlot(*slot+1)
		*slot += 2
		v := int64FromSlots(hi, lo)
		if v == NullInt64 {
			return dispatch.Value{Null: true}
		}
		return dispatch.Value{Int: v}
	case token.AsciiText, token.AsciiTextOpt, token.UnicodeText, token.UnicodeTextOpt,
		token.ByteVector, token.ByteVectorOpt:
		meta, length := w.cons.ReadSlot(*slot), w.cons.ReadSlot(*slot+1)
		*slot += 2
		if length == nullBytesLength {
			return dispatch.Value{Null: true}
		}
		return dispatch.Value{Bytes: w.cons.ReadBytes(meta, int(length))}
	default:
		raw := w.cons.ReadSlot(*slot)
		*slot++
		if raw == NullInt32 {
			return dispatch.Value{Null: true}
		}
		return dispatch.Value{Int: int64(raw)}
	}
}
