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
	"context"
	"io"

	"github.com/fastpb-io/fastpb/internal/prim"
	"github.com/fastpb-io/fastpb/internal/reactor"
)

// Fragment describes one decoded top-level message: which template it was
// and the preamble bytes (if Config.PreambleBytes is nonzero) that
// preceded its template id on the wire. The message's own field values are
// not returned here; drain them from the Ring's Consumer side in the shape
// the Decoder publishes them: a two-slot header fragment naming the
// template, then one fragment per run of fields between sequence
// boundaries, each ending in a bytes-consumed slot.
type Fragment = reactor.Fragment

// Decoder is the decode-side half of a Ring: it reads a byte stream
// against a compiled Catalog's token script and publishes one Ring
// fragment per template body and per repeating-group repetition. A
// Decoder is bound to exactly one goroutine for its lifetime, matching the
// affinity requirement of the Producer it drives.
type Decoder struct {
	r *reactor.Reactor
}

// NewDecoder returns a Decoder that reads wire bytes from src, decodes them
// against cat, and publishes fragments through prod. prod should come from
// the same Ring a Consumer on another goroutine drains.
func NewDecoder(cat *Catalog, src io.Reader, prod *Producer, cfg Config) (*Decoder, error) {
	bufSize := cfg.MaxTextLen
	if cfg.MaxByteVectorLen > bufSize {
		bufSize = cfg.MaxByteVectorLen
	}
	rd := prim.NewReader(src, bufSize)

	r, err := reactor.New(cat.inner, rd, prod, cfg.PreambleBytes)
	if err != nil {
		return nil, &Error{Kind: ErrCatalogError, Err: err}
	}
	return &Decoder{r: r}, nil
}

// Next decodes exactly one top-level message, blocking (via ctx-aware
// spinning against the Ring) until enough space is free to publish it. It
// returns io.EOF once the byte source is exhausted at a clean message
// boundary, after publishing the Ring's end-of-stream sentinel.
func (d *Decoder) Next(ctx context.Context) (Fragment, error) {
	f, err := d.r.Next(ctx)
	if err != nil {
		return Fragment{}, classify(err)
	}
	return f, nil
}

// State reports the decoder's position between calls to Next: awaiting a
// template, inside a message body, or inside a repeating group.
func (d *Decoder) State() State { return d.r.State() }

// State names where a Decoder or Encoder sits between calls to Next.
type State = reactor.State

const (
	AwaitTemplate = reactor.AwaitTemplate
	InMessage     = reactor.InMessage
	InSequence    = reactor.InSequence
	EndOfStream   = reactor.EndOfStream
)
