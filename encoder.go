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

// Encoder is the encode-side half of a Ring: it drains fragments a
// producer goroutine wrote through the Ring's Producer side and serializes
// them to wire bytes against a compiled Catalog's token script, in the
// same order a Decoder's Reactor would have produced them. An Encoder is
// bound to exactly one goroutine for its lifetime, matching the affinity
// requirement of the Consumer it drives.
type Encoder struct {
	w *reactor.Writer
}

// NewEncoder returns an Encoder that drains fragments from cons, encodes
// them against cat, and writes wire bytes to dst.
func NewEncoder(cat *Catalog, dst io.Writer, cons *Consumer, cfg Config) (*Encoder, error) {
	bufSize := cfg.MaxTextLen
	if cfg.MaxByteVectorLen > bufSize {
		bufSize = cfg.MaxByteVectorLen
	}
	wr := prim.NewWriter(dst, bufSize)

	w, err := reactor.NewWriter(cat.inner, wr, cons, cfg.PreambleBytes)
	if err != nil {
		return nil, &Error{Kind: ErrCatalogError, Err: err}
	}
	return &Encoder{w: w}, nil
}

// Next drains and serializes exactly one top-level message. preamble is
// written verbatim ahead of the template id and must be exactly
// Config.PreambleBytes long, since it never passes through the ring. It
// returns io.EOF once the ring's end-of-stream sentinel has been drained.
func (e *Encoder) Next(ctx context.Context, preamble []byte) (templateID int, err error) {
	id, err := e.w.Next(ctx, preamble)
	if err != nil {
		return 0, classify(err)
	}
	return id, nil
}

// State reports the encoder's position between calls to Next.
func (e *Encoder) State() State { return e.w.State() }
