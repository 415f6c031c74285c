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
	"errors"
	"fmt"
	"io"

	"github.com/fastpb-io/fastpb/internal/prim"
	"github.com/fastpb-io/fastpb/internal/reactor"
	"github.com/fastpb-io/fastpb/internal/ring"
)

// Sentinel error kinds a Decoder or Encoder failure unwraps to, matched
// with errors.Is. A *Error carries the diagnostic context (which template,
// how far into its script, how many wire bytes had been consumed) that
// located the failure; the sentinel names what kind of failure it was.
var (
	// ErrUnexpectedEndOfStream means the byte source (or sink) was
	// exhausted mid-field, as opposed to at a clean message boundary.
	ErrUnexpectedEndOfStream = errors.New("fastpb: unexpected end of stream")
	// ErrProtocolViolation means the wire bytes disagreed with the
	// catalog's script: a PMap ran past its declared bound, a forbidden
	// null encoding, or similar structural desync between encoder and
	// decoder.
	ErrProtocolViolation = errors.New("fastpb: protocol violation")
	// ErrCatalogError means a reference a CatalogBuilder event made has no
	// corresponding entry in the compiled catalog, the compiled script
	// needs a PMap scope it never opened, or a Decoder or Encoder could not
	// be built against the catalog. A template id on the wire that
	// the catalog lacks is reported as ErrProtocolViolation instead.
	ErrCatalogError = errors.New("fastpb: catalog error")
	// ErrRingOverflow means a fragment's variable-length payload would
	// overrun blob space the ring's consumer has not released yet.
	ErrRingOverflow = errors.New("fastpb: ring overflow")
	// ErrShutdown means the context passed to a Decoder's or Encoder's Next
	// was cancelled or passed its deadline while it was waiting on ring
	// space. The ring's own shutdown flag (Ring.RequestShutdown) does not
	// produce it.
	ErrShutdown = errors.New("fastpb: shutdown requested")
)

// Error decorates one of the sentinel kinds above with the location that
// produced it: which template was open, how far into its script execution
// stood (its field cursor), and how many bytes of the underlying stream
// had been consumed at the time.
type Error struct {
	Kind       error
	TemplateID int
	Cursor     int
	Offset     int64
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fastpb: template %d cursor %d offset %d: %v", e.TemplateID, e.Cursor, e.Offset, e.Err)
}

func (e *Error) Unwrap() []error { return []error{e.Kind, e.Err} }

// classify maps an error surfacing from internal/reactor to a public Error
// naming one of the sentinel kinds above, so callers of Decoder.Next and
// Encoder.Next can use errors.Is without reaching into internal packages.
func classify(err error) error {
	if err == nil || errors.Is(err, io.EOF) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: ErrShutdown, Err: err}
	}

	var rerr *reactor.Error
	if errors.As(err, &rerr) {
		return &Error{
			Kind:       kindOf(err),
			TemplateID: rerr.TemplateID,
			Cursor:     rerr.Cursor,
			Offset:     rerr.Offset,
			Err:        err,
		}
	}

	return &Error{Kind: kindOf(err), Err: err}
}

// kindOf walks err's Unwrap chain for the most specific sentinel that
// classify recognizes, defaulting to ErrProtocolViolation for a wire-level
// desync that matched none of the more specific kinds. An unknown
// template-id is itself a protocol violation, not a catalog error: the
// catalog compiled fine, the wire just named a template it doesn't have.
func kindOf(err error) error {
	var unknown *reactor.ErrUnknownTemplate
	var noScope *reactor.ErrNoPMapScope
	switch {
	case errors.As(err, &unknown):
		return ErrProtocolViolation
	case errors.As(err, &noScope):
		return ErrCatalogError
	case errors.Is(err, prim.ErrUnexpectedEndOfStream):
		return ErrUnexpectedEndOfStream
	case errors.Is(err, ring.ErrOverflow):
		return ErrRingOverflow
	case errors.Is(err, prim.ErrProtocolViolation):
		return ErrProtocolViolation
	default:
		return ErrProtocolViolation
	}
}
