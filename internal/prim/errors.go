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

package prim

import (
	"errors"
	"io"
)

// ErrWouldBlock is returned by a Source or Sink when it has no data
// available (or no room to write) without blocking the calling goroutine.
// A Reader keeps a partially read varint across it. internal/reactor has no
// resume path for it: mid-message it abandons the ring fragment in progress
// and returns the error from Next, and before a message's first byte it is
// treated as end of stream, like any other read error.
var ErrWouldBlock = errors.New("fastpb: would block")

// ErrUnexpectedEndOfStream is returned when the source is exhausted in the
// middle of a varint or a length-delimited field.
var ErrUnexpectedEndOfStream = io.ErrUnexpectedEOF

// ErrProtocolViolation is returned for structural wire errors: varint
// overflow, PMap bit requests beyond the catalog's precomputed bound, or a
// forbidden null encoding.
var ErrProtocolViolation = errors.New("fastpb: protocol violation")

// ProtocolError decorates ErrProtocolViolation with a human-readable reason.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "fastpb: protocol violation: " + e.Reason }

func (e *ProtocolError) Unwrap() error { return ErrProtocolViolation }

func protoErr(reason string) error { return &ProtocolError{Reason: reason} }
