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

// Package fastpb decodes and encodes FAST-framed message streams against a
// compiled template catalog.
//
// A Catalog is compiled once, offline, from a stream of template events (an
// XML template file's SAX events, typically) via CatalogBuilder, or loaded
// back from the binary form a prior compile produced. A Decoder walks a
// byte stream against the catalog's token script and publishes one Ring
// fragment per message (and per repeating-group repetition) for a
// consumer goroutine to drain with the Ring's own Producer/Consumer pair.
// An Encoder runs the same script in reverse: it drains fragments a
// producer goroutine wrote into the Ring and serializes them back to wire
// bytes.
//
// The package does no I/O of its own beyond reading the io.Reader given to
// NewDecoder and writing the io.Writer given to NewEncoder; callers own the
// network or file connections that back a stream.
package fastpb
