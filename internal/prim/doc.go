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

// Package prim implements the FAST primitive codec: stop-bit variable-length
// integers, the presence-map (PMap) bit stack built on the same byte format,
// and the pluggable byte source/sink the rest of the engine reads and writes
// through.
//
// Everything in this package is byte-exact with the FAST 1.1 wire encoding:
// big-endian, seven data bits per byte, with the eighth (high) bit set on the
// terminating byte of a run.
package prim
