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

import "math"

// NullInt32 and NullInt64 are the ring-slot sentinels a null-valued numeric
// field is written as. The wire's own null encoding (FAST's zero-means-null
// shift) is resolved away by internal/dispatch before a value ever reaches
// the ring, so the ring needs its own out-of-band marker; ordinary FIX
// fields do not take on the extreme of their type's range, and the FAST
// operator matrix never predicts a value from one of these, so a real
// field value colliding with the sentinel would require the source data
// itself to carry INT32_MIN or INT64_MIN.
const (
	NullInt32 = math.MinInt32
	NullInt64 = math.MinInt64
)

// nullBytesLength is written to a variable-length field's length slot when
// the field is null. Genuine lengths are never negative.
const nullBytesLength = -1

// int64Hi/int64Lo/int64FromSlots split a 64-bit dictionary value across the
// two slab slots a long field occupies, MSB slot first.
func int64Hi(v int64) int32 { return int32(v >> 32) }
func int64Lo(v int64) int32 { return int32(uint32(v)) }

func int64FromSlots(hi, lo int32) int64 {
	return int64(hi)<<32 | int64(uint32(lo))
}
