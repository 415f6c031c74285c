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

package token

// SlabSlots returns the number of int32 ring slots a field of type t
// occupies: int=1, long=2, decimal=3 (exp+mantissa),
// variable-length=2 ({meta, length}), GroupLength=1 (the repetition
// count). Group/Dictionary tokens carry no slab payload of their own.
func (t Type) SlabSlots() int {
	switch t {
	case Int32, Int32Opt, DecimalExponent, DecimalExponentOpt:
		return 1
	case Int64, Int64Opt, DecimalMantissa, DecimalMantissaOpt:
		return 2
	case AsciiText, AsciiTextOpt, UnicodeText, UnicodeTextOpt, ByteVector, ByteVectorOpt:
		return 2
	case GroupLength:
		return 1
	default:
		return 0
	}
}
