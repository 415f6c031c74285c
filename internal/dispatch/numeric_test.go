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

package dispatch_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fastpb-io/fastpb/internal/dict"
	"github.com/fastpb-io/fastpb/internal/dispatch"
	"github.com/fastpb-io/fastpb/internal/prim"
	"github.com/fastpb-io/fastpb/internal/token"
)

// roundTripNumeric encodes v through op/optional, then decodes the bytes
// back with a fresh dictionary primed the same way, asserting the two
// dictionaries and decoded values agree.
func roundTripNumeric(t *testing.T, ty token.Type, op token.Op, optional bool, prime func(d *dict.Dictionary), v dispatch.Value) {
	t.Helper()

	f := token.Field{Type: ty, Op: op, Optional: optional, Instance: 0}
	tok := token.Pack(f)

	encDict := dict.New(1, 1, 1)
	if prime != nil {
		prime(encDict)
	}
	sink := &prim.SliceSink{}
	wr := prim.NewWriter(sink, 64)
	pw := prim.NewPMapWriter(8)
	require.NoError(t, dispatch.Encode(tok, wr, &pw, encDict, nil, v))
	require.NoError(t, wr.Flush())

	decDict := dict.New(1, 1, 1)
	if prime != nil {
		prime(decDict)
	}
	pr, err := prim.OpenPMap(prim.NewReader(prim.NewSliceSource(pw.Encode()), 64), 1)
	require.NoError(t, err)

	body := prim.NewReader(prim.NewSliceSource(sink.Buf), 64)
	got, err := dispatch.Decode(tok, body, &pr, decDict, nil)
	require.NoError(t, err)

	require.Equal(t, v.Null, got.Null)
	if !v.Null {
		require.Equal(t, v.Int, got.Int)
	}
}

func TestNumericNoneMandatory(t *testing.T) {
	roundTripNumeric(t, token.Int32, token.None, false, nil, dispatch.Value{Int: 42})
}

func TestNumericNoneOptionalNull(t *testing.T) {
	roundTripNumeric(t, token.Int32Opt, token.None, true, nil, dispatch.Value{Null: true})
}

func TestNumericNoneOptionalNegative(t *testing.T) {
	roundTripNumeric(t, token.Int64Opt, token.None, true, nil, dispatch.Value{Int: -7})
}

func TestNumericDefaultUsesDeclaredValueWhenBitClear(t *testing.T) {
	prime := func(d *dict.Dictionary) { d.SetInt32(0, 99) }
	roundTripNumeric(t, token.Int32, token.Default, false, prime, dispatch.Value{Int: 99})
}

func TestNumericDefaultTransmitsWhenDifferent(t *testing.T) {
	prime := func(d *dict.Dictionary) { d.SetInt32(0, 99) }
	roundTripNumeric(t, token.Int32, token.Default, false, prime, dispatch.Value{Int: 5})
}

func TestNumericCopyPredictsRepeatedValue(t *testing.T) {
	prime := func(d *dict.Dictionary) { d.SetInt32(0, 7) }
	roundTripNumeric(t, token.Int32, token.Copy, false, prime, dispatch.Value{Int: 7})
}

func TestNumericIncrementPredictsSuccessor(t *testing.T) {
	prime := func(d *dict.Dictionary) { d.SetInt32(0, 7) }
	roundTripNumeric(t, token.Int32, token.Increment, false, prime, dispatch.Value{Int: 8})
}

func TestNumericDeltaFromUndefinedBase(t *testing.T) {
	roundTripNumeric(t, token.Int64, token.Delta, false, nil, dispatch.Value{Int: -3})
}

func TestNumericDeltaOptionalNull(t *testing.T) {
	roundTripNumeric(t, token.Int64Opt, token.Delta, true, nil, dispatch.Value{Null: true})
}

func TestNumericConstantMandatoryTransmitsNoBit(t *testing.T) {
	f := token.Field{Type: token.Int32, Op: token.Constant, Instance: 0}
	tok := token.Pack(f)

	d := dict.New(1, 1, 1)
	d.SetInt32(0, 55)
	sink := &prim.SliceSink{}
	wr := prim.NewWriter(sink, 64)
	pw := prim.NewPMapWriter(8)
	require.NoError(t, dispatch.Encode(tok, wr, &pw, d, nil, dispatch.Value{Int: 55}))
	require.NoError(t, wr.Flush())
	require.Empty(t, sink.Buf)

	pr, err := prim.OpenPMap(prim.NewReader(prim.NewSliceSource(pw.Encode()), 64), 1)
	require.NoError(t, err)
	got, err := dispatch.Decode(tok, prim.NewReader(prim.NewSliceSource(sink.Buf), 64), &pr, d, nil)
	require.NoError(t, err)
	require.Equal(t, int64(55), got.Int)
}

func TestNumericConstantOptionalUsesOneBit(t *testing.T) {
	roundTripNumeric(t, token.Int32Opt, token.Constant, true, func(d *dict.Dictionary) { d.SetInt32(0, 55) }, dispatch.Value{Int: 55})
}
