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

package prim_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastpb-io/fastpb/internal/prim"
)

func TestVarintUintIdempotence(t *testing.T) {
	cases := []uint64{
		0, 1, 127, 128, 129, 16383, 16384,
		1<<21 - 1, 1 << 21, 1 << 35, math.MaxUint32, math.MaxUint64,
	}
	for _, v := range cases {
		enc := prim.EncodeUint(nil, v)
		require.LessOrEqual(t, len(enc), prim.MaxVarintLen)
		got, n, err := prim.DecodeUint(enc)
		require.NoError(t, err)
		assert.Equal(t, len(enc), n)
		assert.Equal(t, v, got)
	}
}

func TestVarintIntIdempotence(t *testing.T) {
	cases := []int64{
		0, 1, -1, 63, -64, 64, -65, 8191, -8192,
		math.MaxInt64, math.MinInt64, math.MaxInt32, math.MinInt32,
	}
	for _, v := range cases {
		enc := prim.EncodeInt(nil, v)
		require.LessOrEqual(t, len(enc), prim.MaxVarintLen)
		got, n, err := prim.DecodeInt(enc)
		require.NoError(t, err)
		assert.Equal(t, len(enc), n)
		assert.Equal(t, v, got)
	}
}

func TestReaderResumesAcrossWouldBlock(t *testing.T) {
	enc := prim.EncodeUint(nil, 1<<40)
	src := &blockingSource{data: enc, blockAfter: 2}
	r := prim.NewReader(src, 16)

	_, err := r.ReadVarUint()
	require.ErrorIs(t, err, prim.ErrWouldBlock)

	src.blockAfter = -1
	v, err := r.ReadVarUint()
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<40), v)
}

func TestStopBitFraming(t *testing.T) {
	// 128 requires two groups: 0x01 0x80 (MSB group first, stop bit on last).
	enc := prim.EncodeUint(nil, 128)
	assert.Equal(t, []byte{0x01, 0x80}, enc)

	enc = prim.EncodeUint(nil, 0)
	assert.Equal(t, []byte{0x80}, enc)
}

// TestReaderRejectsOverlongVarint feeds a run of 11 continuation bytes (no
// stop bit set) into ReadVarUint and ReadVarInt, past MaxVarintLen without
// ever terminating, and checks both report ErrProtocolViolation rather than
// looping forever or silently returning a wrong value.
func TestReaderRejectsOverlongVarint(t *testing.T) {
	overlong := make([]byte, prim.MaxVarintLen+1)
	for i := range overlong {
		overlong[i] = 0x01 // continuation bytes only, stop bit never set
	}

	r := prim.NewReader(prim.NewSliceSource(overlong), 16)
	_, err := r.ReadVarUint()
	require.ErrorIs(t, err, prim.ErrProtocolViolation)

	r = prim.NewReader(prim.NewSliceSource(overlong), 16)
	_, err = r.ReadVarInt()
	require.ErrorIs(t, err, prim.ErrProtocolViolation)
}

// blockingSource serves bytes from data one at a time, returning
// ErrWouldBlock once blockAfter bytes have been served, until blockAfter is
// set negative.
type blockingSource struct {
	data       []byte
	pos        int
	served     int
	blockAfter int
}

func (b *blockingSource) Read(buf []byte) (int, error) {
	if b.blockAfter >= 0 && b.served >= b.blockAfter {
		return 0, prim.ErrWouldBlock
	}
	if b.pos >= len(b.data) {
		return 0, prim.ErrUnexpectedEndOfStream
	}
	buf[0] = b.data[b.pos]
	b.pos++
	b.served++
	return 1, nil
}
