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

package token_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fastpb-io/fastpb/internal/token"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	cases := []token.Field{
		{Type: token.Int32, Op: token.None, Instance: 0},
		{Type: token.Int64Opt, Op: token.Delta, Optional: true, Instance: 12345},
		{Type: token.AsciiTextOpt, Op: token.Tail, Optional: true, Instance: token.MaxInstance},
		{Type: token.ByteVector, Op: token.Copy, Instance: 7, AbsentOverride: true, Extra: true},
	}
	for _, f := range cases {
		got := token.Pack(f).Unpack()
		assert.Equal(t, f, got)
	}
}

func TestGroupBits(t *testing.T) {
	open := token.Pack(token.Field{Type: token.Group, Op: token.Op(1), AbsentOverride: true})
	assert.True(t, open.GroupOpen())
	assert.True(t, open.GroupHasPMap())

	closeTok := token.Pack(token.Field{Type: token.Group, Op: token.Op(0)})
	assert.False(t, closeTok.GroupOpen())
}

func TestDispatchKeyIsDense(t *testing.T) {
	seen := map[int]bool{}
	for ty := token.Int32; ty < token.Group; ty++ {
		for op := token.None; op <= token.Tail; op++ {
			for _, opt := range []bool{false, true} {
				tok := token.Pack(token.Field{Type: ty, Op: op, Optional: opt})
				key := tok.DispatchKey()
				assert.Less(t, key, token.DispatchTableSize)
				assert.False(t, seen[key], "collision at key %d", key)
				seen[key] = true
			}
		}
	}
}

func TestPMapConsumptionTable(t *testing.T) {
	assert.False(t, token.None.UsesPMapBit(false))
	assert.False(t, token.None.UsesPMapBit(true))
	assert.False(t, token.Delta.UsesPMapBit(false))
	assert.False(t, token.Delta.UsesPMapBit(true))

	assert.False(t, token.Constant.UsesPMapBit(false))
	assert.True(t, token.Constant.UsesPMapBit(true))

	assert.True(t, token.Default.UsesPMapBit(false))
	assert.True(t, token.Default.UsesPMapBit(true))
	assert.True(t, token.Copy.UsesPMapBit(false))
	assert.True(t, token.Copy.UsesPMapBit(true))
	assert.True(t, token.Increment.UsesPMapBit(false))
	assert.True(t, token.Increment.UsesPMapBit(true))
	assert.True(t, token.Tail.UsesPMapBit(false))
	assert.True(t, token.Tail.UsesPMapBit(true))
}
