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

package dict_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastpb-io/fastpb/internal/dict"
)

func TestNewSlotsAreUndefined(t *testing.T) {
	d := dict.New(1, 1, 1)
	assert.Equal(t, dict.Undefined, d.Int32Presence(0))
	assert.Equal(t, dict.Undefined, d.Int64Presence(0))
	assert.Equal(t, dict.Undefined, d.BytesPresence(0))
}

func TestAssignAndNull(t *testing.T) {
	d := dict.New(1, 1, 1)
	d.SetInt32(0, 42)
	assert.Equal(t, dict.Assigned, d.Int32Presence(0))
	assert.EqualValues(t, 42, d.Int32[0])

	d.SetInt32Null(0)
	assert.Equal(t, dict.Null, d.Int32Presence(0))

	d.SetBytes(0, []byte("hello"))
	assert.Equal(t, dict.Assigned, d.BytesPresence(0))
	assert.Equal(t, []byte("hello"), d.GetBytes(0))
}

func TestTailBytes(t *testing.T) {
	d := dict.New(0, 0, 1)
	d.SetBytes(0, []byte("abcdef"))
	// setTail(s, k) keeps the first k bytes.
	d.TailBytes(0, []byte("XYZ"), 3)
	assert.Equal(t, []byte("abcXYZ"), d.GetBytes(0))
	d.TailBytes(0, []byte("Q"), 4)
	assert.Equal(t, []byte("abcXQ"), d.GetBytes(0))
}

func TestCloneIsIndependent(t *testing.T) {
	d := dict.New(1, 0, 1)
	d.SetInt32(0, 7)
	d.SetBytes(0, []byte("orig"))

	c := d.Clone()
	c.SetInt32(0, 9)
	c.SetBytes(0, []byte("changed"))

	assert.EqualValues(t, 7, d.Int32[0])
	assert.Equal(t, []byte("orig"), d.GetBytes(0))
	assert.EqualValues(t, 9, c.Int32[0])
	assert.Equal(t, []byte("changed"), c.GetBytes(0))
}

func TestFactoryNewDictionaryUsesDefaults(t *testing.T) {
	f := dict.NewFactory(1, 1, 1)
	f.Defaults = dict.Defaults{
		Int32: []int32{100},
		Int64: []int64{200},
		Bytes: [][]byte{[]byte("dflt")},
	}

	d1, err := f.NewDictionary()
	require.NoError(t, err)
	assert.EqualValues(t, 100, d1.Int32[0])
	assert.EqualValues(t, 200, d1.Int64[0])
	assert.Equal(t, []byte("dflt"), d1.GetBytes(0))

	// Mutating one instance must not affect the factory's snapshot or a
	// second instance built from it.
	d1.SetInt32(0, 1)
	d1.SetBytes(0, []byte("mutated"))

	d2, err := f.NewDictionary()
	require.NoError(t, err)
	assert.EqualValues(t, 100, d2.Int32[0])
	assert.Equal(t, []byte("dflt"), d2.GetBytes(0))
}

func TestFactoryResetGroups(t *testing.T) {
	f := dict.NewFactory(2, 0, 0)
	f.Defaults = dict.Defaults{Int32: []int32{1, 2}}
	f.Groups["global"] = dict.ResetGroup{
		Name: "global",
		Entries: []dict.ResetEntry{
			{Kind: dict.Int32Slot, Slot: 0, Int32Initial: 1},
		},
	}
	f.Groups["orderBook"] = dict.ResetGroup{
		Name: "orderBook",
		Entries: []dict.ResetEntry{
			{Kind: dict.Int32Slot, Slot: 1, InitialAbsent: true},
		},
	}

	d, err := f.NewDictionary()
	require.NoError(t, err)
	d.SetInt32(0, 999)
	d.SetInt32(1, 888)

	f.Reset("global", d)
	assert.EqualValues(t, 1, d.Int32[0])
	assert.EqualValues(t, 888, d.Int32[1])

	f.Reset("orderBook", d)
	assert.Equal(t, dict.Undefined, d.Int32Presence(1))
}
