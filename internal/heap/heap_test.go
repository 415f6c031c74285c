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

package heap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastpb-io/fastpb/internal/heap"
)

func TestSetAndGet(t *testing.T) {
	h := heap.New(2)
	h.Set(0, []byte("hello"))
	assert.Equal(t, []byte("hello"), h.Get(0))
	h.Set(1, []byte("world"))
	assert.Equal(t, []byte("world"), h.Get(1))
	assert.Equal(t, []byte("hello"), h.Get(0))
}

func TestAppendTail(t *testing.T) {
	h := heap.New(1)
	h.Set(0, []byte("abcdef"))
	// setTail(s, k) keeps the first k bytes and replaces the rest.
	h.AppendTail(0, []byte("XYZ"), 3)
	assert.Equal(t, []byte("abcXYZ"), h.Get(0))

	h.AppendTail(0, []byte("Q"), 4)
	assert.Equal(t, []byte("abcXQ"), h.Get(0))
}

func TestPrependHead(t *testing.T) {
	h := heap.New(1)
	h.Set(0, []byte("abcdef"))
	h.PrependHead(0, []byte("XYZ"), 3)
	assert.Equal(t, []byte("XYZdef"), h.Get(0))
}

func TestGrowthAndCompaction(t *testing.T) {
	h := heap.New(1)
	for i := 0; i < 200; i++ {
		val := make([]byte, i+1)
		for j := range val {
			val[j] = byte('a' + i%26)
		}
		h.Set(0, val)
		require.Equal(t, val, h.Get(0))
	}
}

func TestGetView(t *testing.T) {
	h := heap.New(1)
	h.Set(0, []byte("0123456789"))
	assert.Equal(t, []byte("345"), h.GetView(0, 3, 3))
}

func TestEquals(t *testing.T) {
	h := heap.New(1)
	h.Set(0, []byte("abc"))
	assert.True(t, h.Equals(0, []byte("abc")))
	assert.False(t, h.Equals(0, []byte("abd")))
}
