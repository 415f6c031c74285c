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

package ring_test

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fastpb-io/fastpb/internal/ring"
)

// fragment layout used by these tests: slot 0 holds a message-id, slot 1
// holds a payload int, slot 2 is the trailing bytes-consumed slot.
const fragSlots = 3

func TestReserveFailsWhenSlabFull(t *testing.T) {
	r := ring.New(3, 4) // 8 slab slots
	p := ring.NewProducer(r, 1)

	// 8 slots / 3 per fragment = 2 fragments fit; the third must not.
	require.True(t, p.Reserve(fragSlots))
	p.WriteSlot(0, 1)
	p.WriteSlot(1, 100)
	p.Publish(fragSlots, true)

	require.True(t, p.Reserve(fragSlots))
	p.WriteSlot(0, 2)
	p.WriteSlot(1, 200)
	p.Publish(fragSlots, true)

	require.False(t, p.Reserve(fragSlots))
}

func TestSingleThreadedRoundTrip(t *testing.T) {
	r := ring.New(4, 6)
	p := ring.NewProducer(r, 1)
	c := ring.NewConsumer(r, 1)

	require.True(t, p.Reserve(fragSlots))
	meta, err := p.AppendBytes([]byte("hi"))
	require.NoError(t, err)
	p.WriteSlot(0, 7)
	p.WriteSlot(1, meta)
	p.Publish(fragSlots, true)

	id, ok := c.PeekMsgID()
	require.True(t, ok)
	require.EqualValues(t, 7, id)

	require.True(t, c.TryRead(fragSlots))
	gotMeta := c.ReadSlot(1)
	got := c.ReadBytes(gotMeta, 2)
	require.Equal(t, []byte("hi"), got)
	c.Release(fragSlots)

	_, ok = c.PeekMsgID()
	require.False(t, ok)
}

func TestAbandonDropsFragment(t *testing.T) {
	r := ring.New(3, 4)
	p := ring.NewProducer(r, 1)
	c := ring.NewConsumer(r, 1)

	require.True(t, p.Reserve(fragSlots))
	p.WriteSlot(0, 9)
	p.Abandon()

	_, ok := c.PeekMsgID()
	require.False(t, ok)

	require.True(t, p.Reserve(fragSlots))
	p.WriteSlot(0, 10)
	p.Publish(fragSlots, true)

	id, ok := c.PeekMsgID()
	require.True(t, ok)
	require.EqualValues(t, 10, id)
}

func TestMarkRewindReplaysFragment(t *testing.T) {
	r := ring.New(3, 4)
	p := ring.NewProducer(r, 1)
	c := ring.NewConsumer(r, 1)

	require.True(t, p.Reserve(fragSlots))
	p.WriteSlot(0, 42)
	p.Publish(fragSlots, true)

	c.Mark()
	require.True(t, c.TryRead(fragSlots))
	require.EqualValues(t, 42, c.ReadSlot(0))
	c.Rewind()

	require.True(t, c.TryRead(fragSlots))
	require.EqualValues(t, 42, c.ReadSlot(0))
	c.Release(fragSlots)
}

func TestAppendBytesOverflowsWithoutRelease(t *testing.T) {
	r := ring.New(4, 3) // 8 blob bytes
	p := ring.NewProducer(r, 1)

	require.True(t, p.Reserve(fragSlots))
	_, err := p.AppendBytes(make([]byte, 8))
	require.NoError(t, err)
	_, err = p.AppendBytes(make([]byte, 1))
	require.ErrorIs(t, err, ring.ErrOverflow)
}

func TestEOFSentinel(t *testing.T) {
	r := ring.New(3, 4)
	p := ring.NewProducer(r, 1)
	c := ring.NewConsumer(r, 1)

	p.PublishEOF()

	id, ok := c.PeekMsgID()
	require.True(t, ok)
	require.Equal(t, ring.MsgEOF, id)
}

// TestSPSCFIFOConcurrent asserts that fragments observed
// by the consumer arrive in the exact order the producer published them,
// even when the two run concurrently on separate goroutines and batch their
// publishes/releases.
func TestSPSCFIFOConcurrent(t *testing.T) {
	const n = 200_000
	r := ring.New(7, 6)

	done := make(chan struct{})
	go func() {
		defer close(done)
		p := ring.NewProducer(r, 8)
		for i := 0; i < n; i++ {
			for !p.Reserve(fragSlots) {
				runtime.Gosched()
			}
			p.WriteSlot(0, int32(i))
			p.WriteSlot(1, int32(i*2))
			p.Publish(fragSlots, false)
		}
		p.PublishEOF()
	}()

	c := ring.NewConsumer(r, 8)
	next := 0
	for {
		id, ok := c.PeekMsgID()
		if !ok {
			runtime.Gosched()
			continue
		}
		if id == ring.MsgEOF {
			require.True(t, c.TryRead(2))
			c.Release(2)
			break
		}
		require.True(t, c.TryRead(fragSlots))
		require.Equal(t, int32(next), c.ReadSlot(0))
		require.Equal(t, int32(next*2), c.ReadSlot(1))
		c.Release(fragSlots)
		next++
	}
	require.Equal(t, n, next)
	<-done
}
