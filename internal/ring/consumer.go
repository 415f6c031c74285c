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

package ring

// Consumer is the read side of a Ring, bound to exactly one goroutine for
// its lifetime. internal/reactor's Writer (or a host draining a Decoder)
// drives it fragment by fragment: PeekMsgID
// to size the fragment from the catalog, TryRead to claim it, ReadSlot/
// ReadBytes per field, then Release (or Mark/Rewind to defer the decision).
type Consumer struct {
	r     *Ring
	owner owner

	workSlabTail int64 // slots consumed locally, not yet released
	workBlobTail int64 // blob bytes consumed locally, not yet released

	markSlabTail int64
	markBlobTail int64

	batchSize int
	countDown int
}

// NewConsumer returns a Consumer over r. batchSize fragments are buffered
// locally before a release-store makes their space available to the
// Producer again; 1 releases every fragment immediately.
func NewConsumer(r *Ring, batchSize int) *Consumer {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Consumer{r: r, owner: newOwner(), batchSize: batchSize, countDown: batchSize}
}

// PeekMsgID reads the header slot of the next unconsumed fragment without
// claiming it, so the caller can look up the fragment's slot count from the
// catalog before calling TryRead. The second return is false if no fragment
// has been published yet.
func (c *Consumer) PeekMsgID() (int32, bool) {
	c.owner.check("Consumer.PeekMsgID")
	if c.r.slabHead.acquire()-c.workSlabTail < 1 {
		return 0, false
	}
	idx := uint32(c.workSlabTail) & c.r.slabMask
	return c.r.slab[idx], true
}

// TryRead claims n contiguous slab slots for the fragment PeekMsgID already
// identified. It fails only if fewer than n slots have actually been
// published, which should not happen once PeekMsgID has succeeded for a
// well-formed catalog, but is checked anyway rather than trusted.
func (c *Consumer) TryRead(n int) bool {
	c.owner.check("Consumer.TryRead")
	if c.r.slabHead.acquire()-c.workSlabTail < int64(n) {
		return false
	}
	return true
}

// ReadSlot reads slot offset of the fragment currently open via TryRead.
func (c *Consumer) ReadSlot(offset int) int32 {
	c.owner.check("Consumer.ReadSlot")
	idx := uint32(c.workSlabTail+int64(offset)) & c.r.slabMask
	return c.r.slab[idx]
}

// ReadBytes returns a copy of length bytes starting at meta's offset into
// the current fragment's blob window, as produced by Producer.AppendBytes.
func (c *Consumer) ReadBytes(meta int32, length int) []byte {
	c.owner.check("Consumer.ReadBytes")
	out := make([]byte, length)
	start := uint32(c.workBlobTail+int64(meta)) & c.r.blobMask
	n := copy(out, c.r.blob[start:])
	if n < length {
		copy(out[n:], c.r.blob[:length-n])
	}
	return out
}

// Release closes the fragment claimed by the last successful TryRead(n),
// advancing the working slab cursor by n and the working blob cursor by the
// fragment's trailing bytes-consumed slot, then releases to the shared
// cursors every batchSize fragments.
func (c *Consumer) Release(n int) {
	c.owner.check("Consumer.Release")
	consumed := c.ReadSlot(n - 1)
	c.workSlabTail += int64(n)
	c.workBlobTail += int64(consumed)

	c.countDown--
	if c.countDown > 0 {
		return
	}
	c.flush()
}

// Mark records the current read position so a later Rewind can undo any
// TryRead/ReadSlot/ReadBytes calls made without an intervening Release, so
// a caller can read a fragment, inspect it, and decide not to consume it.
func (c *Consumer) Mark() {
	c.owner.check("Consumer.Mark")
	c.markSlabTail = c.workSlabTail
	c.markBlobTail = c.workBlobTail
}

// Rewind restores the read position saved by the last Mark.
func (c *Consumer) Rewind() {
	c.owner.check("Consumer.Rewind")
	c.workSlabTail = c.markSlabTail
	c.workBlobTail = c.markBlobTail
}

func (c *Consumer) flush() {
	c.r.slabTail.publish(c.workSlabTail)
	c.r.blobTail.publish(c.workBlobTail)
	c.countDown = c.batchSize
}
