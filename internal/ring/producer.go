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

import "runtime"

// Producer is the write side of a Ring, bound to exactly one goroutine for
// its lifetime. internal/reactor's Reactor (or a host feeding an Encoder)
// drives fields into it fragment by fragment: Reserve, WriteSlot/AppendBytes per field, Publish (or Abandon to
// drop the fragment entirely).
type Producer struct {
	r     *Ring
	owner owner

	workSlabHead  int64 // slots written locally, not yet published
	workBlobHead  int64 // blob bytes written locally, not yet published
	fragBlobStart int64 // workBlobHead at the current fragment's Reserve

	batchSize int
	countDown int
}

// NewProducer returns a Producer over r. batchSize fragments are buffered
// locally before a release-store makes them visible to the Consumer; 1
// publishes every fragment immediately.
func NewProducer(r *Ring, batchSize int) *Producer {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Producer{r: r, owner: newOwner(), batchSize: batchSize, countDown: batchSize}
}

// Reserve attempts to claim n contiguous slab slots for a new fragment,
// including the trailing bytes-consumed slot Publish writes. It does not
// block: on failure the caller must yield (e.g. runtime.Gosched, or return
// control to the host event loop) and retry, since the writer must never
// block indefinitely on a full ring.
func (p *Producer) Reserve(n int) bool {
	p.owner.check("Producer.Reserve")
	used := p.workSlabHead - p.r.slabTail.acquire()
	if int64(len(p.r.slab))-used < int64(n) {
		return false
	}
	p.fragBlobStart = p.workBlobHead
	return true
}

// WriteSlot writes v into slot offset of the fragment currently open via
// Reserve. offset is relative to the fragment's first slot.
func (p *Producer) WriteSlot(offset int, v int32) {
	p.owner.check("Producer.WriteSlot")
	idx := uint32(p.workSlabHead+int64(offset)) & p.r.slabMask
	p.r.slab[idx] = v
}

// AppendBytes copies b into the blob and returns its offset relative to the
// current fragment's first blob byte, suitable for storing in a variable-
// length field's {meta, length} slot pair. It fails with ErrOverflow if b
// would overrun blob space the Consumer has not released yet.
func (p *Producer) AppendBytes(b []byte) (meta int32, err error) {
	p.owner.check("Producer.AppendBytes")
	free := int64(len(p.r.blob)) - (p.workBlobHead - p.r.blobTail.acquire())
	if int64(len(b)) > free {
		return 0, ErrOverflow
	}
	meta = int32(p.workBlobHead - p.fragBlobStart)
	start := uint32(p.workBlobHead) & p.r.blobMask
	n := copy(p.r.blob[start:], b)
	if n < len(b) {
		copy(p.r.blob[:len(b)-n], b[n:])
	}
	p.workBlobHead += int64(len(b))
	return meta, nil
}

// Publish closes the fragment opened by the last successful Reserve(n),
// writing the trailing bytes-consumed slot and advancing the working slab
// cursor by n. The release to the shared cursors happens every batchSize
// fragments, or immediately when force is true (used for control fragments
// like end-of-stream that must not wait on batching).
func (p *Producer) Publish(n int, force bool) {
	p.owner.check("Producer.Publish")
	p.WriteSlot(n-1, int32(p.workBlobHead-p.fragBlobStart))
	p.workSlabHead += int64(n)

	p.countDown--
	if p.countDown > 0 && !force {
		return
	}
	p.flush()
}

// Abandon discards the fragment opened by the last Reserve without
// publishing it, rewinding any blob bytes written for it. Nothing has been
// made visible to the Consumer yet, so this is always safe.
func (p *Producer) Abandon() {
	p.owner.check("Producer.Abandon")
	p.workBlobHead = p.fragBlobStart
}

// PublishEOF writes the two-slot end-of-stream sentinel and force-publishes
// it, spinning with Gosched if the slab is momentarily full. This is the one
// operation the Producer performs to completion rather than surfacing a
// backpressure signal to the caller, since a lost EOF would wedge the
// Consumer forever.
func (p *Producer) PublishEOF() {
	for !p.Reserve(2) {
		runtime.Gosched()
	}
	p.WriteSlot(0, MsgEOF)
	p.Publish(2, true)
}

func (p *Producer) flush() {
	p.r.blobHead.publish(p.workBlobHead)
	p.r.slabHead.publish(p.workSlabHead)
	p.countDown = p.batchSize
}
