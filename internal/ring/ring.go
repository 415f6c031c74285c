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

// Package ring implements DualRing: the lock-free single-producer/
// single-consumer ring the reactor and writer use to exchange decoded or
// to-be-encoded fragments with a host.
//
// A Ring is two power-of-two buffers, a slab of int32 slots for fixed-size
// fields and a blob of bytes for variable-length payloads, each with its own
// pair of head/tail cursors. Producer and Consumer are thin, goroutine-bound
// views over one shared Ring: the Producer only ever touches *Head, the
// Consumer only ever touches *Tail, and the four cursors are the only memory
// the two sides share.
package ring

// MsgEOF is the sentinel message-id the Producer writes to signal end of
// stream. It occupies two slab slots so a Consumer can always distinguish it
// from a fragment header without first knowing the fragment's shape.
const MsgEOF int32 = -1

// cacheLinePad rounds a cursor up to a full cache line so that the four
// cursors never share a line and false-share between the producer and
// consumer that write them.
type cacheLinePad = [56]byte

// Ring is the shared backing store. Construct one with New and hand a
// Producer/Consumer pair to the two goroutines that will drive it.
type Ring struct {
	slab     []int32
	slabMask uint32
	blob     []byte
	blobMask uint32

	slabHead cursor
	_        cacheLinePad
	slabTail cursor
	_        cacheLinePad
	blobHead cursor
	_        cacheLinePad
	blobTail cursor
	_        cacheLinePad

	shutdown cursor
}

// New returns a Ring with a slab of 1<<slabBits int32 slots and a blob of
// 1<<blobBits bytes.
func New(slabBits, blobBits int) *Ring {
	if slabBits < 1 || slabBits > 30 {
		panic("ring: slabBits out of range")
	}
	if blobBits < 0 || blobBits > 30 {
		panic("ring: blobBits out of range")
	}
	slabSize := 1 << slabBits
	blobSize := 1 << blobBits
	return &Ring{
		slab:     make([]int32, slabSize),
		slabMask: uint32(slabSize - 1),
		blob:     make([]byte, blobSize),
		blobMask: uint32(blobSize - 1),
	}
}

// SlabCap returns the number of int32 slots the slab holds.
func (r *Ring) SlabCap() int { return len(r.slab) }

// BlobCap returns the number of bytes the blob holds.
func (r *Ring) BlobCap() int { return len(r.blob) }

// MaxBatchSize computes a batch bound of:
// min(slabSize/maxFragmentSlots, blobSize/maxVarLen) / 2, at least 1.
func (r *Ring) MaxBatchSize(maxFragmentSlots, maxVarLen int) int {
	if maxFragmentSlots <= 0 {
		maxFragmentSlots = 1
	}
	if maxVarLen <= 0 {
		maxVarLen = 1
	}
	bySlab := len(r.slab) / maxFragmentSlots
	byBlob := len(r.blob) / maxVarLen
	n := bySlab
	if byBlob < n {
		n = byBlob
	}
	n /= 2
	if n < 1 {
		n = 1
	}
	return n
}

// RequestShutdown sets the shared shutdown flag. Producer and Consumer never
// read it, and internal/reactor's Reactor and Writer do not poll it; it is
// observed only by whoever calls ShutdownRequested.
func (r *Ring) RequestShutdown() { r.shutdown.publish(1) }

// ShutdownRequested reports whether RequestShutdown has been called.
func (r *Ring) ShutdownRequested() bool { return r.shutdown.acquire() != 0 }
