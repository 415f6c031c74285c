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

package fastpb

import "github.com/fastpb-io/fastpb/internal/ring"

// Producer and Consumer are the two goroutine-bound views over a Ring's
// shared slab and blob, re-exported so that a host wiring its own
// producer or consumer loop directly against the ring (rather than solely
// through a Decoder or Encoder) never needs to import an internal package
// to name the type it received.
type (
	Producer = ring.Producer
	Consumer = ring.Consumer
)

// Ring is the lock-free single-producer/single-consumer buffer a Decoder
// publishes fragments into and an Encoder drains fragments from. One Ring
// serves exactly one Decoder-or-Encoder on one side and one host-owned
// Producer-or-Consumer on the other.
type Ring struct {
	inner *ring.Ring
	cfg   Config
}

// NewRing allocates a Ring sized by cfg's SlabBits and BlobBits.
func NewRing(cfg Config) *Ring {
	return &Ring{inner: ring.New(cfg.SlabBits, cfg.BlobBits), cfg: cfg}
}

// NewProducer returns a Producer over r for a host to drive directly, for
// example to feed structured field values to an Encoder built over the
// same Ring's Consumer side.
func (r *Ring) NewProducer() *Producer {
	batch := r.cfg.BatchPublishSize
	if batch < 1 {
		batch = 1
	}
	return ring.NewProducer(r.inner, batch)
}

// NewConsumer returns a Consumer over r for a host to drive directly, for
// example to drain the fragments a Decoder built over the same Ring's
// Producer side publishes.
func (r *Ring) NewConsumer() *Consumer {
	batch := r.cfg.BatchReleaseSize
	if batch < 1 {
		batch = 1
	}
	return ring.NewConsumer(r.inner, batch)
}

// MaxBatchSize computes a safe Producer/Consumer batch size bound given the
// largest fragment (in slab slots) and the longest variable-length field
// (in bytes) any template in the catalog driving this ring will produce.
func (r *Ring) MaxBatchSize(maxFragmentSlots, maxVarLen int) int {
	return r.inner.MaxBatchSize(maxFragmentSlots, maxVarLen)
}

// SlabCap returns the number of int32 slots the ring's slab holds.
func (r *Ring) SlabCap() int { return r.inner.SlabCap() }

// BlobCap returns the number of bytes the ring's blob holds.
func (r *Ring) BlobCap() int { return r.inner.BlobCap() }

// RequestShutdown sets the ring's cooperative shutdown flag, for a host
// that drives its own Producer or Consumer loop directly against the ring
// and needs a way to unwind it from another goroutine.
func (r *Ring) RequestShutdown() { r.inner.RequestShutdown() }

// ShutdownRequested reports whether RequestShutdown has been called.
func (r *Ring) ShutdownRequested() bool { return r.inner.ShutdownRequested() }
