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

import "sync/atomic"

// cursor is a monotonically increasing byte/slot count shared between one
// producer goroutine and one consumer goroutine. Go's memory model gives
// atomic.Int64 the release/acquire semantics a lock-free ring needs: a
// publish is a release-store, the paired read on the other side is an
// acquire-load, and everything the producer wrote before the store becomes
// visible to the consumer after the load.
type cursor struct {
	v atomic.Int64
}

// publish is the producer-side release-store advancing the cursor to v.
func (c *cursor) publish(v int64) { c.v.Store(v) }

// acquire is the consumer-side (or producer-side, for the opposite cursor)
// acquire-load of the cursor's current value.
func (c *cursor) acquire() int64 { return c.v.Load() }
