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

import "errors"

// ErrOverflow is returned by AppendBytes when a fragment's variable-length
// payload would overrun blob space the consumer has not yet released. This
// is only ever surfaced in non-blocking mode; Reserve itself just returns
// false rather than erroring, since a full slab is an expected, transient
// backpressure signal the caller spins or yields on.
var ErrOverflow = errors.New("fastpb: ring overflow")
