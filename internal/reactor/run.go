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

package reactor

import (
	"github.com/fastpb-io/fastpb/internal/catalog"
	"github.com/fastpb-io/fastpb/internal/token"
)

// scanRun finds the next ring-fragment boundary starting at start: the
// maximal span of script up to either endIdx or the Group-open token of a
// nested sequence (identified by its presence as a key in fragments, which
// only a template-open or sequence-open token can be, and start is always
// past the enclosing template-open already). It returns the index the run
// stops at and the total slab slots its tokens occupy, one reservation unit
// for Reactor.runFragment and Writer.runFragment alike so the two sides
// derive identical fragment boundaries from the same script without either
// needing to record them anywhere.
func scanRun(script []token.Token, fragments map[int]catalog.FragmentInfo, start, endIdx int) (stopIdx, slabSlots int) {
	i := start
	for i < endIdx {
		tok := script[i]
		if tok.Type() == token.Group {
			if tok.GroupOpen() {
				if _, isSeq := fragments[i]; isSeq {
					break
				}
			}
			i++
			continue
		}
		slabSlots += tok.Type().SlabSlots()
		i++
	}
	return i, slabSlots
}
