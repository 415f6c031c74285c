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

// Package reactor implements the two state machines that drive a compiled
// catalog's token script: Reactor on the decode side (wire bytes in,
// structured fragments out through a ring.Producer) and Writer on the
// encode side (structured fragments in through a ring.Consumer, wire bytes
// out). Both walk the same flattened token script; the direction of data
// flow through the primitive codec and the ring is the only thing that
// differs between them.
package reactor

// State names where a Reactor or Writer sits between calls to Next. Both
// machines share the same state names even though one reads and the other
// writes, since the state only describes position in the script, not
// direction of data flow.
type State uint8

const (
	// AwaitTemplate is the state between messages: no template has been
	// selected yet.
	AwaitTemplate State = iota
	// InMessage is set while executing a template's top-level fields.
	InMessage
	// InSequence is set while executing a repeating group's body.
	InSequence
	// EndOfStream is terminal: the source is exhausted (decode) or the ring
	// has delivered its EOF sentinel (encode).
	EndOfStream
)

func (s State) String() string {
	switch s {
	case AwaitTemplate:
		return "AwaitTemplate"
	case InMessage:
		return "InMessage"
	case InSequence:
		return "InSequence"
	case EndOfStream:
		return "EndOfStream"
	default:
		return "State(?)"
	}
}
