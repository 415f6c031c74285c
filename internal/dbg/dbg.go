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

// Package dbg contains debugging helpers shared across the codec's internal
// packages. Everything in this package is a no-op unless built with the
// "fastpbdebug" build tag.
package dbg

import (
	"fmt"
	"os"
)

// Enabled is true when the codec was built with the fastpbdebug tag.
const Enabled = enabled

// Log prints a trace line to stderr when Enabled. context, when non-empty, is
// printed before the rest of the line to identify the codec instance a trace
// belongs to.
func Log(context string, format string, args ...any) {
	if !Enabled {
		return
	}
	log(context, format, args...)
}

func log(context, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if context != "" {
		fmt.Fprintf(os.Stderr, "fastpb: %s: %s\n", context, msg)
		return
	}
	fmt.Fprintf(os.Stderr, "fastpb: %s\n", msg)
}

// Assert panics with a descriptive message if cond is false. Assertions are
// only checked in debug builds; production builds trust the invariant.
func Assert(cond bool, format string, args ...any) {
	if Enabled && !cond {
		panic(fmt.Sprintf("fastpb: assertion failed: "+format, args...))
	}
}
