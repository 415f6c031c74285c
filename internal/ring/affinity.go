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

import (
	"github.com/timandy/routine"

	"github.com/fastpb-io/fastpb/internal/dbg"
)

// owner records the goroutine that created a Producer or Consumer, so debug
// builds can assert the "codec instance private to one goroutine" rule from
// instead of silently tolerating a second caller racing the
// ring's working cursors.
type owner struct {
	goid uint64
}

func newOwner() owner {
	if !dbg.Enabled {
		return owner{}
	}
	return owner{goid: routine.Goid()}
}

func (o owner) check(who string) {
	if !dbg.Enabled {
		return
	}
	dbg.Assert(routine.Goid() == o.goid, "%s used from goroutine %d, created on %d", who, routine.Goid(), o.goid)
}
