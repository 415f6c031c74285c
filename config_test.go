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

package fastpb_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastpb-io/fastpb"
)

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, fastpb.DefaultConfig().Validate())
}

func TestConfigValidateRejectsOutOfRangeBits(t *testing.T) {
	cfg := fastpb.DefaultConfig()
	cfg.SlabBits = 5
	assert.Error(t, cfg.Validate())

	cfg = fastpb.DefaultConfig()
	cfg.BlobBits = 29
	assert.Error(t, cfg.Validate())
}

func TestConfigSaveLoadRoundTrip(t *testing.T) {
	cfg := fastpb.DefaultConfig()
	cfg.PreambleBytes = 4
	cfg.DebugFlags = 7

	var buf bytes.Buffer
	require.NoError(t, cfg.Save(&buf))

	loaded, err := fastpb.LoadConfig(&buf)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	_, err := fastpb.LoadConfig(bytes.NewBufferString("slabBits: 2\nblobBits: 4\n"))
	assert.Error(t, err)
}
