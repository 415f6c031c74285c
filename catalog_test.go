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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fastpb-io/fastpb"
)

// buildSingleFieldCatalog compiles one template with a single mandatory
// scalar field and no PMap, the simplest shape a hand-written wire message
// can target without needing to compute presence bits.
func buildSingleFieldCatalog(t *testing.T, templateID int) *fastpb.Catalog {
	t.Helper()
	b := fastpb.NewCatalogBuilder()

	require.NoError(t, b.StartTemplate(fastpb.StartTemplate{TemplateID: templateID, Name: "Ping", HasPMap: false}))
	require.NoError(t, b.Field(fastpb.FieldEvent{Field: fastpb.FieldSpec{
		Name: "Value", Type: fastpb.TypeInt32, Op: fastpb.OpNone, Instance: -1,
	}}))
	require.NoError(t, b.EndTemplate())

	cat, err := b.Build()
	require.NoError(t, err)
	return cat
}

func TestCatalogBuilderTemplateByID(t *testing.T) {
	cat := buildSingleFieldCatalog(t, 3)

	info, ok := cat.TemplateByID(3)
	require.True(t, ok)
	require.Equal(t, "Ping", info.Name)

	_, ok = cat.TemplateByID(99)
	require.False(t, ok)
}

func TestCatalogBinaryRoundTripPreservesFingerprint(t *testing.T) {
	cat := buildSingleFieldCatalog(t, 5)

	data, err := cat.MarshalBinary()
	require.NoError(t, err)

	reloaded, err := fastpb.LoadCatalogBinary(data)
	require.NoError(t, err)

	require.Equal(t, cat.Fingerprint(), reloaded.Fingerprint())

	info, ok := reloaded.TemplateByID(5)
	require.True(t, ok)
	require.Equal(t, "Ping", info.Name)
}

func TestLoadCatalogBinaryRejectsGarbage(t *testing.T) {
	_, err := fastpb.LoadCatalogBinary([]byte("not a catalog"))
	require.Error(t, err)
}
