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

package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastpb-io/fastpb/internal/catalog"
	"github.com/fastpb-io/fastpb/internal/dict"
	"github.com/fastpb-io/fastpb/internal/token"
)

func buildSimpleTemplate(t *testing.T) *catalog.Catalog {
	t.Helper()
	b := catalog.NewBuilder()
	require.NoError(t, b.StartTemplate(catalog.StartTemplate{TemplateID: 1, Name: "Order", HasPMap: true}))
	require.NoError(t, b.Field(catalog.FieldEvent{Field: catalog.FieldSpec{
		Name: "seqNum", Type: token.Int32, Op: token.None, Instance: -1,
	}}))
	require.NoError(t, b.Field(catalog.FieldEvent{Field: catalog.FieldSpec{
		Name: "symbol", Type: token.AsciiText, Op: token.Copy, Instance: -1,
		HasDefault: true, BytesDefault: []byte("MSFT"),
	}}))
	require.NoError(t, b.EndTemplate())

	cat, err := b.Build()
	require.NoError(t, err)
	return cat
}

func TestBuilderSimpleTemplate(t *testing.T) {
	cat := buildSimpleTemplate(t)

	require.Len(t, cat.Templates, 1)
	info, ok := cat.TemplateByID(1)
	require.True(t, ok)
	assert.Equal(t, "Order", info.Name)
	assert.True(t, info.HasPMap)

	// Script: [open, seqNum, symbol, close]
	assert.Len(t, cat.Script, 4)
	assert.Equal(t, token.Group, cat.Script[0].Type())
	assert.True(t, cat.Script[0].GroupOpen())
	assert.Equal(t, token.Int32, cat.Script[1].Type())
	assert.Equal(t, token.AsciiText, cat.Script[2].Type())
	assert.Equal(t, token.Copy, cat.Script[2].Op())
	assert.Equal(t, token.Group, cat.Script[3].Type())
	assert.False(t, cat.Script[3].GroupOpen())

	// Copy consumes a PMap bit, None does not.
	assert.Equal(t, 1, cat.MaxPMapBytes)

	frag, ok := cat.Fragments[info.Start]
	require.True(t, ok)
	assert.Equal(t, 4, frag.ScriptLen)
	// seqNum: 1 slot, symbol: 2 slots, plus header+trailer = 5.
	assert.Equal(t, 5, frag.SlabSlots)

	require.Equal(t, 1, len(cat.Dict.Defaults.Bytes))
	assert.Equal(t, []byte("MSFT"), cat.Dict.Defaults.Bytes[0])
}

func TestBuilderSequence(t *testing.T) {
	b := catalog.NewBuilder()
	require.NoError(t, b.StartTemplate(catalog.StartTemplate{TemplateID: 2, Name: "Book", HasPMap: false}))
	require.NoError(t, b.StartSequence(catalog.StartSequence{
		LengthField: catalog.FieldSpec{Name: "numLevels", Op: token.None, Instance: -1},
		HasPMap:     true,
	}))
	require.NoError(t, b.Field(catalog.FieldEvent{Field: catalog.FieldSpec{
		Name: "price", Type: token.Int64, Op: token.Delta, Instance: -1,
	}}))
	require.NoError(t, b.EndSequence())
	require.NoError(t, b.EndTemplate())

	cat, err := b.Build()
	require.NoError(t, err)

	info, ok := cat.TemplateByID(2)
	require.True(t, ok)

	// Outer fragment: [open, GroupLength, ...inner..., close] but inner
	// sequence body is its own fragment, so the outer only sees
	// open+GroupLength+close = 3 tokens.
	outer := cat.Fragments[info.Start]
	assert.Equal(t, 3, outer.ScriptLen)
	assert.Equal(t, 1+2, outer.SlabSlots) // GroupLength(1) + header/trailer(2)

	// The sequence body itself is a separate fragment keyed by its own
	// open-bracket token, which sits right after the GroupLength token.
	seqOpenIdx := info.Start + 2
	inner, ok := cat.Fragments[seqOpenIdx]
	require.True(t, ok)
	assert.Equal(t, 3, inner.ScriptLen) // open, price, close
	assert.Equal(t, 2+2, inner.SlabSlots)
}

func TestDecimalMissingSubfieldIsCatalogError(t *testing.T) {
	b := catalog.NewBuilder()
	require.NoError(t, b.StartTemplate(catalog.StartTemplate{TemplateID: 3, Name: "Px"}))
	err := b.Decimal(catalog.DecimalEvent{Decimal: catalog.DecimalSpec{
		Name:     "price",
		Exponent: catalog.FieldSpec{Type: token.Int32, Op: token.None, Instance: -1},
		Mantissa: catalog.FieldSpec{Type: token.DecimalMantissa, Op: token.None, Instance: -1},
	}})
	assert.Error(t, err)
	var catErr *catalog.Error
	assert.ErrorAs(t, err, &catErr)
}

func TestResetGroupScoping(t *testing.T) {
	b := catalog.NewBuilder()
	require.NoError(t, b.StartTemplate(catalog.StartTemplate{TemplateID: 5, Name: "T"}))
	require.NoError(t, b.Field(catalog.FieldEvent{Field: catalog.FieldSpec{
		Type: token.Int32, Op: token.Copy, Instance: -1, ResetGroup: "global", HasDefault: true, Int32Default: 7,
	}}))
	require.NoError(t, b.EndTemplate())
	cat, err := b.Build()
	require.NoError(t, err)

	d, err := cat.Dict.NewDictionary()
	require.NoError(t, err)
	d.SetInt32(0, 100)
	cat.Dict.Reset("global", d)
	assert.EqualValues(t, 7, d.Int32[0])
	assert.Equal(t, dict.Assigned, d.Int32Presence(0))
}
