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

package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastpb-io/fastpb/internal/catalog"
	"github.com/fastpb-io/fastpb/internal/catalog/cache"
	"github.com/fastpb-io/fastpb/internal/token"
)

func buildOneFieldCatalog(t *testing.T, id int) *catalog.Catalog {
	t.Helper()
	b := catalog.NewBuilder()
	require.NoError(t, b.StartTemplate(catalog.StartTemplate{TemplateID: id, Name: "T"}))
	require.NoError(t, b.Field(catalog.FieldEvent{Field: catalog.FieldSpec{
		Type: token.Int32, Op: token.None, Instance: -1,
	}}))
	require.NoError(t, b.EndTemplate())
	cat, err := b.Build()
	require.NoError(t, err)
	return cat
}

func TestCachePutGet(t *testing.T) {
	c, err := cache.New(2)
	require.NoError(t, err)

	cat := buildOneFieldCatalog(t, 1)
	key := c.Put(cat)

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Same(t, cat, got)
	assert.Equal(t, 1, c.Len())
}

func TestCacheEviction(t *testing.T) {
	c, err := cache.New(1)
	require.NoError(t, err)

	first := buildOneFieldCatalog(t, 1)
	second := buildOneFieldCatalog(t, 2)

	k1 := c.Put(first)
	c.Put(second)

	_, ok := c.Get(k1)
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}
