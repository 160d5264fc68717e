package vector

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChromemProvider_UpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	p := NewChromemProvider()

	vecs := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.9, 0.1, 0},
	}
	for i, v := range vecs {
		id := fmt.Sprintf("doc-%d", i)
		err := p.Upsert(ctx, "test", id, v, map[string]string{"content": id})
		require.NoError(t, err)
	}

	results, err := p.Search(ctx, "test", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "doc-0", results[0].ID)
	assert.Equal(t, "doc-2", results[1].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestChromemProvider_SearchEmptyCollection(t *testing.T) {
	ctx := context.Background()
	p := NewChromemProvider()

	results, err := p.Search(ctx, "empty", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemProvider_KLargerThanCount(t *testing.T) {
	ctx := context.Background()
	p := NewChromemProvider()

	require.NoError(t, p.Upsert(ctx, "test", "only", []float32{0, 0, 1}, map[string]string{"content": "only"}))

	results, err := p.Search(ctx, "test", []float32{0, 0, 1}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestChromemProvider_Reset(t *testing.T) {
	ctx := context.Background()
	p := NewChromemProvider()

	require.NoError(t, p.Upsert(ctx, "test", "doc", []float32{1, 0}, nil))
	require.NoError(t, p.Reset(ctx, "test"))

	count, err := p.Count(ctx, "test")
	require.NoError(t, err)
	assert.Zero(t, count)
}
