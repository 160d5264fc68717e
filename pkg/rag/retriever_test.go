package rag

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/parley/pkg/vector"
)

// fakeEmbedder returns canned vectors keyed by text.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	vec, ok := f.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return vec, nil
}

func (f *fakeEmbedder) GetModel() string { return "fake" }

func TestLexicalRetriever_RanksByDistinctWordMatches(t *testing.T) {
	passages := []string{
		"Our vacation policy grants twenty days of paid leave per year to all staff.",
		"The payroll schedule runs twice a month; payday is the 1st and the 15th.",
	}
	r := NewLexicalRetriever(passages)

	got, err := r.Retrieve(context.Background(), "when is payday", 3)
	require.NoError(t, err)

	require.NotEmpty(t, got)
	assert.Equal(t, passages[1], got[0])
	assert.NotContains(t, got, passages[0])
}

func TestLexicalRetriever_TiesKeepSourceOrder(t *testing.T) {
	passages := []string{
		"alpha topic one",
		"alpha topic two",
		"alpha topic three",
	}
	r := NewLexicalRetriever(passages)

	got, err := r.Retrieve(context.Background(), "alpha topic", 3)
	require.NoError(t, err)

	assert.Equal(t, passages, got)
}

func TestLexicalRetriever_RespectsK(t *testing.T) {
	passages := []string{"match a", "match b", "match c", "match d"}
	r := NewLexicalRetriever(passages)

	got, err := r.Retrieve(context.Background(), "match", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestLexicalRetriever_CaseInsensitive(t *testing.T) {
	r := NewLexicalRetriever([]string{"The PAYROLL Schedule"})

	got, err := r.Retrieve(context.Background(), "payroll", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestLexicalRetriever_EmptyCorpus(t *testing.T) {
	r := NewLexicalRetriever(nil)

	got, err := r.Retrieve(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSemanticRetriever_DropsBelowSimilarityFloor(t *testing.T) {
	ctx := context.Background()
	provider := vector.NewChromemProvider()

	// Near-orthogonal vectors: the second passage scores ~0 against the query.
	require.NoError(t, provider.Upsert(ctx, "c", "p0", []float32{1, 0.05, 0}, map[string]string{"content": "relevant"}))
	require.NoError(t, provider.Upsert(ctx, "c", "p1", []float32{0, 0.05, 1}, map[string]string{"content": "irrelevant"}))

	embedder := &fakeEmbedder{vectors: map[string][]float32{"query": {1, 0, 0}}}
	r := NewSemanticRetriever(provider, embedder, "c")

	got, err := r.Retrieve(ctx, "query", 5)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "relevant", got[0])
}

func TestSemanticRetriever_EmbedFailureIsTerminal(t *testing.T) {
	provider := vector.NewChromemProvider()
	embedder := &fakeEmbedder{err: fmt.Errorf("backend down")}
	r := NewSemanticRetriever(provider, embedder, "c")

	_, err := r.Retrieve(context.Background(), "query", 3)
	require.Error(t, err)
}
