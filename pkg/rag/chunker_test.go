package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunker_ParagraphSplitting(t *testing.T) {
	content := strings.Repeat("a", 60) + "\n\n" + strings.Repeat("b", 70) + "\n\n" + strings.Repeat("c", 80)

	chunker := NewChunker(ChunkerConfig{})
	passages := chunker.Chunk(content)

	require.Len(t, passages, 3)
	assert.Equal(t, strings.Repeat("a", 60), passages[0])
	assert.Equal(t, strings.Repeat("b", 70), passages[1])
	assert.Equal(t, strings.Repeat("c", 80), passages[2])
}

func TestChunker_SentenceFallback(t *testing.T) {
	// No blank lines: one block, so sentence splitting kicks in.
	first := strings.Repeat("x", 60)
	second := strings.Repeat("y", 60)
	content := first + ". " + second + "."

	chunker := NewChunker(ChunkerConfig{})
	passages := chunker.Chunk(content)

	require.Len(t, passages, 2)
	assert.Equal(t, first, passages[0])
	assert.Equal(t, second, passages[1])
}

func TestChunker_DiscardsShortPassages(t *testing.T) {
	content := "too short\n\n" + strings.Repeat("z", 60)

	chunker := NewChunker(ChunkerConfig{})
	passages := chunker.Chunk(content)

	require.Len(t, passages, 1)
	assert.Equal(t, strings.Repeat("z", 60), passages[0])
}

func TestChunker_SplitsOversizedPassages(t *testing.T) {
	// 1200 five-char words: ~7200 chars, split into 500-word windows.
	words := make([]string, 1200)
	for i := range words {
		words[i] = "abcde"
	}
	content := strings.Join(words, " ")

	chunker := NewChunker(ChunkerConfig{})
	passages := chunker.Chunk(content)

	require.Len(t, passages, 3)
	assert.Len(t, strings.Fields(passages[0]), 500)
	assert.Len(t, strings.Fields(passages[1]), 500)
	assert.Len(t, strings.Fields(passages[2]), 200)
}

func TestChunker_BoundsHold(t *testing.T) {
	content := strings.Repeat("p", 60) + "\n\nshort\n\n" + strings.Repeat("q r s t u v w x y z ", 200)

	chunker := NewChunker(ChunkerConfig{})
	for _, p := range chunker.Chunk(content) {
		assert.GreaterOrEqual(t, len(p), 50)
		assert.LessOrEqual(t, len(p), 1000)
	}
}

func TestChunker_EmptyInput(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{})
	assert.Empty(t, chunker.Chunk(""))
	assert.Empty(t, chunker.Chunk("\n\n\n\n"))
}
