package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/parley/pkg/vector"
)

func writeCorpus(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "knowledge.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const testCorpus = `Our vacation policy grants twenty days of paid leave per year to all staff members.

The payroll schedule runs twice a month and payday falls on the 1st and the 15th.`

func TestService_Load_LexicalMode(t *testing.T) {
	svc, err := NewService(ServiceOptions{Path: writeCorpus(t, testCorpus)})
	require.NoError(t, err)

	require.False(t, svc.IsLoaded())
	require.NoError(t, svc.Load(context.Background()))

	assert.True(t, svc.IsLoaded())
	assert.Equal(t, ModeLexical, svc.Mode())
	assert.Equal(t, 2, svc.PassageCount())
}

func TestService_Load_MissingFileIsFatal(t *testing.T) {
	svc, err := NewService(ServiceOptions{Path: "/nonexistent/knowledge.txt"})
	require.NoError(t, err)

	require.Error(t, svc.Load(context.Background()))
	assert.False(t, svc.IsLoaded())
}

func TestService_Retrieve_LexicalFallbackScenario(t *testing.T) {
	svc, err := NewService(ServiceOptions{Path: writeCorpus(t, testCorpus)})
	require.NoError(t, err)
	require.NoError(t, svc.Load(context.Background()))

	got, err := svc.Retrieve(context.Background(), "when is payday", 3)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Contains(t, got[0], "payroll")
	assert.NotContains(t, got[0], "vacation")
}

func TestService_EmbedderFailureDegradesToLexical(t *testing.T) {
	svc, err := NewService(ServiceOptions{
		Path:     writeCorpus(t, testCorpus),
		Embedder: &fakeEmbedder{err: fmt.Errorf("connection refused")},
		Provider: vector.NewChromemProvider(),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Load(context.Background()))

	assert.True(t, svc.IsLoaded())
	assert.Equal(t, ModeLexical, svc.Mode())
}

func TestService_SemanticMode(t *testing.T) {
	path := writeCorpus(t, testCorpus)

	vectors := map[string][]float32{"payday question": {0, 1, 0}}
	// Assign each chunked passage a vector: vacation near x-axis, payroll near y-axis.
	chunks := NewChunker(ChunkerConfig{}).Chunk(testCorpus)
	require.Len(t, chunks, 2)
	vectors[chunks[0]] = []float32{1, 0.1, 0}
	vectors[chunks[1]] = []float32{0.1, 1, 0}

	svc, err := NewService(ServiceOptions{
		Path:     path,
		Embedder: &fakeEmbedder{vectors: vectors},
		Provider: vector.NewChromemProvider(),
	})
	require.NoError(t, err)
	require.NoError(t, svc.Load(context.Background()))

	assert.Equal(t, ModeSemantic, svc.Mode())

	got, err := svc.Retrieve(context.Background(), "payday question", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "payroll")
}

// gatedEmbedder blocks its first Embed call until released, so a test can
// interleave a second load while the first is mid-cycle.
type gatedEmbedder struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var first bool
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return []float32{1, 0}, nil
}

func (g *gatedEmbedder) GetModel() string { return "gated" }

func TestService_OverlappingReloadsKeepLatestCorpus(t *testing.T) {
	path := writeCorpus(t, testCorpus)
	emb := &gatedEmbedder{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc, err := NewService(ServiceOptions{
		Path:     path,
		Embedder: emb,
		Provider: vector.NewChromemProvider(),
	})
	require.NoError(t, err)

	first := make(chan error, 1)
	go func() { first <- svc.Load(context.Background()) }()
	<-emb.entered

	// The file changes while the first load is still indexing; the
	// second load must not publish before it nor share its collection.
	replacement := "The office building stays open from seven in the morning until eight in the evening."
	require.NoError(t, os.WriteFile(path, []byte(replacement), 0644))

	second := make(chan error, 1)
	go func() { second <- svc.Load(context.Background()) }()

	close(emb.release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)

	assert.Equal(t, 1, svc.PassageCount())
	got, err := svc.Retrieve(context.Background(), "office hours", 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "office building")
}

func TestService_ReloadSwapsPassageSet(t *testing.T) {
	path := writeCorpus(t, testCorpus)
	svc, err := NewService(ServiceOptions{Path: path})
	require.NoError(t, err)
	require.NoError(t, svc.Load(context.Background()))
	require.Equal(t, 2, svc.PassageCount())

	replacement := "The office closes at six in the evening every day and the cafeteria closes at three"
	require.NoError(t, os.WriteFile(path, []byte(replacement), 0644))
	require.NoError(t, svc.Load(context.Background()))

	assert.Equal(t, 1, svc.PassageCount())
}
