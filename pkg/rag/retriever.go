// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rag

import (
	"context"
	"sort"
	"strings"

	"github.com/kadirpekel/parley/pkg/embedders"
	"github.com/kadirpekel/parley/pkg/vector"
)

// Mode identifies the active retrieval strategy. The mode is selected once
// per corpus load, never per query; a degraded load does not silently
// upgrade mid-session.
type Mode string

const (
	// ModeSemantic ranks passages by cosine similarity of dense embeddings.
	ModeSemantic Mode = "semantic"

	// ModeLexical ranks passages by distinct query-word containment.
	// Used when the embedding backend is unavailable at load time.
	ModeLexical Mode = "lexical"
)

// MinSimilarity is the floor below which semantic hits are discarded even
// if fewer than k results remain. Precision over fixed recall.
const MinSimilarity = 0.1

// Retriever scores passages against a query and returns the top k.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]string, error)

	Mode() Mode
}

// SemanticRetriever retrieves via a vector provider. Passage embeddings are
// computed once at load time; only the query is re-encoded per call.
type SemanticRetriever struct {
	provider   vector.Provider
	embedder   embedders.Embedder
	collection string
}

// NewSemanticRetriever creates a retriever over an already-populated
// collection.
func NewSemanticRetriever(provider vector.Provider, embedder embedders.Embedder, collection string) *SemanticRetriever {
	return &SemanticRetriever{
		provider:   provider,
		embedder:   embedder,
		collection: collection,
	}
}

func (r *SemanticRetriever) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := r.provider.Search(ctx, r.collection, queryVec, k)
	if err != nil {
		return nil, err
	}

	passages := make([]string, 0, len(results))
	for _, res := range results {
		if res.Score <= MinSimilarity {
			continue
		}
		passages = append(passages, res.Content)
	}

	return passages, nil
}

func (r *SemanticRetriever) Mode() Mode {
	return ModeSemantic
}

// LexicalRetriever scores each passage by the count of distinct query words
// it contains (case-insensitive substring containment). Passages with no
// matching words are excluded; ties keep source order.
type LexicalRetriever struct {
	passages []string
	lowered  []string
}

// NewLexicalRetriever creates a retriever over the given passage set.
func NewLexicalRetriever(passages []string) *LexicalRetriever {
	lowered := make([]string, len(passages))
	for i, p := range passages {
		lowered[i] = strings.ToLower(p)
	}
	return &LexicalRetriever{passages: passages, lowered: lowered}
}

func (r *LexicalRetriever) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 || len(r.passages) == 0 {
		return nil, nil
	}

	words := distinctWords(query)

	type scored struct {
		index int
		score int
	}

	var hits []scored
	for i, passage := range r.lowered {
		score := 0
		for word := range words {
			if strings.Contains(passage, word) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{index: i, score: score})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].score > hits[b].score
	})

	if len(hits) > k {
		hits = hits[:k]
	}

	passages := make([]string, 0, len(hits))
	for _, h := range hits {
		passages = append(passages, r.passages[h.index])
	}

	return passages, nil
}

func (r *LexicalRetriever) Mode() Mode {
	return ModeLexical
}

func distinctWords(query string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(query)) {
		words[w] = struct{}{}
	}
	return words
}
