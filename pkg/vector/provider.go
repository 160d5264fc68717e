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

// Package vector abstracts vector storage and similarity search over
// pre-computed embeddings.
package vector

import "context"

// SearchResult is a single similarity search hit.
type SearchResult struct {
	ID       string
	Content  string
	Score    float32
	Metadata map[string]string
}

// Provider stores vectors and performs cosine similarity search. Embeddings
// are computed externally; providers never embed text themselves.
type Provider interface {
	// Upsert adds or updates a document with its vector embedding.
	Upsert(ctx context.Context, collection, id string, vec []float32, metadata map[string]string) error

	// Search returns up to k results ranked by descending similarity.
	Search(ctx context.Context, collection string, queryVec []float32, k int) ([]SearchResult, error)

	// Reset drops a collection entirely.
	Reset(ctx context.Context, collection string) error

	// Count reports the number of documents in a collection.
	Count(ctx context.Context, collection string) (int, error)
}
