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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kadirpekel/parley/pkg/embedders"
	"github.com/kadirpekel/parley/pkg/vector"
)

// Service owns the corpus lifecycle: loading the knowledge file, chunking
// it, indexing passages and answering retrieval calls. The passage set and
// the retriever swap atomically on each load; concurrent queries only ever
// observe a complete load cycle.
type Service struct {
	path     string
	chunker  *Chunker
	embedder embedders.Embedder // nil disables semantic mode
	provider vector.Provider

	// loadMu serializes load cycles. Without it a watcher-triggered
	// reload racing an explicit /reload could allocate the same
	// generation and publish a stale passage set over a newer one.
	loadMu sync.Mutex

	mu         sync.RWMutex
	retriever  Retriever
	passages   []string
	loaded     bool
	generation int

	watcher *fsnotify.Watcher
}

// ServiceOptions configures the corpus service.
type ServiceOptions struct {
	// Path to the knowledge text file (required).
	Path string

	// Chunker configuration.
	Chunker ChunkerConfig

	// Embedder for semantic mode. Nil selects lexical mode outright.
	Embedder embedders.Embedder

	// Provider for vector storage. Required when Embedder is set.
	Provider vector.Provider
}

// NewService creates a corpus service. Call Load before Retrieve.
func NewService(opts ServiceOptions) (*Service, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("corpus path is required")
	}
	if opts.Embedder != nil && opts.Provider == nil {
		return nil, fmt.Errorf("vector provider is required for semantic mode")
	}

	return &Service{
		path:     opts.Path,
		chunker:  NewChunker(opts.Chunker),
		embedder: opts.Embedder,
		provider: opts.Provider,
	}, nil
}

// Load reads and chunks the knowledge file, then builds the retriever for
// this load cycle. A missing file is a load error and leaves readiness
// unchanged; an unavailable embedding backend is not, it only degrades the
// cycle to lexical mode. Concurrent calls are serialized; each completed
// call publishes the file contents it read as one atomic swap.
func (s *Service) Load(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("knowledge file %q not found: %w", s.path, err)
	}

	passages := s.chunker.Chunk(string(data))
	slog.Info("Chunked knowledge corpus", "path", s.path, "passages", len(passages))

	retriever, generation, err := s.buildRetriever(ctx, passages)
	if err != nil {
		return err
	}

	s.mu.Lock()
	oldGeneration := s.generation
	s.passages = passages
	s.retriever = retriever
	s.generation = generation
	s.loaded = true
	s.mu.Unlock()

	// Old collection is unreachable now; drop it.
	if s.provider != nil && oldGeneration != 0 && oldGeneration != generation {
		if err := s.provider.Reset(ctx, collectionName(oldGeneration)); err != nil {
			slog.Warn("Failed to drop stale passage collection", "error", err)
		}
	}

	slog.Info("Corpus loaded", "mode", retriever.Mode(), "passages", len(passages))
	return nil
}

// buildRetriever indexes the passages and selects the retrieval mode for
// this cycle. Any embedding failure degrades the whole cycle to lexical;
// the mode never upgrades mid-session.
func (s *Service) buildRetriever(ctx context.Context, passages []string) (Retriever, int, error) {
	generation := s.nextGeneration()

	if s.embedder == nil {
		return NewLexicalRetriever(passages), generation, nil
	}

	collection := collectionName(generation)
	for i, passage := range passages {
		vec, err := s.embedder.Embed(ctx, passage)
		if err != nil {
			slog.Warn("Embedding backend unavailable, falling back to lexical matching", "error", err)
			if resetErr := s.provider.Reset(ctx, collection); resetErr != nil {
				slog.Debug("Failed to drop partial collection", "error", resetErr)
			}
			return NewLexicalRetriever(passages), generation, nil
		}

		metadata := map[string]string{"content": passage}
		if err := s.provider.Upsert(ctx, collection, fmt.Sprintf("passage-%d", i), vec, metadata); err != nil {
			return nil, 0, fmt.Errorf("failed to index passage %d: %w", i, err)
		}
	}

	return NewSemanticRetriever(s.provider, s.embedder, collection), generation, nil
}

func (s *Service) nextGeneration() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation + 1
}

func collectionName(generation int) string {
	return fmt.Sprintf("corpus-v%d", generation)
}

// Retrieve returns up to k passages relevant to the query under the mode
// selected at load time. Empty corpus yields no passages.
func (s *Service) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	s.mu.RLock()
	retriever := s.retriever
	s.mu.RUnlock()

	if retriever == nil {
		return nil, fmt.Errorf("corpus not loaded")
	}

	return retriever.Retrieve(ctx, query, k)
}

// IsLoaded reports whether a load cycle has completed.
func (s *Service) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Mode reports the retrieval mode of the current load cycle.
func (s *Service) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.retriever == nil {
		return ""
	}
	return s.retriever.Mode()
}

// PassageCount reports the size of the current passage set.
func (s *Service) PassageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.passages)
}

// Watch reloads the corpus when the knowledge file changes. Events are
// debounced since editors emit several writes per save. Stops when the
// context is canceled.
func (s *Service) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create corpus watcher: %w", err)
	}

	// Watch the directory; many editors replace the file on save, which
	// drops a watch registered on the file itself.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch corpus directory: %w", err)
	}

	s.watcher = watcher

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		base := filepath.Base(s.path)

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, func() {
					slog.Info("Knowledge file changed, reloading corpus", "path", s.path)
					if err := s.Load(context.Background()); err != nil {
						slog.Error("Corpus reload failed", "error", err)
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("Corpus watcher error", "error", err)
			}
		}
	}()

	return nil
}
