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

// Package rag implements the knowledge corpus: chunking, indexing and
// retrieval of passages.
package rag

import "strings"

// ChunkerConfig configures passage chunking.
type ChunkerConfig struct {
	// MinSize discards passages shorter than this many characters.
	// Default: 50
	MinSize int `yaml:"min_size,omitempty"`

	// MaxSize splits passages longer than this many characters into
	// fixed-size word windows.
	// Default: 1000
	MaxSize int `yaml:"max_size,omitempty"`

	// WindowWords is the window width used when splitting oversized
	// passages.
	// Default: 500
	WindowWords int `yaml:"window_words,omitempty"`
}

// SetDefaults applies default values.
func (c *ChunkerConfig) SetDefaults() {
	if c.MinSize == 0 {
		c.MinSize = 50
	}
	if c.MaxSize == 0 {
		c.MaxSize = 1000
	}
	if c.WindowWords == 0 {
		c.WindowWords = 500
	}
}

// Chunker splits raw corpus text into bounded-size passages.
//
// Splitting policy: paragraph boundaries (blank-line separated blocks)
// first; if that yields a single block, sentence boundaries. The policy is
// a heuristic with no awareness of document structure; callers with a
// differently shaped corpus should pre-split and feed blocks directly.
type Chunker struct {
	config ChunkerConfig
}

// NewChunker creates a chunker with the given config.
func NewChunker(cfg ChunkerConfig) *Chunker {
	cfg.SetDefaults()
	return &Chunker{config: cfg}
}

// Chunk splits content into passages. Passage order reflects source order;
// every returned passage is at least MinSize and at most MaxSize characters
// long, except oversized word windows whose single words exceed MaxSize
// (pathological input).
func (c *Chunker) Chunk(content string) []string {
	blocks := splitBlocks(content)

	// Single block means no paragraph structure; fall back to sentences.
	if len(blocks) <= 1 {
		blocks = splitSentences(content)
	}

	var passages []string
	for _, block := range blocks {
		if len(block) < c.config.MinSize {
			continue
		}
		if len(block) > c.config.MaxSize {
			passages = append(passages, c.windows(block)...)
			continue
		}
		passages = append(passages, block)
	}

	return passages
}

// splitBlocks splits on blank lines and trims each block.
func splitBlocks(content string) []string {
	var blocks []string
	for _, block := range strings.Split(content, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

// splitSentences splits on sentence-ending periods.
func splitSentences(content string) []string {
	var sentences []string
	for _, s := range strings.Split(content, ".") {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// windows splits an oversized block into fixed-size word windows.
func (c *Chunker) windows(block string) []string {
	words := strings.Fields(block)
	step := c.config.WindowWords

	var out []string
	for i := 0; i < len(words); i += step {
		end := i + step
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[i:end], " "))
	}
	return out
}
