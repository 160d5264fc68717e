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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kadirpekel/parley/pkg/agent"
	"github.com/kadirpekel/parley/pkg/config"
	"github.com/kadirpekel/parley/pkg/embedders"
	"github.com/kadirpekel/parley/pkg/llms"
	"github.com/kadirpekel/parley/pkg/observability"
	"github.com/kadirpekel/parley/pkg/rag"
	"github.com/kadirpekel/parley/pkg/server"
	"github.com/kadirpekel/parley/pkg/store"
	"github.com/kadirpekel/parley/pkg/tools"
	"github.com/kadirpekel/parley/pkg/vector"
)

// ServeCmd starts the HTTP API server.
type ServeCmd struct {
	Port  int  `help:"Port to listen on (overrides config)."`
	Watch bool `help:"Watch the knowledge file and reload on change."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.Watch {
		cfg.Corpus.Watch = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	metrics, err := observability.Init(cfg.Metrics.Enabled)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	llm, err := llms.NewOllamaProviderFromConfig(&cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w", err)
	}
	defer llm.Close()
	slog.Info("Generation backend configured", "host", cfg.LLM.Host, "model", cfg.LLM.Model)

	var embedder embedders.Embedder
	var provider vector.Provider
	if *cfg.Embedder.Enabled {
		ollamaEmbedder, err := embedders.NewOllamaEmbedderFromConfig(&cfg.Embedder)
		if err != nil {
			return fmt.Errorf("failed to create embedder: %w", err)
		}
		embedder = ollamaEmbedder
		provider = vector.NewChromemProvider()
		slog.Info("Embedding backend configured", "host", cfg.Embedder.Host, "model", cfg.Embedder.Model)
	} else {
		slog.Info("Semantic retrieval disabled, using lexical scoring")
	}

	ragSvc, err := rag.NewService(rag.ServiceOptions{
		Path: cfg.Corpus.Path,
		Chunker: rag.ChunkerConfig{
			MinSize: cfg.Corpus.MinChunkSize,
			MaxSize: cfg.Corpus.MaxChunkSize,
		},
		Embedder: embedder,
		Provider: provider,
	})
	if err != nil {
		return err
	}
	if err := ragSvc.Load(ctx); err != nil {
		return fmt.Errorf("failed to load knowledge corpus: %w", err)
	}
	slog.Info("Knowledge corpus loaded", "passages", ragSvc.PassageCount(), "mode", ragSvc.Mode())
	if cfg.Corpus.Watch {
		if err := ragSvc.Watch(ctx); err != nil {
			return fmt.Errorf("failed to watch knowledge corpus: %w", err)
		}
	}

	// Employee tools are optional: a missing database only removes the
	// live-lookup capabilities, retrieval keeps working.
	builder := tools.NewRegistryBuilder()
	var employeeStore store.EmployeeStore
	mysqlStore, err := store.NewMySQLStore(ctx, cfg.Database.DSN())
	if err != nil {
		slog.Warn("Employee database unavailable, serving without database tools", "error", err)
	} else {
		defer mysqlStore.Close()
		employeeStore = mysqlStore
		for _, t := range tools.NewEmployeeTools(mysqlStore) {
			builder.Register(t)
		}
		slog.Info("Employee database connected", "host", cfg.Database.Host, "database", cfg.Database.Name)
	}
	registry := builder.Build()

	agentSvc := agent.New(agent.Options{
		LLM:           llm,
		Registry:      registry,
		MaxIterations: cfg.Agent.MaxIterations,
		Metrics:       metrics,
	})

	srv := server.New(server.Options{
		Address:     fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Agent:       agentSvc,
		RAG:         ragSvc,
		Store:       employeeStore,
		Metrics:     metrics,
		MaxPassages: cfg.Agent.MaxPassages,
	})
	return srv.Start(ctx)
}
