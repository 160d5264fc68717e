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

// Package config defines the configuration schema and loading pipeline.
//
// Configuration is loaded from a YAML file, run through environment
// variable expansion (${VAR}, ${VAR:-default}), then defaults and
// validation. A .env file next to the working directory is honored.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	// LLM configures the generation backend.
	LLM LLMConfig `yaml:"llm,omitempty" json:"llm,omitempty" jsonschema:"title=LLM,description=Generation backend configuration"`

	// Embedder configures the embedding backend.
	Embedder EmbedderConfig `yaml:"embedder,omitempty" json:"embedder,omitempty" jsonschema:"title=Embedder,description=Embedding backend configuration"`

	// Corpus configures the knowledge corpus.
	Corpus CorpusConfig `yaml:"corpus,omitempty" json:"corpus,omitempty" jsonschema:"title=Corpus,description=Knowledge corpus configuration"`

	// Database configures the employee record store.
	Database DatabaseConfig `yaml:"database,omitempty" json:"database,omitempty" jsonschema:"title=Database,description=Employee record store configuration"`

	// Server configures the HTTP API.
	Server ServerConfig `yaml:"server,omitempty" json:"server,omitempty" jsonschema:"title=Server,description=HTTP server configuration"`

	// Metrics configures Prometheus metrics exposure.
	Metrics MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" jsonschema:"title=Metrics,description=Metrics configuration"`

	// Logger configures logging behavior.
	Logger LoggerConfig `yaml:"logger,omitempty" json:"logger,omitempty" jsonschema:"title=Logger,description=Logging configuration"`

	// Agent configures the tool-calling loop.
	Agent AgentConfig `yaml:"agent,omitempty" json:"agent,omitempty" jsonschema:"title=Agent,description=Tool-calling loop configuration"`
}

// LLMConfig configures the Ollama generation backend.
type LLMConfig struct {
	// Host is the Ollama base URL.
	Host string `yaml:"host,omitempty" json:"host,omitempty" jsonschema:"title=Host,description=Ollama base URL,default=http://localhost:11434"`

	// Model name (e.g. "gemma3:4b").
	Model string `yaml:"model,omitempty" json:"model,omitempty" jsonschema:"title=Model,description=Model identifier,default=gemma3:4b"`

	// Temperature for generation.
	Temperature float64 `yaml:"temperature,omitempty" json:"temperature,omitempty" jsonschema:"title=Temperature,description=Sampling temperature,minimum=0,maximum=2,default=0.7"`

	// MaxTokens limits response length (num_predict).
	MaxTokens int `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty" jsonschema:"title=Max Tokens,description=Maximum tokens to generate,minimum=1,default=500"`

	// Timeout per generation call, in seconds.
	Timeout int `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"title=Timeout,description=Per-call timeout in seconds,default=60"`
}

func (c *LLMConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "http://localhost:11434"
	}
	if c.Model == "" {
		c.Model = "gemma3:4b"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 500
	}
	if c.Timeout == 0 {
		c.Timeout = 60
	}
}

func (c *LLMConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("llm: model is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("llm: timeout cannot be negative")
	}
	return nil
}

// EmbedderConfig configures the Ollama embedding backend.
type EmbedderConfig struct {
	// Enabled turns semantic retrieval on. When false or when the backend is
	// unreachable at load time, the retriever falls back to lexical scoring.
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty" jsonschema:"title=Enabled,description=Enable semantic retrieval,default=true"`

	// Host is the Ollama base URL. Defaults to the llm host.
	Host string `yaml:"host,omitempty" json:"host,omitempty" jsonschema:"title=Host,description=Ollama base URL"`

	// Model is the embedding model name.
	Model string `yaml:"model,omitempty" json:"model,omitempty" jsonschema:"title=Model,description=Embedding model,default=nomic-embed-text"`

	// Timeout per embedding call, in seconds.
	Timeout int `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"title=Timeout,description=Per-call timeout in seconds,default=30"`

	// MaxRetries bounds load-time retry attempts per passage.
	MaxRetries int `yaml:"max_retries,omitempty" json:"max_retries,omitempty" jsonschema:"title=Max Retries,description=Load-time retries per embedding call,default=3"`
}

func (c *EmbedderConfig) SetDefaults() {
	if c.Enabled == nil {
		enabled := true
		c.Enabled = &enabled
	}
	if c.Model == "" {
		c.Model = "nomic-embed-text"
	}
	if c.Timeout == 0 {
		c.Timeout = 30
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

// CorpusConfig configures the knowledge corpus.
type CorpusConfig struct {
	// Path to the knowledge text file.
	Path string `yaml:"path,omitempty" json:"path,omitempty" jsonschema:"title=Path,description=Knowledge file path,default=knowledge.txt"`

	// Watch reloads the corpus automatically when the file changes.
	Watch bool `yaml:"watch,omitempty" json:"watch,omitempty" jsonschema:"title=Watch,description=Reload corpus on file change"`

	// MinChunkSize discards passages shorter than this many characters.
	MinChunkSize int `yaml:"min_chunk_size,omitempty" json:"min_chunk_size,omitempty" jsonschema:"title=Min Chunk Size,description=Minimum passage length in characters,default=50"`

	// MaxChunkSize splits passages longer than this many characters.
	MaxChunkSize int `yaml:"max_chunk_size,omitempty" json:"max_chunk_size,omitempty" jsonschema:"title=Max Chunk Size,description=Maximum passage length in characters,default=1000"`
}

func (c *CorpusConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "knowledge.txt"
	}
	if c.MinChunkSize == 0 {
		c.MinChunkSize = 50
	}
	if c.MaxChunkSize == 0 {
		c.MaxChunkSize = 1000
	}
}

func (c *CorpusConfig) Validate() error {
	if c.MinChunkSize < 0 || c.MaxChunkSize < 0 {
		return fmt.Errorf("corpus: chunk sizes cannot be negative")
	}
	if c.MaxChunkSize > 0 && c.MinChunkSize > c.MaxChunkSize {
		return fmt.Errorf("corpus: min_chunk_size exceeds max_chunk_size")
	}
	return nil
}

// DatabaseConfig configures the MySQL employee store.
type DatabaseConfig struct {
	Host     string `yaml:"host,omitempty" json:"host,omitempty" jsonschema:"title=Host,default=localhost"`
	Port     int    `yaml:"port,omitempty" json:"port,omitempty" jsonschema:"title=Port,default=3306"`
	User     string `yaml:"user,omitempty" json:"user,omitempty" jsonschema:"title=User,default=root"`
	Password string `yaml:"password,omitempty" json:"password,omitempty" jsonschema:"title=Password,description=Use ${ENV_VAR} expansion rather than literals"`
	Name     string `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"title=Database Name,default=employee_db"`
}

func (c *DatabaseConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 3306
	}
	if c.User == "" {
		c.User = "root"
	}
	if c.Name == "" {
		c.Name = "employee_db"
	}
}

// DSN renders a go-sql-driver/mysql connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", c.User, c.Password, c.Host, c.Port, c.Name)
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host string `yaml:"host,omitempty" json:"host,omitempty" jsonschema:"title=Host,default=0.0.0.0"`
	Port int    `yaml:"port,omitempty" json:"port,omitempty" jsonschema:"title=Port,default=8000"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8000
	}
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled,omitempty" json:"enabled,omitempty" jsonschema:"title=Enabled,description=Expose /metrics"`
}

// LoggerConfig configures logging behavior.
//
// Priority order (highest to lowest): CLI flags, config file, defaults.
type LoggerConfig struct {
	// Level specifies the log level (debug, info, warn, error).
	Level string `yaml:"level,omitempty" json:"level,omitempty" jsonschema:"title=Level,enum=debug,enum=info,enum=warn,enum=error,default=info"`

	// File specifies the log file path. Empty means stderr.
	File string `yaml:"file,omitempty" json:"file,omitempty" jsonschema:"title=File,description=Log file path (empty = stderr)"`

	// Format is "simple" or "verbose".
	Format string `yaml:"format,omitempty" json:"format,omitempty" jsonschema:"title=Format,enum=simple,enum=verbose,default=simple"`
}

func (c *LoggerConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "simple"
	}
}

// AgentConfig configures the tool-calling loop.
type AgentConfig struct {
	// MaxIterations bounds the number of prompting turns per query.
	MaxIterations int `yaml:"max_iterations,omitempty" json:"max_iterations,omitempty" jsonschema:"title=Max Iterations,description=Prompting turn budget per query,minimum=1,default=5"`

	// MaxPassages is the default retrieval depth per query.
	MaxPassages int `yaml:"max_passages,omitempty" json:"max_passages,omitempty" jsonschema:"title=Max Passages,description=Default passages retrieved per query,minimum=1,default=3"`
}

func (c *AgentConfig) SetDefaults() {
	if c.MaxIterations == 0 {
		c.MaxIterations = 5
	}
	if c.MaxPassages == 0 {
		c.MaxPassages = 3
	}
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	c.LLM.SetDefaults()
	c.Embedder.SetDefaults()
	if c.Embedder.Host == "" {
		c.Embedder.Host = c.LLM.Host
	}
	c.Corpus.SetDefaults()
	c.Database.SetDefaults()
	c.Server.SetDefaults()
	c.Logger.SetDefaults()
	c.Agent.SetDefaults()
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Corpus.Validate(); err != nil {
		return err
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server: invalid port %d", c.Server.Port)
	}
	return nil
}

// Load reads, expands, defaults and validates a config file. A missing path
// yields a default configuration.
func Load(path string) (*Config, error) {
	loadDotEnv()

	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		expanded := expandEnvVars(string(data))

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
