// Package config loads talentkit settings from a TOML file.
//
//	[store]
//	data_dir      = "./talentkit_data"
//	collection    = "resumes"
//	resumes_dir   = "./uploads"
//	keyword_index = true
//
//	[embedding]
//	provider  = "hash"      # hash, openai, google, ollama
//	model     = ""
//	dimension = 0           # 0 means the model's native size
//	max_runes = 8000
//	requests_per_minute = 0 # 0 means unlimited
//
//	[llm]
//	provider   = ""          # anthropic, openai, google; inferred from model when empty
//	model      = "claude-sonnet-4-5"
//	max_tokens = 2048
//	requests_per_minute = 0
//
//	[match]
//	top_k  = 5
//	enrich = false
//
//	[telemetry]
//	enabled  = false
//	endpoint = "localhost:4317"
//	protocol = "grpc"
//
//	[log]
//	level = "info"
//
// Unset keys keep their Default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// IndexFile is the name of the vector index file inside DataDir.
const IndexFile = "index.db"

// KeywordDir is the name of the keyword index directory inside DataDir.
const KeywordDir = "keywords.bleve"

// KeywordStaleFile marks the keyword index as behind the vector index. It
// lives inside DataDir and is removed by a successful rebuild.
const KeywordStaleFile = "keywords.stale"

// Config holds every talentkit setting.
type Config struct {
	Store     StoreConfig     `toml:"store"`
	Embedding EmbeddingConfig `toml:"embedding"`
	LLM       LLMConfig       `toml:"llm"`
	Match     MatchConfig     `toml:"match"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Log       LogConfig       `toml:"log"`
}

// StoreConfig locates persisted state.
type StoreConfig struct {
	DataDir      string `toml:"data_dir"`
	Collection   string `toml:"collection"`
	ResumesDir   string `toml:"resumes_dir"`
	KeywordIndex bool   `toml:"keyword_index"`
}

// IndexPath returns the vector index file path.
func (s StoreConfig) IndexPath() string {
	return filepath.Join(s.DataDir, IndexFile)
}

// KeywordPath returns the keyword index directory path.
func (s StoreConfig) KeywordPath() string {
	return filepath.Join(s.DataDir, KeywordDir)
}

// KeywordStalePath returns the path of the keyword index stale marker.
func (s StoreConfig) KeywordStalePath() string {
	return filepath.Join(s.DataDir, KeywordStaleFile)
}

// EmbeddingConfig selects the embedding model.
type EmbeddingConfig struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	BaseURL   string `toml:"base_url"`
	Dimension int    `toml:"dimension"`
	MaxRunes  int    `toml:"max_runes"`

	RequestsPerMinute int `toml:"requests_per_minute"`
}

// LLMConfig selects the generation model. An empty Model disables generation.
type LLMConfig struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
	BaseURL   string `toml:"base_url"`

	RequestsPerMinute int `toml:"requests_per_minute"`
}

// MatchConfig tunes the matching pipeline.
type MatchConfig struct {
	TopK   int  `toml:"top_k"`
	Enrich bool `toml:"enrich"`
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
	Protocol string `toml:"protocol"`
	Insecure bool   `toml:"insecure"`
	Debug    bool   `toml:"debug"`
}

// LogConfig configures console logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			DataDir:      "./talentkit_data",
			Collection:   "resumes",
			ResumesDir:   "./uploads",
			KeywordIndex: true,
		},
		Embedding: EmbeddingConfig{
			Provider: "hash",
			MaxRunes: 8000,
		},
		LLM: LLMConfig{
			MaxTokens: 2048,
		},
		Match: MatchConfig{
			TopK: 5,
		},
		Telemetry: TelemetryConfig{
			Protocol: "grpc",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadFile reads a TOML file over Default.
func LoadFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(string(content))
}

// Parse decodes TOML content over Default and validates the result.
// Unknown keys are rejected so typos do not silently fall back to defaults.
func Parse(content string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(content, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values no component can use.
func (c *Config) Validate() error {
	if c.Store.DataDir == "" {
		return fmt.Errorf("store.data_dir is required")
	}
	if c.Store.Collection == "" {
		return fmt.Errorf("store.collection is required")
	}
	if strings.ContainsAny(c.Store.Collection, `/\`) {
		return fmt.Errorf("store.collection %q must not contain path separators", c.Store.Collection)
	}

	switch c.Embedding.Provider {
	case "hash", "openai", "google", "ollama":
	default:
		return fmt.Errorf("embedding.provider %q is not one of hash, openai, google, ollama", c.Embedding.Provider)
	}
	if c.Embedding.Dimension < 0 {
		return fmt.Errorf("embedding.dimension must not be negative")
	}
	if c.Embedding.MaxRunes < 0 {
		return fmt.Errorf("embedding.max_runes must not be negative")
	}
	if c.Embedding.RequestsPerMinute < 0 {
		return fmt.Errorf("embedding.requests_per_minute must not be negative")
	}

	switch c.LLM.Provider {
	case "", "anthropic", "openai", "google":
	default:
		return fmt.Errorf("llm.provider %q is not one of anthropic, openai, google", c.LLM.Provider)
	}
	if c.LLM.MaxTokens < 0 {
		return fmt.Errorf("llm.max_tokens must not be negative")
	}
	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("llm.requests_per_minute must not be negative")
	}
	if c.Match.Enrich && c.LLM.Model == "" {
		return fmt.Errorf("match.enrich requires llm.model")
	}
	if c.Match.TopK < 0 {
		return fmt.Errorf("match.top_k must not be negative")
	}

	switch c.Telemetry.Protocol {
	case "", "grpc", "http":
	default:
		return fmt.Errorf("telemetry.protocol %q is not grpc or http", c.Telemetry.Protocol)
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}
