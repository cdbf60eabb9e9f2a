// Package config loads graphhelper settings from a TOML file and the
// environment.
//
// Values are resolved in order: built-in defaults, then the file, then
// environment overrides. A missing file is not an error.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/poiesic/graphhelper/ai"
	"github.com/poiesic/graphhelper/classify"
	"github.com/poiesic/graphhelper/core"
	"github.com/poiesic/graphhelper/generate"
	"github.com/poiesic/graphhelper/graph"
	"github.com/poiesic/graphhelper/ingestion"
	"github.com/poiesic/graphhelper/retrieve"
	"github.com/poiesic/graphhelper/websearch"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvMode       = "GRAPHHELPER_MODE"
	EnvLegacyMode = "AGENT_MODE"
	EnvAPIKey     = "OPENROUTER_API_KEY"
	EnvDB         = "GRAPHHELPER_DB"
)

// Config is the complete graphhelper configuration.
type Config struct {
	// Mode is the default mode for new requests: offline or online.
	Mode string `toml:"mode"`

	LLM       LLMConfig       `toml:"llm"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	WebSearch WebSearchConfig `toml:"websearch"`
	Graph     GraphConfig     `toml:"graph"`
	Store     StoreConfig     `toml:"store"`
}

// LLMConfig selects the completion and embedding backends.
type LLMConfig struct {
	Platform        string        `toml:"platform"`
	CompletionHost  string        `toml:"completion_host"`
	EmbeddingHost   string        `toml:"embedding_host"`
	CompletionModel string        `toml:"completion_model"`
	EmbeddingModel  string        `toml:"embedding_model"`
	APIKey          string        `toml:"api_key"`
	Temperature     float64       `toml:"temperature"`
	MaxTokens       int           `toml:"max_tokens"`
	Timeout         time.Duration `toml:"timeout"`
	MaxRetries      int           `toml:"max_retries"`
}

// RetrievalConfig tunes local documentation search.
type RetrievalConfig struct {
	TopK      int     `toml:"top_k"`
	MinScore  float64 `toml:"min_score"`
	Expansion bool    `toml:"expansion"`
}

// WebSearchConfig tunes the online branch.
type WebSearchConfig struct {
	MaxResults    int           `toml:"max_results"`
	Region        string        `toml:"region"`
	RatePerSecond float64       `toml:"rate_per_second"`
	Timeout       time.Duration `toml:"timeout"`
}

// GraphConfig bounds request execution.
type GraphConfig struct {
	RequestTimeout  time.Duration `toml:"request_timeout"`
	StepTimeout     time.Duration `toml:"step_timeout"`
	GenerateTimeout time.Duration `toml:"generate_timeout"`
	MaxHistoryTurns int           `toml:"max_history_turns"`
	ClassifierCache int           `toml:"classifier_cache"`
	Workers         int           `toml:"workers"`
}

// StoreConfig locates the index and tunes index builds.
type StoreConfig struct {
	Path         string `toml:"path"`
	ChunkSize    int    `toml:"chunk_size"`
	ChunkOverlap int    `toml:"chunk_overlap"`
	BatchSize    int    `toml:"batch_size"`
	Workers      int    `toml:"workers"`
}

// Default returns the built-in configuration.
func Default() *Config {
	llm := ai.DefaultConfig()
	return &Config{
		Mode: string(core.ModeOffline),
		LLM: LLMConfig{
			Platform:        string(llm.Platform),
			CompletionHost:  llm.CompletionHost,
			EmbeddingHost:   llm.EmbeddingHost,
			CompletionModel: llm.CompletionModel,
			EmbeddingModel:  llm.EmbeddingModel,
			Temperature:     llm.Temperature,
			MaxTokens:       llm.MaxTokens,
			Timeout:         llm.Timeout,
			MaxRetries:      llm.MaxRetries,
		},
		Retrieval: RetrievalConfig{
			TopK:      retrieve.DefaultTopK,
			MinScore:  float64(retrieve.DefaultMinScore),
			Expansion: true,
		},
		WebSearch: WebSearchConfig{
			MaxResults:    websearch.DefaultMaxResults,
			Region:        websearch.DefaultRegion,
			RatePerSecond: 0.5,
			Timeout:       15 * time.Second,
		},
		Graph: GraphConfig{
			RequestTimeout:  graph.DefaultRequestTimeout,
			StepTimeout:     graph.DefaultStepTimeout,
			GenerateTimeout: graph.DefaultGenerateTimeout,
			MaxHistoryTurns: generate.DefaultMaxHistoryTurns,
			ClassifierCache: classify.DefaultCacheSize,
		},
		Store: StoreConfig{
			Path:         DefaultStorePath(),
			ChunkSize:    ingestion.DefaultChunkSize,
			ChunkOverlap: ingestion.DefaultChunkOverlap,
			BatchSize:    ingestion.DefaultBatchSize,
		},
	}
}

// DefaultPath returns the config file location under the user config dir.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "graphhelper.toml"
	}
	return filepath.Join(dir, "graphhelper", "config.toml")
}

// DefaultStorePath returns the index location under the user cache dir.
func DefaultStorePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "graphhelper.db"
	}
	return filepath.Join(dir, "graphhelper", "index")
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path or a missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		default:
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				keys := make([]string, len(undecoded))
				for i, k := range undecoded {
					keys[i] = k.String()
				}
				return nil, fmt.Errorf("%w in %s: %s", ErrUnknownKey, path, strings.Join(keys, ", "))
			}
		}
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv applies environment overrides read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if mode := getenv(EnvLegacyMode); mode != "" {
		c.Mode = mode
	}
	if mode := getenv(EnvMode); mode != "" {
		c.Mode = mode
	}
	if key := getenv(EnvAPIKey); key != "" {
		c.LLM.APIKey = key
	}
	if db := getenv(EnvDB); db != "" {
		c.Store.Path = db
	}
}

// Validate checks every section and normalizes the mode.
func (c *Config) Validate() error {
	var errs []error
	field := func(name, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s: %s", ErrInvalidConfig, name, fmt.Sprintf(format, args...)))
	}

	mode, err := core.ParseMode(c.Mode)
	if err != nil {
		field("mode", "%q is not offline or online", c.Mode)
	} else {
		c.Mode = string(mode)
	}

	if err := c.AIConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: llm: %w", ErrInvalidConfig, err))
	}

	if c.Retrieval.TopK < retrieve.MinTopK || c.Retrieval.TopK > retrieve.MaxTopK {
		field("retrieval.top_k", "%d not in [%d, %d]", c.Retrieval.TopK, retrieve.MinTopK, retrieve.MaxTopK)
	}
	if c.Retrieval.MinScore < 0 || c.Retrieval.MinScore > 1 {
		field("retrieval.min_score", "%v not in [0, 1]", c.Retrieval.MinScore)
	}

	if c.WebSearch.MaxResults < websearch.MinResults || c.WebSearch.MaxResults > websearch.MaxResults {
		field("websearch.max_results", "%d not in [%d, %d]", c.WebSearch.MaxResults, websearch.MinResults, websearch.MaxResults)
	}
	if c.WebSearch.RatePerSecond <= 0 {
		field("websearch.rate_per_second", "must be positive")
	}
	if c.WebSearch.Timeout <= 0 {
		field("websearch.timeout", "must be positive")
	}

	for name, d := range map[string]time.Duration{
		"graph.request_timeout":  c.Graph.RequestTimeout,
		"graph.step_timeout":     c.Graph.StepTimeout,
		"graph.generate_timeout": c.Graph.GenerateTimeout,
	} {
		if d <= 0 {
			field(name, "must be positive")
		}
	}
	if c.Graph.MaxHistoryTurns < 0 {
		field("graph.max_history_turns", "cannot be negative")
	}
	if c.Graph.ClassifierCache < 0 {
		field("graph.classifier_cache", "cannot be negative")
	}

	if c.Store.Path == "" {
		field("store.path", "is required")
	}
	if c.Store.ChunkSize <= 0 || c.Store.ChunkOverlap < 0 || c.Store.ChunkOverlap >= c.Store.ChunkSize {
		field("store.chunk_size", "size %d with overlap %d", c.Store.ChunkSize, c.Store.ChunkOverlap)
	}

	return errors.Join(errs...)
}

// DefaultMode returns the validated default mode.
func (c *Config) DefaultMode() core.Mode {
	mode, err := core.ParseMode(c.Mode)
	if err != nil {
		return core.ModeOffline
	}
	return mode
}

// AIConfig converts the [llm] section into a provider configuration.
func (c *Config) AIConfig() *ai.Config {
	// Platform goes last so hosts and timeout left at their defaults follow it.
	return ai.NewConfig(
		ai.WithCompletionHost(c.LLM.CompletionHost),
		ai.WithEmbeddingHost(c.LLM.EmbeddingHost),
		ai.WithCompletionModel(c.LLM.CompletionModel),
		ai.WithEmbeddingModel(c.LLM.EmbeddingModel),
		ai.WithAPIKey(c.LLM.APIKey),
		ai.WithTemperature(c.LLM.Temperature),
		ai.WithMaxTokens(c.LLM.MaxTokens),
		ai.WithTimeout(c.LLM.Timeout),
		ai.WithMaxRetries(c.LLM.MaxRetries),
		ai.WithPlatform(ai.Platform(c.LLM.Platform)),
	)
}

// Write encodes c as TOML. The API key is left out.
func (c *Config) Write(w io.Writer) error {
	redacted := *c
	redacted.LLM.APIKey = ""
	return toml.NewEncoder(w).Encode(redacted)
}
