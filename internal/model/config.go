package model

import "time"

// Config holds every runtime setting. It is built once by the CLI and passed
// down explicitly; no component reads configuration on its own.
type Config struct {
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Analysis     AnalysisConfig     `yaml:"analysis" mapstructure:"analysis"`
	Knowledge    KnowledgeConfig    `yaml:"knowledge" mapstructure:"knowledge"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Fetch        FetchConfig        `yaml:"fetch" mapstructure:"fetch"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// LLMConfig configures the vision model endpoint
type LLMConfig struct {
	Provider   string        `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, gemini
	BaseURL    string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	APIKey     string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Model      string        `yaml:"model" mapstructure:"model"`
	MaxTokens  int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	HTTPProxy  string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// AnalysisConfig tunes the acceptance policy
type AnalysisConfig struct {
	MinConfidence float64       `yaml:"min_confidence" mapstructure:"min_confidence"`
	MaxFewShot    int           `yaml:"max_few_shot" mapstructure:"max_few_shot"`
	CacheTTL      time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// KnowledgeConfig points at the verified corpus
type KnowledgeConfig struct {
	CorpusPath string `yaml:"corpus_path" mapstructure:"corpus_path"`
	Watch      bool   `yaml:"watch" mapstructure:"watch"` // Cache corpus and reload on file change
}

// CacheConfig configures the analysis result cache
type CacheConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL       time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
	DiskDir         string        `yaml:"disk_dir,omitempty" mapstructure:"disk_dir"` // Empty disables the disk layer
}

// StoreConfig configures the SQLite catalog
type StoreConfig struct {
	Path     string `yaml:"path" mapstructure:"path"`
	MediaDir string `yaml:"media_dir" mapstructure:"media_dir"`
}

// FetchConfig configures image loading from paths and URLs
type FetchConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxBytes      int64         `yaml:"max_bytes" mapstructure:"max_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"` // Honor robots.txt for remote images
	InsecureTLS   bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
}

// ConcurrencyConfig configures batch workers
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig paces outbound model calls in batch mode
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ServerConfig configures the HTTP boundary
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// LogConfig configures structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o",
			MaxTokens: 1000,
			Timeout:   30 * time.Second,
		},
		Analysis: AnalysisConfig{
			MinConfidence: 0.30,
			MaxFewShot:    12,
			CacheTTL:      24 * time.Hour,
		},
		Knowledge: KnowledgeConfig{
			CorpusPath: "data/elementos_huanuco.json",
			Watch:      true,
		},
		Cache: CacheConfig{
			Enabled:         true,
			MemoryTTL:       24 * time.Hour,
			CleanupInterval: 10 * time.Minute,
		},
		Store: StoreConfig{
			Path:     "cultura.db",
			MediaDir: "media",
		},
		Fetch: FetchConfig{
			Timeout:       time.Minute,
			MaxBytes:      20 << 20,
			RespectRobots: true,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         2,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
