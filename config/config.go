package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the assistant.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Search    SearchConfig    `mapstructure:"search"`
	Rerank    RerankConfig    `mapstructure:"rerank"`
	Crawl     CrawlConfig     `mapstructure:"crawl"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug     bool   `mapstructure:"debug"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// LLMConfig selects and configures the decision/chat model provider.
type LLMConfig struct {
	Provider        string        `mapstructure:"provider"` // openai, anthropic
	OpenAIAPIKey    string        `mapstructure:"openai_api_key"`
	OpenAIModel     string        `mapstructure:"openai_model"`
	AnthropicAPIKey string        `mapstructure:"anthropic_api_key"`
	AnthropicModel  string        `mapstructure:"anthropic_model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// SearchConfig configures the web search provider.
type SearchConfig struct {
	Provider     string        `mapstructure:"provider"` // tavily, brave
	TavilyAPIKey string        `mapstructure:"tavily_api_key"`
	BraveAPIKey  string        `mapstructure:"brave_api_key"`
	Depth        string        `mapstructure:"depth"`
	MaxResults   int           `mapstructure:"max_results"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// RerankConfig configures the relevance re-ranking provider.
type RerankConfig struct {
	CohereAPIKey string        `mapstructure:"cohere_api_key"`
	Model        string        `mapstructure:"model"`
	TopN         int           `mapstructure:"top_n"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// CrawlConfig configures the page-fetch service and enrichment cache.
type CrawlConfig struct {
	Fetcher      string        `mapstructure:"fetcher"` // crawl4ai, chromedp
	BaseURL      string        `mapstructure:"base_url"`
	APIToken     string        `mapstructure:"api_token"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	MaxChars     int           `mapstructure:"max_chars"`
}

// RedisConfig contains the page-cache store settings.
type RedisConfig struct {
	Host    string        `mapstructure:"host"`
	Port    string        `mapstructure:"port"`
	Pass    string        `mapstructure:"pass"`
	DB      int           `mapstructure:"db"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PipelineConfig bounds the decision/retrieval loop.
type PipelineConfig struct {
	MaxIters      int     `mapstructure:"max_iters"`
	ScoreDropoff  float64 `mapstructure:"score_dropoff"`
	MinContentLen int     `mapstructure:"min_content_len"`
}

// TelemetryConfig contains metrics settings.
type TelemetryConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MetricsPort int  `mapstructure:"metrics_port"`
}

func (t TelemetryConfig) Validate() error {
	if t.Enabled && t.MetricsPort <= 0 {
		return fmt.Errorf("telemetry.metrics_port must be > 0 when telemetry is enabled")
	}
	return nil
}

// Validate rejects configurations that cannot start the pipeline. Missing
// credentials for the selected providers are fatal before any activity.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai":
		if strings.TrimSpace(c.LLM.OpenAIAPIKey) == "" {
			return fmt.Errorf("llm.openai_api_key is required (set OPENAI_API_KEY)")
		}
	case "anthropic":
		if strings.TrimSpace(c.LLM.AnthropicAPIKey) == "" {
			return fmt.Errorf("llm.anthropic_api_key is required (set ANTHROPIC_API_KEY)")
		}
	default:
		return fmt.Errorf("unsupported llm provider: %q", c.LLM.Provider)
	}

	switch c.Search.Provider {
	case "tavily":
		if strings.TrimSpace(c.Search.TavilyAPIKey) == "" {
			return fmt.Errorf("search.tavily_api_key is required (set TAVILY_API_KEY)")
		}
	case "brave":
		if strings.TrimSpace(c.Search.BraveAPIKey) == "" {
			return fmt.Errorf("search.brave_api_key is required (set BRAVE_API_KEY)")
		}
	default:
		return fmt.Errorf("unsupported search provider: %q", c.Search.Provider)
	}

	if c.Pipeline.MaxIters <= 0 {
		return fmt.Errorf("pipeline.max_iters must be > 0")
	}
	return c.Telemetry.Validate()
}

func setDefaults() {
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.log_format", "console")
	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.openai_model", "gpt-4o-2024-08-06")
	viper.SetDefault("llm.anthropic_model", "claude-3-5-sonnet-20241022")
	viper.SetDefault("llm.temperature", 0.0)
	viper.SetDefault("llm.max_tokens", 500)
	viper.SetDefault("llm.timeout", 60*time.Second)
	viper.SetDefault("search.provider", "tavily")
	viper.SetDefault("search.depth", "advanced")
	viper.SetDefault("search.max_results", 20)
	viper.SetDefault("search.timeout", 30*time.Second)
	viper.SetDefault("rerank.model", "rerank-v3.5")
	viper.SetDefault("rerank.top_n", 10)
	viper.SetDefault("rerank.timeout", 30*time.Second)
	viper.SetDefault("crawl.fetcher", "crawl4ai")
	viper.SetDefault("crawl.base_url", "http://localhost:11235")
	viper.SetDefault("crawl.poll_interval", 2*time.Second)
	viper.SetDefault("crawl.timeout", 240*time.Second)
	viper.SetDefault("crawl.cache_ttl", 14*24*time.Hour)
	viper.SetDefault("crawl.max_chars", 20000)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.timeout", 5*time.Second)
	viper.SetDefault("pipeline.max_iters", 2)
	viper.SetDefault("pipeline.score_dropoff", 0.15)
	viper.SetDefault("pipeline.min_content_len", 100)
	viper.SetDefault("telemetry.metrics_port", 9090)
}

// envFallbacks backfills credentials from the conventional environment
// variable names used by the respective vendors.
func envFallbacks(c *Config) {
	if c.LLM.OpenAIAPIKey == "" {
		c.LLM.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.LLM.AnthropicAPIKey == "" {
		c.LLM.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if c.Search.TavilyAPIKey == "" {
		c.Search.TavilyAPIKey = os.Getenv("TAVILY_API_KEY")
	}
	if c.Search.BraveAPIKey == "" {
		c.Search.BraveAPIKey = os.Getenv("BRAVE_API_KEY")
	}
	if c.Rerank.CohereAPIKey == "" {
		c.Rerank.CohereAPIKey = os.Getenv("COHERE_API_KEY")
	}
	if c.Crawl.APIToken == "" {
		c.Crawl.APIToken = os.Getenv("CRAWL4AI_API_TOKEN")
	}
}

// LoadConfig loads config from an optional file plus PLEXY_* environment
// variables. A missing config file is fine; a malformed one is fatal.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	setDefaults()

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("PLEXY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	envFallbacks(&config)

	if err := config.Validate(); err != nil {
		panic(err)
	}
	return &config
}
