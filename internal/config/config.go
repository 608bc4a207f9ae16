// Package config maps viper settings onto the component configurations.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/analysis"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/common"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/llm"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/service"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/stream"
)

// DefaultGeminiBaseURL is used by the legacy GEMINI_* settings when no
// base URL is given.
const DefaultGeminiBaseURL = "https://api.gemini.example/v1"

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.max_tokens", llm.DefaultMaxTokens)
	v.SetDefault("llm.rate_limit", 0)
	v.SetDefault("llm.retry_attempts", common.DefaultRetryAttempts)
	v.SetDefault("llm.retry_base", common.DefaultRetryBase)

	asm := stream.DefaultConfig()
	v.SetDefault("assembler.max_buffer", asm.MaxBuffer)
	v.SetDefault("assembler.prefix", asm.Prefix)
	v.SetDefault("assembler.sentinel", asm.Sentinel)

	v.SetDefault("retrieval.top_k", analysis.DefaultConfig().TopK)
	v.SetDefault("retrieval.docs_file", "")
	v.SetDefault("retrieval.index_path", "~/.local/share/advisor/index.db")

	v.SetDefault("audit.backend", "file")
	v.SetDefault("audit.path", "~/.local/share/advisor/audit.log")
	v.SetDefault("database.path", "~/.local/share/advisor/advisor.db")

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.token", "")
	v.SetDefault("server.job_ttl", time.Hour)
	v.SetDefault("server.job_store", "memory")

	v.SetDefault("plaid.environment", "sandbox")
}

// LoadLLMConfig reads the llm.* keys. When no provider is configured the
// legacy GEMINI_ENABLED/GEMINI_API_KEY pair selects the generic HTTP
// backend, and everything else falls back to the offline local backend.
func LoadLLMConfig(v *viper.Viper) llm.Config {
	cfg := llm.Config{
		Provider:     strings.ToLower(v.GetString("llm.provider")),
		APIKey:       v.GetString("llm.api_key"),
		Model:        v.GetString("llm.model"),
		BaseURL:      v.GetString("llm.base_url"),
		CommandPath:  v.GetString("llm.command_path"),
		Capabilities: v.GetStringSlice("llm.capabilities"),
		Timeout:      v.GetDuration("llm.timeout"),
		Temperature:  v.GetFloat64("llm.temperature"),
		MaxTokens:    v.GetInt("llm.max_tokens"),
		RateLimit:    v.GetInt("llm.rate_limit"),
	}

	if cfg.Provider == "" && legacyGeminiEnabled() {
		cfg.Provider = "http"
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
		cfg.BaseURL = os.Getenv("GEMINI_BASE_URL")
		if cfg.BaseURL == "" {
			cfg.BaseURL = DefaultGeminiBaseURL
		}
		if secs, err := strconv.Atoi(os.Getenv("GEMINI_TIMEOUT")); err == nil && secs > 0 {
			cfg.Timeout = time.Duration(secs) * time.Second
		}
	}

	if cfg.APIKey == "" {
		switch cfg.Provider {
		case "openai":
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic":
			cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "gemini":
			cfg.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if cfg.Provider == "" {
		cfg.Provider = "local"
	}
	return cfg
}

func legacyGeminiEnabled() bool {
	switch strings.ToLower(os.Getenv("GEMINI_ENABLED")) {
	case "1", "true", "yes":
		return os.Getenv("GEMINI_API_KEY") != ""
	default:
		return false
	}
}

// LoadRetryOptions reads the model invocation backoff.
func LoadRetryOptions(v *viper.Viper) service.RetryOptions {
	opts := common.DefaultRetryOptions()
	if n := v.GetInt("llm.retry_attempts"); n > 0 {
		opts.MaxAttempts = n
	}
	if d := v.GetDuration("llm.retry_base"); d > 0 {
		opts.InitialDelay = d
	}
	return opts
}

// LoadAnalysisConfig reads the engine settings.
func LoadAnalysisConfig(v *viper.Viper) *analysis.Config {
	cfg := analysis.DefaultConfig()
	cfg.Assembler = stream.Config{
		MaxBuffer: v.GetInt("assembler.max_buffer"),
		Prefix:    v.GetString("assembler.prefix"),
		Sentinel:  v.GetString("assembler.sentinel"),
	}
	if n := v.GetInt("retrieval.top_k"); n > 0 {
		cfg.TopK = n
	}
	if n := v.GetInt("llm.max_tokens"); n > 0 {
		cfg.MaxTokens = n
	}
	return cfg
}

// ExpandPath expands a leading ~ and environment variables in path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return os.ExpandEnv(path)
}
