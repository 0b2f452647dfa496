package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendGemini = "gemini"
	BackendClaude = "claude"
	BackendOpenAI = "openai"
	BackendOllama = "ollama"
)

type Config struct {
	ListenAddr    string       `yaml:"listen_addr"`
	VisionBackend string       `yaml:"vision_backend"`
	Gemini        GeminiConfig `yaml:"gemini"`
	Claude        ClaudeConfig `yaml:"claude"`
	OpenAI        OpenAIConfig `yaml:"openai"`
	Ollama        OllamaConfig `yaml:"ollama"`
	LogLevel      string       `yaml:"log_level"`
	LogFile       string       `yaml:"log_file"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type ClaudeConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type OllamaConfig struct {
	Host  string `yaml:"host"`
	Model string `yaml:"model"`
}

func defaults() *Config {
	return &Config{
		ListenAddr:    ":8080",
		VisionBackend: BackendGemini,
		Gemini:        GeminiConfig{Model: "gemini-2.5-flash"},
		Claude:        ClaudeConfig{Model: "claude-sonnet-4-5"},
		OpenAI:        OpenAIConfig{Model: "gpt-4o-mini"},
		Ollama:        OllamaConfig{Host: "http://localhost:11434", Model: "llava"},
		LogLevel:      "info",
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// CONFIG_FILE, a .env file in the working directory, and the environment, each
// layer overriding the previous one. Variables already set in the environment
// win over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.VisionBackend = getEnv("VISION_BACKEND", cfg.VisionBackend)
	cfg.Gemini.APIKey = getEnv("GOOGLE_API_KEY", cfg.Gemini.APIKey)
	cfg.Gemini.Model = getEnv("GEMINI_MODEL", cfg.Gemini.Model)
	cfg.Claude.APIKey = getEnv("CLAUDE_API_KEY", cfg.Claude.APIKey)
	cfg.Claude.Model = getEnv("CLAUDE_MODEL", cfg.Claude.Model)
	cfg.OpenAI.APIKey = getEnv("OPENAI_API_KEY", cfg.OpenAI.APIKey)
	cfg.OpenAI.Model = getEnv("OPENAI_MODEL", cfg.OpenAI.Model)
	cfg.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAI.BaseURL)
	cfg.Ollama.Host = getEnv("OLLAMA_HOST", cfg.Ollama.Host)
	cfg.Ollama.Model = getEnv("OLLAMA_MODEL", cfg.Ollama.Model)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks that the selected backend is known and has its credential.
func (c *Config) Validate() error {
	switch c.VisionBackend {
	case BackendGemini:
		if c.Gemini.APIKey == "" {
			return errors.New("GOOGLE_API_KEY is required when VISION_BACKEND=gemini")
		}
	case BackendClaude:
		if c.Claude.APIKey == "" {
			return errors.New("CLAUDE_API_KEY is required when VISION_BACKEND=claude")
		}
	case BackendOpenAI:
		if c.OpenAI.APIKey == "" {
			return errors.New("OPENAI_API_KEY is required when VISION_BACKEND=openai")
		}
	case BackendOllama:
		if c.Ollama.Host == "" {
			return errors.New("OLLAMA_HOST is required when VISION_BACKEND=ollama")
		}
	default:
		return fmt.Errorf("unknown VISION_BACKEND %q", c.VisionBackend)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}
