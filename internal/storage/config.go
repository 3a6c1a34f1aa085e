package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database struct {
		Path string `yaml:"path" toml:"path"`
	} `yaml:"database" toml:"database"`

	Data struct {
		// URL is the base URL serving diseases.json and images/frontend_images.json.
		URL string `yaml:"url" toml:"url"`
		// Dir is a local directory with the same layout; used when URL is empty.
		Dir     string        `yaml:"dir" toml:"dir"`
		Timeout time.Duration `yaml:"timeout" toml:"timeout"`
		Watch   bool          `yaml:"watch" toml:"watch"`
	} `yaml:"data" toml:"data"`

	Gallery struct {
		PageSize          int           `yaml:"page_size" toml:"page_size"`
		SlideshowInterval time.Duration `yaml:"slideshow_interval" toml:"slideshow_interval"`
	} `yaml:"gallery" toml:"gallery"`

	Ollama struct {
		BaseURL     string  `yaml:"base_url" toml:"base_url"`
		ChatModel   string  `yaml:"chat_model" toml:"chat_model"`
		EmbedModel  string  `yaml:"embed_model" toml:"embed_model"`
		Temperature float64 `yaml:"temperature" toml:"temperature"`
	} `yaml:"ollama" toml:"ollama"`

	// Prompts override the built-in advisor prompt templates.
	Prompts struct {
		Advisor string `yaml:"advisor,omitempty" toml:"advisor"`
		Triage  string `yaml:"triage,omitempty" toml:"triage"`
	} `yaml:"prompts" toml:"prompts"`

	Share struct {
		Secret string        `yaml:"secret,omitempty" toml:"secret"`
		TTL    time.Duration `yaml:"ttl" toml:"ttl"`
	} `yaml:"share" toml:"share"`

	Alerts struct {
		Feeds           []string      `yaml:"feeds" toml:"feeds"`
		RefreshInterval time.Duration `yaml:"refresh_interval" toml:"refresh_interval"`
	} `yaml:"alerts" toml:"alerts"`

	Logging struct {
		Level string `yaml:"level" toml:"level"`
		File  string `yaml:"file,omitempty" toml:"file"`
	} `yaml:"logging" toml:"logging"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Database.Path = "./plantdoc.db"
	cfg.Data.Dir = "./data"
	cfg.Data.Timeout = 10 * time.Second
	cfg.Gallery.PageSize = 12
	cfg.Gallery.SlideshowInterval = 5 * time.Second
	cfg.Ollama.BaseURL = "http://localhost:11434"
	cfg.Ollama.ChatModel = "llama3"
	cfg.Ollama.EmbedModel = "nomic-embed-text"
	cfg.Ollama.Temperature = 0.3
	cfg.Share.TTL = 7 * 24 * time.Hour
	cfg.Alerts.RefreshInterval = 30 * time.Minute
	cfg.Logging.Level = "info"
	return cfg
}

// LoadConfig reads a config file on top of DefaultConfig. Files ending in
// .toml are decoded as TOML, everything else as YAML. Environment overrides
// are applied last.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse toml config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv loads an optional .env file from the working directory and
// overrides config fields from PLANTDOC_* environment variables.
func (c *Config) ApplyEnv() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	if v := os.Getenv("PLANTDOC_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("PLANTDOC_DATA_URL"); v != "" {
		c.Data.URL = v
	}
	if v := os.Getenv("PLANTDOC_DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv("PLANTDOC_OLLAMA_URL"); v != "" {
		c.Ollama.BaseURL = v
	}
	if v := os.Getenv("PLANTDOC_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PLANTDOC_SHARE_SECRET"); v != "" {
		c.Share.Secret = v
	}
	if v := os.Getenv("PLANTDOC_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid PLANTDOC_PAGE_SIZE %q", v)
		}
		c.Gallery.PageSize = n
	}
	return nil
}

// Save writes the config as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
