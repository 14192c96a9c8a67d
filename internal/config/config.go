// Package config loads settings from defaults, an optional fusionbot.yaml
// and FUSIONBOT_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmorgan81/fusionbot/internal/image"
	"github.com/dmorgan81/fusionbot/internal/prompt"
	"github.com/spf13/viper"
)

type Inference struct {
	Host        string        `mapstructure:"host"`
	Model       string        `mapstructure:"model"`
	Routes      []string      `mapstructure:"routes"`
	Token       string        `mapstructure:"token"`
	TokenParam  string        `mapstructure:"token_param"`
	NoCache     bool          `mapstructure:"no_cache"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff"`
}

// Endpoint converts the settings; the token is filled in separately since
// it may live in the parameter store.
func (i Inference) Endpoint(token string) image.Endpoint {
	return image.Endpoint{
		Host:        i.Host,
		Model:       i.Model,
		Routes:      i.Routes,
		Token:       token,
		NoCache:     i.NoCache,
		Timeout:     i.Timeout,
		MaxAttempts: i.MaxAttempts,
		Backoff:     i.Backoff,
		MaxBackoff:  i.MaxBackoff,
	}
}

type Catalog struct {
	Pokemon         []string `mapstructure:"pokemon"`
	Styles          []string `mapstructure:"styles"`
	Variations      []string `mapstructure:"variations"`
	VariationsParam string   `mapstructure:"variations_param"`
}

type Config struct {
	Inference Inference `mapstructure:"inference"`
	Catalog   Catalog   `mapstructure:"catalog"`
	Batch     struct {
		Concurrency int `mapstructure:"concurrency"`
	} `mapstructure:"batch"`
	History struct {
		MaxEntries int `mapstructure:"max_entries"`
	} `mapstructure:"history"`
	Store struct {
		Bucket       string `mapstructure:"bucket"`
		Distribution string `mapstructure:"distribution"`
		Dir          string `mapstructure:"dir"`
	} `mapstructure:"store"`
	Server struct {
		Addr    string `mapstructure:"addr"`
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"server"`
	Log struct {
		Level string `mapstructure:"level"`
		File  string `mapstructure:"file"`
	} `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	catalog := prompt.DefaultCatalog()

	v.SetDefault("inference.host", image.DefaultHost)
	v.SetDefault("inference.model", image.DefaultModel)
	v.SetDefault("inference.routes", image.DefaultRoutes)
	v.SetDefault("inference.token", "")
	v.SetDefault("inference.token_param", "")
	v.SetDefault("inference.no_cache", true)
	v.SetDefault("inference.timeout", image.DefaultTimeout)
	v.SetDefault("inference.max_attempts", image.DefaultMaxAttempts)
	v.SetDefault("inference.backoff", image.DefaultBackoff)
	v.SetDefault("inference.max_backoff", image.DefaultMaxBackoff)
	v.SetDefault("catalog.pokemon", catalog.Pokemon)
	v.SetDefault("catalog.styles", catalog.Styles)
	v.SetDefault("catalog.variations", catalog.Variations)
	v.SetDefault("catalog.variations_param", "")
	v.SetDefault("batch.concurrency", 2)
	v.SetDefault("history.max_entries", 0)
	v.SetDefault("store.bucket", "")
	v.SetDefault("store.distribution", "")
	v.SetDefault("store.dir", "archive")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// Load reads file when given, otherwise fusionbot.yaml from the working
// directory if one exists.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("fusionbot")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("inference.token", "FUSIONBOT_INFERENCE_TOKEN", "HF_TOKEN"); err != nil {
		return nil, err
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("fusionbot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	// A cap below one full batch would evict images the page is about to show.
	if n := cfg.History.MaxEntries; n > 0 && n < prompt.MaxCount {
		cfg.History.MaxEntries = prompt.MaxCount
	}
	return &cfg, nil
}

// Validate checks settings that do not depend on remote secrets. A missing
// inference token is reported when the generator is built.
func (c *Config) Validate() error {
	if c.Inference.MaxAttempts < 1 {
		return fmt.Errorf("inference.max_attempts must be at least 1, got %d", c.Inference.MaxAttempts)
	}
	if c.Inference.Timeout <= 0 {
		return fmt.Errorf("inference.timeout must be positive, got %s", c.Inference.Timeout)
	}
	if len(c.Inference.Routes) == 0 {
		return errors.New("inference.routes must not be empty")
	}
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("batch.concurrency must be at least 1, got %d", c.Batch.Concurrency)
	}
	if c.History.MaxEntries < 0 {
		return fmt.Errorf("history.max_entries must not be negative, got %d", c.History.MaxEntries)
	}
	return nil
}

func (c *Config) PromptCatalog(variations []string) prompt.Catalog {
	return prompt.Catalog{
		Pokemon:    c.Catalog.Pokemon,
		Styles:     c.Catalog.Styles,
		Variations: variations,
	}
}
