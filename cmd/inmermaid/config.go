// ABOUTME: Runtime configuration from INMERMAID_* environment variables with an optional YAML overlay.
// ABOUTME: Precedence: defaults, then config file, then environment. BOT_TOKEN is required and env-only.
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/om1ji/InMermaid/bot"
	"github.com/om1ji/InMermaid/mermaid"
)

// ErrMissingToken is returned when no Telegram token is configured.
var ErrMissingToken = errors.New(
	"BOT_TOKEN is not set; create a bot with @BotFather and export its token",
)

// Config holds everything the process needs to run.
type Config struct {
	Token             string        // Telegram bot token (BOT_TOKEN, required)
	RenderTimeout     time.Duration // layout deadline (INMERMAID_RENDER_TIMEOUT)
	ViewportWidth     int           // layout canvas (INMERMAID_VIEWPORT_WIDTH)
	ViewportHeight    int           // layout canvas (INMERMAID_VIEWPORT_HEIGHT)
	CacheCapacity     int           // render-result LRU size (INMERMAID_CACHE_CAPACITY)
	FileCacheCapacity int           // file_id LRU size (INMERMAID_FILE_CACHE_CAPACITY)
	RateLimit         float64       // renders per second (INMERMAID_RATE_LIMIT)
	RateBurst         int           // rate limiter burst (INMERMAID_RATE_BURST)
	LibraryURL        string        // pinned mermaid.js URL (INMERMAID_LIBRARY_URL)
	Theme             string        // mermaid theme (INMERMAID_THEME)
}

// fileConfig is the optional YAML overlay. Absent fields leave the current
// value untouched.
type fileConfig struct {
	RenderTimeout     *string  `yaml:"render_timeout"`
	ViewportWidth     *int     `yaml:"viewport_width"`
	ViewportHeight    *int     `yaml:"viewport_height"`
	CacheCapacity     *int     `yaml:"cache_capacity"`
	FileCacheCapacity *int     `yaml:"file_cache_capacity"`
	RateLimit         *float64 `yaml:"rate_limit"`
	RateBurst         *int     `yaml:"rate_burst"`
	LibraryURL        *string  `yaml:"library_url"`
	Theme             *string  `yaml:"theme"`
}

// loadConfig builds the effective configuration. configPath may be empty.
func loadConfig(configPath string) (*Config, error) {
	cfg := &Config{
		RenderTimeout:     mermaid.DefaultRenderTimeout,
		ViewportWidth:     mermaid.DefaultViewportWidth,
		ViewportHeight:    mermaid.DefaultViewportHeight,
		CacheCapacity:     mermaid.DefaultCacheCapacity,
		FileCacheCapacity: bot.DefaultFileCacheCapacity,
		RateLimit:         bot.DefaultRateLimit,
		RateBurst:         bot.DefaultRateBurst,
		LibraryURL:        mermaid.DefaultLibraryURL,
		Theme:             mermaid.DefaultTheme,
	}

	if configPath != "" {
		if err := cfg.applyFile(configPath); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.Token == "" {
		return nil, ErrMissingToken
	}
	return cfg, nil
}

// applyFile overlays values from a YAML config file.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.RenderTimeout != nil {
		d, err := time.ParseDuration(*fc.RenderTimeout)
		if err != nil {
			return fmt.Errorf("config render_timeout: %w", err)
		}
		c.RenderTimeout = d
	}
	if fc.ViewportWidth != nil {
		c.ViewportWidth = *fc.ViewportWidth
	}
	if fc.ViewportHeight != nil {
		c.ViewportHeight = *fc.ViewportHeight
	}
	if fc.CacheCapacity != nil {
		c.CacheCapacity = *fc.CacheCapacity
	}
	if fc.FileCacheCapacity != nil {
		c.FileCacheCapacity = *fc.FileCacheCapacity
	}
	if fc.RateLimit != nil {
		c.RateLimit = *fc.RateLimit
	}
	if fc.RateBurst != nil {
		c.RateBurst = *fc.RateBurst
	}
	if fc.LibraryURL != nil {
		c.LibraryURL = *fc.LibraryURL
	}
	if fc.Theme != nil {
		c.Theme = *fc.Theme
	}
	return nil
}

// applyEnv overlays values from the environment. Environment variables win
// over the config file so deployments can override without editing files.
func (c *Config) applyEnv() error {
	c.Token = os.Getenv("BOT_TOKEN")

	if v := os.Getenv("INMERMAID_RENDER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("INMERMAID_RENDER_TIMEOUT: %w", err)
		}
		c.RenderTimeout = d
	}

	var err error
	if c.ViewportWidth, err = intEnv("INMERMAID_VIEWPORT_WIDTH", c.ViewportWidth); err != nil {
		return err
	}
	if c.ViewportHeight, err = intEnv("INMERMAID_VIEWPORT_HEIGHT", c.ViewportHeight); err != nil {
		return err
	}
	if c.CacheCapacity, err = intEnv("INMERMAID_CACHE_CAPACITY", c.CacheCapacity); err != nil {
		return err
	}
	if c.FileCacheCapacity, err = intEnv("INMERMAID_FILE_CACHE_CAPACITY", c.FileCacheCapacity); err != nil {
		return err
	}
	if c.RateBurst, err = intEnv("INMERMAID_RATE_BURST", c.RateBurst); err != nil {
		return err
	}

	if v := os.Getenv("INMERMAID_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("INMERMAID_RATE_LIMIT: %w", err)
		}
		c.RateLimit = f
	}

	if v := os.Getenv("INMERMAID_LIBRARY_URL"); v != "" {
		c.LibraryURL = v
	}
	if v := os.Getenv("INMERMAID_THEME"); v != "" {
		c.Theme = v
	}
	return nil
}

// intEnv parses an integer environment variable, keeping the fallback when
// the variable is unset.
func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
