package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/patattzel/memos/linkpreview"
)

// fileConfig is the optional YAML configuration (MEMOS_CONFIG). Everything
// here has a working default; the file only exists to tune fetch limits
// without rebuilding.
type fileConfig struct {
	Preview struct {
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		MaxBodyBytes   int64  `yaml:"max_body_bytes"`
		MaxRedirects   int    `yaml:"max_redirects"`
		UserAgent      string `yaml:"user_agent"`
	} `yaml:"preview"`
}

// loadPreviewConfig builds the linkpreview config from the optional YAML
// file at path. An empty path means defaults.
func loadPreviewConfig(path string) (linkpreview.Config, error) {
	var cfg linkpreview.Config
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Timeout = time.Duration(fc.Preview.TimeoutSeconds) * time.Second
	cfg.MaxBodyBytes = fc.Preview.MaxBodyBytes
	cfg.MaxRedirects = fc.Preview.MaxRedirects
	cfg.UserAgent = fc.Preview.UserAgent
	return cfg, nil
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
