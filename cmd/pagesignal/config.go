package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/pagesignal"
	"gopkg.in/yaml.v3"
)

// loadConfigFile reads a YAML or JSON config file. The format follows the
// extension; anything else is tried as YAML first, then JSON.
func loadConfigFile(path string) (pagesignal.Config, error) {
	var cfg pagesignal.Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default:
		if yerr := yaml.Unmarshal(data, &cfg); yerr != nil {
			cfg = pagesignal.Config{}
			err = json.Unmarshal(data, &cfg)
		}
	}
	if err != nil {
		return pagesignal.Config{}, pagesignal.Errorf(pagesignal.EINVALID, "parse config %s: %v", path, err)
	}
	return cfg, nil
}

// resolveConfig layers flags and env over the config file over the
// defaults.
func resolveConfig(g Globals) (pagesignal.Config, error) {
	var file pagesignal.Config
	if g.Config != "" {
		var err error
		if file, err = loadConfigFile(g.Config); err != nil {
			return pagesignal.Config{}, err
		}
	}

	flags := pagesignal.Config{
		TimeoutMs:     int(g.Timeout / time.Millisecond),
		MaxBodyBytes:  g.MaxBodyBytes,
		MaxURLs:       g.MaxURLs,
		MaxRedirects:  g.MaxRedirects,
		Concurrency:   g.Concurrency,
		RatePerHost:   g.RatePerHost,
		SnippetFormat: pagesignal.SnippetFormat(g.SnippetFormat),
		UserAgent:     g.UserAgent,
	}

	cfg := file.Override(flags)
	if err := cfg.Validate(); err != nil {
		return pagesignal.Config{}, err
	}
	return cfg.WithDefaults(), nil
}
