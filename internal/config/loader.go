// Package config loads, validates and generates cback configuration.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/cedarbackup/cback/internal/model"
)

const (
	// DefaultPath is used when no --config switch is given.
	DefaultPath = "/etc/cback.yaml"

	// EnvPrefix marks environment variables that override file values.
	EnvPrefix = "CBACK_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Load reads the YAML file at path, applies CBACK_* environment overrides,
// fills defaults and validates the result.
//
// Environment variables map onto sections by their first underscore:
//
//	CBACK_OPTIONS_WORKING_DIR -> options.working_dir
//	CBACK_EXTENSIONS_ORDER_MODE -> extensions.order_mode
//	CBACK_LOGGING_LEVEL -> logging.level
func Load(path string) (*model.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat config: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(content)
}

// Parse is Load without the file access.
func Parse(content []byte) (*model.Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment overrides: %w", err)
	}

	var cfg model.Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if errs := Validate(&cfg); errs != nil {
		return nil, errs
	}
	return &cfg, nil
}

// envKey strips the prefix and splits section from field on the first
// underscore; underscores in the field name are kept.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

// ApplyDefaults sets default values for missing configuration fields.
func ApplyDefaults(cfg *model.Config) {
	if cfg.Options.StartingDay == "" {
		cfg.Options.StartingDay = "monday"
	}
	if cfg.Options.WorkingDir == "" {
		cfg.Options.WorkingDir = "/var/lib/cback"
	}
	if cfg.Options.HookPrecedence == "" {
		cfg.Options.HookPrecedence = "last"
	}
	if cfg.Options.Shell == "" {
		cfg.Options.Shell = "/bin/sh"
	}
	if cfg.Extensions.OrderMode == "" {
		cfg.Extensions.OrderMode = "index"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Logging.Mode == "" {
		cfg.Logging.Mode = "0640"
	}
	if cfg.Audit.Path != "" && cfg.Audit.MaxSizeBytes <= 0 {
		cfg.Audit.MaxSizeBytes = 100 * 1024 * 1024
	}
}
