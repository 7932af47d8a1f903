// Package setup writes a starting cback configuration.
package setup

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	yamlv3 "gopkg.in/yaml.v3"

	"github.com/cedarbackup/cback/internal/config"
	"github.com/cedarbackup/cback/internal/model"
	atomicyaml "github.com/cedarbackup/cback/internal/yaml"
	"github.com/cedarbackup/cback/templates"
)

// Options controls Run.
type Options struct {
	Path       string
	WorkingDir string // overrides the template's working_dir when set
	Force      bool   // replace an existing file; the old one is kept as .bak
}

// Run generates the default configuration and writes it to opts.Path.
func Run(opts Options) (*model.Config, error) {
	absPath, err := filepath.Abs(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	if _, err := os.Stat(absPath); err == nil && !opts.Force {
		return nil, fmt.Errorf("%s already exists (use --force to replace it)", absPath)
	}

	cfg, err := generateConfig(opts.WorkingDir)
	if err != nil {
		return nil, fmt.Errorf("generate config: %w", err)
	}
	if errs := config.Validate(cfg); errs != nil {
		return nil, fmt.Errorf("generated config is invalid: %w", errs)
	}

	header := fmt.Sprintf("# cback configuration, generated %s\n", time.Now().Format(time.RFC3339))
	if err := atomicyaml.AtomicWrite(absPath, cfg, header, 0640); err != nil {
		return nil, fmt.Errorf("write %s: %w", absPath, err)
	}
	return cfg, nil
}

func generateConfig(workingDir string) (*model.Config, error) {
	data, err := fs.ReadFile(templates.FS, "cback.yaml")
	if err != nil {
		return nil, fmt.Errorf("read config template: %w", err)
	}

	var cfg model.Config
	if err := yamlv3.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config template: %w", err)
	}

	if workingDir != "" {
		cfg.Options.WorkingDir = workingDir
	}
	return &cfg, nil
}
