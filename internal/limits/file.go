package limits

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/wonny/tradegate/internal/risk"
)

// fileConfig is the on-disk shape of a limits file:
//
//	workspaces:
//	  default:
//	    max_daily_loss_absolute: 500
//	    ...
//	  ws-alpha:
//	    ...
type fileConfig struct {
	Workspaces map[string]risk.RiskLimits `yaml:"workspaces"`
}

// FileProvider serves risk limits from a YAML file. Intended for
// development and the `gate check --demo` path; a workspace without an
// explicit entry falls back to the "default" entry when present.
type FileProvider struct {
	mu         sync.RWMutex
	workspaces map[string]risk.RiskLimits
	path       string
}

// NewFileProvider loads the limits file once at startup
func NewFileProvider(path string) (*FileProvider, error) {
	p := &FileProvider{path: path}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload re-reads the limits file
func (p *FileProvider) Reload() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("failed to read limits file: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse limits file: %w", err)
	}
	if len(cfg.Workspaces) == 0 {
		return fmt.Errorf("limits file %s has no workspaces", p.path)
	}

	p.mu.Lock()
	p.workspaces = cfg.Workspaces
	p.mu.Unlock()

	return nil
}

// GetLimits returns the limits for a workspace, falling back to "default"
func (p *FileProvider) GetLimits(_ context.Context, workspaceID string) (*risk.RiskLimits, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if l, ok := p.workspaces[workspaceID]; ok {
		return &l, nil
	}
	if l, ok := p.workspaces["default"]; ok {
		return &l, nil
	}
	return nil, fmt.Errorf("workspace %s: %w", workspaceID, ErrNotFound)
}
