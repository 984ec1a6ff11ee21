package config

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Provider resolves the configuration once per process and hands out the
// same immutable value afterwards.
type Provider struct {
	path   string
	logger *zap.Logger

	once sync.Once
	cfg  Config
	err  error
}

// NewProvider creates a Provider reading the optional config file at path.
func NewProvider(path string, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{path: path, logger: logger}
}

// Get loads the configuration on first use and returns the cached result.
func (p *Provider) Get() (Config, error) {
	p.once.Do(func() {
		p.logger.Info("Loading config settings from the environment...")
		p.cfg, p.err = Load(p.path)
	})
	return p.cfg, p.err
}

type contextKey struct{}

// NewContext returns a child context carrying cfg.
func NewContext(ctx context.Context, cfg Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext extracts the Config stored by NewContext.
func FromContext(ctx context.Context) (Config, bool) {
	cfg, ok := ctx.Value(contextKey{}).(Config)
	return cfg, ok
}
