package analysis

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"creatflow/internal/domain"
)

// Chain tries configured backends in declared priority order. Fallback
// happens only for transient and auth failures; a permanent-input verdict
// from any backend ends the chain, since every backend would reject the
// same asset.
type Chain struct {
	analyzers []Analyzer
	logger    zerolog.Logger
}

// NewChain builds a fallback chain. Order is priority order.
func NewChain(logger zerolog.Logger, analyzers ...Analyzer) *Chain {
	return &Chain{analyzers: analyzers, logger: logger}
}

func (c *Chain) Name() string { return "fallback-chain" }

// Analyze runs the chain, stopping at the first success or first
// non-fallback failure. When every backend fails the last classified
// failure is returned.
func (c *Chain) Analyze(ctx context.Context, ref AssetRef) (*Detection, error) {
	if len(c.analyzers) == 0 {
		return nil, domain.NewFailure(domain.FailureConfiguration, StageName, fmt.Errorf("no analysis backends configured"))
	}

	var lastErr error
	for _, backend := range c.analyzers {
		detection, err := backend.Analyze(ctx, ref)
		if err == nil {
			return detection, nil
		}
		lastErr = err

		kind := domain.ClassifyError(err)
		if kind != domain.FailureTransient && kind != domain.FailureAuth {
			return nil, err
		}
		c.logger.Warn().
			Err(err).
			Str("backend", backend.Name()).
			Str("failure_kind", string(kind)).
			Msg("analysis: backend failed, trying next in priority order")
	}
	return nil, lastErr
}

var _ Analyzer = (*Chain)(nil)

// Registry resolves analyzers by name with a configured default, so a job
// may override the backend while everything else uses the deployment's pick.
type Registry struct {
	byName      map[string]Analyzer
	defaultName string
}

// NewRegistry indexes analyzers by Name. The default must be registered.
func NewRegistry(defaultName string, analyzers ...Analyzer) (*Registry, error) {
	byName := make(map[string]Analyzer, len(analyzers))
	for _, a := range analyzers {
		byName[a.Name()] = a
	}
	if _, ok := byName[defaultName]; !ok {
		return nil, fmt.Errorf("default analyzer %q not registered", defaultName)
	}
	return &Registry{byName: byName, defaultName: defaultName}, nil
}

// Resolve returns the named analyzer, falling back to the default when the
// name is empty or unknown.
func (r *Registry) Resolve(name string) Analyzer {
	if a, ok := r.byName[name]; ok {
		return a
	}
	return r.byName[r.defaultName]
}
