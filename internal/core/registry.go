package core

import (
	"fmt"
	"log/slog"
	"sync"
)

// Factory creates an ecosystem strategy.
type Factory func() Ecosystem

var (
	factories = make(map[string]Factory)
	mu        sync.RWMutex
)

// Register adds an ecosystem factory to the global registry.
// name is the ecosystem identifier (e.g. "npm", "yarn", "nuget", "cargo").
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
}

// Deps are the collaborators an Engine needs. Files and Runner are
// required; Graph defaults to SelfGraph, Cache to a temp-dir provider,
// Logger to slog.Default().
type Deps struct {
	Files  FileStore
	Graph  GraphResolver
	Runner CommandRunner
	Cache  CacheProvider
	Logger *slog.Logger
}

// NewEngine creates an engine for the given ecosystem.
func NewEngine(ecosystem string, deps Deps) (*Engine, error) {
	mu.RLock()
	factory, ok := factories[ecosystem]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown ecosystem: %s", ecosystem)
	}
	if deps.Files == nil {
		return nil, fmt.Errorf("%s: file store is required", ecosystem)
	}
	if deps.Runner == nil {
		return nil, fmt.Errorf("%s: command runner is required", ecosystem)
	}
	if deps.Graph == nil {
		deps.Graph = SelfGraph{}
	}
	if deps.Cache == nil {
		deps.Cache = TempCacheProvider{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Engine{eco: factory(), deps: deps}, nil
}

// SupportedEcosystems returns all registered ecosystem names.
func SupportedEcosystems() []string {
	mu.RLock()
	defer mu.RUnlock()

	ecosystems := make([]string, 0, len(factories))
	for eco := range factories {
		ecosystems = append(ecosystems, eco)
	}
	return ecosystems
}
