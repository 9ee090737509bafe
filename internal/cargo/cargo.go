// Package cargo regenerates Cargo.lock files via the cargo CLI.
package cargo

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/git-pkgs/artifacts/internal/core"
)

const (
	ecosystem    = "cargo"
	manifestFile = "Cargo.toml"
)

func init() {
	core.Register(ecosystem, func() core.Ecosystem {
		return New()
	})
}

type Ecosystem struct{}

func New() *Ecosystem {
	return &Ecosystem{}
}

func (e *Ecosystem) Name() string {
	return ecosystem
}

func (e *Ecosystem) Classify(p string) core.ManifestKind {
	if path.Base(p) == manifestFile {
		return core.KindManifest
	}
	return core.KindNone
}

// LockFiles watches the sibling Cargo.lock of each leaf plus the workspace
// lock at the repository root, where cargo keeps it for workspace members.
func (e *Ecosystem) LockFiles(manifestPath string, dependents []core.DependentFile) []string {
	var names []string
	seen := make(map[string]bool)

	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	for _, d := range dependents {
		if !d.IsLeaf {
			continue
		}
		name := "Cargo.lock"
		if dir := path.Dir(d.Name); dir != "." {
			name = path.Join(dir, "Cargo.lock")
		}
		add(name)
	}
	add("Cargo.lock")
	return names
}

// registryEntry is one alternate registry in the cargo config dialect.
type registryEntry struct {
	Index string `toml:"index"`
}

type cargoConfig struct {
	Registries map[string]registryEntry `toml:"registries,omitempty"`
}

// BuildConfigArtifact writes an isolated cargo home with a config.toml
// listing the upgrades' alternate registries, deduplicated by URL with the
// first occurrence winning.
func (e *Ecosystem) BuildConfigArtifact(ctx context.Context, req *core.UpdateRequest, files core.FileStore, cacheRoot string) (string, error) {
	cfg := cargoConfig{}
	seen := make(map[string]bool)
	for _, u := range req.Upgrades {
		if len(u.RegistryURLs) == 0 || u.RegistryURLs[0] == "" || seen[u.RegistryURLs[0]] {
			continue
		}
		seen[u.RegistryURLs[0]] = true
		if cfg.Registries == nil {
			cfg.Registries = make(map[string]registryEntry)
		}
		name := fmt.Sprintf("alt-%d", len(cfg.Registries)+1)
		cfg.Registries[name] = registryEntry{Index: u.RegistryURLs[0]}
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	home := filepath.Join(cacheRoot, "cargo-home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		return "", err
	}
	cfgPath := filepath.Join(home, "config.toml")
	if err := os.WriteFile(cfgPath, data, 0o600); err != nil {
		return "", err
	}
	return cfgPath, nil
}

// BuildCommands issues one update per upgrade and leaf, or a plain update
// per leaf for maintenance runs.
func (e *Ecosystem) BuildCommands(req *core.UpdateRequest, leaves []core.DependentFile, configPath string, files core.FileStore, cacheRoot string) ([]core.Command, core.ExecOptions, error) {
	var cmds []core.Command
	for _, leaf := range leaves {
		if len(req.Upgrades) == 0 {
			cmds = append(cmds, core.Command{
				Tool: "cargo",
				Args: []string{"update", "--manifest-path", leaf.Name},
			})
			continue
		}
		for _, u := range req.Upgrades {
			args := []string{"update", "--manifest-path", leaf.Name, "-p", u.Name}
			if u.Version != "" {
				args = append(args, "--precise", u.Version)
			}
			cmds = append(cmds, core.Command{Tool: "cargo", Args: args})
		}
	}

	opts := core.ExecOptions{
		CacheDir: cacheRoot,
		Env: map[string]string{
			"CARGO_HOME": filepath.Dir(configPath),
		},
		ToolVersions: req.Config.ToolConstraints,
	}
	return cmds, opts, nil
}
