// Package npm regenerates package-lock.json files via the npm CLI.
package npm

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/git-pkgs/artifacts/internal/core"
	"github.com/git-pkgs/artifacts/internal/npmrc"
)

const (
	DefaultRegistry = "https://registry.npmjs.org/"
	ecosystem       = "npm"
	manifestFile    = "package.json"
)

// topLevelRegistry matches an unscoped registry assignment at the start of
// a line. Scope lines ("@myorg:registry=...") do not count as a configured
// default registry.
var topLevelRegistry = regexp.MustCompile(`(?m)^\s*registry\s*=`)

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

// LockFiles watches the npm lock files next to each leaf dependent.
func (e *Ecosystem) LockFiles(manifestPath string, dependents []core.DependentFile) []string {
	var names []string
	seen := make(map[string]bool)

	add := func(dir, name string) {
		p := name
		if dir != "." {
			p = path.Join(dir, name)
		}
		if !seen[p] {
			seen[p] = true
			names = append(names, p)
		}
	}

	for _, d := range dependents {
		if !d.IsLeaf {
			continue
		}
		dir := path.Dir(d.Name)
		add(dir, "package-lock.json")
		add(dir, "npm-shrinkwrap.json")
	}
	return names
}

// BuildConfigArtifact writes an isolated .npmrc into the cache root: the
// resolved repository/caller config, per-scope registry lines from the
// upgrades, and the default registry when none is configured.
func (e *Ecosystem) BuildConfigArtifact(ctx context.Context, req *core.UpdateRequest, files core.FileStore, cacheRoot string) (string, error) {
	text, _, err := npmrc.Resolve(ctx, files, req.ManifestPath, npmrc.Options{
		CallerText:   req.Config.RegistryConfigText,
		Merge:        req.Config.MergeRegistryConfig,
		ExposeAllEnv: req.Config.ExposeAllEnv,
	})
	if err != nil {
		return "", err
	}

	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	for _, line := range npmrc.ScopeLines(req.Upgrades) {
		text += line + "\n"
	}
	if !topLevelRegistry.MatchString(text) {
		text += "registry=" + DefaultRegistry + "\n"
	}

	cfgPath := filepath.Join(cacheRoot, npmrc.FileName)
	if err := os.WriteFile(cfgPath, []byte(text), 0o600); err != nil {
		return "", err
	}
	return cfgPath, nil
}

// BuildCommands issues one lock-only install per leaf dependent.
func (e *Ecosystem) BuildCommands(req *core.UpdateRequest, leaves []core.DependentFile, configPath string, files core.FileStore, cacheRoot string) ([]core.Command, core.ExecOptions, error) {
	var cmds []core.Command
	for _, leaf := range leaves {
		cmds = append(cmds, core.Command{
			Tool: "npm",
			Args: []string{
				"install",
				"--package-lock-only",
				"--ignore-scripts",
				"--no-audit",
				"--userconfig", configPath,
				"--prefix", path.Dir(leaf.Name),
			},
		})
	}

	opts := core.ExecOptions{
		CacheDir: cacheRoot,
		Env: map[string]string{
			"npm_config_cache": filepath.Join(cacheRoot, "npm-cache"),
		},
		ToolVersions: req.Config.ToolConstraints,
	}
	return cmds, opts, nil
}
