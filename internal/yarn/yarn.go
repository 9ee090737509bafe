// Package yarn regenerates yarn.lock files via the yarn CLI.
package yarn

import (
	"context"
	"path"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/git-pkgs/artifacts/internal/core"
	"github.com/git-pkgs/artifacts/internal/npmrc"
)

const (
	DefaultRegistry = "https://registry.yarnpkg.com"
	ecosystem       = "yarn"
	manifestFile    = "package.json"
	rcFile          = ".yarnrc.yml"
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

func (e *Ecosystem) LockFiles(manifestPath string, dependents []core.DependentFile) []string {
	var names []string
	seen := make(map[string]bool)

	for _, d := range dependents {
		if !d.IsLeaf {
			continue
		}
		name := "yarn.lock"
		if dir := path.Dir(d.Name); dir != "." {
			name = path.Join(dir, "yarn.lock")
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// BuildConfigArtifact merges the registry settings into the repository
// root .yarnrc.yml. Yarn takes no rc file by absolute path; it discovers
// rc files by name in the working directory and its ancestors, so the
// artifact must live inside the repository where every leaf's install can
// see it. Existing repository settings are preserved; the upgrades' scope
// registries and an explicit unscoped registry win over them.
func (e *Ecosystem) BuildConfigArtifact(ctx context.Context, req *core.UpdateRequest, files core.FileStore, cacheRoot string) (string, error) {
	doc := make(map[string]any)
	contents, err := files.ReadAll(ctx, []string{rcFile})
	if err != nil {
		return "", err
	}
	if text, ok := contents[rcFile]; ok {
		if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
			return "", err
		}
	}

	if _, ok := doc["npmRegistryServer"]; !ok {
		doc["npmRegistryServer"] = DefaultRegistry
	}
	// An unscoped upgrade's registry is authoritative for the default server.
	for _, u := range req.Upgrades {
		if len(u.RegistryURLs) > 0 && u.RegistryURLs[0] != "" && u.Name != "" && u.Name[0] != '@' {
			doc["npmRegistryServer"] = u.RegistryURLs[0]
			break
		}
	}
	if scopes := npmrc.ScopeRegistries(req.Upgrades); scopes != nil {
		merged, _ := doc["npmScopes"].(map[string]any)
		if merged == nil {
			merged = make(map[string]any)
		}
		for scope, server := range scopes {
			merged[scope] = server
		}
		doc["npmScopes"] = merged
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", err
	}
	if err := files.Write(ctx, rcFile, string(data)); err != nil {
		return "", err
	}
	return rcFile, nil
}

// BuildCommands issues one lockfile-only install per leaf dependent, each
// run from its leaf's directory so rc discovery walks up to the generated
// config.
func (e *Ecosystem) BuildCommands(req *core.UpdateRequest, leaves []core.DependentFile, configPath string, files core.FileStore, cacheRoot string) ([]core.Command, core.ExecOptions, error) {
	var cmds []core.Command
	for _, leaf := range leaves {
		cmds = append(cmds, core.Command{
			Tool: "yarn",
			Args: []string{"install", "--mode", "update-lockfile"},
			Dir:  path.Dir(leaf.Name),
		})
	}

	opts := core.ExecOptions{
		CacheDir: cacheRoot,
		Env: map[string]string{
			"YARN_GLOBAL_FOLDER":             filepath.Join(cacheRoot, "yarn-global"),
			"YARN_CACHE_FOLDER":              filepath.Join(cacheRoot, "yarn-cache"),
			"YARN_ENABLE_IMMUTABLE_INSTALLS": "false",
		},
		ToolVersions: req.Config.ToolConstraints,
	}
	return cmds, opts, nil
}
