// Package nuget regenerates packages.lock.json files via the dotnet CLI.
package nuget

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/git-pkgs/artifacts/internal/core"
)

const (
	DefaultSource = "https://api.nuget.org/v3/index.json"
	ecosystem     = "nuget"

	// WorkloadRestoreOption requests a dotnet workload restore before any
	// per-project restore.
	WorkloadRestoreOption = "dotnetWorkloadRestore"
)

var centralFiles = map[string]bool{
	"Directory.Packages.props": true,
	"Directory.Build.props":    true,
	"Directory.Build.targets":  true,
	"Packages.props":           true,
}

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
	base := path.Base(p)
	switch {
	case centralFiles[base]:
		return core.KindCentral
	case base == "global.json":
		return core.KindToolVersion
	}
	switch path.Ext(base) {
	case ".csproj", ".fsproj", ".vbproj":
		return core.KindManifest
	}
	return core.KindNone
}

// LockFiles watches the packages.lock.json next to each leaf project.
func (e *Ecosystem) LockFiles(manifestPath string, dependents []core.DependentFile) []string {
	var names []string
	seen := make(map[string]bool)

	for _, d := range dependents {
		if !d.IsLeaf {
			continue
		}
		name := "packages.lock.json"
		if dir := path.Dir(d.Name); dir != "." {
			name = path.Join(dir, "packages.lock.json")
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// nugetConfig is the on-disk NuGet.config shape, reduced to package
// sources.
type nugetConfig struct {
	XMLName        xml.Name       `xml:"configuration"`
	PackageSources packageSources `xml:"packageSources"`
}

type packageSources struct {
	Clear *struct{}    `xml:"clear,omitempty"`
	Adds  []sourceNode `xml:"add"`
}

type sourceNode struct {
	Key             string `xml:"key,attr"`
	Value           string `xml:"value,attr"`
	ProtocolVersion string `xml:"protocolVersion,attr,omitempty"`
}

// BuildConfigArtifact writes an isolated NuGet.config into the cache root,
// combining sources discovered from the repository's own nuget.config, the
// nuget.org default, and the registries of the proposed upgrades. Sources
// are deduplicated by URL with the first occurrence winning.
func (e *Ecosystem) BuildConfigArtifact(ctx context.Context, req *core.UpdateRequest, files core.FileStore, cacheRoot string) (string, error) {
	urls := e.discoverSources(ctx, req.ManifestPath, files)
	urls = append(urls, DefaultSource)
	for _, u := range req.Upgrades {
		urls = append(urls, u.RegistryURLs...)
	}

	cfg := nugetConfig{PackageSources: packageSources{Clear: &struct{}{}}}
	seen := make(map[string]bool)
	for _, url := range urls {
		if url == "" || seen[url] {
			continue
		}
		seen[url] = true
		node := sourceNode{
			Key:   fmt.Sprintf("source-%d", len(cfg.PackageSources.Adds)+1),
			Value: url,
		}
		if strings.HasSuffix(url, "/index.json") {
			node.ProtocolVersion = "3"
		}
		cfg.PackageSources.Adds = append(cfg.PackageSources.Adds, node)
	}

	data, err := xml.MarshalIndent(&cfg, "", "  ")
	if err != nil {
		return "", err
	}
	data = append([]byte(xml.Header), data...)

	cfgPath := filepath.Join(cacheRoot, "NuGet.config")
	if err := os.WriteFile(cfgPath, data, 0o600); err != nil {
		return "", err
	}
	return cfgPath, nil
}

// discoverSources reads package sources from the repository's own
// nuget.config found by upward search from the manifest.
func (e *Ecosystem) discoverSources(ctx context.Context, manifestPath string, files core.FileStore) []string {
	var found string
	for _, name := range []string{"NuGet.config", "nuget.config", "NuGet.Config"} {
		if p, ok := files.FindUp(manifestPath, name); ok {
			found = p
			break
		}
	}
	if found == "" {
		return nil
	}

	contents, err := files.ReadAll(ctx, []string{found})
	if err != nil {
		return nil
	}
	text, ok := contents[found]
	if !ok {
		return nil
	}

	var cfg nugetConfig
	if err := xml.Unmarshal([]byte(text), &cfg); err != nil {
		return nil
	}

	var urls []string
	for _, add := range cfg.PackageSources.Adds {
		urls = append(urls, add.Value)
	}
	return urls
}

// BuildCommands issues one forced restore per leaf project, preceded by a
// workload restore when requested so tooling is in place before any
// project restore runs.
func (e *Ecosystem) BuildCommands(req *core.UpdateRequest, leaves []core.DependentFile, configPath string, files core.FileStore, cacheRoot string) ([]core.Command, core.ExecOptions, error) {
	var cmds []core.Command
	if req.HasPostUpdateOption(WorkloadRestoreOption) {
		cmds = append(cmds, core.Command{Tool: "dotnet", Args: []string{"workload", "restore"}})
	}
	for _, leaf := range leaves {
		cmds = append(cmds, core.Command{
			Tool: "dotnet",
			Args: []string{
				"restore",
				leaf.Name,
				"--force-evaluate",
				"--configfile", configPath,
			},
		})
	}

	opts := core.ExecOptions{
		CacheDir: cacheRoot,
		Env: map[string]string{
			"NUGET_PACKAGES":              filepath.Join(cacheRoot, "packages"),
			"MSBUILDDISABLENODEREUSE":     "1",
			"DOTNET_CLI_TELEMETRY_OPTOUT": "1",
		},
		ToolVersions: e.toolVersions(req, files),
	}
	return cmds, opts, nil
}

// toolVersions returns the configured SDK constraint, or the one pinned in
// the repository's global.json when the caller did not set one.
func (e *Ecosystem) toolVersions(req *core.UpdateRequest, files core.FileStore) map[string]string {
	if _, ok := req.Config.ToolConstraints["dotnet"]; ok {
		return req.Config.ToolConstraints
	}

	versions := make(map[string]string, len(req.Config.ToolConstraints)+1)
	for k, v := range req.Config.ToolConstraints {
		versions[k] = v
	}

	pin, ok := files.FindUp(req.ManifestPath, "global.json")
	if !ok {
		return versions
	}
	contents, err := files.ReadAll(context.Background(), []string{pin})
	if err != nil {
		return versions
	}
	text, ok := contents[pin]
	if !ok {
		return versions
	}

	var globalJSON struct {
		SDK struct {
			Version string `json:"version"`
		} `json:"sdk"`
	}
	if err := json.Unmarshal([]byte(text), &globalJSON); err == nil && globalJSON.SDK.Version != "" {
		versions["dotnet"] = globalJSON.SDK.Version
	}
	return versions
}
