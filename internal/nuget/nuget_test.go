package nuget

import (
	"context"
	"encoding/xml"
	"os"
	"path"
	"reflect"
	"testing"

	"github.com/git-pkgs/artifacts/internal/core"
)

type fakeStore struct {
	files map[string]string
}

func (f *fakeStore) Root() string { return "/repo" }

func (f *fakeStore) ReadAll(_ context.Context, names []string) (map[string]string, error) {
	contents := make(map[string]string)
	for _, n := range names {
		if c, ok := f.files[n]; ok {
			contents[n] = c
		}
	}
	return contents, nil
}

func (f *fakeStore) Write(_ context.Context, name string, content string) error {
	f.files[name] = content
	return nil
}

func (f *fakeStore) FindUp(start string, fileName string) (string, bool) {
	dir := path.Dir(start)
	for {
		candidate := fileName
		if dir != "." {
			candidate = path.Join(dir, fileName)
		}
		if _, ok := f.files[candidate]; ok {
			return candidate, true
		}
		if dir == "." {
			return "", false
		}
		dir = path.Dir(dir)
	}
}

func TestClassify(t *testing.T) {
	e := New()
	tests := []struct {
		path string
		want core.ManifestKind
	}{
		{"src/App/App.csproj", core.KindManifest},
		{"src/Lib/Lib.fsproj", core.KindManifest},
		{"src/Lib/Lib.vbproj", core.KindManifest},
		{"Directory.Packages.props", core.KindCentral},
		{"src/Directory.Build.props", core.KindCentral},
		{"global.json", core.KindToolVersion},
		{"package.json", core.KindNone},
		{"src/App/App.csproj.user", core.KindNone},
	}
	for _, tt := range tests {
		if got := e.Classify(tt.path); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestLockFiles(t *testing.T) {
	e := New()
	dependents := []core.DependentFile{
		{Name: "Directory.Packages.props", IsLeaf: false},
		{Name: "src/App/App.csproj", IsLeaf: true},
		{Name: "src/Lib/Lib.csproj", IsLeaf: true},
	}

	got := e.LockFiles("Directory.Packages.props", dependents)
	want := []string{"src/App/packages.lock.json", "src/Lib/packages.lock.json"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LockFiles() = %v, want %v", got, want)
	}
}

func readConfig(t *testing.T, cfgPath string) nugetConfig {
	t.Helper()
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	var cfg nugetConfig
	if err := xml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("generated config is not valid xml: %v", err)
	}
	return cfg
}

func TestBuildConfigArtifactDefaultOnly(t *testing.T) {
	e := New()
	files := &fakeStore{files: map[string]string{}}

	cfgPath, err := e.BuildConfigArtifact(context.Background(), &core.UpdateRequest{
		ManifestPath: "src/App/App.csproj",
	}, files, t.TempDir())
	if err != nil {
		t.Fatalf("BuildConfigArtifact failed: %v", err)
	}

	cfg := readConfig(t, cfgPath)
	if len(cfg.PackageSources.Adds) != 1 {
		t.Fatalf("expected one source, got %v", cfg.PackageSources.Adds)
	}
	src := cfg.PackageSources.Adds[0]
	if src.Value != DefaultSource || src.ProtocolVersion != "3" {
		t.Errorf("unexpected default source: %+v", src)
	}
	if cfg.PackageSources.Clear == nil {
		t.Error("config must clear inherited sources")
	}
}

func TestBuildConfigArtifactDedupFirstWins(t *testing.T) {
	e := New()
	files := &fakeStore{files: map[string]string{
		"nuget.config": `<?xml version="1.0"?>
<configuration>
  <packageSources>
    <add key="corp" value="https://nuget.corp.example/v3/index.json" />
  </packageSources>
</configuration>`,
	}}

	req := &core.UpdateRequest{
		ManifestPath: "src/App/App.csproj",
		Upgrades: []core.Upgrade{
			{Name: "Corp.Lib", Version: "2.0.0", RegistryURLs: []string{
				"https://nuget.corp.example/v3/index.json",
				"https://mirror.example/feed",
			}},
		},
	}
	cfgPath, err := e.BuildConfigArtifact(context.Background(), req, files, t.TempDir())
	if err != nil {
		t.Fatalf("BuildConfigArtifact failed: %v", err)
	}

	cfg := readConfig(t, cfgPath)
	var values []string
	for _, add := range cfg.PackageSources.Adds {
		values = append(values, add.Value)
	}
	want := []string{
		"https://nuget.corp.example/v3/index.json",
		DefaultSource,
		"https://mirror.example/feed",
	}
	if !reflect.DeepEqual(values, want) {
		t.Errorf("sources = %v, want %v", values, want)
	}
	// The repository source comes first and keeps protocol version 3.
	if cfg.PackageSources.Adds[0].ProtocolVersion != "3" {
		t.Errorf("index.json source missing protocol version: %+v", cfg.PackageSources.Adds[0])
	}
	if cfg.PackageSources.Adds[2].ProtocolVersion != "" {
		t.Errorf("non-index source got protocol version: %+v", cfg.PackageSources.Adds[2])
	}
}

func TestBuildCommandsWorkloadRestoreFirst(t *testing.T) {
	e := New()
	files := &fakeStore{files: map[string]string{}}
	leaves := []core.DependentFile{{Name: "src/App/App.csproj", IsLeaf: true}}

	req := &core.UpdateRequest{
		ManifestPath: "src/App/App.csproj",
		Config:       core.UpdateConfig{PostUpdateOptions: []string{WorkloadRestoreOption}},
	}
	cmds, opts, err := e.BuildCommands(req, leaves, "/cache/NuGet.config", files, "/cache")
	if err != nil {
		t.Fatalf("BuildCommands failed: %v", err)
	}
	if len(cmds) != 2 {
		t.Fatalf("expected 2 commands, got %v", cmds)
	}
	if !reflect.DeepEqual(cmds[0].Args, []string{"workload", "restore"}) {
		t.Errorf("workload restore not first: %v", cmds[0].Args)
	}
	want := []string{"restore", "src/App/App.csproj", "--force-evaluate", "--configfile", "/cache/NuGet.config"}
	if !reflect.DeepEqual(cmds[1].Args, want) {
		t.Errorf("restore args = %v, want %v", cmds[1].Args, want)
	}
	if opts.Env["NUGET_PACKAGES"] == "" || opts.Env["MSBUILDDISABLENODEREUSE"] != "1" {
		t.Errorf("unexpected env: %v", opts.Env)
	}
}

func TestToolVersionsFromGlobalJSON(t *testing.T) {
	e := New()
	files := &fakeStore{files: map[string]string{
		"global.json": `{"sdk":{"version":"8.0.101"}}`,
	}}

	_, opts, err := e.BuildCommands(&core.UpdateRequest{
		ManifestPath: "src/App/App.csproj",
	}, nil, "/cache/NuGet.config", files, "/cache")
	if err != nil {
		t.Fatalf("BuildCommands failed: %v", err)
	}
	if opts.ToolVersions["dotnet"] != "8.0.101" {
		t.Errorf("sdk pin not discovered: %v", opts.ToolVersions)
	}
}

func TestToolVersionsCallerConstraintWins(t *testing.T) {
	e := New()
	files := &fakeStore{files: map[string]string{
		"global.json": `{"sdk":{"version":"8.0.101"}}`,
	}}

	_, opts, err := e.BuildCommands(&core.UpdateRequest{
		ManifestPath: "src/App/App.csproj",
		Config: core.UpdateConfig{
			ToolConstraints: map[string]string{"dotnet": "9.0.100"},
		},
	}, nil, "/cache/NuGet.config", files, "/cache")
	if err != nil {
		t.Fatalf("BuildCommands failed: %v", err)
	}
	if opts.ToolVersions["dotnet"] != "9.0.100" {
		t.Errorf("caller constraint not honored: %v", opts.ToolVersions)
	}
}
