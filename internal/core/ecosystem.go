package core

import "context"

// Command is one toolchain invocation. Dir, when set, is the working
// directory relative to the repository root; empty means the root itself.
type Command struct {
	Tool string
	Args []string
	Dir  string
}

// ExecOptions describes the controlled environment for a command sequence.
type ExecOptions struct {
	// Dir is the working directory, normally the repository root.
	Dir string

	// CacheDir is the private per-request cache root. Runners must not
	// substitute a shared machine cache.
	CacheDir string

	// Env is the allowlist of extra environment variables. Nothing from the
	// host environment beyond PATH/HOME is visible to the toolchain.
	Env map[string]string

	// ToolVersions constrains toolchain versions (binary name -> version).
	ToolVersions map[string]string
}

// Ecosystem is the per-ecosystem strategy: it knows which files it owns,
// which lock files to watch, how to build the isolated registry config
// artifact, and which command sequence regenerates the lock files.
type Ecosystem interface {
	// Name returns the ecosystem identifier (e.g. "npm", "nuget").
	Name() string

	// Classify reports how the ecosystem treats the given path.
	Classify(path string) ManifestKind

	// LockFiles returns the ordered set of lock file names to watch for the
	// manifest and its leaf dependents.
	LockFiles(manifestPath string, dependents []DependentFile) []string

	// BuildConfigArtifact writes the isolated registry configuration under
	// cacheRoot and returns its path. The artifact combines repository
	// configuration, documented ecosystem defaults, and the registries of
	// the proposed upgrades.
	BuildConfigArtifact(ctx context.Context, req *UpdateRequest, files FileStore, cacheRoot string) (string, error)

	// BuildCommands returns the ordered command sequence and its execution
	// environment. Commands run strictly in order.
	BuildCommands(req *UpdateRequest, leaves []DependentFile, configPath string, files FileStore, cacheRoot string) ([]Command, ExecOptions, error)
}

// FileStore is the repository file collaborator. Paths use forward slashes
// relative to the repository root.
type FileStore interface {
	// Root returns the absolute repository root.
	Root() string

	// ReadAll reads the named files in one batch. Absent files are omitted
	// from the returned map; only infrastructure failures are errors.
	ReadAll(ctx context.Context, names []string) (map[string]string, error)

	// Write replaces the content of name, creating parent directories.
	Write(ctx context.Context, name string, content string) error

	// FindUp searches for fileName in the directory of start and each
	// ancestor up to the repository root. It returns the relative path of
	// the first match and whether one was found.
	FindUp(start string, fileName string) (string, bool)
}

// GraphResolver resolves which manifest files are affected by a change to
// manifestPath. The engine only consumes the leaf subset.
type GraphResolver interface {
	Resolve(ctx context.Context, manifestPath string, central bool, toolVersion bool) ([]DependentFile, error)
}

// CommandRunner executes an ordered command sequence under the given
// environment, returning the captured combined output. A failed command
// aborts the remainder of the sequence.
type CommandRunner interface {
	Run(ctx context.Context, cmds []Command, opts ExecOptions) (string, error)
}

// CacheProvider hands out private cache roots. Roots must be exclusive to
// one request; concurrent requests never share one.
type CacheProvider interface {
	PrivateCacheDir(requestKey string) (string, error)
}

// SelfGraph is the trivial GraphResolver for repositories without central
// version management: the manifest is its own only leaf.
type SelfGraph struct{}

func (SelfGraph) Resolve(_ context.Context, manifestPath string, _ bool, _ bool) ([]DependentFile, error) {
	return []DependentFile{{Name: manifestPath, IsLeaf: true}}, nil
}
