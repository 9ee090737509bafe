// Package artifacts regenerates lock files after a manifest change by
// invoking the ecosystem's own toolchain, and reports exactly what changed.
//
// The package supports multiple ecosystems (npm, yarn, NuGet, Cargo) with a
// unified pipeline: resolve registry configuration visible to the external
// toolchain, snapshot the affected lock files, run the toolchain under an
// isolated per-request cache, and diff the snapshots into a minimal
// changeset. Transient infrastructure failures propagate for retry;
// everything else becomes a single reportable artifact error.
//
// Basic usage:
//
//	import (
//		"context"
//		"github.com/git-pkgs/artifacts"
//		"github.com/git-pkgs/artifacts/runner"
//		_ "github.com/git-pkgs/artifacts/all"
//	)
//
//	files, err := artifacts.NewLocalStore("/path/to/repo")
//	if err != nil {
//		log.Fatal(err)
//	}
//	engine, err := artifacts.New("npm", artifacts.Deps{
//		Files:  files,
//		Runner: runner.New(),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := engine.Update(context.Background(), &artifacts.UpdateRequest{
//		ManifestPath: "package.json",
//		NewContent:   manifest,
//		Upgrades:     []artifacts.Upgrade{{Name: "@myorg/a", RegistryURLs: []string{"https://r/"}}},
//	})
package artifacts

import (
	"context"
	"time"

	"github.com/cenk/backoff"
	"github.com/git-pkgs/purl"

	"github.com/git-pkgs/artifacts/internal/core"
	"github.com/git-pkgs/artifacts/internal/repofs"
)

// Re-export types from internal/core
type (
	// Engine runs the reconciliation pipeline for one ecosystem.
	Engine = core.Engine

	// UpdateRequest is the immutable input for one artifact update.
	UpdateRequest = core.UpdateRequest

	// UpdateConfig is the caller-supplied configuration bag.
	UpdateConfig = core.UpdateConfig

	// Upgrade is one proposed dependency bump.
	Upgrade = core.Upgrade

	// DependentFile is one manifest affected by the update.
	DependentFile = core.DependentFile

	// Addition is a changed lock file with its full new content.
	Addition = core.Addition

	// ArtifactError is the user-reportable failure shape.
	ArtifactError = core.ArtifactError

	// Result is the outcome of one update.
	Result = core.Result

	// Deps are the collaborators an Engine needs.
	Deps = core.Deps
)

// Collaborator interfaces
type (
	FileStore     = core.FileStore
	GraphResolver = core.GraphResolver
	CommandRunner = core.CommandRunner
	CacheProvider = core.CacheProvider
)

// Command and execution environment for CommandRunner implementations.
type (
	Command     = core.Command
	ExecOptions = core.ExecOptions
)

// Re-export errors
var (
	// ErrTemporary marks transient infrastructure failures; they are always
	// re-raised to the caller instead of becoming an ArtifactError.
	ErrTemporary = core.ErrTemporary
)

// IsTemporary reports whether err is a transient infrastructure failure.
func IsTemporary(err error) bool {
	return core.IsTemporary(err)
}

// New creates an engine for the given ecosystem.
// Graph defaults to a single-file resolver, Cache to a private temp-dir
// provider, and Logger to slog.Default().
//
// Supported ecosystems: "npm", "yarn", "nuget", "cargo"
func New(ecosystem string, deps Deps) (*Engine, error) {
	return core.NewEngine(ecosystem, deps)
}

// NewLocalStore returns a FileStore confined to the given repository root.
func NewLocalStore(root string) (FileStore, error) {
	return repofs.New(root)
}

// SupportedEcosystems returns all registered ecosystem names.
// Note: ecosystems must be imported to be registered.
func SupportedEcosystems() []string {
	return core.SupportedEcosystems()
}

// PURL represents a parsed Package URL.
type PURL = purl.PURL

// ParsePURL parses a Package URL string into its components.
func ParsePURL(purlStr string) (*PURL, error) {
	return purl.Parse(purlStr)
}

// UpgradeFromPURL builds an Upgrade from a Package URL and returns the
// ecosystem it belongs to. A repository_url qualifier becomes the
// authoritative registry URL.
func UpgradeFromPURL(purlStr string, extraRegistries ...string) (Upgrade, string, error) {
	return core.UpgradeFromPURL(purlStr, extraRegistries...)
}

// RetryTemporary runs the update, retrying with exponential backoff while
// the failure is temporary. Any other failure stops the retry loop
// immediately.
func RetryTemporary(ctx context.Context, engine *Engine, req *UpdateRequest) (*Result, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 5 * time.Minute

	var result *Result
	op := func() error {
		res, err := engine.Update(ctx, req)
		if err != nil {
			if IsTemporary(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = res
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return result, nil
}
