// Package core provides the shared types and the ecosystem system for
// lock file reconciliation.
package core

// Upgrade is one proposed dependency bump. RegistryURLs lists candidate
// registries for the dependency; the first entry is authoritative when
// deriving registry configuration.
type Upgrade struct {
	Name         string // dependency name, optionally scoped ("@scope/name")
	Version      string // target version, empty when not pinned
	RegistryURLs []string
}

// UpdateConfig is the caller-supplied configuration bag for one update.
type UpdateConfig struct {
	// RegistryConfigText is rc-dialect registry configuration supplied by the
	// caller (host rules rendered to npmrc lines). Empty means absent.
	RegistryConfigText string

	// MergeRegistryConfig appends the repository's own config file to
	// RegistryConfigText instead of ignoring it.
	MergeRegistryConfig bool

	// ExposeAllEnv preserves config lines containing unresolved environment
	// interpolations ("=${"). When false such lines are stripped so secret
	// variable names never reach generated files or diagnostics.
	ExposeAllEnv bool

	// ToolConstraints maps a toolchain binary to a version constraint
	// (e.g. "dotnet" -> "8.0.100"). Ecosystems fall back to version-pin
	// files in the repository when a tool is not listed.
	ToolConstraints map[string]string

	// PostUpdateOptions requests extra toolchain steps, e.g.
	// "dotnetWorkloadRestore".
	PostUpdateOptions []string

	// IsMaintenanceRun marks a lock file refresh with no proposed upgrades.
	IsMaintenanceRun bool
}

// UpdateRequest is the immutable input for one artifact update.
type UpdateRequest struct {
	ManifestPath string
	NewContent   string
	Upgrades     []Upgrade
	Config       UpdateConfig
}

// HasPostUpdateOption reports whether opt was requested.
func (r *UpdateRequest) HasPostUpdateOption(opt string) bool {
	for _, o := range r.Config.PostUpdateOptions {
		if o == opt {
			return true
		}
	}
	return false
}

// DependentFile is one manifest affected by the update, as reported by the
// dependent file graph. Only leaf files participate in toolchain invocation.
type DependentFile struct {
	Name   string
	IsLeaf bool
}

// Addition is a changed lock file with its full new content.
type Addition struct {
	Path     string
	Contents string
}

// ArtifactError is the user-reportable failure shape. LockFile is the
// comma-joined list of watched lock file names, Stderr the captured
// toolchain output (or the failure message when nothing was captured).
type ArtifactError struct {
	LockFile string
	Stderr   string
}

// Result is the outcome of one update. Exactly one of Additions or
// ArtifactError is set; a nil *Result means nothing applied or nothing
// changed.
type Result struct {
	Additions     []Addition
	ArtifactError *ArtifactError
}

// ManifestKind classifies a path for the dependent file graph.
type ManifestKind int

const (
	// KindNone means the path is not handled by the ecosystem.
	KindNone ManifestKind = iota
	// KindManifest is an ordinary dependency-declaring manifest.
	KindManifest
	// KindCentral is a central version management file that only pins
	// versions for other manifests.
	KindCentral
	// KindToolVersion is a toolchain version pin file (e.g. global.json).
	KindToolVersion
)
