package core

import (
	"context"
	"log/slog"
	"strings"
)

// Engine regenerates lock files after a manifest change by invoking the
// ecosystem's own toolchain under an isolated cache and registry
// configuration, and reports the minimal changeset.
type Engine struct {
	eco  Ecosystem
	deps Deps
}

// Ecosystem returns the name of the ecosystem this engine is bound to.
func (e *Engine) Ecosystem() string {
	return e.eco.Name()
}

// Update runs the full reconciliation pipeline for one request.
//
// It returns (nil, nil) when nothing applies or nothing changed, a Result
// with Additions on success, a Result with an ArtifactError on toolchain
// failure, and a non-nil error only for transient infrastructure failures
// that a retry policy above the engine should handle.
func (e *Engine) Update(ctx context.Context, req *UpdateRequest) (*Result, error) {
	log := e.deps.Logger.With("ecosystem", e.eco.Name(), "manifest", req.ManifestPath)

	kind := e.eco.Classify(req.ManifestPath)
	if kind == KindNone {
		log.Debug("manifest not handled by ecosystem, skipping")
		return nil, nil
	}

	dependents, err := e.deps.Graph.Resolve(ctx, req.ManifestPath, kind == KindCentral, kind == KindToolVersion)
	if err != nil {
		return nil, err
	}

	var leaves []DependentFile
	for _, d := range dependents {
		if d.IsLeaf {
			leaves = append(leaves, d)
		}
	}

	lockNames := e.eco.LockFiles(req.ManifestPath, dependents)

	before, err := TakeSnapshot(ctx, e.deps.Files, lockNames)
	if err != nil {
		return nil, err
	}
	if before.Empty() {
		log.Debug("no existing lock file, nothing to reconcile", "watched", lockNames)
		return nil, nil
	}
	if len(req.Upgrades) == 0 && !req.Config.IsMaintenanceRun {
		log.Debug("no upgrades and not a maintenance run, skipping")
		return nil, nil
	}

	cacheRoot, err := e.deps.Cache.PrivateCacheDir(requestKey(req.ManifestPath))
	if err != nil {
		return nil, err
	}
	log.Debug("using private cache root", "dir", cacheRoot)

	additions, err := e.reconcile(ctx, req, leaves, lockNames, before, cacheRoot, log)
	if err != nil {
		if IsTemporary(err) {
			return nil, err
		}
		log.Debug("artifact update failed", "err", err)
		return &Result{ArtifactError: &ArtifactError{
			LockFile: strings.Join(lockNames, ", "),
			Stderr:   diagnosticText(err),
		}}, nil
	}
	if len(additions) == 0 {
		log.Debug("lock files unchanged")
		return nil, nil
	}
	return &Result{Additions: additions}, nil
}

// reconcile covers the recoverable span of the pipeline: manifest write,
// config artifact, toolchain invocation, after snapshot, diff. Failures in
// here are classified by the caller.
func (e *Engine) reconcile(ctx context.Context, req *UpdateRequest, leaves []DependentFile, lockNames []string, before Snapshot, cacheRoot string, log *slog.Logger) ([]Addition, error) {
	if err := e.deps.Files.Write(ctx, req.ManifestPath, req.NewContent); err != nil {
		return nil, err
	}

	configPath, err := e.eco.BuildConfigArtifact(ctx, req, e.deps.Files, cacheRoot)
	if err != nil {
		return nil, err
	}

	cmds, opts, err := e.eco.BuildCommands(req, leaves, configPath, e.deps.Files, cacheRoot)
	if err != nil {
		return nil, err
	}
	if opts.Dir == "" {
		opts.Dir = e.deps.Files.Root()
	}
	if opts.CacheDir == "" {
		opts.CacheDir = cacheRoot
	}

	out, err := e.deps.Runner.Run(ctx, cmds, opts)
	if err != nil {
		return nil, err
	}
	log.Debug("toolchain finished", "commands", len(cmds), "output", len(out))

	after, err := TakeSnapshot(ctx, e.deps.Files, lockNames)
	if err != nil {
		return nil, err
	}

	additions, deleted := DiffSnapshots(before, after, lockNames)
	if len(deleted) > 0 {
		return nil, &LockFileDeletedError{Name: strings.Join(deleted, ", ")}
	}
	return additions, nil
}
