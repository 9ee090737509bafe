// Package npmrc resolves rc-dialect registry configuration for the
// javascript ecosystems and derives per-scope registry mappings from
// proposed upgrades.
package npmrc

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/git-pkgs/artifacts/internal/core"
)

// FileName is the canonical rc-dialect config file name.
const FileName = ".npmrc"

// lockFileOverride matches the setting that turns lock file generation off.
// A child repository must not control lock file behavior, so matching lines
// are always stripped from repository config.
var lockFileOverride = regexp.MustCompile(`(?i)^\s*package-lock\s*=`)

// envInterpolation marks unresolved environment variable references. Lines
// carrying it would leak variable names into generated files and
// diagnostics.
const envInterpolation = "=${"

// Options controls config resolution.
type Options struct {
	// CallerText is rc text supplied by the caller; empty means absent.
	CallerText string

	// Merge appends the repository's config file to CallerText instead of
	// ignoring the repository file.
	Merge bool

	// ExposeAllEnv preserves lines containing unresolved interpolations.
	ExposeAllEnv bool

	// Logger receives debug diagnostics; slog.Default() when nil.
	Logger *slog.Logger
}

// Resolve searches upward from manifestPath for a repository config file
// and combines it with caller-supplied configuration.
//
// The returned source is the path of the repository file that was found,
// or "" when none exists. The returned text is "" when neither side
// contributed anything. Resolving already-merged text with no repository
// file present returns it unchanged.
func Resolve(ctx context.Context, files core.FileStore, manifestPath string, opts Options) (text string, source string, err error) {
	found, ok := files.FindUp(manifestPath, FileName)
	if !ok {
		return opts.CallerText, "", nil
	}

	if opts.CallerText != "" && !opts.Merge {
		log := opts.Logger
		if log == nil {
			log = slog.Default()
		}
		log.Debug("ignoring repository config file, caller config takes precedence", "file", found)
		return opts.CallerText, found, nil
	}

	contents, err := files.ReadAll(ctx, []string{found})
	if err != nil {
		return "", "", err
	}
	repoText, ok := contents[found]
	if !ok {
		// The file vanished between FindUp and ReadAll. Provenance still
		// names it, matching the caller-precedence branch above.
		return opts.CallerText, found, nil
	}

	merged := opts.CallerText
	if merged != "" && !strings.HasSuffix(merged, "\n") {
		merged += "\n"
	}
	merged += filter(repoText, opts.ExposeAllEnv)

	return merged, found, nil
}

// filter strips the lock file behavior override unconditionally and, unless
// exposeAllEnv is set, every line with an unresolved interpolation.
func filter(text string, exposeAllEnv bool) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if lockFileOverride.MatchString(line) {
			continue
		}
		if !exposeAllEnv && strings.Contains(line, envInterpolation) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// ScopeLines emits one "<scope>:registry=<url>" rc line per first-seen
// scope among the upgrades. Unscoped or registry-less upgrades are skipped;
// only the first registry URL of an upgrade is used, and later upgrades for
// an already-seen scope do not re-emit or change the URL.
func ScopeLines(upgrades []core.Upgrade) []string {
	var lines []string
	seen := make(map[string]bool)

	for _, u := range upgrades {
		scope, url, ok := scopeRegistry(u)
		if !ok || seen[scope] {
			continue
		}
		seen[scope] = true
		lines = append(lines, "@"+scope+":registry="+url)
	}
	return lines
}

// RegistryServer is the scoped-mapping dialect's per-scope record.
type RegistryServer struct {
	NpmRegistryServer string `yaml:"npmRegistryServer"`
}

// ScopeRegistries returns the scoped-mapping dialect keyed by scope name
// without the leading sigil, with the same first-seen-wins rule as
// ScopeLines. It returns nil (not an empty map) when no upgrade qualifies,
// so downstream consumers can omit the section entirely.
func ScopeRegistries(upgrades []core.Upgrade) map[string]RegistryServer {
	var scopes map[string]RegistryServer

	for _, u := range upgrades {
		scope, url, ok := scopeRegistry(u)
		if !ok {
			continue
		}
		if _, dup := scopes[scope]; dup {
			continue
		}
		if scopes == nil {
			scopes = make(map[string]RegistryServer)
		}
		scopes[scope] = RegistryServer{NpmRegistryServer: url}
	}
	return scopes
}

// scopeRegistry extracts the sigil-less scope and authoritative registry
// URL from an upgrade, reporting whether the upgrade qualifies.
func scopeRegistry(u core.Upgrade) (scope string, url string, ok bool) {
	if len(u.RegistryURLs) == 0 || u.RegistryURLs[0] == "" || u.Name == "" {
		return "", "", false
	}
	if !strings.HasPrefix(u.Name, "@") {
		// Unscoped packages have no per-package registry in this dialect.
		return "", "", false
	}
	scope = strings.TrimPrefix(u.Name, "@")
	if idx := strings.Index(scope, "/"); idx >= 0 {
		scope = scope[:idx]
	}
	return scope, u.RegistryURLs[0], true
}
