// Package all imports all supported ecosystem implementations.
//
// Import this package for its side effects to register all ecosystems:
//
//	import (
//		"github.com/git-pkgs/artifacts"
//		_ "github.com/git-pkgs/artifacts/all"
//	)
//
//	// Now all ecosystems are available
//	ecosystems := artifacts.SupportedEcosystems()
//	// ["cargo", "npm", "nuget", "yarn"]
package all

import (
	_ "github.com/git-pkgs/artifacts/internal/cargo"
	_ "github.com/git-pkgs/artifacts/internal/npm"
	_ "github.com/git-pkgs/artifacts/internal/nuget"
	_ "github.com/git-pkgs/artifacts/internal/yarn"
)
