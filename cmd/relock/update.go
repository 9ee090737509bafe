package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/git-pkgs/artifacts"
	_ "github.com/git-pkgs/artifacts/all"
	"github.com/git-pkgs/artifacts/runner"
)

func updateCmd() *cobra.Command {
	var (
		repoRoot     string
		manifest     string
		contentFile  string
		upgrades     []string
		ecoFlag      string
		envFile      string
		maintenance  bool
		exposeAllEnv bool
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Regenerate lock files for a manifest change",
		Long: `Update writes the new manifest content, invokes the ecosystem toolchain
with an isolated cache and registry configuration, and prints the changed
lock files as JSON.

Upgrades are given as Package URLs, optionally with a registry:

  relock update --manifest package.json --content package.json.new \
    --upgrade 'pkg:npm/%40myorg/lib@2.0.0?repository_url=https://npm.myorg.dev/'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				// Registry credentials for the toolchain, e.g. tokens
				// referenced from host rules.
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("loading env file: %w", err)
				}
			}
			if verbose {
				slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})))
			}

			content, err := os.ReadFile(contentFile)
			if err != nil {
				return fmt.Errorf("reading new manifest content: %w", err)
			}

			req := &artifacts.UpdateRequest{
				ManifestPath: manifest,
				NewContent:   string(content),
				Config: artifacts.UpdateConfig{
					ExposeAllEnv:     exposeAllEnv,
					IsMaintenanceRun: maintenance,
				},
			}

			purlEco := ""
			for _, u := range upgrades {
				upgrade, eco, err := artifacts.UpgradeFromPURL(u)
				if err != nil {
					return fmt.Errorf("parsing upgrade %q: %w", u, err)
				}
				if purlEco != "" && eco != purlEco {
					return fmt.Errorf("upgrades span ecosystems %s and %s", purlEco, eco)
				}
				purlEco = eco
				req.Upgrades = append(req.Upgrades, upgrade)
			}

			// --ecosystem wins so yarn repositories can take npm-typed PURLs.
			ecosystem := ecoFlag
			if ecosystem == "" {
				ecosystem = purlEco
			}
			if ecosystem == "" {
				return fmt.Errorf("pass --ecosystem or at least one --upgrade to pick the ecosystem")
			}

			files, err := artifacts.NewLocalStore(repoRoot)
			if err != nil {
				return err
			}

			engine, err := artifacts.New(ecosystem, artifacts.Deps{
				Files:  files,
				Runner: runner.NewCircuitBreakerRunner(runner.New()),
			})
			if err != nil {
				return err
			}

			result, err := artifacts.RetryTemporary(cmd.Context(), engine, req)
			if err != nil {
				return err
			}

			out := json.NewEncoder(os.Stdout)
			out.SetIndent("", "  ")
			if result == nil {
				fmt.Println("null")
				return nil
			}
			return out.Encode(result)
		},
	}

	cmd.Flags().StringVar(&repoRoot, "repo", ".", "Repository root directory")
	cmd.Flags().StringVar(&manifest, "manifest", "", "Manifest path relative to the repository root")
	cmd.Flags().StringVar(&contentFile, "content", "", "File holding the new manifest content")
	cmd.Flags().StringArrayVar(&upgrades, "upgrade", nil, "Proposed upgrade as a Package URL (repeatable)")
	cmd.Flags().StringVar(&ecoFlag, "ecosystem", "", "Ecosystem name, required for maintenance runs without upgrades")
	cmd.Flags().StringVar(&envFile, "env-file", "", "Env file with registry credentials for the toolchain")
	cmd.Flags().BoolVar(&maintenance, "maintenance", false, "Refresh lock files without proposed upgrades")
	cmd.Flags().BoolVar(&exposeAllEnv, "expose-all-env", false, "Keep config lines with unresolved env interpolations")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	_ = cmd.MarkFlagRequired("manifest")
	_ = cmd.MarkFlagRequired("content")

	return cmd
}

func ecosystemsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ecosystems",
		Short: "List supported ecosystems",
		Run: func(cmd *cobra.Command, args []string) {
			ecosystems := artifacts.SupportedEcosystems()
			sort.Strings(ecosystems)
			for _, eco := range ecosystems {
				fmt.Println(eco)
			}
		},
	}
}
