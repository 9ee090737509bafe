package artifacts_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/git-pkgs/artifacts"
	_ "github.com/git-pkgs/artifacts/all"
)

func TestSupportedEcosystems(t *testing.T) {
	got := artifacts.SupportedEcosystems()
	sort.Strings(got)

	want := []string{"cargo", "npm", "nuget", "yarn"}
	if len(got) != len(want) {
		t.Fatalf("ecosystems = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ecosystems = %v, want %v", got, want)
		}
	}
}

type seqRunner struct {
	errs  []error
	calls int
}

func (r *seqRunner) Run(_ context.Context, _ []artifacts.Command, _ artifacts.ExecOptions) (string, error) {
	r.calls++
	if len(r.errs) == 0 {
		return "", nil
	}
	err := r.errs[0]
	r.errs = r.errs[1:]
	return "", err
}

func newNpmEngine(t *testing.T, run artifacts.CommandRunner) (*artifacts.Engine, string) {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "package-lock.json"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	files, err := artifacts.NewLocalStore(root)
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	engine, err := artifacts.New("npm", artifacts.Deps{Files: files, Runner: run})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return engine, root
}

func npmRequest() *artifacts.UpdateRequest {
	return &artifacts.UpdateRequest{
		ManifestPath: "package.json",
		NewContent:   "{}",
		Upgrades:     []artifacts.Upgrade{{Name: "lodash", Version: "4.17.21"}},
	}
}

func TestNewUnknownEcosystem(t *testing.T) {
	files, err := artifacts.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := artifacts.New("homebrew", artifacts.Deps{Files: files, Runner: &seqRunner{}}); err == nil {
		t.Error("expected error for unregistered ecosystem")
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := artifacts.New("npm", artifacts.Deps{Runner: &seqRunner{}}); err == nil {
		t.Error("expected error without file store")
	}
	files, err := artifacts.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := artifacts.New("npm", artifacts.Deps{Files: files}); err == nil {
		t.Error("expected error without runner")
	}
}

func TestUpdateThroughFacade(t *testing.T) {
	run := &seqRunner{}
	engine, root := newNpmEngine(t, run)

	result, err := engine.Update(context.Background(), npmRequest())
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	// The stub runner changes nothing, so the update is a no-op.
	if result != nil {
		t.Errorf("expected nil result, got %+v", result)
	}
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("manifest content = %q", data)
	}
}

func TestRetryTemporaryRecovers(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out a backoff interval")
	}

	run := &seqRunner{errs: []error{
		fmt.Errorf("toolchain npm unavailable: %w", artifacts.ErrTemporary),
	}}
	engine, _ := newNpmEngine(t, run)

	if _, err := artifacts.RetryTemporary(context.Background(), engine, npmRequest()); err != nil {
		t.Fatalf("RetryTemporary failed: %v", err)
	}
	if run.calls != 2 {
		t.Errorf("expected one retry, got %d calls", run.calls)
	}
}

func TestRetryTemporaryStopsOnPermanent(t *testing.T) {
	run := &seqRunner{errs: []error{
		errors.New("graph resolution failed"),
		errors.New("graph resolution failed"),
	}}
	engine, _ := newNpmEngine(t, run)

	// A non-temporary runner failure becomes an ArtifactError, which is a
	// successful (non-error) outcome, so no retry happens.
	result, err := artifacts.RetryTemporary(context.Background(), engine, npmRequest())
	if err != nil {
		t.Fatalf("RetryTemporary failed: %v", err)
	}
	if result == nil || result.ArtifactError == nil {
		t.Fatalf("expected artifact error, got %+v", result)
	}
	if run.calls != 1 {
		t.Errorf("permanent failure retried, %d calls", run.calls)
	}
}

func TestIsTemporaryExported(t *testing.T) {
	if !artifacts.IsTemporary(fmt.Errorf("wrap: %w", artifacts.ErrTemporary)) {
		t.Error("wrapped sentinel not recognized")
	}
	if artifacts.IsTemporary(errors.New("exit status 1")) {
		t.Error("plain failure misclassified as temporary")
	}
}

func TestParsePURL(t *testing.T) {
	if _, err := artifacts.ParsePURL("pkg:npm/%40myorg/lib@2.1.0"); err != nil {
		t.Fatalf("ParsePURL failed: %v", err)
	}
	if _, err := artifacts.ParsePURL("not-a-purl"); err == nil {
		t.Error("expected parse error")
	}
}

func TestUpgradeFromPURL(t *testing.T) {
	up, eco, err := artifacts.UpgradeFromPURL("pkg:cargo/serde@1.0.200")
	if err != nil {
		t.Fatalf("UpgradeFromPURL failed: %v", err)
	}
	if eco != "cargo" || up.Name != "serde" || up.Version != "1.0.200" {
		t.Errorf("unexpected upgrade: %+v eco=%q", up, eco)
	}
}
