// Package runner executes toolchain command sequences with an isolated
// environment, captured combined output, and circuit breaking for
// repeatedly unavailable toolchains.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/git-pkgs/artifacts/internal/core"
)

// passthroughVars are the only host environment variables visible to
// toolchains. Everything else comes from the allowlist in ExecOptions.
var passthroughVars = []string{"PATH", "HOME", "TMPDIR", "LANG"}

// Runner executes commands sequentially in the order given. A failure
// aborts the remainder of the sequence.
type Runner struct {
	lookPath func(string) (string, error)
}

// Option configures a Runner.
type Option func(*Runner)

// WithLookPath overrides toolchain binary resolution.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(r *Runner) {
		r.lookPath = fn
	}
}

// New creates a Runner with the given options.
func New(opts ...Option) *Runner {
	r := &Runner{lookPath: exec.LookPath}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the command sequence and returns the combined output of all
// commands run so far, including the failing one. A toolchain binary that
// cannot be resolved is a temporary failure: the environment, not the
// request, is broken.
func (r *Runner) Run(ctx context.Context, cmds []core.Command, opts core.ExecOptions) (string, error) {
	var combined strings.Builder

	for _, c := range cmds {
		bin, err := r.lookPath(c.Tool)
		if err != nil {
			return combined.String(), fmt.Errorf("toolchain %s unavailable: %w", c.Tool, core.ErrTemporary)
		}

		out, err := r.runOne(ctx, bin, c, opts)
		combined.Write(out)
		if err != nil {
			if execErr, ok := err.(*core.ExecError); ok {
				execErr.Output = combined.String()
			}
			return combined.String(), err
		}
	}
	return combined.String(), nil
}

func (r *Runner) runOne(ctx context.Context, bin string, c core.Command, opts core.ExecOptions) ([]byte, error) {
	cmd := exec.Command(bin, c.Args...)
	cmd.Dir = opts.Dir
	if c.Dir != "" {
		cmd.Dir = filepath.Join(opts.Dir, filepath.FromSlash(c.Dir))
	}
	cmd.Env = buildEnv(opts)
	// Own process group so stray child processes die with the command.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Start(); err != nil {
		return output.Bytes(), fmt.Errorf("starting %s: %w", c.Tool, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var err error
	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		<-done
		return output.Bytes(), ctx.Err()
	case err = <-done:
	}

	if err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return output.Bytes(), &core.ExecError{
			Tool:     c.Tool,
			ExitCode: exitCode,
			Err:      err,
		}
	}
	return output.Bytes(), nil
}

// buildEnv constructs the allowlist environment: a few host basics, the
// version constraints for version-manager shims, and the per-request
// variables from the ecosystem.
func buildEnv(opts core.ExecOptions) []string {
	env := make([]string, 0, len(passthroughVars)+len(opts.Env)+len(opts.ToolVersions))

	for _, name := range passthroughVars {
		if v, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+v)
		}
	}
	for name, version := range opts.ToolVersions {
		env = append(env, "TOOL_VERSION_"+strings.ToUpper(name)+"="+version)
	}
	for name, value := range opts.Env {
		env = append(env, name+"="+value)
	}
	return env
}
