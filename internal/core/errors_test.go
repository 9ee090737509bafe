package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsTemporary(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrTemporary, true},
		{"wrapped", fmt.Errorf("registry unreachable: %w", ErrTemporary), true},
		{"deeply wrapped", fmt.Errorf("run: %w", fmt.Errorf("fetch: %w", ErrTemporary)), true},
		{"marker message", errors.New("temporary failure"), true},
		{"other error", errors.New("exit status 1"), false},
		{"message with prefix", errors.New("npm: temporary failure"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTemporary(tt.err); got != tt.want {
				t.Errorf("IsTemporary(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestExecErrorMessage(t *testing.T) {
	err := &ExecError{Tool: "npm", ExitCode: 1}
	if err.Error() != "npm: exit status 1" {
		t.Errorf("unexpected message: %q", err.Error())
	}

	wrapped := &ExecError{Tool: "dotnet", Err: errors.New("signal: killed")}
	if wrapped.Error() != "dotnet: signal: killed" {
		t.Errorf("unexpected message: %q", wrapped.Error())
	}
	if !errors.Is(fmt.Errorf("run: %w", wrapped), wrapped.Err) {
		t.Error("wrapped cause not reachable through Unwrap")
	}
}

func TestDiagnosticText(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "exec output preferred",
			err:  &ExecError{Tool: "npm", ExitCode: 1, Output: "npm ERR! 404"},
			want: "npm ERR! 404",
		},
		{
			name: "wrapped exec output",
			err:  fmt.Errorf("run: %w", &ExecError{Tool: "npm", ExitCode: 1, Output: "npm ERR! 404"}),
			want: "npm ERR! 404",
		},
		{
			name: "exec without output falls back to message",
			err:  &ExecError{Tool: "npm", ExitCode: 1},
			want: "npm: exit status 1",
		},
		{
			name: "plain error",
			err:  errors.New("manifest write rejected"),
			want: "manifest write rejected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := diagnosticText(tt.err); got != tt.want {
				t.Errorf("diagnosticText() = %q, want %q", got, tt.want)
			}
		})
	}
}
