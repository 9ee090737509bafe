package core

import (
	"errors"
	"fmt"
)

// temporaryMessage is the well-known marker for transient infrastructure
// failures. Failures carrying it are re-raised to the caller so a retry
// policy above the engine can act; they are never converted into an
// ArtifactError.
const temporaryMessage = "temporary failure"

// ErrTemporary marks transient infrastructure failures.
var ErrTemporary = errors.New(temporaryMessage)

// IsTemporary reports whether err is a transient infrastructure failure,
// either by wrapping ErrTemporary or by carrying the marker message.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTemporary) {
		return true
	}
	return err.Error() == temporaryMessage
}

// ExecError is a failed toolchain invocation with its captured combined
// output.
type ExecError struct {
	Tool     string
	ExitCode int
	Output   string
	Err      error
}

func (e *ExecError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s: exit status %d", e.Tool, e.ExitCode)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// LockFileDeletedError reports a watched lock file that existed before
// toolchain invocation but was gone afterwards.
type LockFileDeletedError struct {
	Name string
}

func (e *LockFileDeletedError) Error() string {
	return fmt.Sprintf("lock file %s deleted during update", e.Name)
}

// diagnosticText returns the best available user-facing text for a failure:
// the captured toolchain output when present, otherwise the failure message.
func diagnosticText(err error) string {
	var execErr *ExecError
	if errors.As(err, &execErr) && execErr.Output != "" {
		return execErr.Output
	}
	return err.Error()
}
