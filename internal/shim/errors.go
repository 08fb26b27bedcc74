package shim

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"resfs/internal/state"
)

// ExitViolation is the exit status used when a usage violation aborts the
// process (128 + SIGABRT).
const ExitViolation = 134

var (
	// ErrNotAbsolute is returned by Arm for a relative root path
	ErrNotAbsolute = errors.New("root path must be absolute")

	// ErrHandleOverlap is returned by Arm when the OS could issue
	// descriptors inside the virtual descriptor range
	ErrHandleOverlap = errors.New("virtual descriptor range overlaps the OS descriptor limit")
)

// Violation describes a call the read-only, sequential contract cannot
// express against a virtual target.
type Violation struct {
	Call   string // entry point, e.g. "write"
	Target string // path or handle the call named
}

func (v *Violation) Error() string {
	return fmt.Sprintf("unsupported call %s on virtual target %s", v.Call, v.Target)
}

// AbortFunc handles a usage violation. It must not return; if it does the
// shim panics with the violation.
type AbortFunc func(v *Violation)

func defaultAbort(v *Violation) {
	logger.Error("Fatal usage violation: %v", v)
	os.Exit(ExitViolation)
}

// violate aborts the process. It never returns.
func (s *Shim) violate(call string, target interface{}) {
	v := &Violation{Call: call, Target: fmt.Sprint(target)}
	s.abort(v)
	panic(v)
}

// errno maps table errors onto the errno the genuine call would report.
func errno(err error) error {
	if errors.Is(err, state.ErrNotVirtual) {
		return unix.ENOENT
	}
	return err
}
