// Package shim intercepts the standard file-I/O entry points. Calls naming
// an embedded resource under the configured root are served from the File
// State Table; everything else is forwarded to the real implementation
// unchanged.
//
// Until Arm is called every entry point delegates, so a Shim can be
// installed before the catalog is known.
package shim

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"resfs/internal/catalog"
	"resfs/internal/logging"
	"resfs/internal/state"
)

var (
	logger = logging.GetLogger().WithPrefix("shim")
)

// Shim is the interception layer. One Shim owns one File State Table; all
// methods are safe for concurrent use.
type Shim struct {
	pt    Passthrough
	abort AbortFunc
	opts  state.Options

	armMu sync.Mutex
	armed atomic.Bool
	class *Classifier
	table *state.Table

	streams *realStreams
}

// Option configures a Shim.
type Option func(*Shim)

// WithPassthrough replaces the real implementation.
func WithPassthrough(pt Passthrough) Option {
	return func(s *Shim) { s.pt = pt }
}

// WithAbort replaces the handler for usage violations.
func WithAbort(f AbortFunc) Option {
	return func(s *Shim) { s.abort = f }
}

// WithTableOptions sets the handle bases, inode base and owner used once
// the shim is armed.
func WithTableOptions(opts state.Options) Option {
	return func(s *Shim) { s.opts = opts }
}

// New creates an unarmed shim.
func New(opts ...Option) *Shim {
	s := &Shim{
		pt:    Unix{},
		abort: defaultAbort,
		opts:  state.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams = newRealStreams(s.opts.StreamBase)
	return s
}

// Arm installs the catalog at root and starts intercepting. It is
// idempotent: once armed, later calls are no-ops.
func (s *Shim) Arm(cat *catalog.Catalog, root string) error {
	s.armMu.Lock()
	defer s.armMu.Unlock()

	if s.armed.Load() {
		logger.Debug("Already armed at %s, ignoring", s.class.Root())
		return nil
	}
	if !path.IsAbs(root) {
		return fmt.Errorf("%w: %q", ErrNotAbsolute, root)
	}
	if err := checkDescriptorLimit(s.opts.DescriptorBase); err != nil {
		return err
	}

	s.class = NewClassifier(root, cat)
	s.table = state.NewTable(cat, s.opts)
	s.armed.Store(true)

	logger.Info("Serving %d embedded files at %s", cat.Len(), s.class.Root())
	return nil
}

func checkDescriptorLimit(base int) error {
	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlim); err != nil {
		logger.Warn("Cannot read RLIMIT_NOFILE: %v", err)
		return nil
	}
	if rlim.Max != unix.RLIM_INFINITY && rlim.Max >= uint64(base) {
		return fmt.Errorf("%w: hard limit %d, base %d", ErrHandleOverlap, rlim.Max, base)
	}
	return nil
}

// Armed reports whether the shim is intercepting.
func (s *Shim) Armed() bool {
	return s.armed.Load()
}

// Root returns the root path, or "" before arming.
func (s *Shim) Root() string {
	if !s.armed.Load() {
		return ""
	}
	return s.class.Root()
}

// Table returns the File State Table, or nil before arming.
func (s *Shim) Table() *state.Table {
	if !s.armed.Load() {
		return nil
	}
	return s.table
}

// Teardown closes the real streams opened through the shim and logs table
// usage. It is best-effort: every stream is attempted once and failures
// are returned joined.
func (s *Shim) Teardown() error {
	err := s.streams.closeAll()
	if err != nil {
		logger.Warn("Teardown left errors: %v", err)
	}
	if s.armed.Load() {
		c := s.table.Counts()
		logger.Debug("Teardown: %d/%d descriptors and %d/%d streams still open, %d inodes assigned",
			c.OpenDescriptors, c.Descriptors, c.OpenStreams, c.Streams, c.Inodes)
	}
	return err
}

// target is the tagged result of classifying a path.
type target struct {
	virtual bool
	rel     string // catalog path when virtual
	path    string // path to hand to the real call otherwise
	notDir  bool   // the path continues past a catalog file
}

// resolve classifies p. Anything that cannot be decided falls back to real.
func (s *Shim) resolve(p string) target {
	t := target{path: p}
	if !s.armed.Load() || p == "" || strings.IndexByte(p, 0) >= 0 {
		return t
	}

	base := "/"
	if !path.IsAbs(p) {
		cwd, err := s.table.EffectiveCwd(s.class.Root(), s.pt.Getcwd)
		if err != nil {
			logger.Trace("Cannot resolve %q, passing through: %v", p, err)
			return t
		}
		base = cwd
		if _, overridden := s.table.Cwd(); overridden {
			// the real cwd is not where the consumer thinks it is
			t.path = Resolve(p, cwd)
		}
	}

	rel, virtual, notDir := s.class.WalkFrom(base, p)
	if !virtual {
		return t
	}
	t.virtual = true
	t.rel = rel
	t.notDir = notDir
	logger.Trace("Classified %q as virtual %q", p, rel)
	return t
}

func (s *Shim) virtualFD(fd int) bool {
	return s.armed.Load() && s.table.IsDescriptor(fd)
}

func (s *Shim) virtualStream(st Stream) bool {
	return s.armed.Load() && s.table.IsStream(uint64(st))
}

// seekErr turns a negative seek into a violation.
func (s *Shim) seekErr(call string, handle interface{}, err error) error {
	if errors.Is(err, state.ErrNegativeSeek) {
		s.violate(call+" to negative offset", handle)
	}
	return err
}
