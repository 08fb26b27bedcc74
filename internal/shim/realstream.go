package shim

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// realStream is a buffered stream over a real file. Directory streams use
// the same registry so they share the stream handle space.
type realStream struct {
	f        *os.File
	r        *bufio.Reader
	pushback []byte
	writable bool
	eof      bool
	failed   bool

	dir     bool
	entries []os.DirEntry
	pos     int
	dirDone bool
}

// realStreams numbers real streams from 1; ids never reach the virtual
// stream base.
type realStreams struct {
	mu    sync.Mutex
	next  uint64
	limit uint64
	m     map[Stream]*realStream
}

func newRealStreams(limit uint64) *realStreams {
	return &realStreams{next: 1, limit: limit, m: make(map[Stream]*realStream)}
}

func (rs *realStreams) add(st *realStream) (Stream, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.next >= rs.limit {
		return NilStream, unix.EMFILE
	}
	id := Stream(rs.next)
	rs.next++
	rs.m[id] = st
	return id, nil
}

func (rs *realStreams) get(id Stream) (*realStream, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	st, ok := rs.m[id]
	if !ok {
		return nil, unix.EBADF
	}
	return st, nil
}

func (rs *realStreams) remove(id Stream) (*realStream, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	st, ok := rs.m[id]
	if !ok {
		return nil, unix.EBADF
	}
	delete(rs.m, id)
	return st, nil
}

func (rs *realStreams) replace(id Stream, st *realStream) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.m[id] = st
}

func (rs *realStreams) closeAll() error {
	rs.mu.Lock()
	open := rs.m
	rs.m = make(map[Stream]*realStream)
	rs.mu.Unlock()

	var errs []error
	for id, st := range open {
		if err := st.f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("stream %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// modeFlags parses an fopen mode string.
func modeFlags(mode string) (int, error) {
	if mode == "" {
		return 0, unix.EINVAL
	}
	var flags int
	switch mode[0] {
	case 'r':
		flags = os.O_RDONLY
	case 'w':
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case 'a':
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	default:
		return 0, unix.EINVAL
	}
	rest := mode[1:]
	if strings.Contains(rest, "+") {
		flags = flags&^(os.O_WRONLY) | os.O_RDWR
	}
	if strings.Contains(rest, "x") {
		flags |= os.O_EXCL
	}
	if strings.Contains(rest, "e") {
		flags |= unix.O_CLOEXEC
	}
	return flags, nil
}

// writes reports whether an fopen mode asks for write access.
func writes(mode string) bool {
	return strings.ContainsAny(mode, "wa+")
}

func newRealStream(f *os.File, flags int) *realStream {
	return &realStream{
		f:        f,
		r:        bufio.NewReader(f),
		writable: flags&(os.O_WRONLY|os.O_RDWR) != 0,
	}
}

func openRealStream(path, mode string) (*realStream, error) {
	flags, err := modeFlags(mode)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, flags, 0o666)
	if err != nil {
		return nil, unwrapErrno(err)
	}
	return newRealStream(f, flags), nil
}

// unwrapErrno returns the errno inside an *os.PathError when there is one.
func unwrapErrno(err error) error {
	var en syscall.Errno
	if errors.As(err, &en) {
		return unix.Errno(en)
	}
	return err
}

func (st *realStream) readByte() (byte, error) {
	if n := len(st.pushback); n > 0 {
		c := st.pushback[n-1]
		st.pushback = st.pushback[:n-1]
		return c, nil
	}
	return st.r.ReadByte()
}

func (st *realStream) read(p []byte) (int, error) {
	n := 0
	for n < len(p) && len(st.pushback) > 0 {
		p[n], _ = st.readByte()
		n++
	}
	m, err := io.ReadFull(st.r, p[n:])
	n += m
	switch {
	case err == nil:
	case errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF):
		st.eof = true
		err = nil
	default:
		st.failed = true
	}
	return n, err
}

func (st *realStream) write(p []byte) (int, error) {
	if !st.writable {
		st.failed = true
		return 0, unix.EBADF
	}
	if err := st.dropReadAhead(); err != nil {
		st.failed = true
		return 0, err
	}
	n, err := st.f.Write(p)
	if err != nil {
		st.failed = true
		return n, unwrapErrno(err)
	}
	return n, nil
}

// dropReadAhead rewinds the file over bytes buffered but not consumed.
func (st *realStream) dropReadAhead() error {
	ahead := st.r.Buffered() + len(st.pushback)
	if ahead == 0 {
		return nil
	}
	if _, err := st.f.Seek(-int64(ahead), io.SeekCurrent); err != nil {
		return unwrapErrno(err)
	}
	st.r.Reset(st.f)
	st.pushback = nil
	return nil
}

func (st *realStream) seek(offset int64, whence int) error {
	if whence == io.SeekCurrent {
		offset -= int64(st.r.Buffered() + len(st.pushback))
	}
	if _, err := st.f.Seek(offset, whence); err != nil {
		return unwrapErrno(err)
	}
	st.r.Reset(st.f)
	st.pushback = nil
	st.eof = false
	return nil
}

func (st *realStream) tell() (int64, error) {
	pos, err := st.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return -1, unwrapErrno(err)
	}
	return pos - int64(st.r.Buffered()+len(st.pushback)), nil
}

// nextEntry returns the directory entry at pos, reading more as needed.
func (st *realStream) nextEntry() (os.DirEntry, bool, error) {
	for st.pos >= len(st.entries) && !st.dirDone {
		batch, err := st.f.ReadDir(64)
		st.entries = append(st.entries, batch...)
		if errors.Is(err, io.EOF) {
			st.dirDone = true
		} else if err != nil {
			return nil, false, unwrapErrno(err)
		}
	}
	if st.pos >= len(st.entries) {
		return nil, false, nil
	}
	e := st.entries[st.pos]
	st.pos++
	return e, true, nil
}

func (st *realStream) seekDir(pos int) error {
	for pos > len(st.entries) && !st.dirDone {
		batch, err := st.f.ReadDir(64)
		st.entries = append(st.entries, batch...)
		if errors.Is(err, io.EOF) {
			st.dirDone = true
		} else if err != nil {
			return unwrapErrno(err)
		}
	}
	if pos > len(st.entries) {
		pos = len(st.entries)
	}
	st.pos = pos
	return nil
}

func (st *realStream) rewindDir() error {
	if _, err := st.f.Seek(0, io.SeekStart); err != nil {
		return unwrapErrno(err)
	}
	st.entries = nil
	st.pos = 0
	st.dirDone = false
	return nil
}
