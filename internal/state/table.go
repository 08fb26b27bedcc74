package state

import (
	"math"
	"path"
	"sync"

	"golang.org/x/sys/unix"

	"resfs/internal/catalog"
	"resfs/internal/logging"
)

var (
	logger = logging.GetLogger().WithPrefix("state")
)

type descriptor struct {
	path   string
	data   []byte
	dir    bool
	cursor int64
	closed bool
}

type stream struct {
	fd      int
	eof     bool
	dir     bool
	ordinal int
	closed  bool
}

// Table is the File State Table. A single mutex guards everything; each
// method holds it for the whole logical operation, so a read and the
// cursor advance it causes are atomic with respect to other callers.
//
// Slots are never reused: closing a handle marks it closed and later calls
// on it fail with EBADF.
type Table struct {
	mu      sync.Mutex
	cat     *catalog.Catalog
	opts    Options
	fds     []descriptor
	streams []stream
	inodes  map[string]uint64
	cwd     *string
}

// NewTable creates an empty table serving content from cat.
func NewTable(cat *catalog.Catalog, opts Options) *Table {
	logger.Debug("Creating file state table (fd base %d, stream base %d, inode base %d)",
		opts.DescriptorBase, opts.StreamBase, opts.InodeBase)
	return &Table{
		cat:    cat,
		opts:   opts,
		inodes: make(map[string]uint64),
	}
}

// Catalog returns the catalog the table serves.
func (t *Table) Catalog() *catalog.Catalog {
	return t.cat
}

// Options returns the options the table was built with.
func (t *Table) Options() Options {
	return t.opts
}

// IsDescriptor reports whether fd lies in the range of descriptors this
// table has issued, open or closed.
func (t *Table) IsDescriptor(fd int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isDescriptorLocked(fd)
}

func (t *Table) isDescriptorLocked(fd int) bool {
	return fd >= t.opts.DescriptorBase && fd-t.opts.DescriptorBase < len(t.fds)
}

// IsStream reports whether s lies in the range of streams this table has
// issued, open or closed.
func (t *Table) IsStream(s uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return s >= t.opts.StreamBase && s-t.opts.StreamBase < uint64(len(t.streams))
}

// OpenDescriptor allocates the next descriptor bound to rel with the
// cursor at zero.
func (t *Table) OpenDescriptor(rel string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.openLocked(rel)
}

func (t *Table) openLocked(rel string) (int, error) {
	d := descriptor{path: rel}
	switch t.cat.Kind(rel) {
	case catalog.KindFile:
		d.data, _ = t.cat.File(rel)
	case catalog.KindDir:
		d.dir = true
	default:
		return -1, ErrNotVirtual
	}
	t.fds = append(t.fds, d)
	fd := t.opts.DescriptorBase + len(t.fds) - 1
	logger.Trace("Opened descriptor %d for %q", fd, rel)
	return fd, nil
}

// OpenStream opens a descriptor for rel and binds a new stream to it.
func (t *Table) OpenStream(rel string) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.openStreamLocked(rel, false)
}

// OpenDirStream opens a directory stream positioned at the first entry.
func (t *Table) OpenDirStream(rel string) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.cat.Kind(rel) {
	case catalog.KindDir:
	case catalog.KindFile:
		return 0, unix.ENOTDIR
	default:
		return 0, ErrNotVirtual
	}
	return t.openStreamLocked(rel, true)
}

func (t *Table) openStreamLocked(rel string, dir bool) (uint64, error) {
	fd, err := t.openLocked(rel)
	if err != nil {
		return 0, err
	}
	t.streams = append(t.streams, stream{fd: fd, dir: dir})
	s := t.opts.StreamBase + uint64(len(t.streams)-1)
	logger.Trace("Opened stream %#x on descriptor %d (dir=%v)", s, fd, dir)
	return s, nil
}

func (t *Table) descriptorLocked(fd int) (*descriptor, error) {
	if !t.isDescriptorLocked(fd) {
		return nil, unix.EBADF
	}
	d := &t.fds[fd-t.opts.DescriptorBase]
	if d.closed {
		return nil, unix.EBADF
	}
	return d, nil
}

func (t *Table) streamLocked(s uint64) (*stream, error) {
	if s < t.opts.StreamBase || s-t.opts.StreamBase >= uint64(len(t.streams)) {
		return nil, unix.EBADF
	}
	st := &t.streams[s-t.opts.StreamBase]
	if st.closed {
		return nil, unix.EBADF
	}
	return st, nil
}

// DescriptorPath returns the catalog path fd is bound to.
func (t *Table) DescriptorPath(fd int) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, err := t.descriptorLocked(fd)
	if err != nil {
		return "", err
	}
	return d.path, nil
}

// Read copies up to len(p) bytes from the cursor and advances it by the
// amount copied. It returns 0 at end of content.
func (t *Table) Read(fd int, p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, err := t.descriptorLocked(fd)
	if err != nil {
		return 0, err
	}
	return d.read(p)
}

func (d *descriptor) read(p []byte) (int, error) {
	if d.dir {
		return 0, unix.EISDIR
	}
	n := copy(p, d.data[d.cursor:])
	d.cursor += int64(n)
	return n, nil
}

// Seek moves the cursor of fd. A target before the start yields
// ErrNegativeSeek and leaves the cursor unchanged; a target past the end
// is clamped to the content length.
func (t *Table) Seek(fd int, offset int64, whence int) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, err := t.descriptorLocked(fd)
	if err != nil {
		return -1, err
	}
	return d.seek(offset, whence)
}

func (d *descriptor) seek(offset int64, whence int) (int64, error) {
	size := int64(len(d.data))
	var target int64
	switch whence {
	case unix.SEEK_SET:
		target = offset
	case unix.SEEK_CUR:
		if offset > 0 && d.cursor > math.MaxInt64-offset {
			return -1, unix.EOVERFLOW
		}
		target = d.cursor + offset
	case unix.SEEK_END:
		if offset > 0 && size > math.MaxInt64-offset {
			return -1, unix.EOVERFLOW
		}
		target = size + offset
	case unix.SEEK_DATA:
		if offset < 0 || offset >= size {
			return -1, unix.ENXIO
		}
		target = offset
	case unix.SEEK_HOLE:
		if offset < 0 || offset >= size {
			return -1, unix.ENXIO
		}
		target = size
	default:
		return -1, unix.EINVAL
	}
	if target < 0 {
		return -1, ErrNegativeSeek
	}
	if target > size {
		target = size
	}
	d.cursor = target
	return target, nil
}

// Tell returns the cursor of fd.
func (t *Table) Tell(fd int) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, err := t.descriptorLocked(fd)
	if err != nil {
		return -1, err
	}
	return d.cursor, nil
}

// Close marks fd closed. Its slot is not reused.
func (t *Table) Close(fd int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, err := t.descriptorLocked(fd)
	if err != nil {
		return err
	}
	d.closed = true
	logger.Trace("Closed descriptor %d (%q)", fd, d.path)
	return nil
}

// Stat synthesizes attributes for a catalog path.
func (t *Table) Stat(rel string) (Attr, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statLocked(rel)
}

// StatDescriptor synthesizes attributes for the path fd is bound to.
func (t *Table) StatDescriptor(fd int) (Attr, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, err := t.descriptorLocked(fd)
	if err != nil {
		return Attr{}, err
	}
	return t.statLocked(d.path)
}

func (t *Table) statLocked(rel string) (Attr, error) {
	a := Attr{
		Dev:     DeviceID,
		Uid:     t.opts.Uid,
		Gid:     t.opts.Gid,
		Blksize: BlockSize,
	}
	switch t.cat.Kind(rel) {
	case catalog.KindFile:
		data, _ := t.cat.File(rel)
		a.Mode = FileMode
		a.Nlink = 1
		a.Size = int64(len(data))
		a.Blocks = (a.Size + 511) / 512
	case catalog.KindDir:
		a.Mode = DirMode
		a.Nlink = DirNlink
		a.Size = DirSize
		a.Blocks = DirSize / 512
	default:
		return Attr{}, ErrNotVirtual
	}
	a.Ino = t.inodeLocked(rel)
	return a, nil
}

// Inode returns the stable inode of rel, assigning one on first use.
func (t *Table) Inode(rel string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inodeLocked(rel)
}

func (t *Table) inodeLocked(rel string) uint64 {
	if ino, ok := t.inodes[rel]; ok {
		return ino
	}
	ino := t.opts.InodeBase + uint64(len(t.inodes))
	t.inodes[rel] = ino
	return ino
}

// Counts reports how many handles and inodes the table has issued.
func (t *Table) Counts() Counts {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := Counts{
		Descriptors: len(t.fds),
		Streams:     len(t.streams),
		Inodes:      len(t.inodes),
	}
	for _, d := range t.fds {
		if !d.closed {
			c.OpenDescriptors++
		}
	}
	for _, s := range t.streams {
		if !s.closed {
			c.OpenStreams++
		}
	}
	return c
}

// Cwd returns the current-directory override, if set.
func (t *Table) Cwd() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cwd == nil {
		return "", false
	}
	return *t.cwd, true
}

// SetCwd makes rel the current directory for relative resolution.
func (t *Table) SetCwd(rel string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.cat.Kind(rel) {
	case catalog.KindDir:
	case catalog.KindFile:
		return unix.ENOTDIR
	default:
		return ErrNotVirtual
	}
	t.cwd = &rel
	logger.Debug("Current directory override set to %q", rel)
	return nil
}

// ClearCwd drops the current-directory override.
func (t *Table) ClearCwd() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cwd != nil {
		logger.Debug("Current directory override cleared")
	}
	t.cwd = nil
}

// EffectiveCwd returns the absolute current directory: the override joined
// onto root if set, otherwise whatever osCwd reports.
func (t *Table) EffectiveCwd(root string, osCwd func() (string, error)) (string, error) {
	if rel, ok := t.Cwd(); ok {
		return path.Join(root, rel), nil
	}
	return osCwd()
}
