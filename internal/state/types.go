// Package state provides the File State Table: the registry of open virtual
// descriptors and streams, their cursors, directory iteration positions,
// inode assignments and the current-directory override.
package state

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// Synthetic attributes shared by every virtual entry.
const (
	// DeviceID is the st_dev reported for all virtual entries
	DeviceID uint64 = 0x72657366

	// FileMode is a regular read-only file
	FileMode uint32 = unix.S_IFREG | 0o444
	// DirMode is a read-only, traversable directory
	DirMode uint32 = unix.S_IFDIR | 0o555

	// DirNlink is the link count reported for directories
	DirNlink = 2
	// DirSize is the nominal size reported for directories
	DirSize = 4096
	// BlockSize is the preferred I/O size reported in st_blksize
	BlockSize = 4096
)

// Default handle and inode bases. Linux caps RLIMIT_NOFILE at fs.nr_open,
// which defaults to 1<<20, so descriptors from 1<<30 upward are never
// issued by the kernel.
const (
	DefaultDescriptorBase = 1 << 30
	DefaultStreamBase     = 1 << 32
	DefaultInodeBase      = 1
)

var (
	// ErrNegativeSeek is returned when a seek would move a cursor before
	// the start of the content.
	ErrNegativeSeek = errors.New("seek to negative offset")

	// ErrNotVirtual is returned for a path the catalog does not contain
	ErrNotVirtual = errors.New("path is not in the catalog")
)

// Options configures a Table.
type Options struct {
	DescriptorBase int
	StreamBase     uint64
	InodeBase      uint64
	Uid            uint32
	Gid            uint32
}

// DefaultOptions returns the default bases and the current process owner.
func DefaultOptions() Options {
	return Options{
		DescriptorBase: DefaultDescriptorBase,
		StreamBase:     DefaultStreamBase,
		InodeBase:      DefaultInodeBase,
		Uid:            uint32(os.Getuid()),
		Gid:            uint32(os.Getgid()),
	}
}

// Attr is the synthesized stat result for a virtual entry.
type Attr struct {
	Dev     uint64
	Ino     uint64
	Mode    uint32
	Nlink   uint64
	Uid     uint32
	Gid     uint32
	Size    int64
	Blksize int64
	Blocks  int64
}

// IsDir reports whether the attributes describe a directory.
func (a Attr) IsDir() bool {
	return a.Mode&unix.S_IFMT == unix.S_IFDIR
}

// DirEntry is one result of directory iteration.
type DirEntry struct {
	Name  string
	Ino   uint64
	IsDir bool
	// Next is the ordinal of the entry after this one
	Next int
}

// Counts summarizes table usage.
type Counts struct {
	Descriptors     int
	OpenDescriptors int
	Streams         int
	OpenStreams     int
	Inodes          int
}
