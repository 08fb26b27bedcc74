package fs

import (
	"context"
	"io"
	"sync"

	"resfs/internal/logging"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	fileLogger = logging.GetLogger().WithPrefix("file")
)

// XattrPath names the extended attribute holding a file's catalog path.
const XattrPath = "user.resfs.path"

// File is a catalog file.
type File struct {
	fs   *ResFS
	path *NodePath
}

// Attr implements the Node interface, returning the file's attributes.
func (f *File) Attr(_ context.Context, a *fuse.Attr) error {
	fileLogger.Trace("Getting attributes for file: %q", f.path.String())
	sa, err := f.fs.table.Stat(f.path.Rel())
	if err != nil {
		return ToFuseError(NewFSError(OpGetattr, f.path.String(), err))
	}
	f.fs.fillAttr(a, sa)

	fileLogger.Trace("File attributes: mode=%v, size=%d, inode=%d",
		a.Mode, a.Size, a.Inode)
	return nil
}

// Open implements the NodeOpener interface. Each open gets its own
// descriptor in the File State Table.
func (f *File) Open(_ context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fusefs.Handle, error) {
	fileLogger.Debug("Opening file %q with flags %v", f.path.String(), req.Flags)

	if !req.Flags.IsReadOnly() || req.Flags&(fuse.OpenTruncate|fuse.OpenAppend) != 0 {
		fileLogger.Warn("Attempted write access to read-only file: %q", f.path.String())
		return nil, readOnly(OpOpen, f.path)
	}

	fd, err := f.fs.table.OpenDescriptor(f.path.Rel())
	if err != nil {
		fileLogger.Error("Failed to open file: %v", err)
		return nil, ToFuseError(NewFSError(OpOpen, f.path.String(), err))
	}

	// Content never changes while mounted
	resp.Flags |= fuse.OpenKeepCache

	fileLogger.Debug("Opened file %q as descriptor %d", f.path.String(), fd)
	return &FileHandle{
		fs:   f.fs,
		fd:   fd,
		path: f.path.String(),
	}, nil
}

// Setattr implements the NodeSetattrer interface. Attributes are fixed.
func (f *File) Setattr(_ context.Context, _ *fuse.SetattrRequest, _ *fuse.SetattrResponse) error {
	fileLogger.Warn("Rejected setattr on %q", f.path.String())
	return readOnly(OpSetattr, f.path)
}

// Fsync implements the NodeFsyncer interface. There is nothing to flush.
func (f *File) Fsync(_ context.Context, _ *fuse.FsyncRequest) error {
	return nil
}

// Getxattr implements the NodeGetxattrer interface.
func (f *File) Getxattr(_ context.Context, req *fuse.GetxattrRequest, resp *fuse.GetxattrResponse) error {
	fileLogger.Debug("Getting xattr %q for file %q", req.Name, f.path.String())
	if req.Name != XattrPath {
		return fuse.ErrNoXattr
	}
	resp.Xattr = []byte(f.path.Rel())
	return nil
}

// Listxattr implements the NodeListxattrer interface.
func (f *File) Listxattr(_ context.Context, _ *fuse.ListxattrRequest, resp *fuse.ListxattrResponse) error {
	resp.Append(XattrPath)
	return nil
}

// Setxattr implements the NodeSetxattrer interface.
func (f *File) Setxattr(_ context.Context, req *fuse.SetxattrRequest) error {
	fileLogger.Warn("Rejected setxattr %q on %q", req.Name, f.path.String())
	return readOnly(OpSetattr, f.path)
}

// Removexattr implements the NodeRemovexattrer interface.
func (f *File) Removexattr(_ context.Context, req *fuse.RemovexattrRequest) error {
	fileLogger.Warn("Rejected removexattr %q on %q", req.Name, f.path.String())
	return readOnly(OpSetattr, f.path)
}

// FileHandle is an open file. It owns one descriptor in the File State
// Table; FUSE reads carry their own offset, so each read repositions the
// descriptor first while holding the handle lock.
type FileHandle struct {
	fs   *ResFS
	fd   int
	path string // For logging purposes
	mu   sync.Mutex
}

// Read implements the HandleReader interface, reading data from the file.
func (fh *FileHandle) Read(_ context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	fh.mu.Lock()
	defer fh.mu.Unlock()

	fileLogger.Trace("Reading %d bytes from file %q at offset %d",
		req.Size, fh.path, req.Offset)

	if _, err := fh.fs.table.Seek(fh.fd, req.Offset, io.SeekStart); err != nil {
		fileLogger.Error("Failed to seek: %v", err)
		return ToFuseError(NewFSError(OpRead, fh.path, err))
	}

	resp.Data = make([]byte, req.Size)
	n, err := fh.fs.table.Read(fh.fd, resp.Data)
	if err != nil {
		fileLogger.Error("Failed to read from file: %v", err)
		return ToFuseError(NewFSError(OpRead, fh.path, err))
	}

	resp.Data = resp.Data[:n]
	fileLogger.Trace("Read %d bytes", n)
	return nil
}

// Release implements the HandleReleaser interface, closing the descriptor.
func (fh *FileHandle) Release(_ context.Context, _ *fuse.ReleaseRequest) error {
	fh.mu.Lock()
	defer fh.mu.Unlock()

	fileLogger.Debug("Closing file %q (descriptor %d)", fh.path, fh.fd)
	return ToFuseError(fh.fs.table.Close(fh.fd))
}
