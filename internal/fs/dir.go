package fs

import (
	"context"
	"os"
	"syscall"

	"resfs/internal/catalog"
	"resfs/internal/logging"
	"resfs/internal/state"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	dirLogger = logging.GetLogger().WithPrefix("dir")
)

// Dir is a catalog directory. The root directory is the catalog root.
type Dir struct {
	fs   *ResFS
	path *NodePath
}

// fillAttr copies synthesized attributes into a FUSE reply.
func (vfs *ResFS) fillAttr(a *fuse.Attr, sa state.Attr) {
	a.Inode = sa.Ino
	a.Size = safeInt64ToUint64(sa.Size)
	a.Blocks = safeInt64ToUint64(sa.Blocks)
	a.BlockSize = uint32(sa.Blksize)
	a.Nlink = uint32(sa.Nlink)
	a.Uid = sa.Uid
	a.Gid = sa.Gid
	a.Mode = os.FileMode(sa.Mode & 0o777)
	if sa.IsDir() {
		a.Mode |= os.ModeDir
	}
	a.Mtime = vfs.created
	a.Atime = vfs.created
	a.Ctime = vfs.created
}

// Attr implements the Node interface, returning directory attributes.
func (d *Dir) Attr(_ context.Context, a *fuse.Attr) error {
	dirLogger.Trace("Getting attributes for directory: %q", d.path.String())
	sa, err := d.fs.table.Stat(d.path.Rel())
	if err != nil {
		return ToFuseError(NewFSError(OpGetattr, d.path.String(), err))
	}
	d.fs.fillAttr(a, sa)
	return nil
}

// Lookup implements the NodeStringLookuper interface, finding a child node.
func (d *Dir) Lookup(_ context.Context, name string) (fusefs.Node, error) {
	dirLogger.Debug("Looking up %q in directory %q", name, d.path.String())
	childPath := d.path.Child(name)

	switch d.fs.table.Catalog().Kind(childPath.Rel()) {
	case catalog.KindDir:
		dirLogger.Trace("Found directory: %q", childPath.String())
		return &Dir{fs: d.fs, path: childPath}, nil
	case catalog.KindFile:
		dirLogger.Trace("Found file: %q", childPath.String())
		return &File{fs: d.fs, path: childPath}, nil
	}

	dirLogger.Debug("Path not found: %q", childPath.String())
	return nil, syscall.ENOENT
}

// ReadDirAll implements the HandleReadDirAller interface, listing directory contents.
func (d *Dir) ReadDirAll(_ context.Context) ([]fuse.Dirent, error) {
	dirLogger.Debug("Reading directory contents: %q", d.path.String())
	table := d.fs.table
	children := table.Catalog().Children(d.path.Rel())

	entries := make([]fuse.Dirent, 0, len(children)+2)
	entries = append(entries,
		fuse.Dirent{Inode: table.Inode(d.path.Rel()), Name: ".", Type: fuse.DT_Dir},
		fuse.Dirent{Inode: table.Inode(d.path.Parent().Rel()), Name: "..", Type: fuse.DT_Dir},
	)
	for _, child := range children {
		typ := fuse.DT_File
		if child.Kind == catalog.KindDir {
			typ = fuse.DT_Dir
		}
		entries = append(entries, fuse.Dirent{
			Inode: table.Inode(child.Path),
			Name:  child.Name,
			Type:  typ,
		})
	}

	dirLogger.Debug("Directory %q contains %d entries", d.path.String(), len(entries))
	return entries, nil
}

// Setattr implements the NodeSetattrer interface. Attributes are fixed.
func (d *Dir) Setattr(_ context.Context, _ *fuse.SetattrRequest, _ *fuse.SetattrResponse) error {
	dirLogger.Warn("Rejected setattr on %q", d.path.String())
	return readOnly(OpSetattr, d.path)
}

// Mkdir implements the NodeMkdirer interface.
func (d *Dir) Mkdir(_ context.Context, req *fuse.MkdirRequest) (fusefs.Node, error) {
	dirLogger.Warn("Rejected mkdir %q in %q", req.Name, d.path.String())
	return nil, readOnly(OpMkdir, d.path.Child(req.Name))
}

// Create implements the NodeCreater interface.
func (d *Dir) Create(_ context.Context, req *fuse.CreateRequest, _ *fuse.CreateResponse) (fusefs.Node, fusefs.Handle, error) {
	dirLogger.Warn("Rejected create %q in %q", req.Name, d.path.String())
	return nil, nil, readOnly(OpCreate, d.path.Child(req.Name))
}

// Remove implements the NodeRemover interface.
func (d *Dir) Remove(_ context.Context, req *fuse.RemoveRequest) error {
	dirLogger.Warn("Rejected remove %q from %q (isDir=%v)", req.Name, d.path.String(), req.Dir)
	return readOnly(OpRemove, d.path.Child(req.Name))
}

// Rename implements the NodeRenamer interface.
func (d *Dir) Rename(_ context.Context, req *fuse.RenameRequest, _ fusefs.Node) error {
	dirLogger.Warn("Rejected rename %q to %q", req.OldName, req.NewName)
	return readOnly(OpRename, d.path.Child(req.OldName))
}
