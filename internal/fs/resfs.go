package fs

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"resfs/internal/logging"
	"resfs/internal/state"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	vfsLogger = logging.GetLogger().WithPrefix("vfs")
)

// ResFS serves a File State Table's catalog over FUSE. Inodes and
// attributes come from the same table the shim uses, so a file reports the
// same inode through either surface.
type ResFS struct {
	table      *state.Table
	allowOther bool
	created    time.Time

	mu     sync.Mutex
	conn   *fuse.Conn
	served chan error
}

// Options configures a ResFS.
type Options struct {
	AllowOther bool // let other users access the mount
}

// NewResFS creates a filesystem over table.
func NewResFS(table *state.Table, opts Options) *ResFS {
	vfsLogger.Info("Creating read-only filesystem over %d embedded files", table.Catalog().Len())
	return &ResFS{
		table:      table,
		allowOther: opts.AllowOther,
		created:    time.Now(),
	}
}

// Root implements the fusefs.FS interface, returning the root directory node.
func (vfs *ResFS) Root() (fusefs.Node, error) {
	vfsLogger.Trace("Getting root directory node")
	return &Dir{
		fs:   vfs,
		path: NewNodePath(""),
	}, nil
}

// Statfs implements the fusefs.FSStatfser interface.
func (vfs *ResFS) Statfs(_ context.Context, _ *fuse.StatfsRequest, resp *fuse.StatfsResponse) error {
	cat := vfs.table.Catalog()
	var total int64
	for _, p := range cat.Files() {
		data, _ := cat.File(p)
		total += int64(len(data))
	}
	resp.Bsize = state.BlockSize
	resp.Frsize = state.BlockSize
	resp.Blocks = safeInt64ToUint64((total + state.BlockSize - 1) / state.BlockSize)
	resp.Files = uint64(cat.Len() + len(cat.Dirs()))
	resp.Namelen = 255
	vfsLogger.Trace("Statfs: %d blocks, %d files", resp.Blocks, resp.Files)
	return nil
}

func waitForMount(mountpoint string) error {
	for i := 0; i < 30; i++ {
		info, err := os.Stat(mountpoint)
		if err == nil && info.IsDir() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("mount point not available after 3 seconds")
}

// Mount mounts the filesystem and serves it in the background.
func (vfs *ResFS) Mount(mountPoint string) error {
	vfsLogger.Info("Mounting read-only filesystem")
	vfsLogger.Debug("Mount point: %s", mountPoint)

	if info, err := os.Stat(mountPoint); err != nil || !info.IsDir() {
		vfsLogger.Error("Mount point is not a directory: %s", mountPoint)
		return fmt.Errorf("mount point %s is not a directory", mountPoint)
	}

	mountOpts := []fuse.MountOption{
		fuse.FSName("resfs"),
		fuse.Subtype("resfs"),
		fuse.ReadOnly(),
		fuse.DefaultPermissions(),
		fuse.AsyncRead(),
	}
	if vfs.allowOther {
		mountOpts = append(mountOpts, fuse.AllowOther())
	}

	vfsLogger.Debug("Mounting with %d options (allow_other=%v)", len(mountOpts), vfs.allowOther)

	c, err := fuse.Mount(mountPoint, mountOpts...)
	if err != nil {
		return fmt.Errorf("mount failed: %w", err)
	}

	served := make(chan error, 1)
	vfs.mu.Lock()
	vfs.conn = c
	vfs.served = served
	vfs.mu.Unlock()

	go func() {
		err := fusefs.Serve(c, vfs)
		if err != nil {
			vfsLogger.Error("FUSE server error: %v", err)
		}
		served <- err
		close(served)
	}()

	// Wait for mount to be ready
	if err := waitForMount(mountPoint); err != nil {
		c.Close()
		vfsLogger.Error("Mount point not ready: %v", err)
		return fmt.Errorf("mount point failed to initialize: %w", err)
	}

	vfsLogger.Info("Filesystem mounted successfully")
	return nil
}

// Served returns a channel that yields the serve loop's result once the
// filesystem is unmounted. It is nil before Mount.
func (vfs *ResFS) Served() <-chan error {
	vfs.mu.Lock()
	defer vfs.mu.Unlock()
	return vfs.served
}

// Unmount cleanly unmounts the filesystem.
func (vfs *ResFS) Unmount(mountPoint string) error {
	vfsLogger.Info("Unmounting filesystem from: %s", mountPoint)
	vfs.mu.Lock()
	c := vfs.conn
	vfs.mu.Unlock()
	if c == nil {
		return nil
	}

	err := fuse.Unmount(mountPoint)
	if err != nil {
		vfsLogger.Error("Unmount failed: %v", err)
		return err
	}
	vfsLogger.Info("Unmount completed successfully")
	return c.Close()
}
