package fs

import (
	fusefs "bazil.org/fuse/fs"
)

// Node represents a filesystem node (file or directory)
type Node interface {
	fusefs.Node
	fusefs.NodeSetattrer
}

// Directory represents a directory in the mounted catalog
type Directory interface {
	Node
	fusefs.NodeStringLookuper
	fusefs.HandleReadDirAller
	fusefs.NodeMkdirer
	fusefs.NodeCreater
	fusefs.NodeRemover
	fusefs.NodeRenamer
}

// FileInterface represents a file in the mounted catalog
type FileInterface interface {
	Node
	fusefs.NodeOpener
	fusefs.NodeFsyncer
	fusefs.NodeGetxattrer
	fusefs.NodeListxattrer
	fusefs.NodeSetxattrer
	fusefs.NodeRemovexattrer
}

// FileHandleInterface represents an open file handle
type FileHandleInterface interface {
	fusefs.Handle
	fusefs.HandleReader
	fusefs.HandleReleaser
}

var (
	_ fusefs.FS           = (*ResFS)(nil)
	_ fusefs.FSStatfser   = (*ResFS)(nil)
	_ Directory           = (*Dir)(nil)
	_ FileInterface       = (*File)(nil)
	_ FileHandleInterface = (*FileHandle)(nil)
)
