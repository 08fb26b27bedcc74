package fs

import (
	"path"
	"strings"

	"resfs/internal/catalog"
	"resfs/internal/logging"
)

var (
	pathLogger = logging.GetLogger().WithPrefix("path")
)

// NodePath is the location of a node inside the mount. It is stored as a
// catalog path: relative, slash-separated, "" for the mount root.
type NodePath struct {
	rel string
}

// NewNodePath creates a NodePath. Leading slashes and dot segments are
// cleaned away; ".." never climbs above the mount root.
func NewNodePath(p string) *NodePath {
	cleaned := path.Clean("/" + p)
	rel := strings.TrimPrefix(cleaned, "/")
	pathLogger.Trace("Creating node path: %q -> %q", p, rel)
	return &NodePath{rel: rel}
}

// Rel returns the catalog path.
func (np *NodePath) Rel() string {
	return np.rel
}

// String returns the path as seen from the mount point, always starting
// with "/".
func (np *NodePath) String() string {
	return "/" + np.rel
}

// Child returns the path of name inside np.
func (np *NodePath) Child(name string) *NodePath {
	if np.IsRoot() {
		return NewNodePath(name)
	}
	return NewNodePath(np.rel + "/" + name)
}

// Parent returns the containing directory. The root is its own parent.
func (np *NodePath) Parent() *NodePath {
	if np.IsRoot() {
		return np
	}
	return NewNodePath(path.Dir(np.rel))
}

// Base returns the last element, or "/" for the root.
func (np *NodePath) Base() string {
	if np.IsRoot() {
		return "/"
	}
	return path.Base(np.rel)
}

// IsRoot reports whether np is the mount root.
func (np *NodePath) IsRoot() bool {
	return np.rel == catalog.Root
}
