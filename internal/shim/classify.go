package shim

import (
	"path"
	"strings"

	"resfs/internal/catalog"
)

// Classifier maps absolute paths under a root onto catalog paths.
type Classifier struct {
	root   string
	prefix string
	cat    *catalog.Catalog
}

// NewClassifier returns a classifier for cat mounted at root. root must be
// absolute; it is cleaned.
func NewClassifier(root string, cat *catalog.Catalog) *Classifier {
	root = path.Clean(root)
	prefix := root
	if prefix != "/" {
		prefix += "/"
	}
	return &Classifier{root: root, prefix: prefix, cat: cat}
}

// Root returns the cleaned root path.
func (c *Classifier) Root() string {
	return c.root
}

// Relative strips the root from an absolute path. ok is false for paths
// outside the root.
func (c *Classifier) Relative(abs string) (string, bool) {
	if !path.IsAbs(abs) {
		return "", false
	}
	abs = path.Clean(abs)
	switch {
	case abs == c.root:
		return catalog.Root, true
	case strings.HasPrefix(abs, c.prefix):
		return abs[len(c.prefix):], true
	}
	return "", false
}

// Classify reports whether abs names a catalog file or directory and
// returns its catalog path. Paths that only resolve to an entry by
// stepping through a file or a missing directory are not virtual.
func (c *Classifier) Classify(abs string) (string, bool) {
	rel, virtual, notDir := c.Walk(abs)
	if !virtual || notDir {
		return "", false
	}
	return rel, true
}

// Walk resolves abs one component at a time, the way the kernel would.
// Every prefix that is followed by another component must be a catalog
// directory once it lies under the root: a missing prefix makes the path
// not virtual, and a file prefix yields that file with notDir set.
func (c *Classifier) Walk(abs string) (rel string, virtual, notDir bool) {
	if !path.IsAbs(abs) {
		return "", false, false
	}
	return c.WalkFrom("/", abs)
}

// WalkFrom is Walk for p taken relative to the directory base, which must
// be absolute and clean. An absolute p ignores base.
//
// "." and ".." are taken lexically only inside the root, along the root's
// own ancestors and along base and its ancestors. A path that steps out
// of a real directory nothing vouches for and comes back is not virtual.
func (c *Classifier) WalkFrom(base, p string) (rel string, virtual, notDir bool) {
	if path.IsAbs(p) {
		base = "/"
	} else if !path.IsAbs(base) {
		return "", false, false
	}
	base = path.Clean(base)
	cur := base
	strayed := false
	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, name := range parts {
		if name == "" && i < len(parts)-1 {
			continue
		}
		if r, in := c.Relative(cur); in {
			switch c.cat.Kind(r) {
			case catalog.KindDir:
			case catalog.KindFile:
				return r, true, true
			default:
				return "", false, false
			}
		} else if (name == "" || name == "." || name == "..") && !within(c.root, cur) && !within(base, cur) {
			strayed = true
		}

		switch name {
		case "", ".":
		case "..":
			cur = path.Dir(cur)
		default:
			cur = path.Join(cur, name)
		}
	}

	r, in := c.Relative(cur)
	if !in || strayed || !c.cat.Exists(r) {
		return "", false, false
	}
	return r, true, false
}

// within reports whether dir is p or one of its parents.
func within(p, dir string) bool {
	return dir == "/" || dir == p || strings.HasPrefix(p, dir+"/")
}

// Resolve joins p onto cwd when p is relative and cleans the result.
func Resolve(p, cwd string) string {
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	return path.Join(cwd, p)
}
