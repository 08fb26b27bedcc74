// Package catalog holds the immutable set of embedded resources served by
// resfs: relative file path to content, plus the set of directory paths.
package catalog

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	// ErrInvalidPath indicates a catalog path that is not in canonical form
	ErrInvalidPath = errors.New("invalid catalog path")

	// ErrConflict indicates a path registered as both a file and a directory
	ErrConflict = errors.New("path is both a file and a directory")
)

// Root is the catalog-relative path of the root directory.
const Root = ""

// Kind distinguishes files from directories.
type Kind uint8

const (
	// KindNone marks a path the catalog does not contain
	KindNone Kind = iota
	// KindFile marks a file entry
	KindFile
	// KindDir marks a directory entry
	KindDir
)

// Entry is one child of a catalog directory.
type Entry struct {
	Name string // base name
	Path string // catalog-relative path
	Kind Kind
}

// Catalog is the read-only resource catalog. The zero value is not usable;
// build one with New or FromFS. A Catalog is safe for concurrent use because
// nothing mutates it after construction.
type Catalog struct {
	files    map[string][]byte
	dirs     map[string]struct{}
	children map[string][]Entry
}

// New builds a catalog from a path->content mapping and a set of directory
// paths. Paths are forward-slash separated with no leading slash; the root
// directory "" is always present. Parent directories of every entry are
// added if missing.
func New(files map[string][]byte, dirs []string) (*Catalog, error) {
	c := &Catalog{
		files:    make(map[string][]byte, len(files)),
		dirs:     map[string]struct{}{Root: {}},
		children: make(map[string][]Entry),
	}

	for _, d := range dirs {
		if !valid(d) {
			return nil, fmt.Errorf("%w: directory %q", ErrInvalidPath, d)
		}
		c.addDir(d)
	}

	for p, data := range files {
		if p == Root || !valid(p) {
			return nil, fmt.Errorf("%w: file %q", ErrInvalidPath, p)
		}
		c.files[p] = data
		c.addDir(parent(p))
	}

	for p := range c.files {
		if _, isDir := c.dirs[p]; isDir {
			return nil, fmt.Errorf("%w: %q", ErrConflict, p)
		}
	}

	c.index()
	return c, nil
}

// addDir registers d and all of its ancestors.
func (c *Catalog) addDir(d string) {
	for {
		if _, ok := c.dirs[d]; ok {
			return
		}
		c.dirs[d] = struct{}{}
		d = parent(d)
	}
}

// index precomputes the lexically ordered child list of every directory.
func (c *Catalog) index() {
	for d := range c.dirs {
		if d == Root {
			continue
		}
		p := parent(d)
		c.children[p] = append(c.children[p], Entry{Name: path.Base(d), Path: d, Kind: KindDir})
	}
	for f := range c.files {
		p := parent(f)
		c.children[p] = append(c.children[p], Entry{Name: path.Base(f), Path: f, Kind: KindFile})
	}
	for _, entries := range c.children {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	}
}

// valid reports whether p is a canonical catalog path.
func valid(p string) bool {
	if p == Root {
		return true
	}
	if strings.HasPrefix(p, "/") || strings.ContainsRune(p, 0) {
		return false
	}
	return path.Clean(p) == p && p != "." && !strings.HasPrefix(p, "../") && p != ".."
}

func parent(p string) string {
	d := path.Dir(p)
	if d == "." {
		return Root
	}
	return d
}

// File returns the content stored at rel.
func (c *Catalog) File(rel string) ([]byte, bool) {
	data, ok := c.files[rel]
	return data, ok
}

// IsDir reports whether rel is a catalog directory.
func (c *Catalog) IsDir(rel string) bool {
	_, ok := c.dirs[rel]
	return ok
}

// Kind reports what rel names.
func (c *Catalog) Kind(rel string) Kind {
	if _, ok := c.files[rel]; ok {
		return KindFile
	}
	if _, ok := c.dirs[rel]; ok {
		return KindDir
	}
	return KindNone
}

// Exists reports whether rel names a file or directory.
func (c *Catalog) Exists(rel string) bool {
	return c.Kind(rel) != KindNone
}

// Children returns the entries whose parent is dir, ordered by name. The
// returned slice is shared and must not be modified.
func (c *Catalog) Children(dir string) []Entry {
	return c.children[dir]
}

// Files returns every file path in lexical order.
func (c *Catalog) Files() []string {
	out := make([]string, 0, len(c.files))
	for p := range c.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Dirs returns every directory path, including the root, in lexical order.
func (c *Catalog) Dirs() []string {
	out := make([]string, 0, len(c.dirs))
	for p := range c.dirs {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of files.
func (c *Catalog) Len() int {
	return len(c.files)
}

// Match returns the files and directories matching a doublestar pattern,
// in lexical order.
func (c *Catalog) Match(pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: pattern %q", doublestar.ErrBadPattern, pattern)
	}
	var out []string
	for _, p := range append(c.Dirs(), c.Files()...) {
		if p == Root {
			continue
		}
		if doublestar.MatchUnvalidated(pattern, p) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}
