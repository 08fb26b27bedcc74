package catalog

import (
	"fmt"
	"io/fs"

	"github.com/bmatcuk/doublestar/v4"

	"resfs/internal/logging"
)

var (
	logger = logging.GetLogger().WithPrefix("catalog")
)

// LoadOptions selects which entries of an fs.FS go into a catalog.
type LoadOptions struct {
	// Include patterns; an entry must match at least one. Empty means "**".
	Include []string
	// Exclude patterns; an entry matching any of them is skipped.
	Exclude []string
}

// FromFS builds a catalog from every regular file and directory in fsys
// selected by opts. fsys is normally an embed.FS narrowed with fs.Sub.
func FromFS(fsys fs.FS, opts LoadOptions) (*Catalog, error) {
	include := opts.Include
	if len(include) == 0 {
		include = []string{"**"}
	}
	for _, p := range append(append([]string{}, include...), opts.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: %q", doublestar.ErrBadPattern, p)
		}
	}

	files := make(map[string][]byte)
	var dirs []string

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		if excluded(p, opts.Exclude) {
			logger.Trace("Excluding %q", p)
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !matchAny(p, include) {
			return nil
		}

		switch {
		case d.IsDir():
			dirs = append(dirs, p)
		case d.Type().IsRegular():
			data, readErr := fs.ReadFile(fsys, p)
			if readErr != nil {
				return fmt.Errorf("failed to read %s: %w", p, readErr)
			}
			files[p] = data
		default:
			logger.Debug("Skipping non-regular entry %q (%v)", p, d.Type())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk resource tree: %w", err)
	}

	c, err := New(files, dirs)
	if err != nil {
		return nil, err
	}
	logger.Debug("Loaded catalog with %d files and %d directories", len(c.files), len(c.dirs))
	return c, nil
}

func matchAny(p string, patterns []string) bool {
	for _, pattern := range patterns {
		if doublestar.MatchUnvalidated(pattern, p) {
			return true
		}
	}
	return false
}

func excluded(p string, patterns []string) bool {
	return len(patterns) > 0 && matchAny(p, patterns)
}
