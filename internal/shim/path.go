package shim

import (
	"golang.org/x/sys/unix"
)

// Stat is stat(2), stat64(2) and __xstat.
func (s *Shim) Stat(path string, st *unix.Stat_t) error {
	t := s.resolve(path)
	if !t.virtual {
		return s.pt.Stat(t.path, st)
	}
	return s.statVirtual(t, st)
}

// Lstat is lstat(2), lstat64(2) and __lxstat. The catalog has no symlinks,
// so virtual targets behave exactly as with Stat.
func (s *Shim) Lstat(path string, st *unix.Stat_t) error {
	t := s.resolve(path)
	if !t.virtual {
		return s.pt.Lstat(t.path, st)
	}
	return s.statVirtual(t, st)
}

func (s *Shim) statVirtual(t target, st *unix.Stat_t) error {
	if t.notDir {
		return unix.ENOTDIR
	}
	a, err := s.table.Stat(t.rel)
	if err != nil {
		return errno(err)
	}
	fillStat(st, a)
	return nil
}

// Access is access(2). Virtual entries are readable, directories are
// searchable, nothing is writable.
func (s *Shim) Access(path string, mode uint32) error {
	t := s.resolve(path)
	if !t.virtual {
		return s.pt.Access(t.path, mode)
	}
	if t.notDir {
		return unix.ENOTDIR
	}
	if mode&unix.W_OK != 0 {
		return unix.EROFS
	}
	if mode&unix.X_OK != 0 && !s.table.Catalog().IsDir(t.rel) {
		return unix.EACCES
	}
	return nil
}

// Truncate is truncate(2).
func (s *Shim) Truncate(path string, length int64) error {
	t := s.resolve(path)
	if t.virtual {
		s.violate("truncate", path)
	}
	return s.pt.Truncate(t.path, length)
}

// Unlink is unlink(2).
func (s *Shim) Unlink(path string) error {
	t := s.resolve(path)
	if t.virtual {
		s.violate("unlink", path)
	}
	return s.pt.Unlink(t.path)
}

// Mkdir is mkdir(2).
func (s *Shim) Mkdir(path string, mode uint32) error {
	t := s.resolve(path)
	if t.virtual {
		s.violate("mkdir", path)
	}
	return s.pt.Mkdir(t.path, mode)
}

// Rmdir is rmdir(2).
func (s *Shim) Rmdir(path string) error {
	t := s.resolve(path)
	if t.virtual {
		s.violate("rmdir", path)
	}
	return s.pt.Rmdir(t.path)
}

// Rename is rename(2).
func (s *Shim) Rename(from, to string) error {
	src, dst := s.resolve(from), s.resolve(to)
	if src.virtual || dst.virtual {
		s.violate("rename", from+" -> "+to)
	}
	return s.pt.Rename(src.path, dst.path)
}

// Chdir is chdir(2). Entering a virtual directory sets the override and
// leaves the real working directory alone; entering a real one clears it.
func (s *Shim) Chdir(path string) error {
	t := s.resolve(path)
	if t.virtual {
		return errno(s.table.SetCwd(t.rel))
	}
	if err := s.pt.Chdir(t.path); err != nil {
		return err
	}
	if s.armed.Load() {
		s.table.ClearCwd()
	}
	return nil
}

// Getcwd is getcwd(3).
func (s *Shim) Getcwd() (string, error) {
	if !s.armed.Load() {
		return s.pt.Getcwd()
	}
	return s.table.EffectiveCwd(s.class.Root(), s.pt.Getcwd)
}
