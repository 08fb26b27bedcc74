package shim

import (
	"golang.org/x/sys/unix"

	"resfs/internal/state"
)

type integer interface {
	~int | ~int16 | ~int32 | ~int64 | ~uint | ~uint16 | ~uint32 | ~uint64
}

// set assigns across the per-architecture field types of unix.Stat_t.
func set[T, V integer](dst *T, v V) {
	*dst = T(v)
}

func fillStat(st *unix.Stat_t, a state.Attr) {
	*st = unix.Stat_t{}
	set(&st.Dev, a.Dev)
	set(&st.Ino, a.Ino)
	set(&st.Mode, a.Mode)
	set(&st.Nlink, a.Nlink)
	set(&st.Uid, a.Uid)
	set(&st.Gid, a.Gid)
	set(&st.Size, a.Size)
	set(&st.Blksize, a.Blksize)
	set(&st.Blocks, a.Blocks)
}

// Open is open(2) and open64(2).
func (s *Shim) Open(path string, flags int, mode uint32) (int, error) {
	t := s.resolve(path)
	if !t.virtual {
		return s.pt.Open(t.path, flags, mode)
	}
	if t.notDir {
		return -1, unix.ENOTDIR
	}
	if flags&unix.O_ACCMODE != unix.O_RDONLY || flags&(unix.O_TRUNC|unix.O_APPEND) != 0 {
		s.violate("open for writing", path)
	}
	if flags&(unix.O_CREAT|unix.O_EXCL) == unix.O_CREAT|unix.O_EXCL {
		return -1, unix.EEXIST
	}
	if flags&unix.O_DIRECTORY != 0 && !s.table.Catalog().IsDir(t.rel) {
		return -1, unix.ENOTDIR
	}
	fd, err := s.table.OpenDescriptor(t.rel)
	return fd, errno(err)
}

// Creat is creat(2).
func (s *Shim) Creat(path string, mode uint32) (int, error) {
	t := s.resolve(path)
	if t.virtual {
		s.violate("creat", path)
	}
	return s.pt.Open(t.path, unix.O_CREAT|unix.O_WRONLY|unix.O_TRUNC, mode)
}

// Read is read(2).
func (s *Shim) Read(fd int, p []byte) (int, error) {
	if s.virtualFD(fd) {
		return s.table.Read(fd, p)
	}
	return s.pt.Read(fd, p)
}

// Write is write(2).
func (s *Shim) Write(fd int, p []byte) (int, error) {
	if s.virtualFD(fd) {
		s.violate("write", fd)
	}
	return s.pt.Write(fd, p)
}

// Pread is pread(2) and pread64(2).
func (s *Shim) Pread(fd int, p []byte, offset int64) (int, error) {
	if s.virtualFD(fd) {
		s.violate("pread", fd)
	}
	return s.pt.Pread(fd, p, offset)
}

// Pwrite is pwrite(2) and pwrite64(2).
func (s *Shim) Pwrite(fd int, p []byte, offset int64) (int, error) {
	if s.virtualFD(fd) {
		s.violate("pwrite", fd)
	}
	return s.pt.Pwrite(fd, p, offset)
}

// Lseek is lseek(2) and lseek64(2).
func (s *Shim) Lseek(fd int, offset int64, whence int) (int64, error) {
	if s.virtualFD(fd) {
		pos, err := s.table.Seek(fd, offset, whence)
		return pos, s.seekErr("lseek", fd, err)
	}
	return s.pt.Seek(fd, offset, whence)
}

// Close is close(2).
func (s *Shim) Close(fd int) error {
	if s.virtualFD(fd) {
		return s.table.Close(fd)
	}
	return s.pt.Close(fd)
}

// Fstat is fstat(2), fstat64(2) and __fxstat.
func (s *Shim) Fstat(fd int, st *unix.Stat_t) error {
	if s.virtualFD(fd) {
		a, err := s.table.StatDescriptor(fd)
		if err != nil {
			return err
		}
		fillStat(st, a)
		return nil
	}
	return s.pt.Fstat(fd, st)
}

// Ftruncate is ftruncate(2).
func (s *Shim) Ftruncate(fd int, length int64) error {
	if s.virtualFD(fd) {
		s.violate("ftruncate", fd)
	}
	return s.pt.Ftruncate(fd, length)
}

// Dup is dup(2).
func (s *Shim) Dup(fd int) (int, error) {
	if s.virtualFD(fd) {
		s.violate("dup", fd)
	}
	return s.pt.Dup(fd)
}

// Dup2 is dup2(2).
func (s *Shim) Dup2(oldfd, newfd int) (int, error) {
	if s.virtualFD(oldfd) || s.virtualFD(newfd) {
		s.violate("dup2", oldfd)
	}
	if oldfd == newfd {
		// dup3 rejects equal descriptors; dup2 only validates oldfd
		if _, err := s.pt.Fcntl(oldfd, unix.F_GETFD, 0); err != nil {
			return -1, err
		}
		return newfd, nil
	}
	if err := s.pt.Dup3(oldfd, newfd, 0); err != nil {
		return -1, err
	}
	return newfd, nil
}

// Dup3 is dup3(2).
func (s *Shim) Dup3(oldfd, newfd, flags int) (int, error) {
	if s.virtualFD(oldfd) || s.virtualFD(newfd) {
		s.violate("dup3", oldfd)
	}
	if err := s.pt.Dup3(oldfd, newfd, flags); err != nil {
		return -1, err
	}
	return newfd, nil
}
