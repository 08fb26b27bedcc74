package shim

import (
	"io/fs"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// Dirent is one readdir(3) record. Off is the telldir position of the
// entry that follows it.
type Dirent struct {
	Ino  uint64
	Off  int64
	Type uint8
	Name string
}

// Opendir is opendir(3). Directory streams share the Stream handle space.
func (s *Shim) Opendir(path string) (Stream, error) {
	t := s.resolve(path)
	if !t.virtual {
		return s.opendirReal(t.path)
	}
	id, err := s.table.OpenDirStream(t.rel)
	if err != nil {
		return NilStream, errno(err)
	}
	return Stream(id), nil
}

func (s *Shim) opendirReal(path string) (Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return NilStream, unwrapErrno(err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return NilStream, unwrapErrno(err)
	}
	if !fi.IsDir() {
		f.Close()
		return NilStream, unix.ENOTDIR
	}
	return s.streams.add(&realStream{f: f, dir: true})
}

func (s *Shim) realDir(st Stream) (*realStream, error) {
	rs, err := s.streams.get(st)
	if err != nil {
		return nil, err
	}
	if !rs.dir {
		return nil, unix.ENOTDIR
	}
	return rs, nil
}

// Readdir is readdir(3) and readdir64(3). It returns nil, nil once the
// directory is exhausted. Virtual directories list their children in
// sorted order without "." and "..".
func (s *Shim) Readdir(st Stream) (*Dirent, error) {
	if s.virtualStream(st) {
		e, ok, err := s.table.NextEntry(uint64(st))
		if err != nil || !ok {
			return nil, err
		}
		typ := uint8(unix.DT_REG)
		if e.IsDir {
			typ = unix.DT_DIR
		}
		return &Dirent{Ino: e.Ino, Off: int64(e.Next), Type: typ, Name: e.Name}, nil
	}

	rs, err := s.realDir(st)
	if err != nil {
		return nil, err
	}
	e, ok, err := rs.nextEntry()
	if err != nil || !ok {
		return nil, err
	}
	d := &Dirent{Off: int64(rs.pos), Type: direntType(e.Type()), Name: e.Name()}
	if fi, err := e.Info(); err == nil {
		if sys, ok := fi.Sys().(*syscall.Stat_t); ok {
			d.Ino = sys.Ino
		}
	}
	return d, nil
}

func direntType(m fs.FileMode) uint8 {
	switch {
	case m.IsRegular():
		return unix.DT_REG
	case m&fs.ModeDir != 0:
		return unix.DT_DIR
	case m&fs.ModeSymlink != 0:
		return unix.DT_LNK
	case m&fs.ModeNamedPipe != 0:
		return unix.DT_FIFO
	case m&fs.ModeSocket != 0:
		return unix.DT_SOCK
	case m&fs.ModeCharDevice != 0:
		return unix.DT_CHR
	case m&fs.ModeDevice != 0:
		return unix.DT_BLK
	}
	return unix.DT_UNKNOWN
}

// Seekdir is seekdir(3). pos must come from Telldir or a Dirent.Off.
func (s *Shim) Seekdir(st Stream, pos int64) error {
	if s.virtualStream(st) {
		return s.table.SeekDir(uint64(st), int(pos))
	}
	rs, err := s.realDir(st)
	if err != nil {
		return err
	}
	if pos < 0 {
		return unix.EINVAL
	}
	return rs.seekDir(int(pos))
}

// Telldir is telldir(3).
func (s *Shim) Telldir(st Stream) (int64, error) {
	if s.virtualStream(st) {
		pos, err := s.table.TellDir(uint64(st))
		return int64(pos), err
	}
	rs, err := s.realDir(st)
	if err != nil {
		return -1, err
	}
	return int64(rs.pos), nil
}

// Rewinddir is rewinddir(3).
func (s *Shim) Rewinddir(st Stream) error {
	if s.virtualStream(st) {
		return s.table.RewindDir(uint64(st))
	}
	rs, err := s.realDir(st)
	if err != nil {
		return err
	}
	return rs.rewindDir()
}

// Closedir is closedir(3).
func (s *Shim) Closedir(st Stream) error {
	if s.virtualStream(st) {
		return s.table.CloseStream(uint64(st))
	}
	rs, err := s.streams.remove(st)
	if err != nil {
		return err
	}
	return unwrapErrno(rs.f.Close())
}
