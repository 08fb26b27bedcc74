package shim

import (
	"errors"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Stream is a stdio FILE handle. Virtual streams are numbered from the
// stream base; real streams from 1.
type Stream uint64

// NilStream is the failed-open result.
const NilStream Stream = 0

// Fopen is fopen(3) and fopen64(3).
func (s *Shim) Fopen(path, mode string) (Stream, error) {
	t := s.resolve(path)
	if !t.virtual {
		st, err := openRealStream(t.path, mode)
		if err != nil {
			return NilStream, err
		}
		return s.streams.add(st)
	}
	if t.notDir {
		return NilStream, unix.ENOTDIR
	}
	if writes(mode) {
		s.violate("fopen for writing", path)
	}
	if _, err := modeFlags(mode); err != nil {
		return NilStream, err
	}
	id, err := s.table.OpenStream(t.rel)
	if err != nil {
		return NilStream, errno(err)
	}
	return Stream(id), nil
}

// Fdopen is fdopen(3). The stream takes ownership of fd.
func (s *Shim) Fdopen(fd int, mode string) (Stream, error) {
	if s.virtualFD(fd) {
		s.violate("fdopen", fd)
	}
	flags, err := modeFlags(mode)
	if err != nil {
		return NilStream, err
	}
	if _, err := s.pt.Fcntl(fd, unix.F_GETFD, 0); err != nil {
		return NilStream, err
	}
	return s.streams.add(newRealStream(os.NewFile(uintptr(fd), ""), flags))
}

// Freopen is freopen(3). An empty path reopens the stream's own file.
func (s *Shim) Freopen(path, mode string, st Stream) (Stream, error) {
	if s.virtualStream(st) {
		s.violate("freopen", st)
	}
	if path != "" && s.resolve(path).virtual {
		s.violate("freopen", path)
	}
	old, err := s.realFile(st)
	if err != nil {
		return NilStream, err
	}
	if path == "" {
		path = old.f.Name()
		if path == "" {
			return NilStream, unix.EBADF
		}
	} else {
		path = s.resolve(path).path
	}
	old.f.Close()

	next, err := openRealStream(path, mode)
	if err != nil {
		s.streams.remove(st)
		return NilStream, err
	}
	s.streams.replace(st, next)
	return st, nil
}

// Fread is fread(3). It reads up to len(p)/size items and returns the
// number of complete items read.
func (s *Shim) Fread(st Stream, p []byte, size int) (int, error) {
	if s.virtualStream(st) {
		return s.table.StreamRead(uint64(st), p, size)
	}
	rs, err := s.realFile(st)
	if err != nil {
		return 0, err
	}
	if size <= 0 {
		return 0, nil
	}
	n, err := rs.read(p[:len(p)/size*size])
	return n / size, err
}

// Fwrite is fwrite(3).
func (s *Shim) Fwrite(st Stream, p []byte, size int) (int, error) {
	if s.virtualStream(st) {
		s.violate("fwrite", st)
	}
	rs, err := s.realFile(st)
	if err != nil {
		return 0, err
	}
	if size <= 0 {
		return 0, nil
	}
	n, err := rs.write(p[:len(p)/size*size])
	return n / size, err
}

// Fgetc is fgetc(3). It returns -1 at end of file.
func (s *Shim) Fgetc(st Stream) (int, error) {
	if s.virtualStream(st) {
		return s.table.StreamGetc(uint64(st))
	}
	rs, err := s.realFile(st)
	if err != nil {
		return -1, err
	}
	c, err := rs.readByte()
	if errors.Is(err, io.EOF) {
		rs.eof = true
		return -1, nil
	}
	if err != nil {
		rs.failed = true
		return -1, err
	}
	return int(c), nil
}

// Getc is getc(3).
func (s *Shim) Getc(st Stream) (int, error) {
	return s.Fgetc(st)
}

// Fgets is fgets(3). It returns at most limit-1 bytes, including the
// newline if one was reached, and io.EOF when nothing could be read.
func (s *Shim) Fgets(st Stream, limit int) ([]byte, error) {
	if s.virtualStream(st) {
		line, ok, err := s.table.StreamGets(uint64(st), limit)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, io.EOF
		}
		return line, nil
	}

	rs, err := s.realFile(st)
	if err != nil {
		return nil, err
	}
	if limit <= 1 {
		if limit == 1 {
			return []byte{}, nil
		}
		return nil, unix.EINVAL
	}
	var line []byte
	for len(line) < limit-1 {
		c, err := rs.readByte()
		if errors.Is(err, io.EOF) {
			rs.eof = true
			break
		}
		if err != nil {
			rs.failed = true
			return nil, err
		}
		line = append(line, c)
		if c == '\n' {
			break
		}
	}
	if len(line) == 0 {
		return nil, io.EOF
	}
	return line, nil
}

// Ungetc is ungetc(3). It returns c, or -1 when c is -1.
func (s *Shim) Ungetc(c int, st Stream) (int, error) {
	if s.virtualStream(st) {
		s.violate("ungetc", st)
	}
	rs, err := s.realFile(st)
	if err != nil {
		return -1, err
	}
	if c < 0 {
		return -1, nil
	}
	rs.pushback = append(rs.pushback, byte(c))
	rs.eof = false
	return int(byte(c)), nil
}

// Fseek is fseek(3), fseeko(3) and fseeko64(3).
func (s *Shim) Fseek(st Stream, offset int64, whence int) error {
	if s.virtualStream(st) {
		return s.seekErr("fseek", st, s.table.StreamSeek(uint64(st), offset, whence))
	}
	rs, err := s.realFile(st)
	if err != nil {
		return err
	}
	return rs.seek(offset, whence)
}

// Ftell is ftell(3), ftello(3) and ftello64(3).
func (s *Shim) Ftell(st Stream) (int64, error) {
	if s.virtualStream(st) {
		return s.table.StreamTell(uint64(st))
	}
	rs, err := s.realFile(st)
	if err != nil {
		return -1, err
	}
	return rs.tell()
}

// Rewind is rewind(3). It also clears the error indicator.
func (s *Shim) Rewind(st Stream) error {
	if err := s.Fseek(st, 0, io.SeekStart); err != nil {
		return err
	}
	s.Clearerr(st)
	return nil
}

// Feof is feof(3).
func (s *Shim) Feof(st Stream) bool {
	if s.virtualStream(st) {
		eof, _ := s.table.EOF(uint64(st))
		return eof
	}
	rs, err := s.realFile(st)
	return err == nil && rs.eof
}

// Ferror is ferror(3). Virtual streams cannot fail mid-read, so their
// error indicator is never set.
func (s *Shim) Ferror(st Stream) bool {
	if s.virtualStream(st) {
		return false
	}
	rs, err := s.realFile(st)
	return err == nil && rs.failed
}

// Clearerr is clearerr(3).
func (s *Shim) Clearerr(st Stream) {
	if s.virtualStream(st) {
		s.table.ClearEOF(uint64(st))
		return
	}
	if rs, err := s.realFile(st); err == nil {
		rs.eof = false
		rs.failed = false
	}
}

// Fileno is fileno(3). A virtual stream reports the descriptor it is bound
// to.
func (s *Shim) Fileno(st Stream) (int, error) {
	if s.virtualStream(st) {
		return s.table.StreamDescriptor(uint64(st))
	}
	rs, err := s.streams.get(st)
	if err != nil {
		return -1, err
	}
	return int(rs.f.Fd()), nil
}

// Fclose is fclose(3).
func (s *Shim) Fclose(st Stream) error {
	if s.virtualStream(st) {
		return s.table.CloseStream(uint64(st))
	}
	rs, err := s.streams.remove(st)
	if err != nil {
		return err
	}
	return unwrapErrno(rs.f.Close())
}

// realFile returns the real byte stream st. Directory streams have no
// byte content.
func (s *Shim) realFile(st Stream) (*realStream, error) {
	rs, err := s.streams.get(st)
	if err != nil {
		return nil, err
	}
	if rs.dir {
		return nil, unix.EBADF
	}
	return rs, nil
}
