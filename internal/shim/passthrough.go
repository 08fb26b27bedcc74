package shim

import (
	"golang.org/x/sys/unix"
)

// Passthrough is the real implementation every non-virtual call is
// forwarded to. Errors are the raw unix.Errno values of the syscalls.
type Passthrough interface {
	Open(path string, flags int, mode uint32) (int, error)
	Read(fd int, p []byte) (int, error)
	Write(fd int, p []byte) (int, error)
	Pread(fd int, p []byte, offset int64) (int, error)
	Pwrite(fd int, p []byte, offset int64) (int, error)
	Seek(fd int, offset int64, whence int) (int64, error)
	Close(fd int) error
	Fstat(fd int, st *unix.Stat_t) error
	Stat(path string, st *unix.Stat_t) error
	Lstat(path string, st *unix.Stat_t) error
	Ftruncate(fd int, length int64) error
	Truncate(path string, length int64) error
	Dup(fd int) (int, error)
	Dup3(oldfd, newfd, flags int) error
	Fcntl(fd int, cmd int, arg int) (int, error)
	Access(path string, mode uint32) error
	Unlink(path string) error
	Mkdir(path string, mode uint32) error
	Rmdir(path string) error
	Rename(from, to string) error
	Chdir(path string) error
	Getcwd() (string, error)
}

// Unix forwards to golang.org/x/sys/unix.
type Unix struct{}

var _ Passthrough = Unix{}

func (Unix) Open(path string, flags int, mode uint32) (int, error) {
	return unix.Open(path, flags, mode)
}

func (Unix) Read(fd int, p []byte) (int, error) { return unix.Read(fd, p) }
func (Unix) Write(fd int, p []byte) (int, error) { return unix.Write(fd, p) }

func (Unix) Pread(fd int, p []byte, offset int64) (int, error) {
	return unix.Pread(fd, p, offset)
}

func (Unix) Pwrite(fd int, p []byte, offset int64) (int, error) {
	return unix.Pwrite(fd, p, offset)
}

func (Unix) Seek(fd int, offset int64, whence int) (int64, error) {
	return unix.Seek(fd, offset, whence)
}

func (Unix) Close(fd int) error { return unix.Close(fd) }
func (Unix) Fstat(fd int, st *unix.Stat_t) error { return unix.Fstat(fd, st) }
func (Unix) Stat(path string, st *unix.Stat_t) error { return unix.Stat(path, st) }

func (Unix) Lstat(path string, st *unix.Stat_t) error {
	return unix.Lstat(path, st)
}

func (Unix) Ftruncate(fd int, length int64) error { return unix.Ftruncate(fd, length) }
func (Unix) Truncate(path string, length int64) error { return unix.Truncate(path, length) }
func (Unix) Dup(fd int) (int, error) { return unix.Dup(fd) }
func (Unix) Dup3(oldfd, newfd, flags int) error { return unix.Dup3(oldfd, newfd, flags) }
func (Unix) Fcntl(fd int, cmd int, arg int) (int, error) { return unix.FcntlInt(uintptr(fd), cmd, arg) }
func (Unix) Access(path string, mode uint32) error { return unix.Access(path, mode) }
func (Unix) Unlink(path string) error { return unix.Unlinkat(unix.AT_FDCWD, path, 0) }
func (Unix) Mkdir(path string, mode uint32) error { return unix.Mkdirat(unix.AT_FDCWD, path, mode) }

func (Unix) Rmdir(path string) error {
	return unix.Unlinkat(unix.AT_FDCWD, path, unix.AT_REMOVEDIR)
}

func (Unix) Rename(from, to string) error {
	return unix.Renameat(unix.AT_FDCWD, from, unix.AT_FDCWD, to)
}

func (Unix) Chdir(path string) error { return unix.Chdir(path) }
func (Unix) Getcwd() (string, error) { return unix.Getwd() }
