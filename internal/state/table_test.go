package state

import (
	"errors"
	"math"
	"sync"
	"testing"

	"golang.org/x/sys/unix"

	"resfs/internal/catalog"
)

func setupTable(t *testing.T) *Table {
	t.Helper()
	cat, err := catalog.New(map[string][]byte{
		"a.txt":     []byte("hi"),
		"sub/b.txt": []byte("bye"),
		"lines.txt": []byte("one\ntwo\nthree"),
	}, []string{"", "sub"})
	if err != nil {
		t.Fatalf("Failed to build catalog: %v", err)
	}
	opts := DefaultOptions()
	opts.Uid, opts.Gid = 1000, 1000
	return NewTable(cat, opts)
}

func TestDescriptorRead(t *testing.T) {
	tbl := setupTable(t)

	fd, err := tbl.OpenDescriptor("sub/b.txt")
	if err != nil {
		t.Fatalf("Failed to open: %v", err)
	}
	if fd < DefaultDescriptorBase {
		t.Errorf("Descriptor %d below base", fd)
	}
	if !tbl.IsDescriptor(fd) || tbl.IsDescriptor(3) {
		t.Error("IsDescriptor misclassifies handles")
	}

	buf := make([]byte, 16)
	n, err := tbl.Read(fd, buf)
	if err != nil || string(buf[:n]) != "bye" {
		t.Fatalf("Expected %q, got %q (err=%v)", "bye", buf[:n], err)
	}

	n, err = tbl.Read(fd, buf)
	if n != 0 || err != nil {
		t.Errorf("Expected EOF read of 0 bytes, got %d (err=%v)", n, err)
	}
}

func TestSeekLaws(t *testing.T) {
	tbl := setupTable(t)
	fd, _ := tbl.OpenDescriptor("lines.txt")
	size := int64(len("one\ntwo\nthree"))

	if pos, _ := tbl.Seek(fd, 0, unix.SEEK_END); pos != size {
		t.Errorf("SEEK_END 0 = %d, want %d", pos, size)
	}
	if pos, _ := tbl.Seek(fd, 0, unix.SEEK_SET); pos != 0 {
		t.Errorf("SEEK_SET 0 = %d, want 0", pos)
	}

	for n := 0; n <= int(size); n++ {
		if _, err := tbl.Seek(fd, 2, unix.SEEK_SET); err != nil {
			t.Fatal(err)
		}
		before, _ := tbl.Tell(fd)
		got, _ := tbl.Read(fd, make([]byte, n))
		after, err := tbl.Seek(fd, int64(-got), unix.SEEK_CUR)
		if err != nil || after != before {
			t.Errorf("read %d then seek back: cursor %d, want %d (err=%v)", n, after, before, err)
		}
	}

	if pos, _ := tbl.Seek(fd, 100, unix.SEEK_SET); pos != size {
		t.Errorf("Seek past end should clamp to %d, got %d", size, pos)
	}

	tbl.Seek(fd, 1, unix.SEEK_SET)
	if _, err := tbl.Seek(fd, -5, unix.SEEK_CUR); !errors.Is(err, ErrNegativeSeek) {
		t.Errorf("Expected ErrNegativeSeek, got %v", err)
	}
	if pos, _ := tbl.Tell(fd); pos != 1 {
		t.Errorf("Failed seek moved cursor to %d", pos)
	}

	if _, err := tbl.Seek(fd, 0, 42); err != unix.EINVAL {
		t.Errorf("Expected EINVAL for bad whence, got %v", err)
	}
	if _, err := tbl.Seek(fd, size, unix.SEEK_DATA); err != unix.ENXIO {
		t.Errorf("Expected ENXIO for SEEK_DATA at end, got %v", err)
	}

	tbl.Seek(fd, 1, unix.SEEK_SET)
	errTests := []struct {
		name   string
		offset int64
		whence int
		want   error
	}{
		{"SEEK_CUR overflow", math.MaxInt64, unix.SEEK_CUR, unix.EOVERFLOW},
		{"SEEK_END overflow", math.MaxInt64, unix.SEEK_END, unix.EOVERFLOW},
		{"SEEK_DATA negative", -1, unix.SEEK_DATA, unix.ENXIO},
		{"SEEK_HOLE negative", -1, unix.SEEK_HOLE, unix.ENXIO},
		{"SEEK_CUR most negative", math.MinInt64, unix.SEEK_CUR, ErrNegativeSeek},
	}
	for _, tt := range errTests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tbl.Seek(fd, tt.offset, tt.whence); !errors.Is(err, tt.want) {
				t.Errorf("Seek(%d, %d) = %v, want %v", tt.offset, tt.whence, err, tt.want)
			}
			if pos, _ := tbl.Tell(fd); pos != 1 {
				t.Errorf("Failed seek moved cursor to %d", pos)
			}
		})
	}
	if pos, err := tbl.Seek(fd, math.MaxInt64, unix.SEEK_SET); err != nil || pos != size {
		t.Errorf("SEEK_SET MaxInt64 = %d (err=%v), want clamp to %d", pos, err, size)
	}
}

func TestClosedDescriptor(t *testing.T) {
	tbl := setupTable(t)
	fd, _ := tbl.OpenDescriptor("a.txt")
	if err := tbl.Close(fd); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := tbl.Close(fd); err != unix.EBADF {
		t.Errorf("Double close should be EBADF, got %v", err)
	}
	if _, err := tbl.Read(fd, make([]byte, 1)); err != unix.EBADF {
		t.Errorf("Read after close should be EBADF, got %v", err)
	}

	next, _ := tbl.OpenDescriptor("a.txt")
	if next == fd {
		t.Error("Closed slot should not be reused")
	}
}

func TestStat(t *testing.T) {
	tbl := setupTable(t)

	a, err := tbl.Stat("sub/b.txt")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if a.Size != 3 || a.IsDir() || a.Mode != FileMode || a.Dev != DeviceID {
		t.Errorf("Unexpected file attributes: %+v", a)
	}
	if a.Blocks != 1 || a.Uid != 1000 {
		t.Errorf("Unexpected blocks/uid: %+v", a)
	}

	d, err := tbl.Stat("sub")
	if err != nil || !d.IsDir() || d.Nlink != DirNlink {
		t.Errorf("Unexpected dir attributes: %+v (err=%v)", d, err)
	}

	again, _ := tbl.Stat("sub/b.txt")
	if again.Ino != a.Ino {
		t.Errorf("Inode changed between stats: %d then %d", a.Ino, again.Ino)
	}
	if d.Ino == a.Ino {
		t.Error("Distinct paths share an inode")
	}

	fd, _ := tbl.OpenDescriptor("sub/b.txt")
	byFd, _ := tbl.StatDescriptor(fd)
	if byFd != a {
		t.Errorf("fstat %+v differs from stat %+v", byFd, a)
	}

	if _, err := tbl.Stat("nope"); !errors.Is(err, ErrNotVirtual) {
		t.Errorf("Expected ErrNotVirtual, got %v", err)
	}
}

func TestDirectoryIteration(t *testing.T) {
	tbl := setupTable(t)

	list := func() []string {
		s, err := tbl.OpenDirStream("")
		if err != nil {
			t.Fatalf("OpenDirStream failed: %v", err)
		}
		defer tbl.CloseStream(s)
		var names []string
		for {
			e, ok, err := tbl.NextEntry(s)
			if err != nil {
				t.Fatalf("NextEntry failed: %v", err)
			}
			if !ok {
				return names
			}
			names = append(names, e.Name)
		}
	}

	first, second := list(), list()
	want := []string{"a.txt", "lines.txt", "sub"}
	if len(first) != len(want) {
		t.Fatalf("Expected %v, got %v", want, first)
	}
	for i := range want {
		if first[i] != want[i] || second[i] != want[i] {
			t.Errorf("Entry %d: got %q/%q, want %q", i, first[i], second[i], want[i])
		}
	}

	s, _ := tbl.OpenDirStream("")
	tbl.NextEntry(s)
	pos, _ := tbl.TellDir(s)
	e1, _, _ := tbl.NextEntry(s)
	if err := tbl.SeekDir(s, pos); err != nil {
		t.Fatal(err)
	}
	e2, _, _ := tbl.NextEntry(s)
	if e1 != e2 {
		t.Errorf("SeekDir to told position replayed %+v, want %+v", e2, e1)
	}
	if err := tbl.RewindDir(s); err != nil {
		t.Fatal(err)
	}
	if pos, _ := tbl.TellDir(s); pos != 0 {
		t.Errorf("TellDir after RewindDir = %d, want 0", pos)
	}

	if _, err := tbl.OpenDirStream("a.txt"); err != unix.ENOTDIR {
		t.Errorf("Expected ENOTDIR, got %v", err)
	}
}

func TestStreamOps(t *testing.T) {
	tbl := setupTable(t)
	s, err := tbl.OpenStream("lines.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !tbl.IsStream(s) || tbl.IsStream(1) {
		t.Error("IsStream misclassifies handles")
	}

	line, ok, _ := tbl.StreamGets(s, 64)
	if !ok || string(line) != "one\n" {
		t.Errorf("Expected first line, got %q", line)
	}
	if c, _ := tbl.StreamGetc(s); c != 't' {
		t.Errorf("Expected 't', got %q", rune(c))
	}

	buf := make([]byte, 64)
	items, _ := tbl.StreamRead(s, buf, 1)
	if string(buf[:items]) != "wo\nthree" {
		t.Errorf("Unexpected rest %q", buf[:items])
	}
	if eof, _ := tbl.EOF(s); !eof {
		t.Error("Short read should set eof")
	}

	if c, _ := tbl.StreamGetc(s); c != -1 {
		t.Errorf("Expected -1 at end, got %d", c)
	}

	if err := tbl.StreamSeek(s, 0, unix.SEEK_SET); err != nil {
		t.Fatal(err)
	}
	if eof, _ := tbl.EOF(s); eof {
		t.Error("Seek should clear eof")
	}

	fd, _ := tbl.StreamDescriptor(s)
	if err := tbl.CloseStream(s); err != nil {
		t.Fatal(err)
	}
	if _, err := tbl.Read(fd, buf); err != unix.EBADF {
		t.Errorf("Bound descriptor should close with stream, got %v", err)
	}
}

func TestCwdOverride(t *testing.T) {
	tbl := setupTable(t)

	if _, ok := tbl.Cwd(); ok {
		t.Error("No override expected initially")
	}
	if err := tbl.SetCwd("a.txt"); err != unix.ENOTDIR {
		t.Errorf("Expected ENOTDIR, got %v", err)
	}
	if err := tbl.SetCwd("sub"); err != nil {
		t.Fatal(err)
	}

	osCwd := func() (string, error) { return "/real", nil }
	if cwd, _ := tbl.EffectiveCwd("/v", osCwd); cwd != "/v/sub" {
		t.Errorf("Expected /v/sub, got %q", cwd)
	}

	tbl.ClearCwd()
	if cwd, _ := tbl.EffectiveCwd("/v", osCwd); cwd != "/real" {
		t.Errorf("Expected real cwd, got %q", cwd)
	}
}

func TestConcurrentReads(t *testing.T) {
	tbl := setupTable(t)
	fd, _ := tbl.OpenDescriptor("lines.txt")
	size := len("one\ntwo\nthree")

	var wg sync.WaitGroup
	var mu sync.Mutex
	total := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, 1)
			for {
				n, err := tbl.Read(fd, buf)
				if err != nil || n == 0 {
					return
				}
				mu.Lock()
				total += n
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if total != size {
		t.Errorf("Concurrent readers consumed %d bytes, want exactly %d", total, size)
	}
}
