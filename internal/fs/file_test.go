package fs

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"

	"bazil.org/fuse"
)

func TestFileOperations(t *testing.T) {
	vfs, table := setupTestFS(t)
	ctx := context.Background()
	testContent := []byte("test file content")

	file := lookupPath(t, vfs, "dir1", "file2.txt").(*File)

	t.Run("FileAttributes", func(t *testing.T) {
		attr := &fuse.Attr{}
		if err := file.Attr(ctx, attr); err != nil {
			t.Fatalf("Failed to get file attributes: %v", err)
		}
		if attr.Mode&os.ModeDir != 0 {
			t.Error("File should not be a directory")
		}
		if attr.Mode.Perm() != 0o444 {
			t.Errorf("Permissions = %o, want 444", attr.Mode.Perm())
		}
		if attr.Size != uint64(len(testContent)) {
			t.Errorf("Expected size %d, got %d", len(testContent), attr.Size)
		}
		if attr.Blocks != 1 || attr.Nlink != 1 {
			t.Errorf("Unexpected attributes: %+v", attr)
		}
	})

	t.Run("FileReading", func(t *testing.T) {
		handle, err := file.Open(ctx, &fuse.OpenRequest{Flags: fuse.OpenReadOnly}, &fuse.OpenResponse{})
		if err != nil {
			t.Fatalf("Failed to open file: %v", err)
		}
		fh := handle.(*FileHandle)

		resp := &fuse.ReadResponse{}
		if err := fh.Read(ctx, &fuse.ReadRequest{Size: len(testContent)}, resp); err != nil {
			t.Fatalf("Failed to read file: %v", err)
		}
		if string(resp.Data) != string(testContent) {
			t.Errorf("Expected content %q, got %q", string(testContent), string(resp.Data))
		}

		resp = &fuse.ReadResponse{}
		if err := fh.Read(ctx, &fuse.ReadRequest{Offset: 5, Size: 4}, resp); err != nil {
			t.Fatalf("Failed to read at offset: %v", err)
		}
		if string(resp.Data) != "file" {
			t.Errorf("Expected %q at offset 5, got %q", "file", resp.Data)
		}

		resp = &fuse.ReadResponse{}
		if err := fh.Read(ctx, &fuse.ReadRequest{Offset: 1000, Size: 4}, resp); err != nil || len(resp.Data) != 0 {
			t.Errorf("Read past end = %q (err=%v)", resp.Data, err)
		}

		if err := fh.Release(ctx, &fuse.ReleaseRequest{}); err != nil {
			t.Errorf("Failed to close file: %v", err)
		}
		if c := table.Counts(); c.OpenDescriptors != 0 {
			t.Errorf("Release left %d descriptors open", c.OpenDescriptors)
		}
		if err := fh.Read(ctx, &fuse.ReadRequest{Size: 1}, &fuse.ReadResponse{}); !errors.Is(err, syscall.EBADF) {
			t.Errorf("Read after release: expected EBADF, got %v", err)
		}
	})

	t.Run("ConcurrentHandles", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(off int64) {
				defer wg.Done()
				handle, err := file.Open(ctx, &fuse.OpenRequest{Flags: fuse.OpenReadOnly}, &fuse.OpenResponse{})
				if err != nil {
					t.Errorf("Failed to open: %v", err)
					return
				}
				fh := handle.(*FileHandle)
				defer fh.Release(ctx, &fuse.ReleaseRequest{})
				resp := &fuse.ReadResponse{}
				if err := fh.Read(ctx, &fuse.ReadRequest{Offset: off, Size: 2}, resp); err != nil {
					t.Errorf("Read failed: %v", err)
					return
				}
				if string(resp.Data) != string(testContent[off:off+2]) {
					t.Errorf("Offset %d: got %q", off, resp.Data)
				}
			}(int64(i))
		}
		wg.Wait()
	})

	t.Run("WriteOpenRejected", func(t *testing.T) {
		for _, flags := range []fuse.OpenFlags{
			fuse.OpenWriteOnly,
			fuse.OpenReadWrite,
			fuse.OpenReadOnly | fuse.OpenTruncate,
		} {
			if _, err := file.Open(ctx, &fuse.OpenRequest{Flags: flags}, &fuse.OpenResponse{}); !errors.Is(err, syscall.EROFS) {
				t.Errorf("Open(%v): expected EROFS, got %v", flags, err)
			}
		}
	})

	t.Run("FileXattrOperations", func(t *testing.T) {
		getResp := &fuse.GetxattrResponse{}
		if err := file.Getxattr(ctx, &fuse.GetxattrRequest{Name: XattrPath}, getResp); err != nil {
			t.Fatalf("Failed to get xattr: %v", err)
		}
		if string(getResp.Xattr) != "dir1/file2.txt" {
			t.Errorf("Expected xattr value %q, got %q", "dir1/file2.txt", getResp.Xattr)
		}

		listResp := &fuse.ListxattrResponse{}
		if err := file.Listxattr(ctx, &fuse.ListxattrRequest{}, listResp); err != nil {
			t.Errorf("Failed to list xattrs: %v", err)
		}
		if !strings.Contains(string(listResp.Xattr), XattrPath) {
			t.Errorf("Expected %q in xattr list, got %q", XattrPath, listResp.Xattr)
		}

		if err := file.Getxattr(ctx, &fuse.GetxattrRequest{Name: "user.other"}, getResp); err != fuse.ErrNoXattr {
			t.Errorf("Expected ErrNoXattr, got %v", err)
		}
		if err := file.Setxattr(ctx, &fuse.SetxattrRequest{Name: "user.x"}); !errors.Is(err, syscall.EROFS) {
			t.Errorf("Setxattr: expected EROFS, got %v", err)
		}
		if err := file.Removexattr(ctx, &fuse.RemovexattrRequest{Name: XattrPath}); !errors.Is(err, syscall.EROFS) {
			t.Errorf("Removexattr: expected EROFS, got %v", err)
		}
	})
}

func TestToFuseError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"not found", NewFSError(OpLookup, "/x", ErrPathNotFound), syscall.ENOENT},
		{"read only", NewFSError(OpMkdir, "/x", ErrReadOnly), syscall.EROFS},
		{"not dir", NewFSError(OpReadDir, "/x", ErrNotDirectory), syscall.ENOTDIR},
		{"errno passes through", NewFSError(OpRead, "/x", syscall.EBADF), syscall.EBADF},
		{"os not exist", os.ErrNotExist, syscall.ENOENT},
		{"unknown", errors.New("boom"), syscall.EIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToFuseError(tt.err); got != tt.want {
				t.Errorf("ToFuseError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
