package state

import "golang.org/x/sys/unix"

// dirStream returns a directory stream and the path it lists.
func (t *Table) dirStream(s uint64) (*stream, string, error) {
	st, d, err := t.streamFile(s)
	if err != nil {
		return nil, "", err
	}
	if !st.dir {
		return nil, "", unix.ENOTDIR
	}
	return st, d.path, nil
}

// NextEntry returns the child at the stream's ordinal and advances it.
// ok is false once every child has been returned.
func (t *Table) NextEntry(s uint64) (DirEntry, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, dir, err := t.dirStream(s)
	if err != nil {
		return DirEntry{}, false, err
	}
	children := t.cat.Children(dir)
	if st.ordinal >= len(children) {
		return DirEntry{}, false, nil
	}
	e := children[st.ordinal]
	st.ordinal++
	return DirEntry{
		Name:  e.Name,
		Ino:   t.inodeLocked(e.Path),
		IsDir: t.cat.IsDir(e.Path),
		Next:  st.ordinal,
	}, true, nil
}

// SeekDir moves the directory stream to ordinal. Positions past the last
// entry are clamped so the next read reports exhaustion.
func (t *Table) SeekDir(s uint64, ordinal int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, dir, err := t.dirStream(s)
	if err != nil {
		return err
	}
	if ordinal < 0 {
		return unix.EINVAL
	}
	if n := len(t.cat.Children(dir)); ordinal > n {
		ordinal = n
	}
	st.ordinal = ordinal
	return nil
}

// TellDir returns the ordinal of the next entry.
func (t *Table) TellDir(s uint64) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, _, err := t.dirStream(s)
	if err != nil {
		return -1, err
	}
	return st.ordinal, nil
}

// RewindDir restarts the directory stream at its first entry.
func (t *Table) RewindDir(s uint64) error {
	return t.SeekDir(s, 0)
}
