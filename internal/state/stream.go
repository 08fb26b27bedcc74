package state

import "golang.org/x/sys/unix"

// streamFile returns the stream and its bound descriptor.
func (t *Table) streamFile(s uint64) (*stream, *descriptor, error) {
	st, err := t.streamLocked(s)
	if err != nil {
		return nil, nil, err
	}
	d, err := t.descriptorLocked(st.fd)
	if err != nil {
		return nil, nil, err
	}
	return st, d, nil
}

// StreamRead reads up to len(p)/size items of size bytes each and returns
// the number of complete items read. A short read sets the eof flag.
func (t *Table) StreamRead(s uint64, p []byte, size int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, d, err := t.streamFile(s)
	if err != nil {
		return 0, err
	}
	if size <= 0 {
		return 0, nil
	}
	want := len(p) / size * size
	n, err := d.read(p[:want])
	if err != nil {
		return 0, err
	}
	if n < want {
		st.eof = true
	}
	return n / size, nil
}

// StreamGetc returns the next byte, or -1 with the eof flag set at end of
// content.
func (t *Table) StreamGetc(s uint64) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, d, err := t.streamFile(s)
	if err != nil {
		return -1, err
	}
	if d.dir {
		return -1, unix.EISDIR
	}
	if d.cursor >= int64(len(d.data)) {
		st.eof = true
		return -1, nil
	}
	c := d.data[d.cursor]
	d.cursor++
	return int(c), nil
}

// StreamGets reads at most limit-1 bytes, stopping after a newline. It
// returns ok=false when nothing could be read because the stream is at end
// of content, and EINVAL for a limit below one.
func (t *Table) StreamGets(s uint64, limit int) ([]byte, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, d, err := t.streamFile(s)
	if err != nil {
		return nil, false, err
	}
	if d.dir {
		return nil, false, unix.EISDIR
	}
	if limit <= 0 {
		return nil, false, unix.EINVAL
	}
	if limit == 1 {
		return []byte{}, true, nil
	}

	rest := d.data[d.cursor:]
	if len(rest) == 0 {
		st.eof = true
		return nil, false, nil
	}
	n := 0
	for n < len(rest) && n < limit-1 {
		n++
		if rest[n-1] == '\n' {
			break
		}
	}
	if n == len(rest) && rest[n-1] != '\n' {
		st.eof = true
	}
	line := make([]byte, n)
	copy(line, rest[:n])
	d.cursor += int64(n)
	return line, true, nil
}

// StreamSeek repositions the stream and clears its eof flag.
func (t *Table) StreamSeek(s uint64, offset int64, whence int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, d, err := t.streamFile(s)
	if err != nil {
		return err
	}
	if _, err := d.seek(offset, whence); err != nil {
		return err
	}
	st.eof = false
	return nil
}

// StreamTell returns the stream position.
func (t *Table) StreamTell(s uint64) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, d, err := t.streamFile(s)
	if err != nil {
		return -1, err
	}
	return d.cursor, nil
}

// EOF reports the eof flag of a stream.
func (t *Table) EOF(s uint64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, err := t.streamLocked(s)
	if err != nil {
		return false, err
	}
	return st.eof, nil
}

// ClearEOF resets the eof flag of a stream.
func (t *Table) ClearEOF(s uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, err := t.streamLocked(s)
	if err != nil {
		return err
	}
	st.eof = false
	return nil
}

// StreamDescriptor returns the descriptor a stream is bound to.
func (t *Table) StreamDescriptor(s uint64) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, err := t.streamLocked(s)
	if err != nil {
		return -1, err
	}
	return st.fd, nil
}

// IsDirStream reports whether s was opened as a directory stream.
func (t *Table) IsDirStream(s uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, err := t.streamLocked(s)
	return err == nil && st.dir
}

// CloseStream closes a stream and its bound descriptor.
func (t *Table) CloseStream(s uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, err := t.streamLocked(s)
	if err != nil {
		return err
	}
	st.closed = true
	if d, err := t.descriptorLocked(st.fd); err == nil {
		d.closed = true
	}
	logger.Trace("Closed stream %#x", s)
	return nil
}
