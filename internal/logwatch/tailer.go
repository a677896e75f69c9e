// Package logwatch polls log files and delivers appended lines in file order.
package logwatch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Tailer reads a single file incrementally by byte offset. The first Poll
// returns the whole existing content. A file that shrinks is treated as
// rotated and read again from the start. Text after the last newline is
// held back until the line is finished. Not safe for concurrent use.
type Tailer struct {
	path    string
	offset  int64
	partial string
	polled  bool
}

func NewTailer(path string) *Tailer {
	return &Tailer{path: path}
}

// Path returns the file being tailed.
func (t *Tailer) Path() string {
	return t.path
}

// Polled reports whether Poll has run at least once.
func (t *Tailer) Polled() bool {
	return t.polled
}

// Poll returns complete lines appended since the previous call. A missing
// file yields no lines and no error.
func (t *Tailer) Poll() ([]string, error) {
	t.polled = true

	f, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", t.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", t.path, err)
	}
	if info.Size() < t.offset {
		t.offset = 0
		t.partial = ""
	}
	if info.Size() == t.offset {
		return nil, nil
	}

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s: %w", t.path, err)
	}
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t.path, err)
	}
	t.offset += int64(len(b))

	text := t.partial + string(b)
	end := strings.LastIndexByte(text, '\n')
	if end < 0 {
		t.partial = text
		return nil, nil
	}
	t.partial = text[end+1:]

	lines := strings.Split(text[:end], "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines, nil
}
