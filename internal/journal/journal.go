package journal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	defaultFileMode = 0644
	defaultDirMode  = 0755
)

// ErrNotFound is returned by Lines when the journal file has never been written.
var ErrNotFound = errors.New("journal: file not found")

// Journal is a plaintext append-only record file, one record per line.
// Every Append opens the file in append mode, writes one line and closes it again,
// so external readers and other processes always observe whole lines.
type Journal struct {
	mu   sync.Mutex
	path string
}

// Open returns a journal bound to path. The file itself is created lazily by the
// first Append.
func Open(path string) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal: path is empty")
	}
	return &Journal{path: path}, nil
}

// Path returns the journal file location.
func (j *Journal) Path() string { return j.path }

// Append writes line followed by a newline.
func (j *Journal) Append(line string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if dir := filepath.Dir(j.path); dir != "." {
		if err := os.MkdirAll(dir, defaultDirMode); err != nil {
			return fmt.Errorf("journal: mkdir: %w", err)
		}
	}

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, defaultFileMode)
	if err != nil {
		return fmt.Errorf("journal: open: %w", err)
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("journal: write entry: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("journal: close: %w", err)
	}
	return nil
}

// Lines returns every record in arrival order with trailing whitespace removed.
// It returns ErrNotFound when the file does not exist.
func (j *Journal) Lines() ([]string, error) {
	f, err := os.Open(j.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("journal: open for read: %w", err)
	}
	defer f.Close()

	lines := []string{}
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			lines = append(lines, strings.TrimRight(line, " \t\r\n\v\f"))
		}
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return nil, fmt.Errorf("journal: read: %w", err)
		}
	}
}

// SnapshotTo copies the current journal contents to dstPath.
func (j *Journal) SnapshotTo(dstPath string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	src, err := os.Open(j.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("journal: open source for snapshot: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dstPath), defaultDirMode); err != nil {
		return fmt.Errorf("journal: mkdir snapshot dir: %w", err)
	}

	tmp := dstPath + ".tmp"
	dst, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, defaultFileMode)
	if err != nil {
		return fmt.Errorf("journal: open snapshot tmp: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("journal: copy snapshot: %w", err)
	}
	if err := dst.Sync(); err != nil {
		_ = dst.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("journal: sync snapshot: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("journal: close snapshot: %w", err)
	}
	if err := os.Rename(tmp, dstPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("journal: rename snapshot: %w", err)
	}
	return nil
}
