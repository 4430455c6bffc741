package ignorelist

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const (
	fileHeader    = "# Items ignored by commentary discovery, one rating key per line.\n"
	lockRetryWait = 100 * time.Millisecond
)

// Set is an ordered set of ignored item ids bound to a file.
type Set struct {
	path     string
	ids      []string
	index    map[string]struct{}
	modified bool
}

// New returns an empty set that saves to path.
func New(path string) *Set {
	return &Set{path: path, index: make(map[string]struct{})}
}

// Load reads the set at path. A missing file yields an empty set.
func Load(ctx context.Context, path string) (*Set, error) {
	set := New(path)
	unlock, err := lock(ctx, path, true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return set, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ignore list: %w", err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		set.insert(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parse ignore list: %w", err)
	}
	return set, nil
}

// Path returns the backing file path.
func (s *Set) Path() string { return s.path }

// Len returns the number of ids.
func (s *Set) Len() int { return len(s.ids) }

// IDs returns the ids in the order they were added.
func (s *Set) IDs() []string { return append([]string(nil), s.ids...) }

// Modified reports whether the set changed since it was loaded or saved.
func (s *Set) Modified() bool { return s.modified }

// Contains reports whether id is ignored.
func (s *Set) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Add ignores id and reports whether it was new.
func (s *Set) Add(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" || s.Contains(id) {
		return false
	}
	s.insert(id)
	s.modified = true
	return true
}

// Remove drops id and reports whether it was present.
func (s *Set) Remove(id string) bool {
	if !s.Contains(id) {
		return false
	}
	delete(s.index, id)
	for i, existing := range s.ids {
		if existing == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
	s.modified = true
	return true
}

// Clear drops every id.
func (s *Set) Clear() {
	if len(s.ids) == 0 {
		return
	}
	s.ids = nil
	s.index = make(map[string]struct{})
	s.modified = true
}

// Flush saves the set only when it was modified. It reports whether a write
// happened.
func (s *Set) Flush(ctx context.Context) (bool, error) {
	if !s.modified {
		return false, nil
	}
	if err := s.Save(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Save replaces the file with the current ids.
func (s *Set) Save(ctx context.Context) error {
	if strings.TrimSpace(s.path) == "" {
		return errors.New("ignore list path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create ignore list directory: %w", err)
	}
	unlock, err := lock(ctx, s.path, false)
	if err != nil {
		return err
	}
	defer unlock()

	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	for _, id := range s.ids {
		buf.WriteString(id)
		buf.WriteByte('\n')
	}
	if err := writeFileAtomic(s.path, buf.Bytes(), 0o644); err != nil {
		return err
	}
	s.modified = false
	return nil
}

func (s *Set) insert(id string) {
	if _, ok := s.index[id]; ok {
		return
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)
}

func lock(ctx context.Context, path string, shared bool) (func(), error) {
	lockPath := path + ".lock"
	if shared {
		if _, err := os.Stat(filepath.Dir(path)); errors.Is(err, os.ErrNotExist) {
			return func() {}, nil
		}
	}
	fl := flock.New(lockPath)
	var (
		ok  bool
		err error
	)
	if shared {
		ok, err = fl.TryRLockContext(ctx, lockRetryWait)
	} else {
		ok, err = fl.TryLockContext(ctx, lockRetryWait)
	}
	if err != nil {
		return nil, fmt.Errorf("lock ignore list: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("lock ignore list: %s is held by another process", lockPath)
	}
	return func() { _ = fl.Unlock() }, nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".ignore-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
