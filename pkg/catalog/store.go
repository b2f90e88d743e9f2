// Copyright (c) 2025, The calory-counter Authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	cerrors "github.com/calory-counter/catalog/pkg/errors"
	"github.com/calory-counter/catalog/pkg/food"
)

// Store is the backing store a Catalog loads from and persists to.
type Store interface {
	// Load returns every stored record in stored order.
	Load() ([]food.Food, error)
	// Save replaces the stored contents with records.
	Save(records []food.Food) error
}

const (
	commentPrefix = "#"
	maxLineLength = 4096
)

// FileStore keeps records in a text file, one serialized record per line.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads every record from the file. Blank lines and lines starting with
// '#' are ignored; malformed lines are logged and skipped. A missing file
// yields an empty catalog.
func (s *FileStore) Load() ([]food.Food, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("catalog file not found, starting empty", "path", s.path)
			return nil, nil
		}
		return nil, cerrors.WrapWithContext(cerrors.ErrCodeUnavailable, "failed to open catalog file",
			err, map[string]any{"path": s.path})
	}
	defer f.Close()

	var records []food.Food
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, maxLineLength), maxLineLength*4)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, commentPrefix) {
			continue
		}
		rec, err := food.Deserialize(text)
		if err != nil {
			s.logger.Warn("skipping malformed catalog line",
				"path", s.path,
				"line", line,
				"error", err)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, cerrors.WrapWithContext(cerrors.ErrCodeInternal, "failed to read catalog file",
			err, map[string]any{"path": s.path, "line": line})
	}

	s.logger.Info("catalog loaded", "path", s.path, "records", len(records))
	return records, nil
}

// Save rewrites the file with records. The new contents are written to a
// temporary file in the same directory and renamed over the old file.
func (s *FileStore) Save(records []food.Food) (err error) {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return cerrors.WrapWithContext(cerrors.ErrCodeUnavailable, "failed to create catalog file",
			err, map[string]any{"path": s.path})
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	for _, r := range records {
		if _, err = fmt.Fprintln(w, r.Serialize()); err != nil {
			tmp.Close()
			return cerrors.Wrap(cerrors.ErrCodeInternal, "failed to write catalog file", err)
		}
	}
	if err = w.Flush(); err != nil {
		tmp.Close()
		return cerrors.Wrap(cerrors.ErrCodeInternal, "failed to flush catalog file", err)
	}
	if err = tmp.Close(); err != nil {
		return cerrors.Wrap(cerrors.ErrCodeInternal, "failed to close catalog file", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return cerrors.Wrap(cerrors.ErrCodeInternal, "failed to set catalog file mode", err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return cerrors.WrapWithContext(cerrors.ErrCodeInternal, "failed to replace catalog file",
			err, map[string]any{"path": s.path})
	}

	s.logger.Info("catalog saved", "path", s.path, "records", len(records))
	return nil
}

// MemoryStore keeps records in memory. It is used when no file is configured.
type MemoryStore struct {
	mu      sync.Mutex
	records []food.Food
	saves   int
}

// NewMemoryStore returns a store preloaded with records.
func NewMemoryStore(records ...food.Food) *MemoryStore {
	return &MemoryStore{records: append([]food.Food(nil), records...)}
}

// Load implements Store.
func (s *MemoryStore) Load() ([]food.Food, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]food.Food(nil), s.records...), nil
}

// Save implements Store.
func (s *MemoryStore) Save(records []food.Food) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append([]food.Food(nil), records...)
	s.saves++
	return nil
}

// Saves returns how many times Save was called.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
