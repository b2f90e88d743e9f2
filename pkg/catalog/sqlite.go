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
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	// registers the sqlite3 database/sql driver
	_ "github.com/mattn/go-sqlite3"

	cerrors "github.com/calory-counter/catalog/pkg/errors"
	"github.com/calory-counter/catalog/pkg/food"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS foods (
	position INTEGER PRIMARY KEY,
	name     TEXT    NOT NULL,
	measure  TEXT    NOT NULL,
	weight   INTEGER NOT NULL DEFAULT -1,
	kcal     INTEGER NOT NULL DEFAULT -1,
	fat      INTEGER NOT NULL DEFAULT -1,
	carbo    INTEGER NOT NULL DEFAULT -1,
	protein  INTEGER NOT NULL DEFAULT -1
);`

// SQLiteStore keeps records in a SQLite database. Row order is the
// catalog order.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, cerrors.WrapWithContext(cerrors.ErrCodeInternal, "failed to create database directory",
				err, map[string]any{"path": path})
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, cerrors.WrapWithContext(cerrors.ErrCodeInternal, "failed to open database",
			err, map[string]any{"path": path})
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, cerrors.WrapWithContext(cerrors.ErrCodeInternal, "failed to initialize schema",
			err, map[string]any{"path": path})
	}

	return &SQLiteStore{db: db, path: path, logger: logger}, nil
}

// Path returns the database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Load implements Store. Rows that no longer validate are logged and
// skipped, like malformed lines in a text catalog.
func (s *SQLiteStore) Load() ([]food.Food, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT name, measure, weight, kcal, fat, carbo, protein FROM foods ORDER BY position`)
	if err != nil {
		return nil, cerrors.WrapWithContext(cerrors.ErrCodeInternal, "failed to query catalog",
			err, map[string]any{"path": s.path})
	}
	defer rows.Close()

	var records []food.Food
	for rows.Next() {
		var f food.Food
		if err := rows.Scan(&f.Name, &f.Measure, &f.Weight, &f.Kcal, &f.Fat, &f.Carbo, &f.Protein); err != nil {
			return nil, cerrors.WrapWithContext(cerrors.ErrCodeInternal, "failed to scan catalog row",
				err, map[string]any{"path": s.path})
		}
		if err := f.Validate(); err != nil {
			s.logger.Warn("skipping invalid catalog row", "path", s.path, "name", f.Name, "error", err)
			continue
		}
		records = append(records, f)
	}
	if err := rows.Err(); err != nil {
		return nil, cerrors.WrapWithContext(cerrors.ErrCodeInternal, "failed to read catalog rows",
			err, map[string]any{"path": s.path})
	}

	s.logger.Info("catalog loaded", "path", s.path, "records", len(records))
	return records, nil
}

// Save implements Store. The table is replaced in one transaction.
func (s *SQLiteStore) Save(records []food.Food) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return cerrors.WrapWithContext(cerrors.ErrCodeInternal, "failed to begin transaction",
			err, map[string]any{"path": s.path})
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`DELETE FROM foods`); err != nil {
		return cerrors.WrapWithContext(cerrors.ErrCodeInternal, "failed to clear catalog",
			err, map[string]any{"path": s.path})
	}

	stmt, err := tx.Prepare(`INSERT INTO foods (position, name, measure, weight, kcal, fat, carbo, protein)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return cerrors.WrapWithContext(cerrors.ErrCodeInternal, "failed to prepare insert",
			err, map[string]any{"path": s.path})
	}
	defer stmt.Close()

	for i, f := range records {
		if _, err = stmt.Exec(i, f.Name, f.Measure, f.Weight, f.Kcal, f.Fat, f.Carbo, f.Protein); err != nil {
			return cerrors.WrapWithContext(cerrors.ErrCodeInternal, "failed to insert record",
				err, map[string]any{"path": s.path, "name": f.Name})
		}
	}

	if err = tx.Commit(); err != nil {
		return cerrors.WrapWithContext(cerrors.ErrCodeInternal, "failed to commit catalog",
			err, map[string]any{"path": s.path})
	}

	s.logger.Info("catalog saved", "path", s.path, "records", len(records))
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// OpenStore picks the store for path by extension: .db, .sqlite and
// .sqlite3 open a SQLite database, anything else a text file. An empty path
// keeps the catalog in memory.
func OpenStore(path string, logger *slog.Logger) (Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case "":
		if path == "" {
			return NewMemoryStore(), nil
		}
		return NewFileStore(path, logger), nil
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteStore(path, logger)
	default:
		return NewFileStore(path, logger), nil
	}
}
