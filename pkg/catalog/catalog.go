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
	"log/slog"
	"slices"
	"strings"

	cerrors "github.com/calory-counter/catalog/pkg/errors"
	"github.com/calory-counter/catalog/pkg/food"
)

// Catalog is the shared, append-only collection of food records.
// It is safe for concurrent use.
type Catalog struct {
	lock    RWLock
	records []food.Food
	store   Store
	logger  *slog.Logger
}

// New returns an empty catalog backed by store. A nil store keeps the
// records in memory only.
func New(store Store, logger *slog.Logger) *Catalog {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		store:  store,
		logger: logger,
	}
}

// Load appends every record of the backing store in stored order.
func (c *Catalog) Load() error {
	records, err := c.store.Load()
	if err != nil {
		return err
	}

	c.lock.BeginWrite()
	defer c.lock.EndWrite()
	c.records = append(c.records, records...)
	return nil
}

// Search returns copies of every record whose name matches query, in
// catalog order. A name matches when it starts with query, ignoring case,
// and the match ends at the end of the name or at a comma, or the query
// itself ends with a comma. "Milk" thus matches "Milk,Whole,3.3% Fat" but
// not "Milk Chocolate".
func (c *Catalog) Search(query string) []food.Food {
	if query == "" {
		return []food.Food{}
	}

	c.lock.BeginRead()
	defer c.lock.EndRead()

	matches := []food.Food{}
	for _, r := range c.records {
		if Matches(r.Name, query) {
			matches = append(matches, r)
		}
	}
	return matches
}

// Matches reports whether name satisfies the search rule for query.
func Matches(name, query string) bool {
	n := len(query)
	if n == 0 || len(name) < n {
		return false
	}
	if !strings.EqualFold(name[:n], query) {
		return false
	}
	return len(name) == n || name[n] == ',' || query[n-1] == ','
}

// Append adds record at the end of the catalog. Duplicates are kept.
func (c *Catalog) Append(record food.Food) {
	c.lock.BeginWrite()
	defer c.lock.EndWrite()
	c.records = append(c.records, record)
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	c.lock.BeginRead()
	defer c.lock.EndRead()
	return len(c.records)
}

// Snapshot returns a copy of all records in catalog order.
func (c *Catalog) Snapshot() []food.Food {
	c.lock.BeginRead()
	defer c.lock.EndRead()
	return slices.Clone(c.records)
}

// Persist writes every record to the backing store sorted by name, ignoring
// case. The in-memory order is not changed.
func (c *Catalog) Persist() error {
	c.lock.BeginWrite()
	defer c.lock.EndWrite()

	sorted := slices.Clone(c.records)
	food.SortByName(sorted)

	if err := c.store.Save(sorted); err != nil {
		c.logger.Error("failed to persist catalog", "records", len(sorted), "error", err)
		return cerrors.Wrap(cerrors.ErrCodeInternal, "persist catalog", err)
	}
	return nil
}
