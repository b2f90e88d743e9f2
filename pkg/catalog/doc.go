// Package catalog holds the shared in-memory list of food records served by
// the catalog server.
//
// Records are only ever appended. Reads (Search, Len, Snapshot) may overlap
// each other but never a write (Append, Load, Persist); this is enforced by
// RWLock, a reader-priority lock. Under a steady stream of overlapping
// searches a writer can wait indefinitely.
//
// Persist sorts a copy of the records by name, ignoring case, and hands it
// to the Store. FileStore writes one serialized record per line and skips
// '#' comment lines when loading.
package catalog
