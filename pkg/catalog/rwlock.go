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

import "sync"

// RWLock admits any number of concurrent readers or a single writer.
//
// The first reader to arrive takes the exclusion lock on behalf of every
// reader and the last one to leave releases it. Readers therefore have
// priority: while reads keep overlapping, a waiting writer does not get in.
// sync.RWMutex blocks new readers once a writer waits, which is a different
// policy, so it is not used here.
type RWLock struct {
	countMu sync.Mutex // guards readers
	readers int
	excl    sync.Mutex // held by the reader group or by one writer
}

// BeginRead enters a read section.
func (l *RWLock) BeginRead() {
	l.countMu.Lock()
	l.readers++
	if l.readers == 1 {
		l.excl.Lock()
	}
	l.countMu.Unlock()
}

// EndRead leaves a read section.
func (l *RWLock) EndRead() {
	l.countMu.Lock()
	l.readers--
	if l.readers == 0 {
		l.excl.Unlock()
	}
	l.countMu.Unlock()
}

// BeginWrite enters a write section.
func (l *RWLock) BeginWrite() {
	l.excl.Lock()
}

// EndWrite leaves a write section.
func (l *RWLock) EndWrite() {
	l.excl.Unlock()
}

// Readers returns the number of active readers.
func (l *RWLock) Readers() int {
	l.countMu.Lock()
	defer l.countMu.Unlock()
	return l.readers
}
