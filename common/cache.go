// Copyright 2026 The streamlet Authors
// This file is part of the streamlet library.
//
// The streamlet library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The streamlet library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the streamlet library. If not, see <http://www.gnu.org/licenses/>.

package common

import (
	lru "github.com/hashicorp/golang-lru"
)

// HashSet is an ARC-backed bounded set of Hash, used as the broadcast
// dedup window. A thin wrapper over hashicorp/golang-lru, narrowed to
// the one key type this repository actually needs.
type HashSet struct {
	arc *lru.ARCCache
}

// NewHashSet builds a HashSet capped at size distinct entries.
func NewHashSet(size int) *HashSet {
	arc, err := lru.NewARC(size)
	if err != nil {
		// size <= 0 is a programmer error, not a runtime condition.
		panic(err)
	}
	return &HashSet{arc: arc}
}

// Add records h as seen. It reports whether h was newly added (i.e. the
// caller should act on it) versus already present (i.e. a duplicate).
func (s *HashSet) Add(h Hash) (isNew bool) {
	if s.arc.Contains(h) {
		return false
	}
	s.arc.Add(h, struct{}{})
	return true
}

// Contains reports whether h has been recorded.
func (s *HashSet) Contains(h Hash) bool {
	return s.arc.Contains(h)
}
