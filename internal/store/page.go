// Copyright 2026 The OpenTrusty Authors
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

package store

// Listing bounds
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// PageRequest selects one 1-based page of a newest-first listing
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize clamps the request into a valid page
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	switch {
	case p.Limit <= 0:
		p.Limit = DefaultPageLimit
	case p.Limit > MaxPageLimit:
		p.Limit = MaxPageLimit
	}
	return p
}

// Offset is the number of rows before the page. Call on a normalized request.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Window returns the [lo, hi) slice bounds of the page within total rows
func (p PageRequest) Window(total int) (lo, hi int) {
	lo = min(p.Offset(), total)
	hi = min(lo+p.Limit, total)
	return lo, hi
}

// Pages is the number of pages needed for total rows
func Pages(total, limit int) int {
	if total == 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
