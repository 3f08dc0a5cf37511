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

package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/opentrusty/warrantyhub/internal/store"
)

// EventQuery selects chat events attributed to one store, optionally for a single phone
type EventQuery struct {
	StoreID string
	Phone   string
	store.PageRequest
}

// EventReader lists chat events newest first, with the total count
type EventReader interface {
	ListEvents(ctx context.Context, q EventQuery) ([]*Event, int, error)
}

// EventPage is one page of chat history
type EventPage struct {
	Events []*Event `json:"events"`
	Total  int      `json:"total"`
	Page   int      `json:"page"`
	Pages  int      `json:"pages"`
}

// ListEvents reads one page of a store's chat history
func ListEvents(ctx context.Context, r EventReader, q EventQuery) (*EventPage, error) {
	q.PageRequest = q.PageRequest.Normalize()
	q.Phone = strings.TrimSpace(q.Phone)
	events, total, err := r.ListEvents(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat events: %w", err)
	}
	if events == nil {
		events = []*Event{}
	}
	return &EventPage{Events: events, Total: total, Page: q.Page, Pages: store.Pages(total, q.Limit)}, nil
}
