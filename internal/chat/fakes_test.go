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

package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/opentrusty/warrantyhub/internal/actor"
	"github.com/opentrusty/warrantyhub/internal/catalog"
	"github.com/opentrusty/warrantyhub/internal/claim"
	"github.com/opentrusty/warrantyhub/internal/gateway"
	"github.com/opentrusty/warrantyhub/internal/warranty"
)

type sentMessage struct {
	to      string
	body    string
	storeID string
}

type recordingMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (m *recordingMessenger) SendText(ctx context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{to: to, body: body, storeID: gateway.StoreFrom(ctx)})
	return m.err
}

func (m *recordingMessenger) SendDocument(ctx context.Context, to, url, filename, caption string) error {
	return m.SendText(ctx, to, caption)
}

func (m *recordingMessenger) last() sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMessage{}
	}
	return m.sent[len(m.sent)-1]
}

func (m *recordingMessenger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type memEventLog struct {
	mu     sync.Mutex
	events []*gateway.Event
	err    error
}

func (l *memEventLog) Record(_ context.Context, ev *gateway.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.events = append(l.events, ev)
	return nil
}

// fakeBackend implements Warranties, Claims and Products over maps.
type fakeBackend struct {
	mu         sync.Mutex
	products   map[string]*catalog.Product // by serial
	warranties map[string]*warranty.Warranty
	claims     map[string]*claim.Claim
	created    []claim.CreateInput
	actors     []actor.Actor
	nextID     int
	failGet    error
	block      bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		products:   map[string]*catalog.Product{},
		warranties: map[string]*warranty.Warranty{},
		claims:     map[string]*claim.Claim{},
	}
}

func (f *fakeBackend) addProduct(p *catalog.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[p.SerialNumber] = p
}

func (f *fakeBackend) addWarranty(w *warranty.Warranty) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warranties[w.ID] = w
}

func (f *fakeBackend) warrantyFor(productID string) *warranty.Warranty {
	for _, w := range f.warranties {
		if w.ProductID == productID {
			return w
		}
	}
	return nil
}

func (f *fakeBackend) RegisterByExternalIdentity(_ context.Context, a actor.Actor, _, serial string, ident catalog.CustomerIdentity) (*warranty.Warranty, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[serial]
	if !ok {
		return nil, fmt.Errorf("%w: %w", warranty.ErrNotFound, catalog.ErrProductNotFound)
	}
	if w := f.warrantyFor(p.ID); w != nil {
		cp := *w
		return &cp, warranty.ErrDuplicateWarranty
	}
	f.nextID++
	w := &warranty.Warranty{
		ID:         fmt.Sprintf("w-%d", f.nextID),
		StoreID:    p.StoreID,
		ProductID:  p.ID,
		CustomerID: "c-" + ident.Phone,
		Start:      fixedNow,
		End:        fixedNow.AddDate(0, 12, 0),
		Status:     warranty.StatusActive,
		CreatedBy:  a.String(),
	}
	f.warranties[w.ID] = w
	cp := *w
	return &cp, nil
}

func (f *fakeBackend) BySerial(ctx context.Context, _, serial string) (*warranty.Warranty, *catalog.Product, error) {
	if f.block {
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[serial]
	if !ok {
		return nil, nil, catalog.ErrProductNotFound
	}
	w := f.warrantyFor(p.ID)
	if w == nil {
		return nil, p, warranty.ErrNotFound
	}
	cp := *w
	return &cp, p, nil
}

func (f *fakeBackend) Get(_ context.Context, tenantID, warrantyID string) (*warranty.Warranty, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.warranties[warrantyID]
	if !ok || (tenantID != "" && w.StoreID != tenantID) {
		return nil, warranty.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (f *fakeBackend) GetProductInternal(_ context.Context, tenantID, productID string) (*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.ID == productID && p.StoreID == tenantID {
			return p, nil
		}
	}
	return nil, catalog.ErrProductNotFound
}

type fakeClaims struct{ *fakeBackend }

func (c fakeClaims) Create(_ context.Context, a actor.Actor, in claim.CreateInput) (*claim.Claim, error) {
	f := c.fakeBackend
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.warranties[in.WarrantyID]
	if !ok {
		return nil, claim.ErrNotFound
	}
	if w.Status != warranty.StatusActive {
		return nil, claim.ErrWarrantyNotActive
	}
	w.Status = warranty.StatusClaimed
	f.nextID++
	cl := &claim.Claim{
		ID:          fmt.Sprintf("0190a000-0000-7000-8000-%012d", f.nextID),
		StoreID:     w.StoreID,
		WarrantyID:  w.ID,
		Type:        in.Type,
		Status:      claim.StatusPending,
		Description: in.Description,
		Timeline:    []claim.TimelineEvent{{Timestamp: fixedNow, Action: in.Action, Actor: a}},
		CreatedBy:   a,
		CreatedAt:   fixedNow,
	}
	f.claims[cl.ID] = cl
	f.created = append(f.created, in)
	f.actors = append(f.actors, a)
	return cl, nil
}

func (c fakeClaims) Get(_ context.Context, _, claimID string) (*claim.Claim, error) {
	f := c.fakeBackend
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return nil, f.failGet
	}
	cl, ok := f.claims[claimID]
	if !ok {
		return nil, claim.ErrNotFound
	}
	return cl, nil
}
