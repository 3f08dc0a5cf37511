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
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/opentrusty/warrantyhub/internal/actor"
	"github.com/opentrusty/warrantyhub/internal/catalog"
	"github.com/opentrusty/warrantyhub/internal/claim"
	"github.com/opentrusty/warrantyhub/internal/gateway"
	"github.com/opentrusty/warrantyhub/internal/id"
	"github.com/opentrusty/warrantyhub/internal/observability/logger"
	"github.com/opentrusty/warrantyhub/internal/observability/metrics"
	"github.com/opentrusty/warrantyhub/internal/observability/tracing"
	"github.com/opentrusty/warrantyhub/internal/session"
	"github.com/opentrusty/warrantyhub/internal/warranty"
)

// DefaultTurnTimeout bounds one conversation turn
const DefaultTurnTimeout = 15 * time.Second

// Warranties is the warranty surface the engine needs
type Warranties interface {
	RegisterByExternalIdentity(ctx context.Context, a actor.Actor, scope, serial string, ident catalog.CustomerIdentity) (*warranty.Warranty, error)
	BySerial(ctx context.Context, scope, serial string) (*warranty.Warranty, *catalog.Product, error)
	Get(ctx context.Context, tenantID, warrantyID string) (*warranty.Warranty, error)
}

// Claims is the claim surface the engine needs
type Claims interface {
	Create(ctx context.Context, a actor.Actor, in claim.CreateInput) (*claim.Claim, error)
	Get(ctx context.Context, tenantID, claimID string) (*claim.Claim, error)
}

// Products resolves the product behind a warranty
type Products interface {
	GetProductInternal(ctx context.Context, tenantID, productID string) (*catalog.Product, error)
}

// Message is one inbound chat message
type Message struct {
	From string
	Type string
	Text string
	Raw  map[string]any
}

// Options tunes an Engine. Zero values pick defaults.
type Options struct {
	TurnTimeout time.Duration
	Tracer      *tracing.Tracer
	Metrics     *metrics.Domain
}

// Engine runs the per-phone conversation state machine
type Engine struct {
	sessions    session.Store
	messenger   gateway.Messenger
	events      gateway.EventLog
	warranties  Warranties
	claims      Claims
	products    Products
	locks       *keyedMutex
	turnTimeout time.Duration
	tracer      *tracing.Tracer
	metrics     *metrics.Domain
	now         func() time.Time
}

// NewEngine creates a chat engine. Replies go through messenger; the
// caller is expected to wrap it with gateway.NewLogged.
func NewEngine(sessions session.Store, messenger gateway.Messenger, events gateway.EventLog,
	warranties Warranties, claims Claims, products Products, opts Options) *Engine {
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = DefaultTurnTimeout
	}
	if opts.Tracer == nil {
		opts.Tracer = tracing.Noop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop()
	}
	return &Engine{
		sessions:    sessions,
		messenger:   messenger,
		events:      events,
		warranties:  warranties,
		claims:      claims,
		products:    products,
		locks:       newKeyedMutex(),
		turnTimeout: opts.TurnTimeout,
		tracer:      opts.Tracer,
		metrics:     opts.Metrics,
		now:         time.Now,
	}
}

// turn is the outcome of one step of the state machine
type turn struct {
	reply   string
	storeID string
}

// HandleIncoming logs msg, advances the sender's conversation and sends
// the reply. It fails only when the incoming message could not be logged;
// turn and delivery failures are handled here.
func (e *Engine) HandleIncoming(ctx context.Context, msg Message) error {
	phone := strings.TrimSpace(msg.From)
	if phone == "" {
		return fmt.Errorf("%w: sender is required", ErrInvalidMessage)
	}
	text := strings.TrimSpace(msg.Text)

	in := &gateway.Event{
		ID:        id.NewUUIDv7(),
		Phone:     phone,
		Direction: gateway.DirectionIncoming,
		Content:   text,
		EventType: gateway.EventMessageReceived,
		Metadata:  msg.Raw,
		CreatedAt: e.now(),
	}
	if err := e.events.Record(ctx, in); err != nil {
		return fmt.Errorf("failed to record incoming message: %w", err)
	}

	unlock := e.locks.Lock(phone)
	defer unlock()

	started := e.now()
	ctx, span := e.tracer.Start(ctx, "chat.turn")
	defer span.End()

	sess := e.load(ctx, phone)
	from := sess.State
	span.SetAttributes(attribute.String("chat.state.from", from))

	turnCtx, cancel := context.WithTimeout(ctx, e.turnTimeout)
	t, err := e.step(turnCtx, sess, text)
	if err == nil {
		err = turnCtx.Err()
	}
	cancel()

	if err != nil {
		tracing.Fail(span, err, "turn failed")
		slog.ErrorContext(ctx, "chat turn failed",
			logger.Phone(phone), logger.ChatState(from), logger.Error(err))
		sess.State = string(StateIdle)
		sess.Data = map[string]string{}
		t = turn{reply: msgSomethingWrong, storeID: t.storeID}
	}

	if err := e.sessions.Put(ctx, sess); err != nil {
		slog.ErrorContext(ctx, "failed to save chat session", logger.Phone(phone), logger.Error(err))
	}
	span.SetAttributes(attribute.String("chat.state.to", sess.State))

	sendCtx := ctx
	if t.storeID != "" {
		sendCtx = gateway.WithStore(ctx, t.storeID)
	}
	if err := e.messenger.SendText(sendCtx, phone, t.reply); err != nil {
		slog.WarnContext(ctx, "failed to send chat reply", logger.Phone(phone), logger.Error(err))
	}

	e.metrics.ChatTurn(ctx, from, e.now().Sub(started).Seconds())
	slog.DebugContext(ctx, "chat turn completed",
		logger.Phone(phone), logger.ChatState(sess.State), logger.String("from_state", from))
	return nil
}

func (e *Engine) load(ctx context.Context, phone string) *session.Session {
	sess, err := e.sessions.Get(ctx, phone)
	if err == nil {
		if sess.Data == nil {
			sess.Data = map[string]string{}
		}
		return sess
	}
	if !errors.Is(err, session.ErrSessionNotFound) {
		slog.WarnContext(ctx, "failed to load chat session, starting over", logger.Phone(phone), logger.Error(err))
	}
	return &session.Session{Phone: phone, State: string(StateIdle), Data: map[string]string{}}
}

// step advances sess by one message. Errors are unexpected failures only;
// expected outcomes such as an unknown serial are replies.
func (e *Engine) step(ctx context.Context, sess *session.Session, text string) (turn, error) {
	if isGreeting(text) {
		sess.State = string(StateMenu)
		sess.Data = map[string]string{}
		return turn{reply: msgMenu}, nil
	}
	if text == "" {
		return turn{reply: msgHelp}, nil
	}

	switch State(sess.State) {
	case StateMenu:
		opt, ok := menuOptions[text]
		if !ok {
			return turn{reply: msgInvalidOption}, nil
		}
		sess.State = string(opt.state)
		return turn{reply: opt.prompt}, nil

	case StateRegisterWarrantySerial:
		sess.State = string(StateIdle)
		return e.registerWarranty(ctx, sess.Phone, catalog.NormalizeSerial(text))

	case StateCheckWarrantySerial:
		sess.State = string(StateIdle)
		return e.checkWarranty(ctx, catalog.NormalizeSerial(text))

	case StateCreateClaimSerial:
		return e.claimSerial(ctx, sess, catalog.NormalizeSerial(text))

	case StateCreateClaimDescription:
		return e.claimDescription(ctx, sess, text)

	case StateCheckClaimID:
		sess.State = string(StateIdle)
		return e.checkClaim(ctx, strings.ToLower(text))
	}
	return turn{reply: msgHelp}, nil
}

func (e *Engine) registerWarranty(ctx context.Context, phone, serial string) (turn, error) {
	ident := catalog.CustomerIdentity{Phone: phone}
	w, err := e.warranties.RegisterByExternalIdentity(ctx, actor.ChatIdentity(phone), "", serial, ident)
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		return turn{reply: msgProductNotFound}, nil
	case errors.Is(err, warranty.ErrDuplicateWarranty) && w != nil:
		summary, err := e.summary(ctx, w)
		if err != nil {
			return turn{storeID: w.StoreID}, err
		}
		return turn{reply: "This product already has a registered warranty.\n\n" + summary, storeID: w.StoreID}, nil
	case err != nil:
		return turn{}, err
	}
	summary, err := e.summary(ctx, w)
	if err != nil {
		return turn{storeID: w.StoreID}, err
	}
	return turn{reply: "Warranty registered successfully!\n\n" + summary, storeID: w.StoreID}, nil
}

func (e *Engine) summary(ctx context.Context, w *warranty.Warranty) (string, error) {
	p, err := e.products.GetProductInternal(ctx, w.StoreID, w.ProductID)
	if err != nil {
		return "", err
	}
	return warrantySummary(w, p, e.now()), nil
}

func (e *Engine) checkWarranty(ctx context.Context, serial string) (turn, error) {
	w, p, err := e.warranties.BySerial(ctx, "", serial)
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		return turn{reply: msgProductNotFound}, nil
	case errors.Is(err, warranty.ErrNotFound) && p != nil:
		return turn{reply: productWithoutWarranty(p), storeID: p.StoreID}, nil
	case err != nil:
		return turn{}, err
	}
	return turn{reply: warrantySummary(w, p, e.now()), storeID: w.StoreID}, nil
}

func (e *Engine) claimSerial(ctx context.Context, sess *session.Session, serial string) (turn, error) {
	sess.State = string(StateIdle)
	w, p, err := e.warranties.BySerial(ctx, "", serial)
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		return turn{reply: msgProductNotFound}, nil
	case errors.Is(err, warranty.ErrNotFound) && p != nil:
		return turn{reply: msgNoWarrantyForClaim, storeID: p.StoreID}, nil
	case err != nil:
		return turn{}, err
	}
	if w.Status != warranty.StatusActive {
		return turn{reply: warrantyNotClaimable(w), storeID: w.StoreID}, nil
	}

	sess.State = string(StateCreateClaimDescription)
	sess.Data = map[string]string{dataWarrantyID: w.ID, dataStoreID: w.StoreID}
	return turn{reply: askDescription(p), storeID: w.StoreID}, nil
}

func (e *Engine) claimDescription(ctx context.Context, sess *session.Session, description string) (turn, error) {
	warrantyID := sess.Data[dataWarrantyID]
	storeID := sess.Data[dataStoreID]
	sess.State = string(StateIdle)
	sess.Data = map[string]string{}
	if warrantyID == "" {
		return turn{reply: msgClaimRestart}, nil
	}

	c, err := e.claims.Create(ctx, actor.ChatIdentity(sess.Phone), claim.CreateInput{
		TenantID:    storeID,
		WarrantyID:  warrantyID,
		Type:        claim.TypeRepair,
		Description: description,
		Action:      claim.ActionCreatedViaChat,
	})
	if errors.Is(err, claim.ErrWarrantyNotActive) {
		return turn{reply: "This warranty is no longer active, so a new claim cannot be created.", storeID: storeID}, nil
	}
	if err != nil {
		return turn{storeID: storeID}, err
	}
	return turn{reply: claimCreated(c), storeID: c.StoreID}, nil
}

func (e *Engine) checkClaim(ctx context.Context, claimID string) (turn, error) {
	c, err := e.claims.Get(ctx, "", claimID)
	if errors.Is(err, claim.ErrNotFound) {
		return turn{reply: msgClaimNotFound}, nil
	}
	if err != nil {
		return turn{}, err
	}
	w, err := e.warranties.Get(ctx, c.StoreID, c.WarrantyID)
	if err != nil {
		return turn{storeID: c.StoreID}, err
	}
	p, err := e.products.GetProductInternal(ctx, c.StoreID, w.ProductID)
	if err != nil {
		return turn{storeID: c.StoreID}, err
	}
	return turn{reply: claimStatus(c, p), storeID: c.StoreID}, nil
}
