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

package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Config holds metrics configuration
type Config struct {
	Enabled bool
}

// Meter wraps OpenTelemetry meter
type Meter struct {
	meter metric.Meter
}

// New creates a new meter instance
func New(ctx context.Context, cfg Config, serviceName string) (*Meter, error) {
	if !cfg.Enabled {
		return &Meter{
			meter: noop.NewMeterProvider().Meter(serviceName),
		}, nil
	}

	// Uses the global provider; exporters are configured through OTEL_* env vars.
	return &Meter{
		meter: otel.Meter(serviceName),
	}, nil
}

// CreateCounter creates a new counter metric
func (m *Meter) CreateCounter(name, description string) (metric.Int64Counter, error) {
	counter, err := m.meter.Int64Counter(
		name,
		metric.WithDescription(description),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return counter, nil
}

// CreateHistogram creates a new histogram metric
func (m *Meter) CreateHistogram(name, description, unit string) (metric.Float64Histogram, error) {
	histogram, err := m.meter.Float64Histogram(
		name,
		metric.WithDescription(description),
		metric.WithUnit(unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	return histogram, nil
}

// Domain groups the business counters recorded by the lifecycle engines and
// the chat engine.
type Domain struct {
	serialAttempts    metric.Int64Counter
	warrantiesCreated metric.Int64Counter
	claimsCreated     metric.Int64Counter
	claimTransitions  metric.Int64Counter
	chatTurns         metric.Int64Counter
	chatTurnDuration  metric.Float64Histogram
}

// NewDomain registers the domain instruments on m.
func NewDomain(m *Meter) (*Domain, error) {
	d := &Domain{}
	var err error
	if d.serialAttempts, err = m.CreateCounter("serial_generation_attempts", "Serial candidates tried, by strategy and outcome"); err != nil {
		return nil, err
	}
	if d.warrantiesCreated, err = m.CreateCounter("warranties_registered", "Warranties registered"); err != nil {
		return nil, err
	}
	if d.claimsCreated, err = m.CreateCounter("claims_created", "Claims created, by type"); err != nil {
		return nil, err
	}
	if d.claimTransitions, err = m.CreateCounter("claim_transitions", "Claim status transitions, by target status"); err != nil {
		return nil, err
	}
	if d.chatTurns, err = m.CreateCounter("chat_turns", "Chat turns processed, by resulting state"); err != nil {
		return nil, err
	}
	if d.chatTurnDuration, err = m.CreateHistogram("chat_turn_duration", "Chat turn processing time", "s"); err != nil {
		return nil, err
	}
	return d, nil
}

// Nop returns domain instruments backed by the no-op provider.
func Nop() *Domain {
	d, _ := NewDomain(&Meter{meter: noop.NewMeterProvider().Meter("nop")})
	return d
}

func (d *Domain) SerialAttempt(ctx context.Context, strategy, outcome string) {
	d.serialAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.String("outcome", outcome),
	))
}

func (d *Domain) WarrantyRegistered(ctx context.Context) {
	d.warrantiesCreated.Add(ctx, 1)
}

func (d *Domain) ClaimCreated(ctx context.Context, claimType string) {
	d.claimsCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("claim_type", claimType)))
}

func (d *Domain) ClaimTransitioned(ctx context.Context, to string) {
	d.claimTransitions.Add(ctx, 1, metric.WithAttributes(attribute.String("to", to)))
}

func (d *Domain) ChatTurn(ctx context.Context, state string, seconds float64) {
	d.chatTurns.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
	d.chatTurnDuration.Record(ctx, seconds)
}
