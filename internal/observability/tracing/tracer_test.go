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

package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestPurpose: Validates span recording and failure marking through the tracer wrapper.
// Scope: Unit Test
// Expected: Failed spans carry an error status and an exception event.
// Test Case ID: TRC-01
func TestTracer_Fail(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tr := FromProvider(tp, "warrantyhub-test")
	defer func() { _ = tr.Shutdown(context.Background()) }()

	_, ok := tr.Start(context.Background(), "chat.turn")
	ok.End()
	_, failed := tr.Start(context.Background(), "chat.turn")
	Fail(failed, errors.New("session store down"), "turn failed")
	failed.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "turn failed", spans[1].Status().Description)
	require.Len(t, spans[1].Events(), 1)
	assert.Equal(t, "exception", spans[1].Events()[0].Name)
}

func TestNew_Disabled(t *testing.T) {
	tr, err := New(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, tr.provider)
	assert.NoError(t, tr.Shutdown(context.Background()))
	assert.Equal(t, 1.0, clampRate(0))
	assert.Equal(t, 0.25, clampRate(0.25))
	assert.Equal(t, 1.0, clampRate(3))
}
