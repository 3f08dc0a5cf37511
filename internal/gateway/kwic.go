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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxErrorBody = 4 << 10

// KWICConfig configures the KWIC messaging API client
type KWICConfig struct {
	BaseURL     string
	APIKey      string
	PhoneNumber string
	Timeout     time.Duration
}

// KWICClient sends messages through the KWIC JSON API
type KWICClient struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient *http.Client
}

// NewKWICClient creates a client. The HTTP transport is traced.
func NewKWICClient(cfg KWICConfig) *KWICClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &KWICClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		from:    cfg.PhoneNumber,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type kwicMessage struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	MediaURL string `json:"media_url,omitempty"`
	Filename string `json:"filename,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

// SendText sends a plain text message
func (c *KWICClient) SendText(ctx context.Context, to, body string) error {
	return c.send(ctx, kwicMessage{From: c.from, To: to, Type: "text", Text: body})
}

// SendDocument sends a document by URL
func (c *KWICClient) SendDocument(ctx context.Context, to, url, filename, caption string) error {
	return c.send(ctx, kwicMessage{
		From:     c.from,
		To:       to,
		Type:     "document",
		MediaURL: url,
		Filename: filename,
		Caption:  caption,
	})
}

func (c *KWICClient) send(ctx context.Context, msg kwicMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: encode message: %v", ErrGateway, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: status=%d body=%s", ErrGateway, resp.StatusCode, string(body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
