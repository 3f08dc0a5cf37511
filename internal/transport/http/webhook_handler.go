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

package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/opentrusty/warrantyhub/internal/chat"
	"github.com/opentrusty/warrantyhub/internal/observability/logger"
)

const headerSignature = "X-Hub-Signature-256"

// ChatWebhookRequest is one inbound chat message
type ChatWebhookRequest struct {
	From    string             `json:"from"`
	Message ChatWebhookMessage `json:"message"`
}

// ChatWebhookMessage is the message part of the webhook payload
type ChatWebhookMessage struct {
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
}

// VerifyWebhook answers the subscription handshake
// @Summary Verify chat webhook
// @Tags Webhooks
// @Produce plain
// @Param hub.mode query string true "subscribe"
// @Param hub.verify_token query string true "Verify token"
// @Param hub.challenge query string true "Challenge"
// @Success 200 {string} string
// @Failure 403 {object} map[string]string
// @Router /webhooks/chat [get]
func (h *Handler) VerifyWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	token := q.Get("hub.verify_token")
	if q.Get("hub.mode") != "subscribe" || h.webhook.VerifyToken == "" ||
		!hmac.Equal([]byte(token), []byte(h.webhook.VerifyToken)) {
		h.security.WebhookRejected(r.Context(), getIPAddress(r), "verify token mismatch")
		respondError(w, http.StatusForbidden, "verification failed")
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, q.Get("hub.challenge"))
}

// ChatWebhook receives inbound chat messages and runs one conversation turn
// @Summary Chat webhook
// @Description Logs the inbound message, advances the sender's conversation and sends the reply
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param X-Hub-Signature-256 header string false "sha256=<hex hmac of body>"
// @Param request body ChatWebhookRequest true "Message"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /webhooks/chat [post]
func (h *Handler) ChatWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if h.webhook.Secret != "" && !validSignature(h.webhook.Secret, r.Header.Get(headerSignature), body) {
		h.security.WebhookRejected(r.Context(), getIPAddress(r), "invalid signature")
		respondError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var req ChatWebhookRequest
	var raw map[string]any
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	_ = json.Unmarshal(body, &raw)

	msg := chat.Message{
		From: req.From,
		Type: req.Message.Type,
		Raw:  raw,
	}
	if req.Message.Text != nil {
		msg.Text = req.Message.Text.Body
	}

	if err := h.chatEngine.HandleIncoming(r.Context(), msg); err != nil {
		if errors.Is(err, chat.ErrInvalidMessage) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "failed to process chat message", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// validSignature checks header against "sha256=" + hex(HMAC-SHA256(secret, body))
func validSignature(secret, header string, body []byte) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
