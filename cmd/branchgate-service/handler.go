// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/branchgate/branchgate/lib/gate"
)

// maxBodySize caps inbound payloads. Hook payloads list changed paths
// and stay far below this.
const maxBodySize = 1 << 20

// statusReply is the JSON body answered to webhook events. The hook
// script surfaces message to the committing user on denial.
type statusReply struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// chatReply is the JSON body answered to chat callbacks, in the shape
// the chat platform renders back into the room.
type chatReply struct {
	MsgType string `json:"msgtype"`
	Text    struct {
		Content string `json:"content"`
	} `json:"text"`
}

// gateHandler serves the single gate route: GET is a health probe,
// POST carries either a webhook event or a chat callback.
type gateHandler struct {
	gate   *gate.Gate
	logger *slog.Logger
}

func newGateHandler(commitGate *gate.Gate, logger *slog.Logger) http.Handler {
	return &gateHandler{gate: commitGate, logger: logger}
}

func (h *gateHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	switch request.Method {
	case http.MethodGet:
		h.writeStatus(writer, http.StatusOK, "Success")
	case http.MethodPost:
		h.handlePost(writer, request)
	default:
		h.writeStatus(writer, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *gateHandler) handlePost(writer http.ResponseWriter, request *http.Request) {
	var envelope gate.Envelope
	decoder := json.NewDecoder(http.MaxBytesReader(writer, request.Body, maxBodySize))
	if err := decoder.Decode(&envelope); err != nil {
		h.writeStatus(writer, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	switch envelope.Classify() {
	case gate.KindCommit:
		h.handleCommit(writer, request, &envelope)
	case gate.KindAdmin:
		h.handleAdmin(writer, request, &envelope)
	default:
		h.writeStatus(writer, http.StatusBadRequest, "unrecognized payload shape")
	}
}

// handleCommit answers an allow with 200 and a deny with 403. The
// hook script relays the message to the committing user, so denial
// messages carry the full explanation.
func (h *gateHandler) handleCommit(writer http.ResponseWriter, request *http.Request, envelope *gate.Envelope) {
	decision, err := h.gate.HandleCommit(request.Context(), envelope)
	if err != nil {
		h.logger.Error("commit evaluation failed", "error", err, "actor", envelope.UserName)
		h.writeStatus(writer, http.StatusInternalServerError, "internal error")
		return
	}

	if decision.Allowed {
		h.writeStatus(writer, http.StatusOK, decision.Message())
		return
	}

	h.logger.Info("commit denied",
		"actor", envelope.UserName,
		"paths", len(envelope.Paths),
	)
	h.writeStatus(writer, http.StatusForbidden, decision.Message())
}

// handleAdmin always answers 200 with a chat reply body; command
// problems (bad syntax, unknown branch, missing authority) are
// conversational replies, not HTTP errors. Only a store failure is a
// 500.
func (h *gateHandler) handleAdmin(writer http.ResponseWriter, request *http.Request, envelope *gate.Envelope) {
	reply, err := h.gate.HandleAdmin(request.Context(), envelope)
	if err != nil {
		h.logger.Error("admin command failed", "error", err, "sender", envelope.From.UserID)
		h.writeStatus(writer, http.StatusInternalServerError, "internal error")
		return
	}

	body := chatReply{MsgType: "text"}
	body.Text.Content = reply
	h.writeJSON(writer, http.StatusOK, body)
}

func (h *gateHandler) writeStatus(writer http.ResponseWriter, status int, message string) {
	h.writeJSON(writer, status, statusReply{Status: status, Message: message})
}

func (h *gateHandler) writeJSON(writer http.ResponseWriter, status int, body any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	if err := json.NewEncoder(writer).Encode(body); err != nil {
		h.logger.Debug("writing response failed", "error", err)
	}
}
