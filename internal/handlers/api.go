// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the JSON HTTP handlers for the SiteForge API.
// Handlers are grouped by concern (AI, deployments, sites) and receive
// their dependencies through the API struct.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"siteforge/internal/ai"
	"siteforge/internal/generator"
	"siteforge/internal/middleware"
	"siteforge/internal/pipeline"
	"siteforge/internal/store"
)

// maxBodyBytes caps request bodies. Generated content is large but a
// whole site edit still fits comfortably under a megabyte.
const maxBodyBytes = 2 << 20

// AIProviderInfo holds display information about a configured AI provider.
// Returned by the provider status endpoint.
type AIProviderInfo struct {
	Name   string `json:"name"`
	Model  string `json:"model,omitempty"`
	Active bool   `json:"active"`
}

// API groups all HTTP handlers and their dependencies.
type API struct {
	sites      *store.SiteStore
	pipeline   *pipeline.Orchestrator
	generator  *generator.Client
	aiRegistry *ai.Registry
}

// NewAPI creates the handler group with the given dependencies.
func NewAPI(sites *store.SiteStore, orch *pipeline.Orchestrator, gen *generator.Client, registry *ai.Registry) *API {
	return &API{
		sites:      sites,
		pipeline:   orch,
		generator:  gen,
		aiRegistry: registry,
	}
}

// respondJSON writes v as a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

// errorBody is the uniform error envelope for every non-2xx response.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// respondError classifies err into a stable code and HTTP status and
// writes the error envelope. Internal errors are logged but their
// message is not leaked to the client.
func respondError(w http.ResponseWriter, err error) {
	code, status := pipeline.Classify(err)

	var body errorBody
	body.Error.Code = code
	body.Error.Message = err.Error()
	if code == pipeline.CodeInternal {
		slog.Error("request failed", "error", err)
		body.Error.Message = "internal error"
	}
	respondJSON(w, status, body)
}

// respondBadRequest writes a validation error envelope, bypassing
// classification.
func respondBadRequest(w http.ResponseWriter, message string) {
	var body errorBody
	body.Error.Code = pipeline.CodeValidation
	body.Error.Message = message
	respondJSON(w, http.StatusBadRequest, body)
}

// decodeJSON reads the request body into dst, enforcing the size cap.
func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return errors.New("empty request body")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ownerID resolves the authenticated user's id from the session. Routes
// calling this sit behind RequireAuth, so a missing or malformed session
// indicates a middleware wiring bug rather than a client error.
func ownerID(r *http.Request) (uuid.UUID, error) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		return uuid.Nil, errors.New("no session in context")
	}
	if sess.UserID == uuid.Nil {
		return uuid.Nil, errors.New("session has no user id")
	}
	return sess.UserID, nil
}

// pathUUID parses a UUID route parameter.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return id, nil
}
