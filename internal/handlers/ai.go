// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"siteforge/internal/generator"
	"siteforge/internal/markdown"
	"siteforge/internal/models"
	"siteforge/internal/pipeline"
)

// generateRequest is the body of POST /api/ai/generate.
type generateRequest struct {
	Prompt  string            `json:"prompt"`
	Publish bool              `json:"publish,omitempty"`
	Options generator.Options `json:"options"`
}

// generateResponse carries the new site plus the raw generation outcome.
// NotesHTML is the build notes rendered from Markdown for the builder UI.
type generateResponse struct {
	SiteID    string                 `json:"siteId"`
	Site      *models.Site           `json:"site"`
	Content   models.SiteContent     `json:"content"`
	Notes     string                 `json:"notes,omitempty"`
	NotesHTML string                 `json:"notesHtml,omitempty"`
	Model     string                 `json:"model,omitempty"`
	Deploy    *pipelineDeploySummary `json:"deployment,omitempty"`

	// DeployError is set when the site was generated but its initial
	// deployment failed; its value is a stable error code.
	DeployError string `json:"deployError,omitempty"`
}

type pipelineDeploySummary struct {
	DeploymentID string `json:"deploymentId"`
	URL          string `json:"url"`
	Status       string `json:"status"`
}

// Generate creates a complete website from a free-text prompt and stores
// it as a draft site. With "publish": true it also deploys the result;
// a deploy failure still returns the created site alongside the error
// details so the client can retry the deployment alone.
func (a *API) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	owner, err := ownerID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := &generateResponse{}

	if req.Publish {
		site, deploy, err := a.pipeline.GenerateAndPublish(r.Context(), owner, req.Prompt, req.Options)
		if err != nil && site == nil {
			respondError(w, err)
			return
		}
		resp.fill(site)
		if deploy != nil {
			resp.Deploy = &pipelineDeploySummary{
				DeploymentID: deploy.DeploymentID,
				URL:          deploy.URL,
				Status:       string(deploy.Status),
			}
		}
		if err != nil {
			// Generation succeeded, deployment did not. The site is
			// returned so the caller can redeploy it later.
			code, _ := pipeline.Classify(err)
			resp.DeployError = code
			slog.Warn("generate succeeded but publish failed", "site_id", site.ID, "error", err)
		}
		respondJSON(w, http.StatusCreated, resp)
		return
	}

	site, result, err := a.pipeline.Generate(r.Context(), owner, req.Prompt, req.Options)
	if err != nil {
		respondError(w, err)
		return
	}
	resp.fill(site)
	resp.Notes = result.Notes
	resp.Model = result.Model
	if result.Notes != "" {
		html, err := markdown.ToHTML(result.Notes)
		if err != nil {
			slog.Warn("render build notes failed", "error", err)
		} else {
			resp.NotesHTML = html
		}
	}
	respondJSON(w, http.StatusCreated, resp)
}

func (g *generateResponse) fill(site *models.Site) {
	g.SiteID = site.ID.String()
	g.Site = site
	g.Content = site.Content
}

// contentRequest is the body of POST /api/ai/content.
type contentRequest struct {
	Topic   string                   `json:"topic"`
	Options generator.ContentOptions `json:"options"`
}

// GenerateContent produces standalone structured copy (headline, sections,
// SEO metadata) without creating a site. The builder UI uses it to fill
// individual sections of an existing site.
func (a *API) GenerateContent(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	content, err := a.generator.GenerateContent(r.Context(), req.Topic, req.Options)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, content)
}

// AIStatus reports which AI providers are configured and which one is
// active. API keys are never included.
func (a *API) AIStatus(w http.ResponseWriter, r *http.Request) {
	active := a.aiRegistry.ActiveName()

	providers := make([]AIProviderInfo, 0, 4)
	for _, name := range a.aiRegistry.Available() {
		info := AIProviderInfo{Name: name, Active: strings.EqualFold(name, active)}
		if info.Active {
			info.Model = a.aiRegistry.ActiveModel()
		}
		providers = append(providers, info)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"active":    active,
		"providers": providers,
	})
}
