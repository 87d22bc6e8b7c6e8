// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"siteforge/internal/hosting"
)

// deployRequest is the body of POST /api/vercel/deploy/{siteID}. Both
// fields are optional: the project name defaults to the site slug (or a
// previously recorded project), and the domain is only attached when set.
type deployRequest struct {
	ProjectName string `json:"projectName,omitempty"`
	Domain      string `json:"domain,omitempty"`
}

// Deploy assembles the site's bundle, uploads it to the hosting platform
// and waits for the deployment to settle. The response reflects the final
// state; a build failure or timeout is reported through the error envelope
// after the site record has been updated.
func (a *API) Deploy(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathUUID(r, "siteID")
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	var req deployRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondBadRequest(w, err.Error())
			return
		}
	}

	result, err := a.pipeline.Deploy(r.Context(), siteID, req.ProjectName, req.Domain)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Redeploy re-runs the deployment for a site using its recorded project.
func (a *API) Redeploy(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathUUID(r, "siteID")
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	result, err := a.pipeline.Redeploy(r.Context(), siteID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// DeploymentStatus queries the platform for a deployment's current state.
// The owning site's record is updated with the observed status as a side
// effect, so repeated polling keeps the database in sync.
func (a *API) DeploymentStatus(w http.ResponseWriter, r *http.Request) {
	deploymentID := chi.URLParam(r, "deploymentID")
	if deploymentID == "" {
		respondBadRequest(w, "missing deployment id")
		return
	}

	deployment, err := a.pipeline.Status(r.Context(), deploymentID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":         deployment.ID,
		"url":        deployment.URL,
		"readyState": deployment.ReadyState,
		"status":     string(hosting.StatusFromReadyState(deployment.ReadyState)),
	})
}

// DeploymentDelete removes a deployment from the platform and archives
// the owning site. The site record and its version history survive.
func (a *API) DeploymentDelete(w http.ResponseWriter, r *http.Request) {
	deploymentID := chi.URLParam(r, "deploymentID")
	if deploymentID == "" {
		respondBadRequest(w, "missing deployment id")
		return
	}

	if err := a.pipeline.Remove(r.Context(), deploymentID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// domainRequest is the body of POST /api/vercel/domain/{siteID}.
type domainRequest struct {
	Domain string `json:"domain"`
}

// AttachDomain registers a custom domain with the site's hosting project
// and records it on the site.
func (a *API) AttachDomain(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathUUID(r, "siteID")
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	var req domainRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	req.Domain = strings.TrimSpace(req.Domain)
	if req.Domain == "" {
		respondBadRequest(w, "domain is required")
		return
	}

	if err := a.pipeline.AttachDomain(r.Context(), siteID, req.Domain); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"domain": req.Domain})
}

// CancelDeployment marks a site's in-flight deployment as canceled.
func (a *API) CancelDeployment(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathUUID(r, "siteID")
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	if err := a.pipeline.Cancel(r.Context(), siteID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "canceled"})
}
