// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"siteforge/internal/models"
	"siteforge/internal/store"
)

// Validation limits for site edits.
const (
	maxNameLen    = 200
	maxDescLen    = 1_000
	maxContentLen = 1_000_000
)

// SitesList returns all sites owned by the authenticated user.
func (a *API) SitesList(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	sites, err := a.sites.ListByOwner(owner)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"sites": sites})
}

// SiteGet returns a single site by id.
func (a *API) SiteGet(w http.ResponseWriter, r *http.Request) {
	site, err := a.ownedSite(r)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, site)
}

// siteUpdateRequest is the body of PUT /api/sites/{id}. Omitted fields
// keep their current value. The slug is fixed at creation and cannot be
// edited.
type siteUpdateRequest struct {
	Name        *string              `json:"name,omitempty"`
	Description *string              `json:"description,omitempty"`
	Content     *models.SiteContent  `json:"content,omitempty"`
	Settings    *models.SiteSettings `json:"settings,omitempty"`
}

// SiteUpdate edits a site's name, description, content or settings. A
// content edit appends the new content to the version history after the
// update is applied, keeping the history append-only.
func (a *API) SiteUpdate(w http.ResponseWriter, r *http.Request) {
	site, err := a.ownedSite(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req siteUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			respondBadRequest(w, "name cannot be empty")
			return
		}
		if utf8.RuneCountInString(name) > maxNameLen {
			respondBadRequest(w, "name is too long (max 200 characters)")
			return
		}
		site.Name = name
	}
	if req.Description != nil {
		if utf8.RuneCountInString(*req.Description) > maxDescLen {
			respondBadRequest(w, "description is too long (max 1,000 characters)")
			return
		}
		site.Description = *req.Description
	}

	contentChanged := false
	if req.Content != nil {
		if len(req.Content.HTML)+len(req.Content.CSS)+len(req.Content.JS) > maxContentLen {
			respondBadRequest(w, "content is too large")
			return
		}
		site.Content = *req.Content
		contentChanged = true
	}
	if req.Settings != nil {
		site.Settings = *req.Settings
	}

	if err := a.sites.Update(site); err != nil {
		respondError(w, err)
		return
	}
	if contentChanged {
		if _, err := a.sites.AppendVersion(site.ID, site.Content, "manual edit"); err != nil {
			respondError(w, err)
			return
		}
	}

	updated, err := a.sites.FindByID(site.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// SiteVersions lists a site's version history, newest first.
func (a *API) SiteVersions(w http.ResponseWriter, r *http.Request) {
	site, err := a.ownedSite(r)
	if err != nil {
		respondError(w, err)
		return
	}

	versions, err := a.sites.ListVersions(site.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

// SiteRestore copies version {n}'s content into the current site and
// appends a new version recording the restore. History is never rewound.
func (a *API) SiteRestore(w http.ResponseWriter, r *http.Request) {
	site, err := a.ownedSite(r)
	if err != nil {
		respondError(w, err)
		return
	}

	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 1 {
		respondBadRequest(w, "invalid version number")
		return
	}

	version, err := a.sites.RestoreVersion(site.ID, n)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, version)
}

// SiteView records one page view. Deployed sites call this endpoint from
// a beacon embedded in the generated page, so it is unauthenticated and
// deliberately quiet: unknown ids return 404 with no body details.
func (a *API) SiteView(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondBadRequest(w, "invalid site id")
		return
	}

	site, err := a.sites.IncrementView(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"views": site.Stats.Views})
}

// SiteArchive archives a site, removing it from active lists while
// preserving its record and history.
func (a *API) SiteArchive(w http.ResponseWriter, r *http.Request) {
	site, err := a.ownedSite(r)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := a.sites.Archive(site.ID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(models.SiteStatusArchived)})
}

// ownedSite loads the site from the {id} route parameter and verifies the
// authenticated user owns it. Sites owned by someone else report not
// found rather than forbidden, to avoid leaking their existence.
func (a *API) ownedSite(r *http.Request) (*models.Site, error) {
	owner, err := ownerID(r)
	if err != nil {
		return nil, err
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		return nil, store.ErrNotFound
	}

	site, err := a.sites.FindByID(id)
	if err != nil {
		return nil, err
	}
	if site.OwnerID != owner {
		return nil, store.ErrNotFound
	}
	return site, nil
}
