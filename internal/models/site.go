// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// SiteStatus represents the lifecycle state of a site.
type SiteStatus string

const (
	SiteStatusDraft     SiteStatus = "draft"
	SiteStatusPublished SiteStatus = "published"
	SiteStatusArchived  SiteStatus = "archived"
	SiteStatusSuspended SiteStatus = "suspended"
)

// Deployable reports whether a site in this status may be deployed.
// Only draft and published sites can be pushed to the hosting platform.
func (s SiteStatus) Deployable() bool {
	return s == SiteStatusDraft || s == SiteStatusPublished
}

// SiteContent holds the three editable code blobs of a site. They are
// replaced wholesale on every edit or AI regeneration.
type SiteContent struct {
	HTML string `json:"html"`
	CSS  string `json:"css"`
	JS   string `json:"js"`
}

// ThemeSettings controls the visual defaults applied to a generated site.
type ThemeSettings struct {
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	FontFamily     string `json:"font_family"`
	DarkMode       bool   `json:"dark_mode"`
}

// SEOSettings holds the search metadata embedded into the deployed page.
type SEOSettings struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	OGImage     string   `json:"og_image,omitempty"`
}

// AnalyticsSettings carries optional third-party tracking identifiers.
// Snippets are only emitted into the bundle when the identifier is set.
type AnalyticsSettings struct {
	GoogleAnalyticsID string `json:"google_analytics_id,omitempty"`
	FacebookPixelID   string `json:"facebook_pixel_id,omitempty"`
}

// SocialSettings lists the site's social profile links.
type SocialSettings struct {
	Facebook  string `json:"facebook,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
}

// SiteSettings groups all optional site configuration. Every field has a
// usable zero value; DefaultSettings supplies the theme defaults.
type SiteSettings struct {
	Theme     ThemeSettings     `json:"theme"`
	SEO       SEOSettings       `json:"seo"`
	Analytics AnalyticsSettings `json:"analytics"`
	Social    SocialSettings    `json:"social"`
}

// DefaultSettings returns the settings applied to a freshly created site.
func DefaultSettings() SiteSettings {
	return SiteSettings{
		Theme: ThemeSettings{
			PrimaryColor:   "#3B82F6",
			SecondaryColor: "#1E40AF",
			FontFamily:     "Inter, sans-serif",
		},
	}
}

// Provenance records how a site came into existence. For AI-generated
// sites it keeps the originating prompt and the model that produced it.
type Provenance struct {
	AIGenerated bool   `json:"ai_generated"`
	Prompt      string `json:"prompt,omitempty"`
	Model       string `json:"model,omitempty"`
}

// Deployment holds the hosting platform state for a site. DeploymentStatus
// only changes through the transition rules in CanTransition.
type Deployment struct {
	DeploymentID  string           `json:"deployment_id,omitempty"`
	DeploymentURL string           `json:"deployment_url,omitempty"`
	ProjectID     string           `json:"project_id,omitempty"`
	Domain        string           `json:"domain,omitempty"`
	Status        DeploymentStatus `json:"status"`
	LastDeployed  *time.Time       `json:"last_deployed,omitempty"`
}

// SiteStats tracks view counts. Mutated by the view-tracking endpoint only.
type SiteStats struct {
	Views      int64      `json:"views"`
	LastViewed *time.Time `json:"last_viewed,omitempty"`
}

// Site represents one generated or hand-edited website owned by a user.
type Site struct {
	ID          uuid.UUID    `json:"id"`
	OwnerID     uuid.UUID    `json:"owner_id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Slug        string       `json:"slug"`
	Content     SiteContent  `json:"content"`
	Settings    SiteSettings `json:"settings"`
	Status      SiteStatus   `json:"status"`
	Deployment  Deployment   `json:"deployment"`
	Provenance  Provenance   `json:"provenance"`
	Stats       SiteStats    `json:"stats"`
	PublishedAt *time.Time   `json:"published_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// SiteVersion is an immutable snapshot of a site's content blobs. Versions
// are append-only: a restore copies an old snapshot into the current
// content and appends a new version, it never rewinds the history.
type SiteVersion struct {
	ID        uuid.UUID   `json:"id"`
	SiteID    uuid.UUID   `json:"site_id"`
	Version   int         `json:"version"`
	Content   SiteContent `json:"content"`
	Note      string      `json:"note,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
