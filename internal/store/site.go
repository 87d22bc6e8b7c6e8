// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"siteforge/internal/models"
	"siteforge/internal/slug"
)

// ErrNotFound is returned when a site or version does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned when a deployment status update would
// violate the lifecycle rules in models.CanTransition.
var ErrInvalidTransition = errors.New("invalid deployment status transition")

// SiteStore handles all site and site-version database operations.
type SiteStore struct {
	db *sql.DB
}

// NewSiteStore creates a new SiteStore with the given database connection.
func NewSiteStore(db *sql.DB) *SiteStore {
	return &SiteStore{db: db}
}

const siteColumns = `id, owner_id, name, description, slug,
       content_html, content_css, content_js, settings, status,
       deployment_id, deployment_url, project_id, domain,
       deployment_status, last_deployed,
       ai_generated, ai_prompt, ai_model,
       views, last_viewed, published_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSite(row rowScanner) (*models.Site, error) {
	site := &models.Site{}
	var settings []byte
	err := row.Scan(
		&site.ID, &site.OwnerID, &site.Name, &site.Description, &site.Slug,
		&site.Content.HTML, &site.Content.CSS, &site.Content.JS, &settings, &site.Status,
		&site.Deployment.DeploymentID, &site.Deployment.DeploymentURL,
		&site.Deployment.ProjectID, &site.Deployment.Domain,
		&site.Deployment.Status, &site.Deployment.LastDeployed,
		&site.Provenance.AIGenerated, &site.Provenance.Prompt, &site.Provenance.Model,
		&site.Stats.Views, &site.Stats.LastViewed,
		&site.PublishedAt, &site.CreatedAt, &site.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &site.Settings); err != nil {
			return nil, fmt.Errorf("decode site settings: %w", err)
		}
	}
	return site, nil
}

// Create inserts a new site and returns it with the generated ID and slug.
// The slug is derived from the site name; when the UNIQUE constraint rejects
// it a numeric suffix is appended (-2, -3, …) and the insert is retried, so
// concurrent creates under the same name cannot race past each other.
func (s *SiteStore) Create(site *models.Site) (*models.Site, error) {
	base := slug.Generate(site.Name)
	if base == "" {
		base = "site"
	}

	settings, err := json.Marshal(site.Settings)
	if err != nil {
		return nil, fmt.Errorf("encode site settings: %w", err)
	}

	status := site.Status
	if status == "" {
		status = models.SiteStatusDraft
	}

	candidate := base
	for i := 2; ; i++ {
		row := s.db.QueryRow(`
			INSERT INTO sites (owner_id, name, description, slug,
			                   content_html, content_css, content_js, settings, status,
			                   ai_generated, ai_prompt, ai_model)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING `+siteColumns,
			site.OwnerID, site.Name, site.Description, candidate,
			site.Content.HTML, site.Content.CSS, site.Content.JS, settings, status,
			site.Provenance.AIGenerated, site.Provenance.Prompt, site.Provenance.Model,
		)
		created, err := scanSite(row)
		if err == nil {
			return created, nil
		}
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("create site: %w", err)
		}
		candidate = slug.WithSuffix(base, i)
	}
}

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// FindByID retrieves a site by its UUID.
func (s *SiteStore) FindByID(id uuid.UUID) (*models.Site, error) {
	row := s.db.QueryRow(`SELECT `+siteColumns+` FROM sites WHERE id = $1`, id)
	site, err := scanSite(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("site %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find site by id: %w", err)
	}
	return site, nil
}

// FindBySlug retrieves a site by its slug.
func (s *SiteStore) FindBySlug(siteSlug string) (*models.Site, error) {
	row := s.db.QueryRow(`SELECT `+siteColumns+` FROM sites WHERE slug = $1`, siteSlug)
	site, err := scanSite(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("site %q: %w", siteSlug, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find site by slug: %w", err)
	}
	return site, nil
}

// ListByOwner returns all sites belonging to the given owner, newest first.
func (s *SiteStore) ListByOwner(ownerID uuid.UUID) ([]models.Site, error) {
	rows, err := s.db.Query(
		`SELECT `+siteColumns+` FROM sites WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	defer rows.Close()

	var sites []models.Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		sites = append(sites, *site)
	}
	return sites, rows.Err()
}

// Update modifies the editable fields of a site: name, description, content,
// settings and status. The slug is fixed at creation and never rewritten so
// deployed URLs stay stable.
func (s *SiteStore) Update(site *models.Site) error {
	settings, err := json.Marshal(site.Settings)
	if err != nil {
		return fmt.Errorf("encode site settings: %w", err)
	}

	res, err := s.db.Exec(`
		UPDATE sites SET
			name = $1, description = $2,
			content_html = $3, content_css = $4, content_js = $5,
			settings = $6, status = $7, updated_at = NOW()
		WHERE id = $8
	`, site.Name, site.Description,
		site.Content.HTML, site.Content.CSS, site.Content.JS,
		settings, site.Status, site.ID,
	)
	if err != nil {
		return fmt.Errorf("update site: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("site %s: %w", site.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a site and, via cascade, its versions.
func (s *SiteStore) Delete(id uuid.UUID) error {
	res, err := s.db.Exec(`DELETE FROM sites WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete site: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("site %s: %w", id, ErrNotFound)
	}
	return nil
}

// Archive marks a site archived. Used when its deployment is torn down.
func (s *SiteStore) Archive(id uuid.UUID) error {
	res, err := s.db.Exec(
		`UPDATE sites SET status = $1, updated_at = NOW() WHERE id = $2`,
		models.SiteStatusArchived, id,
	)
	if err != nil {
		return fmt.Errorf("archive site: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("site %s: %w", id, ErrNotFound)
	}
	return nil
}

// MarkPublished sets the site status to published, keeping the original
// published_at if the site was published before.
func (s *SiteStore) MarkPublished(id uuid.UUID) error {
	res, err := s.db.Exec(`
		UPDATE sites SET status = $1,
			published_at = COALESCE(published_at, NOW()),
			updated_at = NOW()
		WHERE id = $2
	`, models.SiteStatusPublished, id)
	if err != nil {
		return fmt.Errorf("mark site published: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("site %s: %w", id, ErrNotFound)
	}
	return nil
}

// IncrementView bumps the view counter and returns the updated site.
func (s *SiteStore) IncrementView(id uuid.UUID) (*models.Site, error) {
	row := s.db.QueryRow(`
		UPDATE sites SET views = views + 1, last_viewed = NOW()
		WHERE id = $1
		RETURNING `+siteColumns, id)
	site, err := scanSite(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("site %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("increment view: %w", err)
	}
	return site, nil
}

// BeginDeployment resets a site's deployment state to pending before a
// new deployment is requested. Clearing the deployment ID starts a fresh
// lifecycle, so the previous deployment's terminal status does not block
// the redeploy.
func (s *SiteStore) BeginDeployment(siteID uuid.UUID) error {
	res, err := s.db.Exec(`
		UPDATE sites SET deployment_id = '', deployment_status = $1,
			last_deployed = NOW(), updated_at = NOW()
		WHERE id = $2
	`, models.DeployStatusPending, siteID)
	if err != nil {
		return fmt.Errorf("begin deployment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("site %s: %w", siteID, ErrNotFound)
	}
	return nil
}

// DeploymentStatus returns just the deployment status for a site, for
// callers that poll and do not need the whole record.
func (s *SiteStore) DeploymentStatus(siteID uuid.UUID) (models.DeploymentStatus, error) {
	var status models.DeploymentStatus
	err := s.db.QueryRow(`SELECT deployment_status FROM sites WHERE id = $1`, siteID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("site %s: %w", siteID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("deployment status: %w", err)
	}
	return status, nil
}

// FindByDeploymentID retrieves the site holding the given deployment.
func (s *SiteStore) FindByDeploymentID(deploymentID string) (*models.Site, error) {
	row := s.db.QueryRow(`SELECT `+siteColumns+` FROM sites WHERE deployment_id = $1`, deploymentID)
	site, err := scanSite(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("deployment %q: %w", deploymentID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find site by deployment: %w", err)
	}
	return site, nil
}

// UpdateDeployment writes new deployment state for a site. Status changes
// must follow the deployment lifecycle; the one exception is a new
// deployment ID, which starts a fresh lifecycle regardless of where the
// previous deployment ended. A fresh lifecycle still has to begin at
// pending or building, never at a terminal state.
func (s *SiteStore) UpdateDeployment(siteID uuid.UUID, d models.Deployment) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin deployment update: %w", err)
	}
	defer tx.Rollback()

	var currentID string
	var currentStatus models.DeploymentStatus
	err = tx.QueryRow(
		`SELECT deployment_id, deployment_status FROM sites WHERE id = $1 FOR UPDATE`,
		siteID,
	).Scan(&currentID, &currentStatus)
	if err == sql.ErrNoRows {
		return fmt.Errorf("site %s: %w", siteID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lock site for deployment update: %w", err)
	}

	fresh := d.DeploymentID != "" && d.DeploymentID != currentID
	if !fresh && !currentStatus.CanTransition(d.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, currentStatus, d.Status)
	}
	if fresh && d.Status != models.DeployStatusPending && d.Status != models.DeployStatusBuilding {
		return fmt.Errorf("%w: new deployment starting at %q", ErrInvalidTransition, d.Status)
	}

	_, err = tx.Exec(`
		UPDATE sites SET
			deployment_id = $1, deployment_url = $2, project_id = $3,
			domain = COALESCE(NULLIF($4, ''), domain),
			deployment_status = $5, last_deployed = $6, updated_at = NOW()
		WHERE id = $7
	`, d.DeploymentID, d.DeploymentURL, d.ProjectID, d.Domain,
		d.Status, d.LastDeployed, siteID,
	)
	if err != nil {
		return fmt.Errorf("update deployment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit deployment update: %w", err)
	}
	return nil
}

// SetDomain records a custom domain on a site.
func (s *SiteStore) SetDomain(siteID uuid.UUID, domain string) error {
	res, err := s.db.Exec(
		`UPDATE sites SET domain = $1, updated_at = NOW() WHERE id = $2`,
		domain, siteID,
	)
	if err != nil {
		return fmt.Errorf("set domain: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("site %s: %w", siteID, ErrNotFound)
	}
	return nil
}

// AppendVersion snapshots the given content as the next version of a site.
// The site row is locked so concurrent appends cannot produce duplicate
// version numbers; the UNIQUE(site_id, version) constraint is the backstop.
func (s *SiteStore) AppendVersion(siteID uuid.UUID, content models.SiteContent, note string) (*models.SiteVersion, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin append version: %w", err)
	}
	defer tx.Rollback()

	version, err := appendVersionTx(tx, siteID, content, note)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit append version: %w", err)
	}
	return version, nil
}

func appendVersionTx(tx *sql.Tx, siteID uuid.UUID, content models.SiteContent, note string) (*models.SiteVersion, error) {
	var locked uuid.UUID
	err := tx.QueryRow(
		`SELECT id FROM sites WHERE id = $1 FOR UPDATE`, siteID,
	).Scan(&locked)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("site %s: %w", siteID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lock site for version: %w", err)
	}

	v := &models.SiteVersion{}
	err = tx.QueryRow(`
		INSERT INTO site_versions (site_id, version, content_html, content_css, content_js, note)
		SELECT $1, COALESCE(MAX(version), 0) + 1, $2, $3, $4, $5
		FROM site_versions WHERE site_id = $1
		RETURNING id, site_id, version, content_html, content_css, content_js, note, created_at
	`, siteID, content.HTML, content.CSS, content.JS, note,
	).Scan(
		&v.ID, &v.SiteID, &v.Version,
		&v.Content.HTML, &v.Content.CSS, &v.Content.JS,
		&v.Note, &v.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("append version: %w", err)
	}
	return v, nil
}

// ListVersions returns all versions of a site, newest first.
func (s *SiteStore) ListVersions(siteID uuid.UUID) ([]models.SiteVersion, error) {
	rows, err := s.db.Query(`
		SELECT id, site_id, version, content_html, content_css, content_js, note, created_at
		FROM site_versions WHERE site_id = $1
		ORDER BY version DESC
	`, siteID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []models.SiteVersion
	for rows.Next() {
		var v models.SiteVersion
		if err := rows.Scan(
			&v.ID, &v.SiteID, &v.Version,
			&v.Content.HTML, &v.Content.CSS, &v.Content.JS,
			&v.Note, &v.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// RestoreVersion copies an old snapshot back into the site's current
// content and appends it as a new version. History is append-only: the
// restore itself becomes the latest version, nothing is rewound.
func (s *SiteStore) RestoreVersion(siteID uuid.UUID, version int) (*models.SiteVersion, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin restore: %w", err)
	}
	defer tx.Rollback()

	var content models.SiteContent
	err = tx.QueryRow(`
		SELECT content_html, content_css, content_js
		FROM site_versions WHERE site_id = $1 AND version = $2
	`, siteID, version).Scan(&content.HTML, &content.CSS, &content.JS)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("version %d of site %s: %w", version, siteID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load version: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE sites SET content_html = $1, content_css = $2, content_js = $3, updated_at = NOW()
		WHERE id = $4
	`, content.HTML, content.CSS, content.JS, siteID)
	if err != nil {
		return nil, fmt.Errorf("restore content: %w", err)
	}

	restored, err := appendVersionTx(tx, siteID, content,
		fmt.Sprintf("restored from version %d", version))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit restore: %w", err)
	}
	return restored, nil
}
