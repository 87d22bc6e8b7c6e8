// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package pipeline sequences generation, persistence, assembly, upload
// and status polling into the end-to-end publish flows. It owns no
// business logic of its own: every step is delegated and every failure
// is surfaced with a stable error code.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"siteforge/internal/assembler"
	"siteforge/internal/generator"
	"siteforge/internal/hosting"
	"siteforge/internal/models"
	"siteforge/internal/store"
)

// ErrNotDeployable rejects deploy requests for archived or suspended sites.
var ErrNotDeployable = errors.New("site status does not permit deployment")

// SiteGenerator produces site content from a prompt.
type SiteGenerator interface {
	GenerateSite(ctx context.Context, prompt string, opts generator.Options) (*generator.Result, error)
}

// SiteStore is the slice of the record store the pipeline mutates.
type SiteStore interface {
	Create(site *models.Site) (*models.Site, error)
	FindByID(id uuid.UUID) (*models.Site, error)
	FindByDeploymentID(deploymentID string) (*models.Site, error)
	AppendVersion(siteID uuid.UUID, content models.SiteContent, note string) (*models.SiteVersion, error)
	BeginDeployment(siteID uuid.UUID) error
	UpdateDeployment(siteID uuid.UUID, d models.Deployment) error
	MarkPublished(siteID uuid.UUID) error
	Archive(siteID uuid.UUID) error
	SetDomain(siteID uuid.UUID, domain string) error
}

// Deployer is the slice of the hosting client the pipeline calls.
type Deployer interface {
	EnsureProject(ctx context.Context, name string) (*hosting.Project, error)
	CreateDeployment(ctx context.Context, projectID string, bundle *assembler.Bundle) (*hosting.Deployment, error)
	GetDeployment(ctx context.Context, deploymentID string) (*hosting.Deployment, error)
	DeleteDeployment(ctx context.Context, deploymentID string) error
	AddDomain(ctx context.Context, projectID, domain string) error
}

// Waiter blocks until a deployment reaches a terminal state.
type Waiter interface {
	Wait(ctx context.Context, deploymentID string) (*hosting.Deployment, error)
}

// Archiver stores a copy of each deployed bundle, typically in object
// storage. Optional: a nil Archiver disables archiving.
type Archiver interface {
	ArchiveBundle(ctx context.Context, siteID uuid.UUID, deploymentID string, bundle *assembler.Bundle) error
}

// Orchestrator wires the pipeline components together. Construct one per
// process and share it across requests.
type Orchestrator struct {
	generator SiteGenerator
	sites     SiteStore
	assembler *assembler.Assembler
	deployer  Deployer
	waiter    Waiter
	archiver  Archiver
}

// New creates an Orchestrator. archiver may be nil.
func New(gen SiteGenerator, sites SiteStore, asm *assembler.Assembler, deployer Deployer, waiter Waiter, archiver Archiver) *Orchestrator {
	return &Orchestrator{
		generator: gen,
		sites:     sites,
		assembler: asm,
		deployer:  deployer,
		waiter:    waiter,
		archiver:  archiver,
	}
}

// DeployResult is what a deploy or redeploy returns to the caller.
type DeployResult struct {
	DeploymentID string                  `json:"deployment_id"`
	URL          string                  `json:"url"`
	ProjectID    string                  `json:"project_id"`
	Status       models.DeploymentStatus `json:"status"`
}

// siteName derives a site name from the prompt: the first 50 runes.
func siteName(prompt string) string {
	runes := []rune(prompt)
	if len(runes) > 50 {
		runes = runes[:50]
	}
	return string(runes)
}

// Generate runs the generation client and persists the result as a new
// draft site with a single initial version. A generation or validation
// failure aborts before anything is written.
func (o *Orchestrator) Generate(ctx context.Context, ownerID uuid.UUID, prompt string, opts generator.Options) (*models.Site, *generator.Result, error) {
	result, err := o.generator.GenerateSite(ctx, prompt, opts)
	if err != nil {
		return nil, nil, err
	}

	site := &models.Site{
		OwnerID:  ownerID,
		Name:     siteName(prompt),
		Content:  result.Content,
		Settings: models.DefaultSettings(),
		Status:   models.SiteStatusDraft,
		Provenance: models.Provenance{
			AIGenerated: true,
			Prompt:      prompt,
			Model:       result.Model,
		},
	}
	created, err := o.sites.Create(site)
	if err != nil {
		return nil, nil, fmt.Errorf("persist generated site: %w", err)
	}

	if _, err := o.sites.AppendVersion(created.ID, created.Content, "initial generation"); err != nil {
		return nil, nil, fmt.Errorf("snapshot initial version: %w", err)
	}

	slog.Info("site generated", "site_id", created.ID, "slug", created.Slug, "model", result.Model)
	return created, result, nil
}

// Deploy assembles a site's bundle, uploads it, and waits for the
// deployment to settle. projectName defaults to the site slug; a
// previously recorded project is reused when no name is given. The
// site's deployment status always reflects the last known state.
func (o *Orchestrator) Deploy(ctx context.Context, siteID uuid.UUID, projectName, domain string) (*DeployResult, error) {
	site, err := o.sites.FindByID(siteID)
	if err != nil {
		return nil, err
	}
	if !site.Status.Deployable() {
		return nil, fmt.Errorf("%w: %s", ErrNotDeployable, site.Status)
	}

	bundle, err := o.assembler.Build(site)
	if err != nil {
		return nil, err
	}

	if err := o.sites.BeginDeployment(site.ID); err != nil {
		return nil, err
	}

	projectID := site.Deployment.ProjectID
	if projectName != "" || projectID == "" {
		name := projectName
		if name == "" {
			name = site.Slug
		}
		project, err := o.deployer.EnsureProject(ctx, name)
		if err != nil {
			o.recordFailure(site.ID, "", models.DeployStatusError)
			return nil, err
		}
		projectID = project.ID
	}

	deployment, err := o.deployer.CreateDeployment(ctx, projectID, bundle)
	if err != nil {
		o.recordFailure(site.ID, "", models.DeployStatusError)
		return nil, err
	}

	now := time.Now()
	building := models.Deployment{
		DeploymentID:  deployment.ID,
		DeploymentURL: deployment.URL,
		ProjectID:     projectID,
		Domain:        domain,
		Status:        models.DeployStatusBuilding,
		LastDeployed:  &now,
	}
	if err := o.sites.UpdateDeployment(site.ID, building); err != nil {
		return nil, err
	}

	if domain != "" {
		if err := o.deployer.AddDomain(ctx, projectID, domain); err != nil {
			slog.Warn("domain attach failed", "site_id", site.ID, "domain", domain, "error", err)
		} else if err := o.sites.SetDomain(site.ID, domain); err != nil {
			return nil, err
		}
	}

	if o.archiver != nil {
		if err := o.archiver.ArchiveBundle(ctx, site.ID, deployment.ID, bundle); err != nil {
			slog.Warn("bundle archive failed", "site_id", site.ID, "error", err)
		}
	}

	final, err := o.waiter.Wait(ctx, deployment.ID)
	if err != nil {
		switch {
		case errors.As(err, new(*hosting.DeploymentFailedError)):
			o.recordFailure(site.ID, deployment.ID, models.DeployStatusError)
		case errors.As(err, new(*hosting.DeploymentCanceledError)):
			o.recordFailure(site.ID, deployment.ID, models.DeployStatusCanceled)
		case errors.As(err, new(*hosting.DeploymentTimeoutError)):
			// Outcome unknown: leave the status at building so an
			// operator can reconcile later.
		default:
			o.recordFailure(site.ID, deployment.ID, models.DeployStatusError)
		}
		return nil, err
	}

	ready := building
	ready.DeploymentURL = final.URL
	ready.Status = models.DeployStatusReady
	if err := o.sites.UpdateDeployment(site.ID, ready); err != nil {
		return nil, err
	}
	if err := o.sites.MarkPublished(site.ID); err != nil {
		return nil, err
	}

	slog.Info("site deployed", "site_id", site.ID, "deployment_id", deployment.ID, "url", final.URL)
	return &DeployResult{
		DeploymentID: deployment.ID,
		URL:          final.URL,
		ProjectID:    projectID,
		Status:       models.DeployStatusReady,
	}, nil
}

func (o *Orchestrator) recordFailure(siteID uuid.UUID, deploymentID string, status models.DeploymentStatus) {
	now := time.Now()
	err := o.sites.UpdateDeployment(siteID, models.Deployment{
		DeploymentID: deploymentID,
		Status:       status,
		LastDeployed: &now,
	})
	if err != nil {
		slog.Error("failed to record deployment outcome", "site_id", siteID, "status", status, "error", err)
	}
}

// GenerateAndPublish runs the full pipeline: generate content, persist
// the site, then deploy it. A failure before the site exists leaves no
// state behind; a failure afterwards leaves the draft site with its
// deployment status reflecting the last known state.
func (o *Orchestrator) GenerateAndPublish(ctx context.Context, ownerID uuid.UUID, prompt string, opts generator.Options) (*models.Site, *DeployResult, error) {
	site, _, err := o.Generate(ctx, ownerID, prompt, opts)
	if err != nil {
		return nil, nil, err
	}

	result, err := o.Deploy(ctx, site.ID, "", "")
	if err != nil {
		return site, nil, err
	}
	return site, result, nil
}

// Redeploy re-runs assembly and upload for an existing site, reusing its
// recorded project. Generation is skipped.
func (o *Orchestrator) Redeploy(ctx context.Context, siteID uuid.UUID) (*DeployResult, error) {
	return o.Deploy(ctx, siteID, "", "")
}

// Status queries the platform for a deployment's current state and
// persists it on the owning site before returning it.
func (o *Orchestrator) Status(ctx context.Context, deploymentID string) (*hosting.Deployment, error) {
	deployment, err := o.deployer.GetDeployment(ctx, deploymentID)
	if err != nil {
		return nil, err
	}

	site, err := o.sites.FindByDeploymentID(deploymentID)
	if err != nil {
		// The deployment exists upstream but no site references it;
		// return the platform state as-is.
		slog.Warn("deployment not linked to a site", "deployment_id", deploymentID)
		return deployment, nil
	}

	updated := site.Deployment
	updated.Status = hosting.StatusFromReadyState(deployment.ReadyState)
	updated.DeploymentURL = deployment.URL
	if err := o.sites.UpdateDeployment(site.ID, updated); err != nil {
		return nil, err
	}
	return deployment, nil
}

// Remove deletes a deployment from the platform and archives the owning
// site, preserving its record and history. An in-flight deployment is
// marked canceled first; one that already ended keeps its final status.
func (o *Orchestrator) Remove(ctx context.Context, deploymentID string) error {
	if err := o.deployer.DeleteDeployment(ctx, deploymentID); err != nil {
		return err
	}

	site, err := o.sites.FindByDeploymentID(deploymentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Nothing to archive locally.
			return nil
		}
		return err
	}

	if !site.Deployment.Status.Terminal() {
		canceled := site.Deployment
		canceled.Status = models.DeployStatusCanceled
		if err := o.sites.UpdateDeployment(site.ID, canceled); err != nil {
			return err
		}
	}
	return o.sites.Archive(site.ID)
}

// AttachDomain points a custom domain at a site's recorded project.
func (o *Orchestrator) AttachDomain(ctx context.Context, siteID uuid.UUID, domain string) error {
	site, err := o.sites.FindByID(siteID)
	if err != nil {
		return err
	}
	projectID := site.Deployment.ProjectID
	if projectID == "" {
		return fmt.Errorf("%w: site has no hosting project yet", ErrNotDeployable)
	}
	if err := o.deployer.AddDomain(ctx, projectID, domain); err != nil {
		return err
	}
	return o.sites.SetDomain(siteID, domain)
}

// Cancel marks a site's in-flight deployment canceled. The poller's
// cancellation probe observes the marker on its next tick.
func (o *Orchestrator) Cancel(ctx context.Context, siteID uuid.UUID) error {
	site, err := o.sites.FindByID(siteID)
	if err != nil {
		return err
	}
	if site.Deployment.Status.Terminal() {
		return fmt.Errorf("%w: deployment already %s", ErrNotDeployable, site.Deployment.Status)
	}
	canceled := site.Deployment
	canceled.Status = models.DeployStatusCanceled
	return o.sites.UpdateDeployment(siteID, canceled)
}
