package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"siteforge/internal/assembler"
	"siteforge/internal/generator"
	"siteforge/internal/hosting"
	"siteforge/internal/models"
	"siteforge/internal/slug"
	"siteforge/internal/store"
)

// fakeGenerator returns a fixed result or error.
type fakeGenerator struct {
	result *generator.Result
	err    error
	calls  int
}

func (f *fakeGenerator) GenerateSite(ctx context.Context, prompt string, opts generator.Options) (*generator.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeStore is an in-memory SiteStore mirroring the real store's
// transition rules.
type fakeStore struct {
	sites    map[uuid.UUID]*models.Site
	versions map[uuid.UUID][]models.SiteVersion
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sites:    make(map[uuid.UUID]*models.Site),
		versions: make(map[uuid.UUID][]models.SiteVersion),
	}
}

func (f *fakeStore) Create(site *models.Site) (*models.Site, error) {
	copied := *site
	copied.ID = uuid.New()
	copied.Slug = slug.Generate(site.Name)
	if copied.Status == "" {
		copied.Status = models.SiteStatusDraft
	}
	f.sites[copied.ID] = &copied
	return &copied, nil
}

func (f *fakeStore) FindByID(id uuid.UUID) (*models.Site, error) {
	site, ok := f.sites[id]
	if !ok {
		return nil, fmt.Errorf("site %s: %w", id, store.ErrNotFound)
	}
	copied := *site
	return &copied, nil
}

func (f *fakeStore) FindByDeploymentID(deploymentID string) (*models.Site, error) {
	for _, site := range f.sites {
		if site.Deployment.DeploymentID == deploymentID {
			copied := *site
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("deployment %q: %w", deploymentID, store.ErrNotFound)
}

func (f *fakeStore) AppendVersion(siteID uuid.UUID, content models.SiteContent, note string) (*models.SiteVersion, error) {
	if _, ok := f.sites[siteID]; !ok {
		return nil, fmt.Errorf("site %s: %w", siteID, store.ErrNotFound)
	}
	v := models.SiteVersion{
		ID:      uuid.New(),
		SiteID:  siteID,
		Version: len(f.versions[siteID]) + 1,
		Content: content,
		Note:    note,
	}
	f.versions[siteID] = append(f.versions[siteID], v)
	return &v, nil
}

func (f *fakeStore) BeginDeployment(siteID uuid.UUID) error {
	site, ok := f.sites[siteID]
	if !ok {
		return fmt.Errorf("site %s: %w", siteID, store.ErrNotFound)
	}
	site.Deployment.DeploymentID = ""
	site.Deployment.Status = models.DeployStatusPending
	return nil
}

func (f *fakeStore) UpdateDeployment(siteID uuid.UUID, d models.Deployment) error {
	site, ok := f.sites[siteID]
	if !ok {
		return fmt.Errorf("site %s: %w", siteID, store.ErrNotFound)
	}
	fresh := d.DeploymentID != "" && d.DeploymentID != site.Deployment.DeploymentID
	if !fresh && !site.Deployment.Status.CanTransition(d.Status) {
		return fmt.Errorf("%w: %s -> %s", store.ErrInvalidTransition, site.Deployment.Status, d.Status)
	}
	site.Deployment.DeploymentID = d.DeploymentID
	site.Deployment.DeploymentURL = d.DeploymentURL
	if d.ProjectID != "" {
		site.Deployment.ProjectID = d.ProjectID
	}
	if d.Domain != "" {
		site.Deployment.Domain = d.Domain
	}
	site.Deployment.Status = d.Status
	site.Deployment.LastDeployed = d.LastDeployed
	return nil
}

func (f *fakeStore) MarkPublished(siteID uuid.UUID) error {
	site, ok := f.sites[siteID]
	if !ok {
		return fmt.Errorf("site %s: %w", siteID, store.ErrNotFound)
	}
	site.Status = models.SiteStatusPublished
	return nil
}

func (f *fakeStore) Archive(siteID uuid.UUID) error {
	site, ok := f.sites[siteID]
	if !ok {
		return fmt.Errorf("site %s: %w", siteID, store.ErrNotFound)
	}
	site.Status = models.SiteStatusArchived
	return nil
}

func (f *fakeStore) SetDomain(siteID uuid.UUID, domain string) error {
	site, ok := f.sites[siteID]
	if !ok {
		return fmt.Errorf("site %s: %w", siteID, store.ErrNotFound)
	}
	site.Deployment.Domain = domain
	return nil
}

// fakeDeployer records calls and returns scripted results.
type fakeDeployer struct {
	existingProjects map[string]string // name -> id
	projectsCreated  int
	deployErr        error
	deployments      int
	deleted          []string
	domains          []string
}

func (f *fakeDeployer) EnsureProject(ctx context.Context, name string) (*hosting.Project, error) {
	if id, ok := f.existingProjects[name]; ok {
		return &hosting.Project{ID: id, Name: name}, nil
	}
	f.projectsCreated++
	return &hosting.Project{ID: "prj_" + name, Name: name}, nil
}

func (f *fakeDeployer) CreateDeployment(ctx context.Context, projectID string, bundle *assembler.Bundle) (*hosting.Deployment, error) {
	if f.deployErr != nil {
		return nil, f.deployErr
	}
	f.deployments++
	return &hosting.Deployment{
		ID:         fmt.Sprintf("dpl_%d", f.deployments),
		URL:        "test-site.vercel.app",
		ReadyState: "QUEUED",
		ProjectID:  projectID,
	}, nil
}

func (f *fakeDeployer) GetDeployment(ctx context.Context, deploymentID string) (*hosting.Deployment, error) {
	return &hosting.Deployment{ID: deploymentID, URL: "test-site.vercel.app", ReadyState: "READY"}, nil
}

func (f *fakeDeployer) DeleteDeployment(ctx context.Context, deploymentID string) error {
	f.deleted = append(f.deleted, deploymentID)
	return nil
}

func (f *fakeDeployer) AddDomain(ctx context.Context, projectID, domain string) error {
	f.domains = append(f.domains, domain)
	return nil
}

// fakeWaiter resolves instantly with a scripted outcome.
type fakeWaiter struct {
	err error
}

func (f *fakeWaiter) Wait(ctx context.Context, deploymentID string) (*hosting.Deployment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &hosting.Deployment{ID: deploymentID, URL: "test-site.vercel.app", ReadyState: "READY"}, nil
}

func goodResult() *generator.Result {
	return &generator.Result{
		Content: models.SiteContent{
			HTML: "<h1>Generated</h1>",
			CSS:  "h1 { color: blue; }",
			JS:   "console.log('ok');",
		},
		Notes: "Built with a hero section.",
		Model: "gemini-2.0-flash",
	}
}

func newOrchestrator(gen SiteGenerator, sites SiteStore, deployer Deployer, waiter Waiter) *Orchestrator {
	return New(gen, sites, assembler.New(), deployer, waiter, nil)
}

func TestGenerateCreatesSiteWithOneVersion(t *testing.T) {
	sites := newFakeStore()
	o := newOrchestrator(&fakeGenerator{result: goodResult()}, sites, &fakeDeployer{}, &fakeWaiter{})

	owner := uuid.New()
	site, result, err := o.Generate(context.Background(), owner, "A small cafe website with a menu page", generator.Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if site.Status != models.SiteStatusDraft {
		t.Errorf("status: got %q, want draft", site.Status)
	}
	if !site.Provenance.AIGenerated {
		t.Error("expected AI provenance flag")
	}
	if site.Provenance.Model != "gemini-2.0-flash" {
		t.Errorf("model: got %q", site.Provenance.Model)
	}
	if site.OwnerID != owner {
		t.Errorf("owner: got %s", site.OwnerID)
	}
	if result.Content.HTML != "<h1>Generated</h1>" {
		t.Errorf("result html: got %q", result.Content.HTML)
	}

	versions := sites.versions[site.ID]
	if len(versions) != 1 {
		t.Fatalf("expected exactly 1 version, got %d", len(versions))
	}
	if versions[0].Version != 1 || versions[0].Note != "initial generation" {
		t.Errorf("unexpected initial version: %+v", versions[0])
	}
}

func TestGenerateFailureCreatesNothing(t *testing.T) {
	sites := newFakeStore()
	gen := &fakeGenerator{err: &generator.ValidationError{Msg: "prompt too short"}}
	o := newOrchestrator(gen, sites, &fakeDeployer{}, &fakeWaiter{})

	_, _, err := o.Generate(context.Background(), uuid.New(), "short", generator.Options{})
	var verr *generator.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(sites.sites) != 0 {
		t.Errorf("expected no sites persisted, got %d", len(sites.sites))
	}
}

func TestDeployHappyPath(t *testing.T) {
	sites := newFakeStore()
	deployer := &fakeDeployer{existingProjects: map[string]string{"cafe-site": "prj_existing"}}
	o := newOrchestrator(&fakeGenerator{result: goodResult()}, sites, deployer, &fakeWaiter{})

	site, _ := sites.Create(&models.Site{
		OwnerID: uuid.New(),
		Name:    "Cafe Site",
		Content: models.SiteContent{HTML: "<h1>Cafe</h1>"},
	})

	result, err := o.Deploy(context.Background(), site.ID, "cafe-site", "")
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	// The existing project is reused, never recreated.
	if deployer.projectsCreated != 0 {
		t.Errorf("expected no project creation, got %d", deployer.projectsCreated)
	}
	if result.ProjectID != "prj_existing" {
		t.Errorf("project id: got %q, want prj_existing", result.ProjectID)
	}
	if result.Status != models.DeployStatusReady {
		t.Errorf("status: got %q, want ready", result.Status)
	}

	persisted, _ := sites.FindByID(site.ID)
	if persisted.Status != models.SiteStatusPublished {
		t.Errorf("site status: got %q, want published", persisted.Status)
	}
	if persisted.Deployment.Status != models.DeployStatusReady {
		t.Errorf("deployment status: got %q, want ready", persisted.Deployment.Status)
	}
	if persisted.Deployment.DeploymentURL != "test-site.vercel.app" {
		t.Errorf("deployment url: got %q", persisted.Deployment.DeploymentURL)
	}
}

func TestDeployUploadFailureRecordsError(t *testing.T) {
	sites := newFakeStore()
	deployer := &fakeDeployer{deployErr: &hosting.DeploymentError{Op: "create deployment", StatusCode: 500, Message: "boom"}}
	o := newOrchestrator(&fakeGenerator{result: goodResult()}, sites, deployer, &fakeWaiter{})

	site, _ := sites.Create(&models.Site{OwnerID: uuid.New(), Name: "Broken Deploy"})

	_, err := o.Deploy(context.Background(), site.ID, "", "")
	var apiErr *hosting.DeploymentError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected DeploymentError, got %v", err)
	}

	// The site survives with the failure recorded, never silently reverted.
	persisted, _ := sites.FindByID(site.ID)
	if persisted.Status != models.SiteStatusDraft {
		t.Errorf("site status: got %q, want draft", persisted.Status)
	}
	if persisted.Deployment.Status != models.DeployStatusError {
		t.Errorf("deployment status: got %q, want error", persisted.Deployment.Status)
	}
}

func TestDeployBuildFailureRecordsError(t *testing.T) {
	sites := newFakeStore()
	waiter := &fakeWaiter{err: &hosting.DeploymentFailedError{DeploymentID: "dpl_1"}}
	o := newOrchestrator(&fakeGenerator{result: goodResult()}, sites, &fakeDeployer{}, waiter)

	site, _ := sites.Create(&models.Site{OwnerID: uuid.New(), Name: "Failing Build"})

	_, err := o.Deploy(context.Background(), site.ID, "", "")
	var failed *hosting.DeploymentFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected DeploymentFailedError, got %v", err)
	}

	persisted, _ := sites.FindByID(site.ID)
	if persisted.Deployment.Status != models.DeployStatusError {
		t.Errorf("deployment status: got %q, want error", persisted.Deployment.Status)
	}
}

func TestDeployTimeoutLeavesBuilding(t *testing.T) {
	sites := newFakeStore()
	waiter := &fakeWaiter{err: &hosting.DeploymentTimeoutError{DeploymentID: "dpl_1", Attempts: 60}}
	o := newOrchestrator(&fakeGenerator{result: goodResult()}, sites, &fakeDeployer{}, waiter)

	site, _ := sites.Create(&models.Site{OwnerID: uuid.New(), Name: "Slow Build"})

	_, err := o.Deploy(context.Background(), site.ID, "", "")
	var timeout *hosting.DeploymentTimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected DeploymentTimeoutError, got %v", err)
	}

	// Outcome unknown: the status stays at building for reconciliation.
	persisted, _ := sites.FindByID(site.ID)
	if persisted.Deployment.Status != models.DeployStatusBuilding {
		t.Errorf("deployment status: got %q, want building", persisted.Deployment.Status)
	}
}

func TestDeployRejectsArchivedSite(t *testing.T) {
	sites := newFakeStore()
	deployer := &fakeDeployer{}
	o := newOrchestrator(&fakeGenerator{result: goodResult()}, sites, deployer, &fakeWaiter{})

	site, _ := sites.Create(&models.Site{
		OwnerID: uuid.New(),
		Name:    "Archived Site",
		Status:  models.SiteStatusArchived,
	})

	_, err := o.Deploy(context.Background(), site.ID, "", "")
	if !errors.Is(err, ErrNotDeployable) {
		t.Fatalf("expected ErrNotDeployable, got %v", err)
	}
	if deployer.deployments != 0 {
		t.Errorf("expected no deployment calls, got %d", deployer.deployments)
	}
}

func TestRedeployReusesRecordedProject(t *testing.T) {
	sites := newFakeStore()
	deployer := &fakeDeployer{}
	o := newOrchestrator(&fakeGenerator{result: goodResult()}, sites, deployer, &fakeWaiter{})

	site, _ := sites.Create(&models.Site{OwnerID: uuid.New(), Name: "Existing Project"})
	sites.sites[site.ID].Deployment.ProjectID = "prj_recorded"

	result, err := o.Redeploy(context.Background(), site.ID)
	if err != nil {
		t.Fatalf("Redeploy: %v", err)
	}
	if result.ProjectID != "prj_recorded" {
		t.Errorf("project id: got %q, want prj_recorded", result.ProjectID)
	}
	if deployer.projectsCreated != 0 {
		t.Errorf("expected no project lookup/creation, got %d", deployer.projectsCreated)
	}
}

func TestGenerateAndPublishFailureAfterCreateLeavesSite(t *testing.T) {
	sites := newFakeStore()
	deployer := &fakeDeployer{deployErr: &hosting.DeploymentError{Op: "create deployment", StatusCode: 502, Message: "bad gateway"}}
	o := newOrchestrator(&fakeGenerator{result: goodResult()}, sites, deployer, &fakeWaiter{})

	site, result, err := o.GenerateAndPublish(context.Background(), uuid.New(), "A bakery website with an order form", generator.Options{})
	if err == nil {
		t.Fatal("expected deploy error")
	}
	if result != nil {
		t.Error("expected no deploy result on failure")
	}
	if site == nil {
		t.Fatal("expected the created site to be returned despite deploy failure")
	}
	if _, ferr := sites.FindByID(site.ID); ferr != nil {
		t.Errorf("expected site to remain persisted: %v", ferr)
	}
}

func TestRemoveArchivesOwningSite(t *testing.T) {
	sites := newFakeStore()
	deployer := &fakeDeployer{}
	o := newOrchestrator(&fakeGenerator{result: goodResult()}, sites, deployer, &fakeWaiter{})

	site, _ := sites.Create(&models.Site{OwnerID: uuid.New(), Name: "Removable"})
	sites.sites[site.ID].Deployment.DeploymentID = "dpl_gone"
	sites.sites[site.ID].Deployment.Status = models.DeployStatusReady

	if err := o.Remove(context.Background(), "dpl_gone"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(deployer.deleted) != 1 || deployer.deleted[0] != "dpl_gone" {
		t.Errorf("deleted: got %v", deployer.deleted)
	}
	persisted, _ := sites.FindByID(site.ID)
	if persisted.Status != models.SiteStatusArchived {
		t.Errorf("site status: got %q, want archived", persisted.Status)
	}
}

func TestRemoveCancelsInFlightDeployment(t *testing.T) {
	sites := newFakeStore()
	deployer := &fakeDeployer{}
	o := newOrchestrator(&fakeGenerator{result: goodResult()}, sites, deployer, &fakeWaiter{})

	site, _ := sites.Create(&models.Site{OwnerID: uuid.New(), Name: "In Flight"})
	sites.sites[site.ID].Deployment.DeploymentID = "dpl_mid"
	sites.sites[site.ID].Deployment.Status = models.DeployStatusBuilding

	if err := o.Remove(context.Background(), "dpl_mid"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	persisted, _ := sites.FindByID(site.ID)
	if persisted.Deployment.Status != models.DeployStatusCanceled {
		t.Errorf("deployment status: got %q, want canceled", persisted.Deployment.Status)
	}
	if persisted.Status != models.SiteStatusArchived {
		t.Errorf("site status: got %q, want archived", persisted.Status)
	}
}

func TestCancelMarksDeploymentCanceled(t *testing.T) {
	sites := newFakeStore()
	o := newOrchestrator(&fakeGenerator{result: goodResult()}, sites, &fakeDeployer{}, &fakeWaiter{})

	site, _ := sites.Create(&models.Site{OwnerID: uuid.New(), Name: "Cancelable"})
	sites.sites[site.ID].Deployment.DeploymentID = "dpl_1"
	sites.sites[site.ID].Deployment.Status = models.DeployStatusBuilding

	if err := o.Cancel(context.Background(), site.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	persisted, _ := sites.FindByID(site.ID)
	if persisted.Deployment.Status != models.DeployStatusCanceled {
		t.Errorf("deployment status: got %q, want canceled", persisted.Deployment.Status)
	}

	// Canceling a finished deployment is rejected.
	if err := o.Cancel(context.Background(), site.ID); !errors.Is(err, ErrNotDeployable) {
		t.Errorf("expected ErrNotDeployable for terminal deployment, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"validation", &generator.ValidationError{Msg: "too short"}, CodeValidation, http.StatusBadRequest},
		{"not deployable", fmt.Errorf("%w: archived", ErrNotDeployable), CodeValidation, http.StatusConflict},
		{"generation", &generator.GenerationError{Err: errors.New("upstream")}, CodeGeneration, http.StatusBadGateway},
		{"parse", &generator.ParseError{Msg: "no json"}, CodeParse, http.StatusBadGateway},
		{"deployment api", &hosting.DeploymentError{Op: "x", StatusCode: 500}, CodeDeployment, http.StatusBadGateway},
		{"deployment 404", &hosting.DeploymentError{Op: "x", StatusCode: 404}, CodeNotFound, http.StatusNotFound},
		{"failed", &hosting.DeploymentFailedError{}, CodeDeploymentFailed, http.StatusBadGateway},
		{"canceled", &hosting.DeploymentCanceledError{}, CodeDeploymentCanceled, http.StatusConflict},
		{"timeout", &hosting.DeploymentTimeoutError{}, CodeDeploymentTimeout, http.StatusGatewayTimeout},
		{"not found", fmt.Errorf("site: %w", store.ErrNotFound), CodeNotFound, http.StatusNotFound},
		{"unknown", errors.New("mystery"), CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, status := Classify(tt.err)
			if code != tt.wantCode || status != tt.wantStatus {
				t.Errorf("Classify(%v): got (%s, %d), want (%s, %d)",
					tt.err, code, status, tt.wantCode, tt.wantStatus)
			}
		})
	}
}
