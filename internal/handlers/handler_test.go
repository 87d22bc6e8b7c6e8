// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler
// integration tests. Tests are skipped when PostgreSQL is unavailable.
// The AI provider and hosting platform are always faked.
package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"siteforge/internal/ai"
	"siteforge/internal/assembler"
	"siteforge/internal/database"
	"siteforge/internal/generator"
	"siteforge/internal/hosting"
	"siteforge/internal/middleware"
	"siteforge/internal/models"
	"siteforge/internal/pipeline"
	"siteforge/internal/session"
	"siteforge/internal/store"
)

// testOwner is the fixed authenticated user for handler tests.
var testOwner = uuid.MustParse("00000000-0000-0000-0000-00000000aaaa")

// mockAIProvider implements ai.Provider for handler tests.
type mockAIProvider struct {
	response string
	err      error
}

func (m *mockAIProvider) Name() string  { return "test" }
func (m *mockAIProvider) Model() string { return "test-model" }
func (m *mockAIProvider) Generate(_ context.Context, _, _ string) (string, error) {
	return m.response, m.err
}

// mockSiteReply is a well-formed generation reply the parser accepts.
const mockSiteReply = "HTML:\n```html\n<h1>Test Cafe</h1>\n```\nCSS:\n```css\nh1 { color: teal; }\n```\nJS:\n```js\nconsole.log('hi');\n```\nNOTES:\n```markdown\nBuilt a **single page** cafe site.\n```"

// fakeDeployer implements pipeline.Deployer against in-memory state.
type fakeDeployer struct {
	nextID      int
	deployments map[string]*hosting.Deployment
	deleted     []string
	domains     []string
	deployErr   error
}

func newFakeDeployer() *fakeDeployer {
	return &fakeDeployer{deployments: make(map[string]*hosting.Deployment)}
}

func (f *fakeDeployer) EnsureProject(_ context.Context, name string) (*hosting.Project, error) {
	return &hosting.Project{ID: "prj_" + name, Name: name}, nil
}

func (f *fakeDeployer) CreateDeployment(_ context.Context, projectID string, _ *assembler.Bundle) (*hosting.Deployment, error) {
	if f.deployErr != nil {
		return nil, f.deployErr
	}
	f.nextID++
	d := &hosting.Deployment{
		ID:         fmt.Sprintf("dpl_%d", f.nextID),
		URL:        fmt.Sprintf("https://%s-%d.vercel.app", projectID, f.nextID),
		ReadyState: "BUILDING",
		ProjectID:  projectID,
	}
	f.deployments[d.ID] = d
	return d, nil
}

func (f *fakeDeployer) GetDeployment(_ context.Context, deploymentID string) (*hosting.Deployment, error) {
	d, ok := f.deployments[deploymentID]
	if !ok {
		return nil, &hosting.DeploymentError{Op: "get deployment", StatusCode: 404, Message: "not found"}
	}
	return d, nil
}

func (f *fakeDeployer) DeleteDeployment(_ context.Context, deploymentID string) error {
	f.deleted = append(f.deleted, deploymentID)
	delete(f.deployments, deploymentID)
	return nil
}

func (f *fakeDeployer) AddDomain(_ context.Context, projectID, domain string) error {
	f.domains = append(f.domains, domain)
	return nil
}

// fakeWaiter resolves every deployment to READY immediately.
type fakeWaiter struct {
	deployer *fakeDeployer
	err      error
}

func (f *fakeWaiter) Wait(_ context.Context, deploymentID string) (*hosting.Deployment, error) {
	if f.err != nil {
		return nil, f.err
	}
	d, ok := f.deployer.deployments[deploymentID]
	if !ok {
		return nil, &hosting.DeploymentError{Op: "get deployment", StatusCode: 404, Message: "not found"}
	}
	d.ReadyState = "READY"
	return d, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "siteforge")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "siteforge")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() {
		db.Exec("DELETE FROM sites WHERE owner_id = $1", testOwner)
		db.Close()
	})
	return db
}

// testEnv holds all dependencies for handler integration tests.
type testEnv struct {
	DB       *sql.DB
	Sites    *store.SiteStore
	Registry *ai.Registry
	Deployer *fakeDeployer
	Waiter   *fakeWaiter
	API      *API
	Router   chi.Router
}

// newTestEnv creates a complete test environment: real store over the
// test database, mock AI provider, fake hosting platform.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	sites := store.NewSiteStore(db)

	registry := ai.NewRegistry("test", nil)
	registry.Register("test", &mockAIProvider{response: mockSiteReply})

	gen := generator.New(registry)
	deployer := newFakeDeployer()
	waiter := &fakeWaiter{deployer: deployer}
	orch := pipeline.New(gen, sites, assembler.New(), deployer, waiter, nil)

	api := NewAPI(sites, orch, gen, registry)

	r := chi.NewRouter()
	r.Use(testSession)
	r.Post("/api/sites/{id}/view", api.SiteView)
	r.Route("/api/sites", func(r chi.Router) {
		r.Get("/", api.SitesList)
		r.Get("/{id}", api.SiteGet)
		r.Put("/{id}", api.SiteUpdate)
		r.Get("/{id}/versions", api.SiteVersions)
		r.Post("/{id}/versions/{n}/restore", api.SiteRestore)
		r.Post("/{id}/archive", api.SiteArchive)
	})
	r.Route("/api/ai", func(r chi.Router) {
		r.Post("/generate", api.Generate)
		r.Post("/content", api.GenerateContent)
		r.Get("/status", api.AIStatus)
	})
	r.Route("/api/vercel", func(r chi.Router) {
		r.Post("/deploy/{siteID}", api.Deploy)
		r.Post("/redeploy/{siteID}", api.Redeploy)
		r.Post("/cancel/{siteID}", api.CancelDeployment)
		r.Post("/domain/{siteID}", api.AttachDomain)
		r.Get("/deployment/{deploymentID}/status", api.DeploymentStatus)
		r.Delete("/deployment/{deploymentID}", api.DeploymentDelete)
	})

	return &testEnv{
		DB:       db,
		Sites:    sites,
		Registry: registry,
		Deployer: deployer,
		Waiter:   waiter,
		API:      api,
		Router:   r,
	}
}

// setMockAIResponse reconfigures the test env's AI mock.
func setMockAIResponse(env *testEnv, response string, err error) {
	env.Registry.Register("test", &mockAIProvider{response: response, err: err})
}

// testSession injects a fixed authenticated session into every request,
// standing in for LoadSession+RequireAuth.
func testSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := &session.Data{
			UserID:      testOwner,
			Email:       "test@example.com",
			DisplayName: "Test User",
			CreatedAt:   time.Now(),
		}
		ctx := context.WithValue(r.Context(), middleware.SessionKey, data)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// doJSON performs a request with a JSON body against the test router.
func doJSON(t *testing.T, env *testEnv, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.Router.ServeHTTP(rec, req)
	return rec
}

// decodeBody unmarshals a recorded response body into dst.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// listVersions fetches a site's version history through the API.
func listVersions(t *testing.T, env *testEnv, siteID string) []models.SiteVersion {
	t.Helper()

	rec := doJSON(t, env, http.MethodGet, "/api/sites/"+siteID+"/versions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list versions: got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Versions []models.SiteVersion `json:"versions"`
	}
	decodeBody(t, rec, &resp)
	return resp.Versions
}

// newStoredSite creates a draft site owned by the test user.
func newStoredSite(t *testing.T, env *testEnv, name string) *models.Site {
	t.Helper()

	site, err := env.Sites.Create(&models.Site{
		OwnerID: testOwner,
		Name:    name,
		Content: models.SiteContent{
			HTML: "<h1>" + name + "</h1>",
			CSS:  "h1 { color: teal; }",
		},
		Settings: models.DefaultSettings(),
		Status:   models.SiteStatusDraft,
	})
	if err != nil {
		t.Fatalf("create site: %v", err)
	}
	return site
}
