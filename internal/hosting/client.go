// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package hosting is the Vercel-style deployment client: project lookup
// and creation, multipart bundle upload, deployment status queries and
// domain assignment. Each call performs a single attempt; retry policy
// belongs to callers.
package hosting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"siteforge/internal/assembler"
)

// Project is a hosting platform project that deployments are created under.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Deployment is one publish attempt on the hosting platform. ReadyState
// is the platform's raw readiness string (READY, ERROR, CANCELED, or an
// in-progress value).
type Deployment struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	ReadyState string `json:"readyState"`
	ProjectID  string `json:"projectId"`
}

// Client talks to the hosting platform API with a bearer token. An
// optional team ID scopes all calls to that team.
type Client struct {
	token      string
	teamID     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a hosting API client. baseURL defaults to the public
// Vercel API when empty.
func NewClient(token, teamID, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.vercel.com"
	}
	return &Client{
		token:   token,
		teamID:  teamID,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// endpoint builds a request URL, adding the teamId parameter when the
// client is team-scoped.
func (c *Client) endpoint(path string) string {
	u := c.baseURL + path
	if c.teamID != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		u += sep + "teamId=" + url.QueryEscape(c.teamID)
	}
	return u
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &DeploymentError{Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &DeploymentError{Op: op, Message: "read response: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &DeploymentError{Op: op, StatusCode: resp.StatusCode, Message: string(body)}
	}
	return body, nil
}

// EnsureProject returns the project with the given name, creating it if
// no project by that name exists yet.
func (c *Client) EnsureProject(ctx context.Context, name string) (*Project, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/v9/projects"), nil)
	if err != nil {
		return nil, fmt.Errorf("ensure project request: %w", err)
	}

	body, err := c.do(req, "list projects")
	if err != nil {
		return nil, err
	}

	var listing struct {
		Projects []Project `json:"projects"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, &DeploymentError{Op: "list projects", Message: "decode response: " + err.Error()}
	}
	for _, p := range listing.Projects {
		if p.Name == name {
			return &p, nil
		}
	}

	return c.createProject(ctx, name)
}

func (c *Client) createProject(ctx context.Context, name string) (*Project, error) {
	payload, err := json.Marshal(map[string]any{
		"name":         name,
		"framework":    "static",
		"publicSource": false,
	})
	if err != nil {
		return nil, fmt.Errorf("encode project payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/v9/projects"), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create project request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, "create project")
	if err != nil {
		return nil, err
	}

	project := &Project{}
	if err := json.Unmarshal(body, project); err != nil {
		return nil, &DeploymentError{Op: "create project", Message: "decode response: " + err.Error()}
	}
	return project, nil
}

// CreateDeployment uploads all bundle files in one multipart request and
// asks for a production deployment under the given project.
func (c *Client) CreateDeployment(ctx context.Context, projectID string, bundle *assembler.Bundle) (*Deployment, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	for _, f := range bundle.Files {
		part, err := form.CreateFormFile("file", f.Name)
		if err != nil {
			return nil, fmt.Errorf("build upload form: %w", err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, fmt.Errorf("build upload form: %w", err)
		}
	}
	if err := form.WriteField("projectId", projectID); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if err := form.WriteField("target", "production"); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if err := form.WriteField("name", projectID); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/v13/deployments"), &buf)
	if err != nil {
		return nil, fmt.Errorf("create deployment request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	body, err := c.do(req, "create deployment")
	if err != nil {
		return nil, err
	}

	deployment := &Deployment{}
	if err := json.Unmarshal(body, deployment); err != nil {
		return nil, &DeploymentError{Op: "create deployment", Message: "decode response: " + err.Error()}
	}
	return deployment, nil
}

// GetDeployment fetches the current state of a deployment. A platform 404
// surfaces as a DeploymentError with NotFound() true so the poller can
// treat early ones as propagation delay.
func (c *Client) GetDeployment(ctx context.Context, deploymentID string) (*Deployment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/v13/deployments/"+deploymentID), nil)
	if err != nil {
		return nil, fmt.Errorf("get deployment request: %w", err)
	}

	body, err := c.do(req, "get deployment")
	if err != nil {
		return nil, err
	}

	deployment := &Deployment{}
	if err := json.Unmarshal(body, deployment); err != nil {
		return nil, &DeploymentError{Op: "get deployment", Message: "decode response: " + err.Error()}
	}
	return deployment, nil
}

// DeleteDeployment removes a deployment from the hosting platform.
func (c *Client) DeleteDeployment(ctx context.Context, deploymentID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint("/v13/deployments/"+deploymentID), nil)
	if err != nil {
		return fmt.Errorf("delete deployment request: %w", err)
	}

	_, err = c.do(req, "delete deployment")
	return err
}

// AddDomain attaches a custom domain to a project.
func (c *Client) AddDomain(ctx context.Context, projectID, domain string) error {
	payload, err := json.Marshal(map[string]string{"name": domain})
	if err != nil {
		return fmt.Errorf("encode domain payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint("/v9/projects/"+projectID+"/domains"), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("add domain request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	_, err = c.do(req, "add domain")
	return err
}
