// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package hosting

import "fmt"

// DeploymentError reports a failed hosting platform API call. StatusCode
// is zero for transport-level failures.
type DeploymentError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *DeploymentError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("hosting %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("hosting %s: %s", e.Op, e.Message)
}

// NotFound reports whether the platform answered 404 for this call.
func (e *DeploymentError) NotFound() bool {
	return e.StatusCode == 404
}

// DeploymentFailedError means the platform itself reported the deployment
// as failed. This is a definitive negative outcome, unlike a timeout.
type DeploymentFailedError struct {
	DeploymentID string
}

func (e *DeploymentFailedError) Error() string {
	return fmt.Sprintf("deployment %s failed on the hosting platform", e.DeploymentID)
}

// DeploymentCanceledError means the deployment was canceled, either on the
// platform or through the local cancellation marker.
type DeploymentCanceledError struct {
	DeploymentID string
}

func (e *DeploymentCanceledError) Error() string {
	return fmt.Sprintf("deployment %s was canceled", e.DeploymentID)
}

// DeploymentTimeoutError means polling exhausted its attempt budget with
// the deployment still in progress. The real outcome is unknown: the
// deployment may yet succeed, so callers must not treat this as a failure
// reported by the platform.
type DeploymentTimeoutError struct {
	DeploymentID string
	Attempts     int
}

func (e *DeploymentTimeoutError) Error() string {
	return fmt.Sprintf("deployment %s still building after %d polls, outcome unknown", e.DeploymentID, e.Attempts)
}
