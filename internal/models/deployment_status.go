// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// DeploymentStatus is the site-side view of the hosting platform's state
// machine. A deployment request starts in pending, moves to building as
// soon as the platform hands back a deployment id, and ends in exactly
// one of ready, error or canceled.
type DeploymentStatus string

const (
	DeployStatusPending  DeploymentStatus = "pending"
	DeployStatusBuilding DeploymentStatus = "building"
	DeployStatusReady    DeploymentStatus = "ready"
	DeployStatusError    DeploymentStatus = "error"
	DeployStatusCanceled DeploymentStatus = "canceled"
)

// transitions lists the allowed forward moves. Terminal states have no
// outgoing edges; ready is only reachable through building.
var transitions = map[DeploymentStatus][]DeploymentStatus{
	DeployStatusPending:  {DeployStatusBuilding, DeployStatusError, DeployStatusCanceled},
	DeployStatusBuilding: {DeployStatusReady, DeployStatusError, DeployStatusCanceled},
	DeployStatusReady:    {},
	DeployStatusError:    {},
	DeployStatusCanceled: {},
}

// Valid reports whether s is one of the five known statuses.
func (s DeploymentStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether s is an end state of the machine.
func (s DeploymentStatus) Terminal() bool {
	return s == DeployStatusReady || s == DeployStatusError || s == DeployStatusCanceled
}

// CanTransition reports whether the machine may move from s to next.
// A no-op transition to the same state is always allowed so that repeated
// status writes during polling stay idempotent.
func (s DeploymentStatus) CanTransition(next DeploymentStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	// A brand-new site has no status yet; any valid initial state is fine.
	if s == "" {
		return next.Valid()
	}
	return false
}
