// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package hosting

import (
	"context"
	"errors"
	"time"

	"siteforge/internal/models"
)

const (
	defaultPollInterval = 3 * time.Second
	defaultMaxAttempts  = 60

	// A 404 within the first transientNotFoundAttempts polls is treated
	// as propagation delay on the platform side. The cutoff is arbitrary
	// but matches observed propagation times.
	transientNotFoundAttempts = 5
)

// StatusSource is the slice of the deployment client the poller needs.
type StatusSource interface {
	GetDeployment(ctx context.Context, deploymentID string) (*Deployment, error)
}

// StatusFromReadyState maps the platform's readiness string onto the
// deployment lifecycle. Anything not terminal counts as building.
func StatusFromReadyState(readyState string) models.DeploymentStatus {
	switch readyState {
	case "READY":
		return models.DeployStatusReady
	case "ERROR":
		return models.DeployStatusError
	case "CANCELED":
		return models.DeployStatusCanceled
	default:
		return models.DeployStatusBuilding
	}
}

// Poller watches a deployment until it reaches a terminal state or the
// attempt budget runs out. Interval, attempt ceiling and the sleep
// function are injectable so tests run without wall-clock delay.
type Poller struct {
	source      StatusSource
	interval    time.Duration
	maxAttempts int

	// sleep waits between polls. The default honors context cancellation.
	sleep func(ctx context.Context, d time.Duration) error

	// canceled, when set, is consulted before each poll so an externally
	// recorded cancellation stops the loop without waiting for the
	// platform to report it.
	canceled func(ctx context.Context, deploymentID string) bool
}

// NewPoller creates a Poller with the default 3 second interval and 60
// attempt ceiling.
func NewPoller(source StatusSource) *Poller {
	return &Poller{
		source:      source,
		interval:    defaultPollInterval,
		maxAttempts: defaultMaxAttempts,
		sleep:       sleepCtx,
	}
}

// WithInterval overrides the poll interval.
func (p *Poller) WithInterval(d time.Duration) *Poller {
	p.interval = d
	return p
}

// WithMaxAttempts overrides the attempt ceiling.
func (p *Poller) WithMaxAttempts(n int) *Poller {
	p.maxAttempts = n
	return p
}

// WithSleep replaces the inter-poll wait. Tests inject an instant sleep.
func (p *Poller) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Poller {
	p.sleep = sleep
	return p
}

// WithCancelCheck installs an external cancellation probe.
func (p *Poller) WithCancelCheck(canceled func(ctx context.Context, deploymentID string) bool) *Poller {
	p.canceled = canceled
	return p
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Wait polls until the deployment is READY, reports a terminal failure,
// or the attempt budget is exhausted. On success the final deployment
// record is returned. ERROR and CANCELED surface as
// DeploymentFailedError and DeploymentCanceledError; running out of
// attempts surfaces as DeploymentTimeoutError, which means the outcome
// is unknown rather than negative.
func (p *Poller) Wait(ctx context.Context, deploymentID string) (*Deployment, error) {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if p.canceled != nil && p.canceled(ctx, deploymentID) {
			return nil, &DeploymentCanceledError{DeploymentID: deploymentID}
		}

		deployment, err := p.source.GetDeployment(ctx, deploymentID)
		if err != nil {
			var apiErr *DeploymentError
			if errors.As(err, &apiErr) && apiErr.NotFound() && attempt <= transientNotFoundAttempts {
				// The deployment record may not have propagated yet.
				if serr := p.sleep(ctx, p.interval); serr != nil {
					return nil, serr
				}
				continue
			}
			return nil, err
		}

		switch deployment.ReadyState {
		case "READY":
			return deployment, nil
		case "ERROR":
			return nil, &DeploymentFailedError{DeploymentID: deploymentID}
		case "CANCELED":
			return nil, &DeploymentCanceledError{DeploymentID: deploymentID}
		}

		if attempt < p.maxAttempts {
			if err := p.sleep(ctx, p.interval); err != nil {
				return nil, err
			}
		}
	}

	return nil, &DeploymentTimeoutError{DeploymentID: deploymentID, Attempts: p.maxAttempts}
}
