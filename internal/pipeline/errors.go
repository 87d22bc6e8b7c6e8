// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package pipeline

import (
	"errors"
	"net/http"

	"siteforge/internal/generator"
	"siteforge/internal/hosting"
	"siteforge/internal/store"
)

// Stable error codes returned to API callers. Codes never change once
// published; messages may.
const (
	CodeValidation         = "validation_error"
	CodeGeneration         = "generation_error"
	CodeParse              = "parse_error"
	CodeDeployment         = "deployment_error"
	CodeDeploymentFailed   = "deployment_failed"
	CodeDeploymentCanceled = "deployment_canceled"
	CodeDeploymentTimeout  = "deployment_timeout"
	CodeNotFound           = "not_found"
	CodeInternal           = "internal_error"
)

// Classify maps any pipeline error onto a stable code and HTTP status.
// Unknown errors become internal_error.
func Classify(err error) (code string, status int) {
	switch {
	case errors.As(err, new(*generator.ValidationError)):
		return CodeValidation, http.StatusBadRequest
	case errors.Is(err, ErrNotDeployable):
		return CodeValidation, http.StatusConflict
	case errors.As(err, new(*generator.ParseError)):
		return CodeParse, http.StatusBadGateway
	case errors.As(err, new(*generator.GenerationError)):
		return CodeGeneration, http.StatusBadGateway
	case errors.As(err, new(*hosting.DeploymentFailedError)):
		return CodeDeploymentFailed, http.StatusBadGateway
	case errors.As(err, new(*hosting.DeploymentCanceledError)):
		return CodeDeploymentCanceled, http.StatusConflict
	case errors.As(err, new(*hosting.DeploymentTimeoutError)):
		return CodeDeploymentTimeout, http.StatusGatewayTimeout
	case errors.Is(err, store.ErrNotFound):
		return CodeNotFound, http.StatusNotFound
	default:
		var apiErr *hosting.DeploymentError
		if errors.As(err, &apiErr) {
			if apiErr.NotFound() {
				return CodeNotFound, http.StatusNotFound
			}
			return CodeDeployment, http.StatusBadGateway
		}
		return CodeInternal, http.StatusInternalServerError
	}
}
