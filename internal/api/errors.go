package api

import (
	"errors"
	"net/http"

	"mdx2dax/internal/dax"
	"mdx2dax/internal/engine"
	"mdx2dax/internal/lint"
	"mdx2dax/internal/mdx"
	"mdx2dax/internal/transform"
)

// httpStatusFromError maps pipeline errors to HTTP status codes. Parse,
// transform, validation, and configuration failures are the caller's fault;
// everything else is a server error.
func httpStatusFromError(err error) int {
	var parseErr *mdx.ParseError
	var transformErr *transform.TransformationError
	var validationErr *engine.ValidationError
	var lintCfgErr *lint.ConfigurationError
	var engineCfgErr *engine.ConfigurationError
	var genErr *dax.GenerationError

	switch {
	case errors.As(err, &parseErr),
		errors.As(err, &transformErr),
		errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &lintCfgErr),
		errors.As(err, &engineCfgErr):
		return http.StatusBadRequest
	case errors.As(err, &genErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// errorKind names the error type for API clients.
func errorKind(err error) string {
	var parseErr *mdx.ParseError
	var transformErr *transform.TransformationError
	var validationErr *engine.ValidationError
	var lintCfgErr *lint.ConfigurationError
	var engineCfgErr *engine.ConfigurationError
	var genErr *dax.GenerationError
	var lintErr *lint.LintError

	switch {
	case errors.As(err, &parseErr):
		return "parse_error"
	case errors.As(err, &transformErr):
		return "transformation_error"
	case errors.As(err, &validationErr):
		return "validation_error"
	case errors.As(err, &lintCfgErr), errors.As(err, &engineCfgErr):
		return "configuration_error"
	case errors.As(err, &genErr):
		return "generation_error"
	case errors.As(err, &lintErr):
		return "lint_error"
	default:
		return "internal_error"
	}
}
