// Package domain contains the sentinel errors shared by every internal package
// (schema, resource, repo, service, handler). It has zero external dependencies.
package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// record or resource does not exist.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails validation before it reaches the
// database (e.g. an unparseable cell, an unknown format).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConfiguration is returned when a resource declares no field selection,
// an invalid combination of selections, or a field the schema cannot resolve.
// It is raised when the resource is constructed, before any I/O happens.
var ErrConfiguration = errors.New("configuration error")

// ErrExport is returned when an export is requested without any records.
// No file is written when this error is returned.
var ErrExport = errors.New("export error")
