// Package services defines the business logic for report ingestion, status
// aggregation, priority scoring, and the heatmap read model. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// The errors split into two retry classes, which the HTTP layer and the
// client-side sync coordinator both rely on:
//   - validation and geofence errors are definitive: retrying the same
//     payload can never succeed, so the submitter is told once and the item
//     is dropped;
//   - storage errors are transient: the submission queue keeps the item and
//     retries on a later drain.
package services

import "errors"

// Validation errors (non-retryable, surfaced to the submitter).
var (
	// ErrMissingClientID is returned when a submission carries no client-side
	// idempotency key.
	ErrMissingClientID = errors.New("client id is required")

	// ErrInvalidCategory is returned when the category is outside the enum.
	ErrInvalidCategory = errors.New("invalid report category")

	// ErrInvalidServiceType is returned when a service type is present but
	// not electricity or water.
	ErrInvalidServiceType = errors.New("invalid service type")

	// ErrInvalidStatus is returned when an asserted status is outside
	// {available, unstable, cutoff}.
	ErrInvalidStatus = errors.New("invalid service status")

	// ErrStatusRequiresService is returned when a service-status report is
	// missing its service type or status value.
	ErrStatusRequiresService = errors.New("service-status reports require service type and status")

	// ErrEmptyDescription is returned when the description is blank.
	ErrEmptyDescription = errors.New("description is required")

	// ErrDescriptionTooLong is returned when the description exceeds the
	// configured maximum length.
	ErrDescriptionTooLong = errors.New("description too long")

	// ErrPartialCoordinates is returned when only one of latitude/longitude
	// is supplied.
	ErrPartialCoordinates = errors.New("latitude and longitude must be supplied together")
)

// Geofence errors (non-retryable, surfaced to the submitter).
var (
	// ErrOutsideMunicipality is returned when the supplied coordinates fall
	// outside the municipal bounding region.
	ErrOutsideMunicipality = errors.New("coordinates outside municipal bounds")
)

// Read-side errors.
var (
	// ErrProjectNotFound indicates that the requested project does not exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrZoneNotFound indicates that the requested zone is not in the index.
	ErrZoneNotFound = errors.New("zone not found")

	// ErrStatusNeverComputed indicates the aggregator has not yet produced a
	// consensus row for the requested (zone, service) pair.
	ErrStatusNeverComputed = errors.New("status never computed for zone")
)

// IsValidation reports whether err belongs to the non-retryable validation
// or geofence class. Anything else that reaches the storage layer is treated
// as transient.
func IsValidation(err error) bool {
	for _, v := range []error{
		ErrMissingClientID, ErrInvalidCategory, ErrInvalidServiceType,
		ErrInvalidStatus, ErrStatusRequiresService, ErrEmptyDescription,
		ErrDescriptionTooLong, ErrPartialCoordinates, ErrOutsideMunicipality,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
