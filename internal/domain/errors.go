package domain

import "errors"

var (
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrNotReady signals that the document has not finished ingestion.
	ErrNotReady = errors.New("document not ready")
	// ErrNotIndexed signals that the document has no index reference to query.
	ErrNotIndexed = errors.New("document not indexed")
	// ErrInvalidInput signals missing or malformed request fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidTransition signals a status change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrGatewayError signals a failure talking to the AI service.
	ErrGatewayError = errors.New("ai service error")
	// ErrStorage signals a failed filesystem operation.
	ErrStorage = errors.New("storage error")
	// ErrUnavailable signals that the metadata store is not reachable.
	ErrUnavailable = errors.New("service unavailable")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
)
