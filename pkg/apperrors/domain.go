package apperrors

import (
	"net/http"
)

// Factories and predefined values for the storage pipeline's error taxonomy.

// ErrNotFound converts a repository miss (e.g. gorm.ErrRecordNotFound)
// into the canonical 404.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrBackendUnavailable wraps a transient store/delete/open failure on a
// storage backend. The whole upload may be retried; a fresh stored name is
// allocated on every attempt.
func ErrBackendUnavailable(err error) *AppError {
	return Wrap(err, CodeBackendUnavailable, "storage", "Storage backend unavailable", http.StatusBadGateway)
}

// ErrProcessingFailed wraps a codec or thumbnail derivation failure.
// Callers log it and keep the primary upload.
func ErrProcessingFailed(err error) *AppError {
	return Wrap(err, CodeProcessingFailed, "imaging", "Image processing failed", http.StatusUnprocessableEntity)
}

// --- Upload validation ---

// ErrFileTooLarge: the file exceeds the configured size ceiling.
var ErrFileTooLarge = New(
	CodeValidationFailed,
	"validation",
	"File size exceeds the allowed limit",
	http.StatusRequestEntityTooLarge,
)

// ErrEmptyFile: the upload carries no bytes.
var ErrEmptyFile = New(
	CodeValidationFailed,
	"validation",
	"Uploaded file is empty",
	http.StatusBadRequest,
)

// ErrInvalidFileType: the declared content type is not on the allow-list.
var ErrInvalidFileType = New(
	CodeValidationFailed,
	"validation",
	"The provided file type is not allowed",
	http.StatusUnsupportedMediaType,
)

// ErrInvalidExtension: the filename extension is not on the allow-list.
var ErrInvalidExtension = New(
	CodeValidationFailed,
	"validation",
	"The file extension is not allowed",
	http.StatusUnsupportedMediaType,
)

// ErrStorageQuotaExceeded: the upload would push the owner past their quota.
var ErrStorageQuotaExceeded = New(
	CodeQuotaExceeded,
	"storage",
	"Storage quota exceeded",
	http.StatusForbidden,
)

// ErrUnsupportedCapability: the disk's backend cannot perform the
// requested operation (e.g. thumbnails on a remote-only backend).
var ErrUnsupportedCapability = New(
	CodeUnsupportedCapability,
	"storage",
	"Operation not supported by this storage backend",
	http.StatusNotImplemented,
)

// ErrUnknownDisk: the requested disk is not configured.
var ErrUnknownDisk = New(
	CodeValidationFailed,
	"storage",
	"Unknown storage disk",
	http.StatusBadRequest,
)
