package domain

import "errors"

// Domain errors represent error conditions in the parcelship domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrInsufficientData is returned when a row lacks the recipient name or
	// address required to build a Parcel.
	ErrInsufficientData = errors.New("parcelship: insufficient data")

	// ErrInvalidCredentials is returned when one of the four credential
	// fields is empty.
	ErrInvalidCredentials = errors.New("parcelship: incomplete credentials")

	// ErrBatchTooLarge is returned when a submit call is handed more parcels
	// than the server accepts per batch.
	ErrBatchTooLarge = errors.New("parcelship: batch exceeds server limit")

	// ErrNotConnected is returned when a remote operation is attempted
	// before Connect.
	ErrNotConnected = errors.New("parcelship: client not connected")

	// ErrAlreadyConnected is returned when Connect is called twice.
	ErrAlreadyConnected = errors.New("parcelship: client already connected")

	// ErrRunCancelled is returned when an upload run is cancelled between
	// batch groups.
	ErrRunCancelled = errors.New("parcelship: run cancelled")
)
