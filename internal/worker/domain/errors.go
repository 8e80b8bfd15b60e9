package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth is returned when the worker cannot log in to the photo service
	ErrAuth = errors.New("authentication failed")

	// ErrFetchBatch is returned when the photo feed cannot be read
	ErrFetchBatch = errors.New("fetch photo batch failed")

	// ErrDownload is returned when a photo cannot be stored locally
	ErrDownload = errors.New("photo download failed")

	// ErrClassify is returned when the service cannot classify a photo
	ErrClassify = errors.New("photo classification failed")

	// ErrAccept is returned when an accept call fails
	ErrAccept = errors.New("photo accept failed")

	// ErrCleanup is returned when a temporary photo file cannot be removed
	ErrCleanup = errors.New("temporary file cleanup failed")

	// ErrBootstrap is returned when the campaign cannot be listed or created
	ErrBootstrap = errors.New("campaign bootstrap failed")

	// ErrInvalidPhotoID is returned for ids that cannot be used in a file name
	ErrInvalidPhotoID = errors.New("invalid photo id")
)

// StageError annotates a failure with the processing stage and photo
type StageError struct {
	Stage   string
	PhotoID string
	Kind    error
	Err     error
}

// NewStageError wraps err as kind raised at stage for photoID
func NewStageError(kind error, stage, photoID string, err error) error {
	return &StageError{Stage: stage, PhotoID: photoID, Kind: kind, Err: err}
}

func (e *StageError) Error() string {
	if e.PhotoID == "" {
		return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s photo %s: %v: %v", e.Stage, e.PhotoID, e.Kind, e.Err)
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
