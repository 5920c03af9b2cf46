package tabula

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request or message failed validation.
	ErrValidation = errors.New("validation error")

	// ErrNoActiveDataset indicates an operation needed an active dataset.
	ErrNoActiveDataset = errors.New("no active dataset")

	// ErrDatasetNotFound indicates the named dataset is not registered.
	ErrDatasetNotFound = errors.New("dataset not found")

	// ErrUnsupportedFormat indicates a dataset file type that cannot be loaded.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrMissingCredential indicates the model configuration has no API key.
	ErrMissingCredential = errors.New("API key is not configured")

	// ErrConversationNotFound indicates the conversation does not exist.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrUsernameExists indicates a registration for a taken username.
	ErrUsernameExists = errors.New("username exists")

	// ErrUnknownUser indicates a login for a username that is not registered.
	ErrUnknownUser = errors.New("unknown user")

	// ErrWrongPassword indicates a login with a bad password.
	ErrWrongPassword = errors.New("wrong password")
)

// AuthError reports a failed registration or login.
type AuthError struct {
	Username string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth %q: %v", e.Username, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// DatasetLoadError reports a dataset file that could not be read. The
// registry is left unchanged when it is returned.
type DatasetLoadError struct {
	Name string
	Path string
	Err  error
}

func (e *DatasetLoadError) Error() string {
	return fmt.Sprintf("load dataset %q: %v", e.Name, e.Err)
}

func (e *DatasetLoadError) Unwrap() error { return e.Err }

// GenerationStage names the model call that failed.
type GenerationStage string

const (
	StageCode  GenerationStage = "code"
	StageReply GenerationStage = "reply"
)

// GenerationError reports a failed language model call. It never crosses
// the turn boundary: the pipeline turns it into a visible diagnostic.
type GenerationError struct {
	Stage GenerationStage
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
