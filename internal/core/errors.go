package core

import "errors"

// Failure taxonomy shared by every reload layer. Callers wrap these with
// fmt.Errorf("...: %w") and test them with errors.Is.
var (
	// ErrFileMissing means a settings, manifest or content file is absent.
	ErrFileMissing = errors.New("file missing")

	// ErrParseFailure means a settings or manifest file is malformed.
	ErrParseFailure = errors.New("parse failure")

	// ErrMissingRequiredCategory means the manifest omits a mandatory content group.
	ErrMissingRequiredCategory = errors.New("missing required category")

	// ErrOwnerReload means a content subsystem rejected its new content.
	ErrOwnerReload = errors.New("owner reload failure")
)
