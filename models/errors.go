package models

import "errors"

// Error kinds shared by the services. Wrap them with fmt.Errorf("%w: ...")
// and match with errors.Is.
var (
	// ErrValidation marks bad or missing caller input. Never retried.
	ErrValidation = errors.New("validation failed")
	// ErrBlockedURL marks a target rejected by the SSRF policy.
	ErrBlockedURL = errors.New("url blocked by policy")
	// ErrTimeout marks an upstream call that ran out of time.
	ErrTimeout = errors.New("upstream timeout")
	// ErrTransport marks any other upstream network failure.
	ErrTransport = errors.New("upstream request failed")
	// ErrInvalidFormat marks a response lacking the expected shape.
	ErrInvalidFormat = errors.New("invalid response format")
	// ErrNotFound marks a well-formed but empty upstream answer.
	ErrNotFound = errors.New("not found")
)
