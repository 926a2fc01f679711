package incidents

import "errors"

var (
	ErrNotFound        = errors.New("incident not found")
	ErrVersionConflict = errors.New("incident was modified by another request")
	ErrInvalidStatus   = errors.New("invalid incident status")
	ErrInvalidSeverity = errors.New("invalid severity level")
)
