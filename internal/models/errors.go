package models

import "errors"

// Store sentinels shared by repositories and handlers. Repositories translate
// database conditions (unique violations, no rows) into these; handlers map
// them onto HTTP status codes.
var (
	ErrDuplicateEmail = errors.New("email already in use")
	ErrAlreadyMember  = errors.New("user already belongs to organisation")
	ErrNotFound       = errors.New("record not found")
)
