package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrUnauthorized indicates that the caller is not authenticated.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden indicates that the authenticated caller may not perform the action.
var ErrForbidden = errors.New("forbidden")

// ErrConflict indicates that the resource is in a state that does not permit
// the requested transition (e.g. resolving an already-resolved pending change).
var ErrConflict = errors.New("state conflict")

// ErrVersionConflict indicates that a conditional write lost an optimistic
// concurrency race: the loan's version changed between read and write back.
// Callers should re-fetch and retry the whole read-modify-write cycle.
var ErrVersionConflict = errors.New("version conflict")

// ErrDecryption indicates that an encrypted bundle failed authentication.
// This is a data-integrity failure and must never be downgraded to empty data.
var ErrDecryption = errors.New("decryption failed")

// ErrInternal indicates an unexpected server-side failure.
var ErrInternal = errors.New("internal error")
