package domain

import "errors"

// Authentication errors. ErrInvalidCredentials deliberately covers both
// "no such user" and "wrong password" so responses cannot be used for
// account enumeration.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountSuspended   = errors.New("account suspended")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrMissingToken       = errors.New("refresh token missing")
)

// Authorization errors
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotStaff     = errors.New("user is not a staff member")
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found or already invalidated")
	ErrSessionExpired  = errors.New("session expired")
)

// Entity errors
var (
	ErrNotFound = errors.New("resource not found")
	ErrConflict = errors.New("duplicate entry")
)

// Superuser singleton violations. Role and department are independent
// constraints sharing the same reserved sentinel value.
var (
	ErrDuplicateSuperuser           = errors.New("a superuser already exists")
	ErrDuplicateSuperuserDepartment = errors.New("a superuser department already exists")
)

// ErrPersistence signals a store/transaction failure, including a
// failed audit write after an otherwise successful mutation.
var ErrPersistence = errors.New("persistence failure")
