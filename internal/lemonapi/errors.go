package lemonapi

import "errors"

var (
	// ErrUnauthorized is returned when the API answers 401.
	ErrUnauthorized = errors.New("lemonapi: unauthorized")

	// ErrUnexpectedStatus is returned for any other non-2xx answer.
	ErrUnexpectedStatus = errors.New("lemonapi: unexpected status")

	// ErrInvalidResponse is returned when a body cannot be decoded.
	ErrInvalidResponse = errors.New("lemonapi: invalid response")
)
