package domain

import "errors"

// Sentinel errors shared by stores, services and handlers. Wrap them with
// fmt.Errorf("...: %w", err) and test with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrQuoteNotFound = errors.New("quote not found")
	ErrConflict      = errors.New("concurrent update conflict")
	ErrUnauthorized  = errors.New("unauthorized")
)
