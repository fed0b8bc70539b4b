package utils

import "errors"

var (
	ErrEmptyURL        = errors.New("URL cannot be empty")
	ErrInvalidURL      = errors.New("invalid URL format")
	ErrInvalidScheme   = errors.New("URL scheme must be http or https")
	ErrEmptyHost       = errors.New("URL host cannot be empty")
	ErrNotFound        = errors.New("short URL not found")
	ErrNotValidatedYet = errors.New("short URL has not been validated yet")
	ErrNotReachable    = errors.New("target URL is not reachable")
	ErrEmptyCSV        = errors.New("CSV upload is empty")
)
