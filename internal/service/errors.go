// Package service provides the phonebook action facade and the demo seeder.
package service

import "errors"

// Service errors. Domain failures are reported with the sentinels of the
// domain package.
var (
	// ErrSessionClosed indicates the session's owner was deleted.
	ErrSessionClosed = errors.New("session closed")
)
