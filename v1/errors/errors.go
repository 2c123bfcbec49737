package errors

import "errors"

var (
	ErrTimeout          = errors.New("timeout")
	ErrConnectionClosed = errors.New("connection closed")
	ErrInvalidTTL       = errors.New("lock ttl must be positive")
	ErrHandleClosed     = errors.New("lock handle closed")
)
