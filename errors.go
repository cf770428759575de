package zlog

import "errors"

// Sentinel errors returned by configuration setters and lifecycle
// operations. spec.md §7 calls for "a negative sentinel on bad input"; the
// Go idiom for that is a wrapped sentinel error rather than an integer code.
var (
	ErrInvalidConfig   = errors.New("zlog: invalid configuration")
	ErrNotInitialized  = errors.New("zlog: service not initialized")
	ErrAlreadyShutdown = errors.New("zlog: service already shut down")
)
