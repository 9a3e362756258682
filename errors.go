package bookhive

import (
	"github.com/bookhive/bookhive/cache"
	"github.com/bookhive/bookhive/store"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = store.ErrNotFound

// ErrVersionExists is returned when a notification with the same
// version string already exists.
var ErrVersionExists = store.ErrVersionExists

// ErrInvalidAction is returned for an unknown view action.
var ErrInvalidAction = store.ErrInvalidAction

// ErrCacheClosed is returned when operations are performed on a closed cache.
var ErrCacheClosed = cache.ErrCacheClosed

// ErrInvalidConfig is returned when the configuration is invalid.
var ErrInvalidConfig = cache.ErrInvalidConfig
