package core

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound      = errors.New("pagebridge: not found")
	ErrInvalidCookie = errors.New("pagebridge: invalid session cookie")
	ErrBadPath       = errors.New("pagebridge: bad asset path")
)

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// VersionConflictError is returned by Render when a mutating Inertia
// request was made against stale client assets.
type VersionConflictError struct {
	URL string
}

func (e *VersionConflictError) Error() string {
	return "pagebridge: asset version conflict for " + e.URL
}

// ValidationErrors maps a field name to its message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return "pagebridge: validation failed: " + strings.Join(parts, "; ")
}
