// Package cache provides the disk-backed lookup cache for resolved job listings.
package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrCacheCorruption marks a persisted entry that could not be decoded or is inconsistent.
	ErrCacheCorruption = errors.New("cache entry corrupted")
	// ErrCacheUnwritable marks a cache file that could not be flushed to disk.
	ErrCacheUnwritable = errors.New("cache file unwritable")
	// ErrInvalidKey marks a key that normalizes to nothing.
	ErrInvalidKey = errors.New("invalid cache key")
)

// CorruptEntryError describes a single entry dropped while loading the cache file.
type CorruptEntryError struct {
	Key   string
	Cause error
}

func (e *CorruptEntryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("corrupt cache entry %q: %v", e.Key, e.Cause)
	}
	return fmt.Sprintf("corrupt cache entry %q", e.Key)
}

func (e *CorruptEntryError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match ErrCacheCorruption.
func (e *CorruptEntryError) Is(target error) bool {
	return target == ErrCacheCorruption
}

// WriteError represents a failure to persist the cache file.
type WriteError struct {
	Path  string
	Cause error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write cache file %s: %v", e.Path, e.Cause)
}

func (e *WriteError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match ErrCacheUnwritable.
func (e *WriteError) Is(target error) bool {
	return target == ErrCacheUnwritable
}
