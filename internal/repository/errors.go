// Package repository defines error types that are reused across the
// layout stores.  These sentinel values allow higher layers such as the
// layout service to distinguish between different failure scenarios and
// translate them into boundary codes.
package repository

import "errors"

// ErrFloorNotFound is returned when no layout row exists for a floor.
var ErrFloorNotFound = errors.New("floor not found")

// ErrDraftNotFound is returned when a floor exists but has no draft yet.
var ErrDraftNotFound = errors.New("draft not found")

// ErrStaleVersion is returned by Activate when the stored version no
// longer matches the caller's expected version.  Nothing is written.
var ErrStaleVersion = errors.New("layout version is stale")

// ErrStatusConflict is returned when a table's stored status differs from
// the status the caller expected to move away from.
var ErrStatusConflict = errors.New("table status changed concurrently")

// ErrCorruptSnapshot is returned when a stored snapshot cannot be decoded.
var ErrCorruptSnapshot = errors.New("stored snapshot is corrupt")
