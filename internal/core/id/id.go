// Package id provides identifiers for catalog records, headers and lines.
// New ids are UUIDv7, so headers created later sort later.
package id

import (
	"bytes"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// ID identifies every stored record.
type ID = uuid.UUID

// New returns a time-ordered UUIDv7, or a random v4 if the clock source fails.
func New() ID {
	if v, err := uuid.NewV7(); err == nil {
		return v
	}
	return uuid.New()
}

// Parse converts s to an ID.
func Parse(s string) (ID, error) {
	return uuid.Parse(strings.TrimSpace(s))
}

// ParseOptional returns nil for a blank string.
func ParseOptional(s string) (*ID, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	v, err := Parse(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// IsNil reports whether v is the zero ID.
func IsNil(v ID) bool {
	return v == uuid.Nil
}

// Compare orders ids bytewise, matching the uuid ordering in Postgres.
func Compare(a, b ID) int {
	return bytes.Compare(a[:], b[:])
}

// SortedUnique returns ids sorted by Compare with duplicates and nil ids removed.
// Row locks are taken in this order so concurrent writers cannot deadlock.
func SortedUnique(ids []ID) []ID {
	out := slices.DeleteFunc(slices.Clone(ids), IsNil)
	slices.SortFunc(out, Compare)
	return slices.Compact(out)
}
