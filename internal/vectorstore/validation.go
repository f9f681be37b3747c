package vectorstore

import (
	"fmt"
	"regexp"
)

// collectionNamePattern validates collection names.
// Pattern: lowercase letters, numbers, underscores, 1-64 characters.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// ValidateCollectionName validates a collection name against security rules.
// Rejects: uppercase, special chars, path traversal, spaces.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidCollectionName)
	}
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: collection name must match pattern ^[a-z0-9_]{1,64}$, got %q", ErrInvalidCollectionName, name)
	}
	return nil
}

func validateRecords(records []Record, dimension int) error {
	if len(records) == 0 {
		return ErrEmptyRecords
	}
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record without id")
		}
		if len(r.Embedding) == 0 {
			return fmt.Errorf("record %s: missing embedding", r.ID)
		}
		if dimension > 0 && len(r.Embedding) != dimension {
			return fmt.Errorf("%w: record %s has %d, want %d", ErrDimensionMismatch, r.ID, len(r.Embedding), dimension)
		}
	}
	return nil
}
