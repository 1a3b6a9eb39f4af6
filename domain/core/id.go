package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// FieldName names a column of a tidy dataset
type FieldName string

func (f FieldName) String() string { return string(f) }

// ParseFieldName parses a string into FieldName
func ParseFieldName(s string) (FieldName, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("field name cannot be empty")
	}
	return FieldName(strings.TrimSpace(s)), nil
}
