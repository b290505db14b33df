package tag

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxNameLength is the maximum tag name length in runes.
const MaxNameLength = 128

// Tag is a user-defined label attached to articles by id.
type Tag struct {
	id          string
	name        string
	description string
	createdAt   time.Time
}

// New validates and creates a Tag. The name is kept verbatim (exact-name identity).
func New(id, name, description string, createdAt time.Time) (Tag, error) {
	if id == "" {
		return Tag{}, fmt.Errorf("tag ID is required")
	}
	if err := ValidateName(name); err != nil {
		return Tag{}, err
	}
	return Tag{id: id, name: name, description: description, createdAt: createdAt}, nil
}

// Reconstruct creates a Tag without validation (storage hydration).
func Reconstruct(id, name, description string, createdAt time.Time) Tag {
	return Tag{id: id, name: name, description: description, createdAt: createdAt}
}

// ValidateName checks a tag name: non-blank, at most MaxNameLength runes.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("tag name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("tag name too long (max %d)", MaxNameLength)
	}
	return nil
}

// ID returns the store-assigned identifier.
func (t *Tag) ID() string { return t.id }

// Name returns the unique tag name.
func (t *Tag) Name() string { return t.name }

// Description returns the free-form description.
func (t *Tag) Description() string { return t.description }

// CreatedAt returns the creation time.
func (t *Tag) CreatedAt() time.Time { return t.createdAt }

// WithDescription returns a copy with the description replaced. Names are immutable.
func (t *Tag) WithDescription(description string) Tag {
	return Tag{id: t.id, name: t.name, description: description, createdAt: t.createdAt}
}

// Precedes reports whether t wins a duplicate-name race against other:
// earliest creation first, then the smaller id.
func (t *Tag) Precedes(other *Tag) bool {
	if !t.createdAt.Equal(other.createdAt) {
		return t.createdAt.Before(other.createdAt)
	}
	return t.id < other.id
}

// Winner returns the tag that wins the duplicate-name race among tags.
func Winner(tags []Tag) (Tag, bool) {
	if len(tags) == 0 {
		return Tag{}, false
	}
	best := tags[0]
	for i := 1; i < len(tags); i++ {
		if tags[i].Precedes(&best) {
			best = tags[i]
		}
	}
	return best, true
}
