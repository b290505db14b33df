package db

import (
	"errors"
	"strconv"
)

// IndexFieldType enumerates supported FT index field types.
type IndexFieldType int

const (
	// IndexFieldNumeric is a numeric field.
	IndexFieldNumeric IndexFieldType = iota
	// IndexFieldTag is a tag field.
	IndexFieldTag
	// IndexFieldText is a text field.
	IndexFieldText
)

// IndexField is one attribute of a JSON index: Path is a JSONPath ($.tags[*]),
// Alias the attribute name used in queries.
type IndexField struct {
	Path  string
	Alias string
	Type  IndexFieldType

	// CaseSensitive keeps TAG values as written. Exact-name identity needs it;
	// array tags (ids, grams) are already normalized.
	CaseSensitive bool
}

// IndexDefinition is an FT index over JSON documents under Prefixes.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return errors.New("index name contains invalid characters")
	}
	if len(idx.Prefixes) == 0 {
		return errors.New("at least one key prefix is required")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool, len(idx.Fields))
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Path == "" {
			return errors.New("field path is required at index " + strconv.Itoa(i))
		}
		if f.Alias == "" {
			return errors.New("field alias is required for " + f.Path)
		}
		if seen[f.Alias] {
			return errors.New("duplicate field name: " + f.Alias)
		}
		seen[f.Alias] = true
		if f.Type < IndexFieldNumeric || f.Type > IndexFieldText {
			return errors.New("unknown field type: " + f.Alias)
		}
		if f.CaseSensitive && f.Type != IndexFieldTag {
			return errors.New("case sensitivity applies to tag fields only: " + f.Alias)
		}
	}
	return nil
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == ':' || r == '-'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
