package db

import (
	"strconv"
	"strings"
)

// IndexBuilder is a fluent builder for JSON FT index definitions.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts building an FT index definition.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name}}
}

// Prefix adds key prefixes to the index.
func (b *IndexBuilder) Prefix(prefixes ...string) *IndexBuilder {
	b.def.Prefixes = append(b.def.Prefixes, prefixes...)
	return b
}

func (b *IndexBuilder) field(f IndexField) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, f)
	return b
}

// Numeric adds a NUMERIC field.
func (b *IndexBuilder) Numeric(path, alias string) *IndexBuilder {
	return b.field(IndexField{Path: path, Alias: alias, Type: IndexFieldNumeric})
}

// Tag adds a case-insensitive TAG field.
func (b *IndexBuilder) Tag(path, alias string) *IndexBuilder {
	return b.field(IndexField{Path: path, Alias: alias, Type: IndexFieldTag})
}

// ExactTag adds a case-sensitive TAG field for exact identity lookups.
func (b *IndexBuilder) ExactTag(path, alias string) *IndexBuilder {
	return b.field(IndexField{Path: path, Alias: alias, Type: IndexFieldTag, CaseSensitive: true})
}

// TextIf adds a TEXT field only when enabled (backends without full-text support skip it).
func (b *IndexBuilder) TextIf(enabled bool, path, alias string) *IndexBuilder {
	if !enabled {
		return b
	}
	return b.field(IndexField{Path: path, Alias: alias, Type: IndexFieldText})
}

// Build validates and returns the index definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	return &b.def, nil
}

// MustBuild calls Build and panics on error. For static definitions only.
func (b *IndexBuilder) MustBuild() *IndexDefinition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

// Args returns the FT.CREATE arguments after the command name.
func (idx *IndexDefinition) Args() []string {
	args := []string{idx.Name, "ON", "JSON", "PREFIX", strconv.Itoa(len(idx.Prefixes))}
	args = append(args, idx.Prefixes...)
	args = append(args, "SCHEMA")
	for i := range idx.Fields {
		args = append(args, idx.Fields[i].args()...)
	}
	return args
}

func (f *IndexField) args() []string {
	args := []string{f.Path, "AS", f.Alias}
	switch f.Type {
	case IndexFieldNumeric:
		args = append(args, "NUMERIC")
	case IndexFieldText:
		args = append(args, "TEXT")
	case IndexFieldTag:
		args = append(args, "TAG")
		if f.CaseSensitive {
			args = append(args, "CASESENSITIVE")
		}
	}
	return args
}

// String returns the FT.CREATE command as it would be typed in a CLI.
func (idx *IndexDefinition) String() string {
	return "FT.CREATE " + strings.Join(idx.Args(), " ")
}
