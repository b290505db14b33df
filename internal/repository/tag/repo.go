package tag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/tagdex/internal/db"
	"github.com/kailas-cloud/tagdex/internal/domain"
	domtag "github.com/kailas-cloud/tagdex/internal/domain/tag"
	"github.com/kailas-cloud/tagdex/internal/repository/docstore"
	"github.com/kailas-cloud/tagdex/internal/repository/schema"
)

const namePageSize = 100

// documents is the consumer interface over the document client (ISP).
type documents interface {
	Get(ctx context.Context, collection, id string, dst any) error
	GetMany(ctx context.Context, collection string, ids []string) ([][]byte, error)
	Index(ctx context.Context, collection, id string, body any, onlyIfAbsent bool) (bool, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Search(ctx context.Context, collection, query, cursor string, limit int) ([]docstore.Hit, string, error)
	Scan(ctx context.Context, collection, cursor string, limit int) ([]docstore.Hit, string, error)
}

// Repo implements tag storage on the tags collection.
type Repo struct {
	docs     documents
	analyzer domtag.Analyzer
}

// New creates a tag repository using the default name analyzer.
func New(d documents) *Repo {
	return &Repo{docs: d, analyzer: domtag.DefaultAnalyzer}
}

// Analyzer returns the analyzer used to index names.
func (r *Repo) Analyzer() domtag.Analyzer { return r.analyzer }

// Create writes a new tag. Returns false when the id is already taken.
func (r *Repo) Create(ctx context.Context, t *domtag.Tag) (bool, error) {
	ok, err := r.docs.Index(ctx, schema.Tags, t.ID(), toDoc(t, r.analyzer), true)
	if err != nil {
		return false, fmt.Errorf("create tag %s: %w", t.ID(), err)
	}
	return ok, nil
}

// Get returns a tag by id.
func (r *Repo) Get(ctx context.Context, id string) (domtag.Tag, error) {
	var d tagDoc
	if err := r.docs.Get(ctx, schema.Tags, id, &d); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domtag.Tag{}, domain.ErrTagNotFound
		}
		return domtag.Tag{}, err
	}
	return d.toDomain(), nil
}

// GetMany returns tags positionally; missing ids yield nil entries.
func (r *Repo) GetMany(ctx context.Context, ids []string) ([]*domtag.Tag, error) {
	raws, err := r.docs.GetMany(ctx, schema.Tags, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*domtag.Tag, len(ids))
	for i, raw := range raws {
		if i >= len(out) || raw == nil {
			continue
		}
		var d tagDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode tag %s: %w", ids[i], err)
		}
		t := d.toDomain()
		out[i] = &t
	}
	return out, nil
}

// FindByName returns every live tag whose name equals name exactly, as seen by the index.
// More than one result means a creation race is in flight or was left unresolved.
func (r *Repo) FindByName(ctx context.Context, name string) ([]domtag.Tag, error) {
	query := db.TagMatch("name_key", NameKey(name))
	var out []domtag.Tag
	cursor := ""
	for {
		hits, next, err := r.docs.Search(ctx, schema.Tags, query, cursor, namePageSize)
		if err != nil {
			return nil, fmt.Errorf("find tag %q: %w", name, err)
		}
		for _, h := range hits {
			d, err := decode(h)
			if err != nil {
				return nil, err
			}
			if d.Name == name {
				out = append(out, d.toDomain())
			}
		}
		if next == "" {
			return out, nil
		}
		cursor = next
	}
}

// FindByGram returns a page of tags indexed under the analyzer gram.
func (r *Repo) FindByGram(ctx context.Context, gram, cursor string, limit int) ([]domtag.Tag, string, error) {
	hits, next, err := r.docs.Search(ctx, schema.Tags, db.TagMatch("name_grams", gram), cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("find tags by gram %q: %w", gram, err)
	}
	tags, err := decodeAll(hits)
	if err != nil {
		return nil, "", err
	}
	return tags, next, nil
}

// List returns a page of tags in storage order. Page sizes are approximate.
func (r *Repo) List(ctx context.Context, cursor string, limit int) ([]domtag.Tag, string, error) {
	hits, next, err := r.docs.Scan(ctx, schema.Tags, cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("list tags: %w", err)
	}
	tags, err := decodeAll(hits)
	if err != nil {
		return nil, "", err
	}
	return tags, next, nil
}

// UpdateDescription replaces the description of an existing tag.
func (r *Repo) UpdateDescription(ctx context.Context, id, description string) error {
	err := r.docs.Update(ctx, schema.Tags, id, map[string]any{"description": description})
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrTagNotFound
	}
	return err
}

// Delete removes a tag record. Deleting a missing tag is not an error.
func (r *Repo) Delete(ctx context.Context, id string) error {
	return r.docs.Delete(ctx, schema.Tags, id)
}

func decode(h docstore.Hit) (tagDoc, error) {
	var d tagDoc
	if err := json.Unmarshal(h.Source, &d); err != nil {
		return tagDoc{}, fmt.Errorf("decode tag %s: %w", h.ID, err)
	}
	if d.ID == "" {
		d.ID = h.ID
	}
	return d, nil
}

func decodeAll(hits []docstore.Hit) ([]domtag.Tag, error) {
	out := make([]domtag.Tag, 0, len(hits))
	for _, h := range hits {
		d, err := decode(h)
		if err != nil {
			return nil, err
		}
		out = append(out, d.toDomain())
	}
	return out, nil
}
