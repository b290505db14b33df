package tag

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	domtag "github.com/kailas-cloud/tagdex/internal/domain/tag"
)

// tagDoc is the stored JSON shape of a tag.
type tagDoc struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	NameKey     string   `json:"name_key"`
	NameGrams   []string `json:"name_grams"`
	Description string   `json:"description"`
	CreatedAt   int64    `json:"created_at"`
}

// NameKey is the exact-name identity indexed as a case-sensitive TAG.
func NameKey(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:])
}

func toDoc(t *domtag.Tag, a domtag.Analyzer) tagDoc {
	grams := a.Grams(t.Name())
	if grams == nil {
		grams = []string{}
	}
	return tagDoc{
		ID:          t.ID(),
		Name:        t.Name(),
		NameKey:     NameKey(t.Name()),
		NameGrams:   grams,
		Description: t.Description(),
		CreatedAt:   t.CreatedAt().UnixMilli(),
	}
}

func (d *tagDoc) toDomain() domtag.Tag {
	return domtag.Reconstruct(d.ID, d.Name, d.Description, time.UnixMilli(d.CreatedAt))
}
