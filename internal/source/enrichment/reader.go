// Package enrichment reads the records produced by the enrichment pipeline.
// A file is either one JSON array of records or JSON Lines, one record per line.
package enrichment

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	domart "github.com/kailas-cloud/tagdex/internal/domain/article"
)

type record struct {
	ID       flexID    `json:"id"`
	Heading  string    `json:"heading"`
	Text     string    `json:"article_text"`
	URL      string    `json:"url"`
	Keywords []keyword `json:"keywords"`
	Topic    topic     `json:"topic"`
}

type keyword struct {
	Word       string  `json:"word"`
	Similarity float64 `json:"similarity"`
}

type topic struct {
	Name        string  `json:"topic_name"`
	Probability float64 `json:"probability"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

// flexID accepts ids as JSON numbers or numeric strings.
type flexID struct {
	value int64
	set   bool
}

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return errors.New("id is empty")
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("id %s is not an integer", b)
	}
	f.value, f.set = v, true
	return nil
}

func (r *record) draft() domart.Draft {
	kws := make([]domart.Keyword, len(r.Keywords))
	for i, k := range r.Keywords {
		kws[i] = domart.Keyword{Word: k.Word, Similarity: k.Similarity}
	}
	return domart.Draft{
		ID:       r.ID.value,
		Heading:  r.Heading,
		Text:     r.Text,
		URL:      r.URL,
		Keywords: kws,
		Topic: domart.Topic{
			Name:        r.Topic.Name,
			Probability: r.Topic.Probability,
			X:           r.Topic.X,
			Y:           r.Topic.Y,
		},
	}
}

// ReadFile reads every record of the file at path.
func ReadFile(path string) ([]domart.Draft, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied input file
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return Read(f)
}

// Read decodes records from r. The format is detected from the first non-space byte.
// Records are not validated beyond their shape; that happens on load.
func Read(r io.Reader) ([]domart.Draft, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if first == '[' {
		return readArray(br)
	}
	return readLines(br)
}

func readArray(r io.Reader) ([]domart.Draft, error) {
	var recs []record
	if err := json.NewDecoder(r).Decode(&recs); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	out := make([]domart.Draft, 0, len(recs))
	for i := range recs {
		if !recs[i].ID.set {
			return nil, fmt.Errorf("record %d: id is missing", i)
		}
		out = append(out, recs[i].draft())
	}
	return out, nil
}

const maxLine = 16 << 20

func readLines(r io.Reader) ([]domart.Draft, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)

	var out []domart.Draft
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(b, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !rec.ID.set {
			return nil, fmt.Errorf("line %d: id is missing", line)
		}
		out = append(out, rec.draft())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return out, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			_, _ = br.ReadByte()
		default:
			return b[0], nil
		}
	}
}
