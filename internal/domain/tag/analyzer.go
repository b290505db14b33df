package tag

import (
	"strings"
	"unicode"
)

// Analyzer produces lowercase edge n-grams of every word of a tag name.
// Words are maximal runs of letters and digits.
type Analyzer struct {
	MinGram int
	MaxGram int
}

// DefaultAnalyzer indexes 2 to 15 character word prefixes.
var DefaultAnalyzer = Analyzer{MinGram: 2, MaxGram: 15}

// Tokens splits s into lowercase words.
func Tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Grams returns the distinct edge grams of name in first-seen order.
// Words shorter than MinGram contribute nothing.
func (a Analyzer) Grams(name string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, tok := range Tokens(name) {
		runes := []rune(tok)
		for n := a.MinGram; n <= a.MaxGram && n <= len(runes); n++ {
			g := string(runes[:n])
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			out = append(out, g)
		}
	}
	return out
}

// QueryGram picks the gram used to narrow prefix candidates in the index: the longest
// word of the prefix, truncated to MaxGram. ok is false when no word reaches MinGram,
// in which case no index lookup can narrow the candidates.
func (a Analyzer) QueryGram(prefix string) (string, bool) {
	var best []rune
	for _, tok := range Tokens(prefix) {
		runes := []rune(tok)
		if len(runes) > len(best) {
			best = runes
		}
	}
	if len(best) < a.MinGram {
		return "", false
	}
	if len(best) > a.MaxGram {
		best = best[:a.MaxGram]
	}
	return string(best), true
}

// MatchesPrefix reports whether name matches prefix case-insensitively under word-prefix
// semantics: the prefix words must equal a run of consecutive name words, the last prefix
// word only needing to be a prefix of its name word. A blank prefix matches everything.
func MatchesPrefix(name, prefix string) bool {
	pw := Tokens(prefix)
	if len(pw) == 0 {
		return strings.TrimSpace(prefix) == "" ||
			strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix))
	}
	nw := Tokens(name)
	last := len(pw) - 1
	for start := 0; start+last < len(nw); start++ {
		if matchesAt(nw[start:], pw, last) {
			return true
		}
	}
	return false
}

func matchesAt(words, pw []string, last int) bool {
	for i := 0; i < last; i++ {
		if words[i] != pw[i] {
			return false
		}
	}
	return strings.HasPrefix(words[last], pw[last])
}
