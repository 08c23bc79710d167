package matcher

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Scorer rates how well query matches candidate, in [0,1]
type Scorer interface {
	Score(query, candidate string) float64
}

// TokenScorer compares normalized labels with Levenshtein similarity, taking the
// better of the raw and token-sorted forms so word order does not matter.
type TokenScorer struct {
	params *levenshtein.Params
}

// NewTokenScorer returns a TokenScorer with the library's default costs
func NewTokenScorer() *TokenScorer {
	return &TokenScorer{params: levenshtein.NewParams()}
}

// Score implements Scorer
func (s *TokenScorer) Score(query, candidate string) float64 {
	q := NormalizeLabel(query)
	c := NormalizeLabel(candidate)
	if q == "" || c == "" {
		return 0
	}
	if q == c {
		return 1
	}

	best := levenshtein.Similarity(q, c, s.params)
	if sorted := levenshtein.Similarity(sortTokens(q), sortTokens(c), s.params); sorted > best {
		best = sorted
	}
	return best
}

// NormalizeLabel folds diacritics, lowercases, and collapses everything that is
// not a letter or digit into single spaces.
func NormalizeLabel(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	space := true
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
