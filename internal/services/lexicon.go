package services

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"wayfarer/internal/domain"
)

//go:embed lexicon.yaml
var lexiconYAML []byte

type replacement struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`

	re *regexp.Regexp
}

type intentExample struct {
	Text   string `yaml:"text"`
	Intent string `yaml:"intent"`
}

// Lexicon holds the phrase tables of the rule-based paths.
type Lexicon struct {
	Transcriptions       []replacement       `yaml:"transcriptions"`
	ResetPhrases         []string            `yaml:"reset_phrases"`
	Affirmative          []string            `yaml:"affirmative"`
	Negative             []string            `yaml:"negative"`
	PlanKeywords         []string            `yaml:"plan_keywords"`
	ExplainKeywords      []string            `yaml:"explain_keywords"`
	EditKeywords         map[string][]string `yaml:"edit_keywords"`
	Pace                 map[string][]string `yaml:"pace"`
	TravelModes          map[string][]string `yaml:"travel_modes"`
	Budget               map[string][]string `yaml:"budget"`
	FlexibleDates        []string            `yaml:"flexible_dates"`
	Interests            map[string][]string `yaml:"interests"`
	DestinationStopwords []string            `yaml:"destination_stopwords"`
	BlockWords           map[string][]string `yaml:"block_words"`
	IntentExamples       []intentExample     `yaml:"intent_examples"`

	stopwords map[string]bool
}

var (
	lexiconOnce sync.Once
	lexicon     *Lexicon
	lexiconErr  error
)

// DefaultLexicon returns the embedded lexicon. The data ships with the
// binary, so a parse failure is a programming error.
func DefaultLexicon() *Lexicon {
	lexiconOnce.Do(func() {
		lexicon, lexiconErr = ParseLexicon(lexiconYAML)
	})
	if lexiconErr != nil {
		panic(lexiconErr)
	}
	return lexicon
}

func ParseLexicon(data []byte) (*Lexicon, error) {
	var l Lexicon
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("lexicon: %w", err)
	}
	for i := range l.Transcriptions {
		r := &l.Transcriptions[i]
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(r.From) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("lexicon transcription %q: %w", r.From, err)
		}
		r.re = re
	}
	l.stopwords = make(map[string]bool, len(l.DestinationStopwords))
	for _, w := range l.DestinationStopwords {
		l.stopwords[w] = true
	}
	return &l, nil
}

// Normalize fixes common speech-to-text confusions. Casing outside the
// replaced phrases is preserved.
func (l *Lexicon) Normalize(s string) string {
	out := strings.Join(strings.Fields(s), " ")
	for _, r := range l.Transcriptions {
		out = r.re.ReplaceAllString(out, r.To)
	}
	return out
}

func (l *Lexicon) IsReset(s string) bool {
	return hasAny(strings.ToLower(s), l.ResetPhrases)
}

// Confirmation detects a leading yes or no.
func (l *Lexicon) Confirmation(s string) *bool {
	lower := strings.TrimSpace(strings.ToLower(s))
	yes, no := true, false
	for _, p := range l.Negative {
		if startsWithPhrase(lower, p) {
			return &no
		}
	}
	for _, p := range l.Affirmative {
		if startsWithPhrase(lower, p) {
			return &yes
		}
	}
	return nil
}

// Match returns the key of table whose phrase matches s with the longest
// phrase, so "less packed" beats "packed". Ties go to the first key in
// sorted order.
func (l *Lexicon) Match(table map[string][]string, s string) string {
	lower := strings.ToLower(s)
	best, bestLen := "", 0
	for _, key := range sortedKeys(table) {
		for _, p := range table[key] {
			if len(p) > bestLen && hasPhrase(lower, p) {
				best, bestLen = key, len(p)
			}
		}
	}
	return best
}

// InterestTags lists every interest tag mentioned in s, sorted.
func (l *Lexicon) InterestTags(s string) []string {
	lower := strings.ToLower(s)
	var tags []string
	for _, tag := range sortedKeys(l.Interests) {
		if hasAny(lower, l.Interests[tag]) {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Block finds a time-block word in s.
func (l *Lexicon) Block(s string) domain.TimeBlockName {
	lower := strings.ToLower(s)
	for _, b := range domain.BlockOrder {
		if hasAny(lower, l.BlockWords[string(b)]) {
			return b
		}
	}
	return ""
}

func (l *Lexicon) IsStopword(w string) bool {
	return l.stopwords[w]
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func hasAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if hasPhrase(lower, p) {
			return true
		}
	}
	return false
}

// hasPhrase reports whether phrase occurs in lower on word boundaries.
func hasPhrase(lower, phrase string) bool {
	phrase = strings.ToLower(phrase)
	if phrase == "" {
		return false
	}
	from := 0
	for {
		i := strings.Index(lower[from:], phrase)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(phrase)
		if boundaryBefore(lower, start) && boundaryAfter(lower, end) {
			return true
		}
		from = start + 1
	}
}

func startsWithPhrase(lower, phrase string) bool {
	phrase = strings.ToLower(phrase)
	return strings.HasPrefix(lower, phrase) && boundaryAfter(lower, len(phrase))
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
