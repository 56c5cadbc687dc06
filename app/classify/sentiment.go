package classify

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yml
var defaultLexiconYAML []byte

const (
	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelNeutral  = "neutral"
)

// negationFactor flips and dampens the polarity of a negated word.
const negationFactor = -0.5

var ErrInvalidText = errors.New("text is not valid UTF-8")

// Scorer rates text on polarity [-1,1] and subjectivity [0,1].
type Scorer interface {
	Score(text string) (polarity, subjectivity float64, err error)
}

type lexiconEntry struct {
	polarity     float64
	subjectivity float64
}

type lexiconDoc struct {
	Words        map[string][2]float64 `yaml:"words"`
	Intensifiers map[string]float64    `yaml:"intensifiers"`
	Negations    []string              `yaml:"negations"`
}

// LexiconScorer averages the scores of known words. A preceding intensifier
// scales a word, a preceding negation inverts and halves its polarity.
type LexiconScorer struct {
	words        map[string]lexiconEntry
	intensifiers map[string]float64
	negations    map[string]bool
}

func DefaultLexiconScorer() (*LexiconScorer, error) {
	return ParseLexicon(defaultLexiconYAML)
}

func LoadLexicon(path string) (*LexiconScorer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon: %w", err)
	}
	return ParseLexicon(data)
}

func ParseLexicon(data []byte) (*LexiconScorer, error) {
	var doc lexiconDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}

	s := &LexiconScorer{
		words:        make(map[string]lexiconEntry, len(doc.Words)),
		intensifiers: make(map[string]float64, len(doc.Intensifiers)),
		negations:    make(map[string]bool, len(doc.Negations)),
	}

	for word, scores := range doc.Words {
		s.words[strings.ToLower(word)] = lexiconEntry{
			polarity:     clamp(scores[0], -1, 1),
			subjectivity: clamp(scores[1], 0, 1),
		}
	}
	for word, factor := range doc.Intensifiers {
		s.intensifiers[strings.ToLower(word)] = factor
	}
	for _, word := range doc.Negations {
		s.negations[strings.ToLower(word)] = true
	}

	return s, nil
}

func (s *LexiconScorer) Score(text string) (float64, float64, error) {
	if !utf8.ValidString(text) {
		return 0, 0, ErrInvalidText
	}

	var (
		polaritySum     float64
		subjectivitySum float64
		hits            int
		negated         bool
		intensity       = 1.0
	)

	for _, token := range tokenize(text) {
		switch {
		case s.isNegation(token):
			negated = true
			continue
		case s.intensifiers[token] != 0:
			intensity *= s.intensifiers[token]
			continue
		}

		entry, ok := s.words[token]
		if !ok {
			if !isFiller(token) {
				negated = false
				intensity = 1.0
			}
			continue
		}

		polarity := entry.polarity * intensity
		if negated {
			polarity *= negationFactor
		}
		polaritySum += clamp(polarity, -1, 1)
		subjectivitySum += clamp(entry.subjectivity*intensity, 0, 1)
		hits++

		negated = false
		intensity = 1.0
	}

	if hits == 0 {
		return 0, 0, nil
	}

	return clamp(polaritySum/float64(hits), -1, 1), clamp(subjectivitySum/float64(hits), 0, 1), nil
}

func (s *LexiconScorer) isNegation(token string) bool {
	return s.negations[token] || strings.HasSuffix(token, "n't")
}

// Label maps a polarity onto positive, negative or neutral.
func Label(polarity float64) string {
	switch {
	case polarity > 0.1:
		return LabelPositive
	case polarity < -0.1:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

func tokenize(text string) []string {
	text = strings.ReplaceAll(text, "’", "'")
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}

func isFiller(token string) bool {
	switch token {
	case "a", "an", "the", "be", "is", "are", "was", "were":
		return true
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}
