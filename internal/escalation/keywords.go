package escalation

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// #region keywords

var defaultDistress = []string{
	"tired of everything", "nothing matters", "give up", "giving up",
	"hopeless", "exhausted", "empty", "no point", "meaningless",
	"can't anymore", "cant anymore", "overwhelmed", "lost",
	"don't care", "dont care", "why bother",
}

var defaultHighRisk = []string{
	"kill myself", "end my life", "suicide", "suicidal",
	"want to die", "hurt myself", "self harm", "self-harm",
	"no reason to live",
}

// #endregion keywords

// #region keyword-set

// KeywordSet is the immutable phrase list behind the keyword floor. Distress
// phrases flag a message; high-risk phrases flag it at the highest level.
type KeywordSet struct {
	distress []string
	highRisk []string
}

type keywordFile struct {
	Distress []string `yaml:"distress"`
	HighRisk []string `yaml:"high_risk"`
}

// NewKeywordSet normalizes and copies the given phrases. Blank phrases are
// ignored.
func NewKeywordSet(distress, highRisk []string) KeywordSet {
	return KeywordSet{distress: normalize(distress), highRisk: normalize(highRisk)}
}

// DefaultKeywords returns the built-in phrase list.
func DefaultKeywords() KeywordSet {
	return NewKeywordSet(defaultDistress, defaultHighRisk)
}

// LoadKeywords reads a YAML phrase file. Missing sections fall back to the
// built-in list so the floor can never be emptied by a partial file.
func LoadKeywords(path string) (KeywordSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return KeywordSet{}, fmt.Errorf("read keywords: %w", err)
	}
	var f keywordFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return KeywordSet{}, fmt.Errorf("parse keywords %s: %w", path, err)
	}
	if len(normalize(f.Distress)) == 0 {
		f.Distress = defaultDistress
	}
	if len(normalize(f.HighRisk)) == 0 {
		f.HighRisk = defaultHighRisk
	}
	return NewKeywordSet(f.Distress, f.HighRisk), nil
}

// Len returns the number of phrases.
func (k KeywordSet) Len() int { return len(k.distress) + len(k.highRisk) }

// Scan returns every phrase found in text, case-insensitively, and whether
// any of them is high-risk.
func (k KeywordSet) Scan(text string) (matches []string, high bool) {
	lower := strings.ToLower(text)
	// Curly apostrophes from mobile keyboards.
	lower = strings.ReplaceAll(lower, "’", "'")
	for _, p := range k.highRisk {
		if strings.Contains(lower, p) {
			matches = append(matches, p)
			high = true
		}
	}
	for _, p := range k.distress {
		if strings.Contains(lower, p) {
			matches = append(matches, p)
		}
	}
	return matches, high
}

func normalize(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// #endregion keyword-set
