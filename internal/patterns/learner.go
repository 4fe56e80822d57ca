package patterns

import (
	"encoding/json"
	"os"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/meetwise/meetwise/internal/errors"
)

// Example is one labelled training utterance.
type Example struct {
	Utterance string `json:"utterance"`
	Action    string `json:"action,omitempty"`
	Intent    string `json:"intent,omitempty"`
}

// PhraseCount is a mined phrase with its support across the corpus.
type PhraseCount struct {
	Phrase string `json:"phrase"`
	Count  int    `json:"count"`
}

// Report summarizes a training run.
type Report struct {
	Examples        int            `json:"examples"`
	ByAction        map[string]int `json:"by_action"`
	LearnedPatterns int            `json:"learned_patterns"`
	TopTimePhrases  []PhraseCount  `json:"top_time_phrases"`
	TopDurations    []PhraseCount  `json:"top_durations"`
}

// Learner mines trigger phrases from labelled utterances. Phrases below the
// support threshold are discarded as noise.
type Learner struct {
	threshold int
	logger    *zap.Logger
}

// DefaultThreshold is the minimum corpus support for a learned phrase.
const DefaultThreshold = 2

// NewLearner creates a learner. A threshold below 1 falls back to the default.
func NewLearner(threshold int, logger *zap.Logger) *Learner {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Learner{threshold: threshold, logger: logger}
}

var (
	timePhraseRe     = regexp.MustCompile(`\b(\d{1,2}(?::\d{2})?\s*(?:am|pm)|noon|midnight|morning|afternoon|evening|tonight|eod)\b`)
	durationPhraseRe = regexp.MustCompile(`\bfor\s+\d+\s*(?:minutes|mins|min|hours|hrs|hr)\b|\b(?:quick|brief|short|long|half\s+an?\s+hour)\b`)

	phraseStopwords = map[string]bool{
		"a": true, "an": true, "the": true, "my": true, "our": true,
		"i": true, "we": true, "to": true, "for": true, "at": true,
		"on": true, "in": true, "with": true, "and": true, "me": true,
		"please": true, "can": true, "could": true, "you": true,
	}
)

// Learn mines leading trigger phrases per action and returns the learned
// pattern set alongside a run report. Only phrases that always map to the
// same action and clear the support threshold survive.
func (l *Learner) Learn(examples []Example) (*Set, *Report, error) {
	report := &Report{
		Examples: len(examples),
		ByAction: make(map[string]int),
	}

	// phrase -> action -> count
	phraseActions := make(map[string]map[string]int)
	timeCounts := make(map[string]int)
	durationCounts := make(map[string]int)

	for _, ex := range examples {
		text := strings.ToLower(strings.TrimSpace(ex.Utterance))
		if text == "" {
			continue
		}
		if ex.Action != "" {
			report.ByAction[ex.Action]++
			for _, phrase := range leadingPhrases(text) {
				if phraseActions[phrase] == nil {
					phraseActions[phrase] = make(map[string]int)
				}
				phraseActions[phrase][ex.Action]++
			}
		}
		for _, m := range timePhraseRe.FindAllString(text, -1) {
			timeCounts[normalizeSpace(m)]++
		}
		for _, m := range durationPhraseRe.FindAllString(text, -1) {
			durationCounts[normalizeSpace(m)]++
		}
	}

	var learned []Pattern
	for phrase, actions := range phraseActions {
		action, count, unambiguous := dominantAction(actions)
		if !unambiguous || count < l.threshold {
			continue
		}
		learned = append(learned, Pattern{
			Role:     RoleAction,
			Expr:     `\b` + regexp.QuoteMeta(phrase) + `\b`,
			Value:    action,
			Priority: 1,
		})
	}
	sort.Slice(learned, func(i, j int) bool { return learned[i].Expr < learned[j].Expr })

	report.LearnedPatterns = len(learned)
	report.TopTimePhrases = topPhrases(timeCounts, 10)
	report.TopDurations = topPhrases(durationCounts, 10)

	l.logger.Info("pattern training complete",
		zap.Int("examples", report.Examples),
		zap.Int("learned", report.LearnedPatterns),
		zap.Int("threshold", l.threshold),
	)

	set, err := NewSet(learned)
	if err != nil {
		return nil, nil, err
	}
	return set, report, nil
}

// LoadExamples reads a training corpus from a JSON file. Both a bare array
// and a {"testcases": [...]} wrapper are accepted.
func LoadExamples(path string) ([]Example, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrPatternsNotFound.Code, "training corpus not found")
	}

	var examples []Example
	if err := json.Unmarshal(data, &examples); err == nil {
		return examples, nil
	}

	var wrapped struct {
		Testcases []Example `json:"testcases"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrPatternsInvalid.Code, "parsing training corpus")
	}
	return wrapped.Testcases, nil
}

// leadingPhrases returns the first one- and two-word candidate triggers of
// an utterance, skipping stopwords.
func leadingPhrases(text string) []string {
	words := strings.Fields(text)
	var kept []string
	for _, w := range words {
		w = strings.Trim(w, ".,!?")
		if w == "" || phraseStopwords[w] {
			continue
		}
		kept = append(kept, w)
		if len(kept) == 2 {
			break
		}
	}

	var phrases []string
	if len(kept) >= 1 {
		phrases = append(phrases, kept[0])
	}
	if len(kept) == 2 {
		phrases = append(phrases, kept[0]+" "+kept[1])
	}
	return phrases
}

func dominantAction(counts map[string]int) (string, int, bool) {
	var best string
	total := 0
	for action, n := range counts {
		total += n
		if best == "" || n > counts[best] {
			best = action
		}
	}
	return best, counts[best], counts[best] == total
}

func topPhrases(counts map[string]int, n int) []PhraseCount {
	out := make([]PhraseCount, 0, len(counts))
	for phrase, count := range counts {
		out = append(out, PhraseCount{Phrase: phrase, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Phrase < out[j].Phrase
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
