package patterns

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLearnMinesActionPhrases(t *testing.T) {
	examples := []Example{
		{Utterance: "Pencil in a sync with John tomorrow", Action: "create"},
		{Utterance: "Pencil in lunch with Sarah on friday", Action: "create"},
		{Utterance: "Pencil in a review next week", Action: "create"},
		{Utterance: "Scrub the 2pm meeting", Action: "cancel"},
		{Utterance: "Scrub my friday standup", Action: "cancel"},
		// A singleton phrase must not survive the threshold.
		{Utterance: "Wipe the 4pm call", Action: "cancel"},
	}

	learner := NewLearner(2, zap.NewNop())
	set, report, err := learner.Learn(examples)
	require.NoError(t, err)

	assert.Equal(t, 6, report.Examples)
	assert.Equal(t, 3, report.ByAction["create"])
	assert.Equal(t, 3, report.ByAction["cancel"])

	p, ok := set.Match(RoleAction, "pencil in a chat with mike")
	require.True(t, ok)
	assert.Equal(t, "create", p.Value)

	p, ok = set.Match(RoleAction, "scrub the offsite")
	require.True(t, ok)
	assert.Equal(t, "cancel", p.Value)

	_, ok = set.Match(RoleAction, "wipe the offsite")
	assert.False(t, ok, "phrase with support 1 should be dropped")
}

func TestLearnAmbiguousPhraseDropped(t *testing.T) {
	examples := []Example{
		{Utterance: "Sort out a meeting with John", Action: "create"},
		{Utterance: "Sort out the friday invite", Action: "cancel"},
		{Utterance: "Sort out my calendar", Action: "create"},
	}

	learner := NewLearner(2, zap.NewNop())
	set, _, err := learner.Learn(examples)
	require.NoError(t, err)

	// "sort" maps to two different actions, so it must not be learned.
	for _, p := range set.ForRole(RoleAction) {
		assert.NotContains(t, p.Expr, "sort")
	}
}

func TestLearnReportsPhraseFrequencies(t *testing.T) {
	examples := []Example{
		{Utterance: "meeting at 3pm", Action: "create"},
		{Utterance: "call at 3pm for 30 min", Action: "create"},
		{Utterance: "quick sync in the morning", Action: "create"},
	}

	learner := NewLearner(2, zap.NewNop())
	_, report, err := learner.Learn(examples)
	require.NoError(t, err)

	require.NotEmpty(t, report.TopTimePhrases)
	assert.Equal(t, "3pm", report.TopTimePhrases[0].Phrase)
	assert.Equal(t, 2, report.TopTimePhrases[0].Count)
	assert.NotEmpty(t, report.TopDurations)
}

func TestLearnedPatternsMergeWithDefaults(t *testing.T) {
	examples := []Example{
		{Utterance: "Pencil in a sync tomorrow", Action: "create"},
		{Utterance: "Pencil in a review friday", Action: "create"},
	}

	learner := NewLearner(2, zap.NewNop())
	learned, _, err := learner.Learn(examples)
	require.NoError(t, err)

	merged := Merge(Defaults(), learned)

	// Defaults still outrank learned phrases.
	p, ok := merged.Match(RoleAction, "cancel the pencil in sync")
	require.True(t, ok)
	assert.Equal(t, "cancel", p.Value)
}

func TestLoadExamples(t *testing.T) {
	dir := t.TempDir()

	bare := filepath.Join(dir, "bare.json")
	require.NoError(t, os.WriteFile(bare, []byte(`[{"utterance":"meet john","action":"create"}]`), 0o644))
	examples, err := LoadExamples(bare)
	require.NoError(t, err)
	require.Len(t, examples, 1)
	assert.Equal(t, "create", examples[0].Action)

	wrapped := filepath.Join(dir, "wrapped.json")
	require.NoError(t, os.WriteFile(wrapped, []byte(`{"testcases":[{"utterance":"cancel it","action":"cancel"}]}`), 0o644))
	examples, err = LoadExamples(wrapped)
	require.NoError(t, err)
	require.Len(t, examples, 1)
	assert.Equal(t, "cancel", examples[0].Action)
}
