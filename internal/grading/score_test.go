package grading

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeContentShapes(t *testing.T) {
	c, err := DecodeContent(json.RawMessage(`{"questions":[{"id":"q1","correctAnswer":"A"}]}`))
	require.NoError(t, err)
	qb, ok := c.(QuestionBank)
	require.True(t, ok)
	require.Len(t, qb.Questions, 1)
	assert.False(t, qb.Questions[0].CorrectAnswer.Multi)
	assert.Equal(t, []string{"A"}, qb.Questions[0].CorrectAnswer.Values)

	c, err = DecodeContent(json.RawMessage(`{"questions":[{"id":"q1","correctAnswer":["A","B"]}]}`))
	require.NoError(t, err)
	assert.True(t, c.(QuestionBank).Questions[0].CorrectAnswer.Multi)

	c, err = DecodeContent(json.RawMessage(`{"sentences":[{"id":"s1","answer":"debit","alternativeAnswers":["dr"]}]}`))
	require.NoError(t, err)
	_, ok = c.(SentenceBank)
	assert.True(t, ok)

	c, err = DecodeContent(json.RawMessage(`{"targetCells":[{"ref":"B2","expected":100}]}`))
	require.NoError(t, err)
	_, ok = c.(SpreadsheetSheet)
	assert.True(t, ok)

	_, err = DecodeContent(json.RawMessage(`{"videoUrl":"x"}`))
	assert.ErrorIs(t, err, ErrUnsupportedContent)
}

func TestScoreRequiresAutoGrade(t *testing.T) {
	content := QuestionBank{Questions: []Question{{ID: "q1", CorrectAnswer: Answer{Values: []string{"A"}}}}}
	_, err := Score(content, Config{AutoGrade: false}, map[string]interface{}{"q1": "A"})
	assert.ErrorIs(t, err, ErrNotAutoGraded)
}

func TestScoreQuestionBank(t *testing.T) {
	content := QuestionBank{Questions: []Question{
		{ID: "q1", CorrectAnswer: Answer{Values: []string{"A"}}},
		{ID: "q2", CorrectAnswer: Answer{Values: []string{"A", "B"}, Multi: true}},
		{ID: "q3", CorrectAnswer: Answer{Values: []string{"Owner's Equity"}}},
		{ID: "q4", CorrectAnswer: Answer{Values: []string{"C"}}},
	}}
	res, err := Score(content, Config{AutoGrade: true, PassingScore: 70}, map[string]interface{}{
		"q1": "A",
		"q2": []interface{}{"B", "A"}, // order-insensitive multi-select
		"q3": "  owner's equity ",
		// q4 unanswered
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Score)
	assert.Equal(t, 4, res.MaxScore)
	assert.Equal(t, 75, res.Percentage)
	assert.Equal(t, "Great work! You scored 75%.", res.Feedback)
}

func TestScoreMultiSelectPartialFails(t *testing.T) {
	content := QuestionBank{Questions: []Question{
		{ID: "q1", CorrectAnswer: Answer{Values: []string{"A", "B"}, Multi: true}},
	}}
	res, err := Score(content, Config{AutoGrade: true}, map[string]interface{}{"q1": []interface{}{"A"}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Score)
}

func TestScoreFillInBlank(t *testing.T) {
	content := SentenceBank{Sentences: []Sentence{
		{ID: "s1", Answer: "debit", AlternativeAnswers: []string{"dr"}},
		{ID: "s2", Answer: "credit"},
		{ID: "s3", Answer: "asset"},
	}}
	res, err := Score(content, Config{AutoGrade: true}, map[string]interface{}{
		"s1": "DR",
		"s2": "credit",
		"s3": "", // empty never counts
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Score)
	assert.Equal(t, 67, res.Percentage)
	assert.Equal(t, "You scored 67%. Review the questions you missed and try again.", res.Feedback)
}

func TestScoreFeedbackTiers(t *testing.T) {
	content := SentenceBank{Sentences: []Sentence{{ID: "s1", Answer: "ledger"}}}

	res, err := Score(content, Config{AutoGrade: true}, map[string]interface{}{"s1": "wrong"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Percentage)
	assert.Equal(t, "Keep going! Review the material and try again.", res.Feedback)

	// default passing score is 70 when unset
	res, err = Score(content, Config{AutoGrade: true}, map[string]interface{}{"s1": "ledger"})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Percentage)
	assert.Equal(t, "Great work! You scored 100%.", res.Feedback)
}

func TestScoreEmptyContent(t *testing.T) {
	res, err := Score(QuestionBank{}, Config{AutoGrade: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Percentage)
	assert.Equal(t, 0, res.MaxScore)
}

func TestScoreSpreadsheetUnsupportedHere(t *testing.T) {
	_, err := Score(SpreadsheetSheet{}, Config{AutoGrade: true}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedContent)
}
