package grading

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ledgerlab/coursebook/internal/spreadsheet"
)

var ErrNotAutoGraded = errors.New("activity is not auto-gradable")

// DefaultPassingScore applies when an activity's grading config leaves the
// threshold unset.
const DefaultPassingScore = 70

// Config is the per-activity grading configuration. Auto-grading must be
// explicitly enabled; PassingScore of 0 means "use the default".
type Config struct {
	AutoGrade    bool `json:"autoGrade"`
	PassingScore int  `json:"passingScore,omitempty"`
}

// ScoreResult is the outcome of auto-grading one submission.
type ScoreResult struct {
	Score      int    `json:"score"`
	MaxScore   int    `json:"max_score"`
	Percentage int    `json:"percentage"`
	Feedback   string `json:"feedback"`
}

// Score auto-grades a set of answers (questionID or sentenceID -> response)
// against the activity's content. Spreadsheet sheets are graded by
// spreadsheet.ValidateSubmission, not here.
func Score(content Content, cfg Config, answers map[string]interface{}) (ScoreResult, error) {
	if !cfg.AutoGrade {
		return ScoreResult{}, ErrNotAutoGraded
	}

	var correct, total int
	switch c := content.(type) {
	case QuestionBank:
		total = len(c.Questions)
		for _, q := range c.Questions {
			if questionCorrect(q, answers[q.ID]) {
				correct++
			}
		}
	case SentenceBank:
		total = len(c.Sentences)
		for _, s := range c.Sentences {
			if sentenceCorrect(s, answers[s.ID]) {
				correct++
			}
		}
	default:
		return ScoreResult{}, ErrUnsupportedContent
	}

	pct := 0
	if total > 0 {
		pct = int(math.Round(100 * float64(correct) / float64(total)))
	}
	passing := cfg.PassingScore
	if passing == 0 {
		passing = DefaultPassingScore
	}
	return ScoreResult{
		Score:      correct,
		MaxScore:   total,
		Percentage: pct,
		Feedback:   feedbackFor(pct, passing),
	}, nil
}

func questionCorrect(q Question, response interface{}) bool {
	if response == nil {
		return false
	}
	if q.CorrectAnswer.Multi {
		got, ok := toStringSlice(response)
		if !ok {
			return false
		}
		return sortedNormalizedEqual(q.CorrectAnswer.Values, got)
	}
	if len(q.CorrectAnswer.Values) == 0 {
		return false
	}
	return spreadsheet.Normalize(response) == spreadsheet.Normalize(q.CorrectAnswer.Values[0])
}

func sentenceCorrect(s Sentence, response interface{}) bool {
	got := spreadsheet.Normalize(response)
	if got == "" {
		return false
	}
	if got == spreadsheet.Normalize(s.Answer) {
		return true
	}
	for _, alt := range s.AlternativeAnswers {
		if got == spreadsheet.Normalize(alt) {
			return true
		}
	}
	return false
}

// sortedNormalizedEqual compares two answer sets order-insensitively.
func sortedNormalizedEqual(want, got []string) bool {
	if len(want) != len(got) {
		return false
	}
	w := make([]string, len(want))
	g := make([]string, len(got))
	for i, s := range want {
		w[i] = spreadsheet.Normalize(s)
	}
	for i, s := range got {
		g[i] = spreadsheet.Normalize(s)
	}
	sort.Strings(w)
	sort.Strings(g)
	for i := range w {
		if w[i] != g[i] {
			return false
		}
	}
	return true
}

func toStringSlice(v interface{}) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func feedbackFor(pct, passing int) string {
	switch {
	case pct >= passing:
		return fmt.Sprintf("Great work! You scored %d%%.", pct)
	case pct == 0:
		return "Keep going! Review the material and try again."
	default:
		return fmt.Sprintf("You scored %d%%. Review the questions you missed and try again.", pct)
	}
}
