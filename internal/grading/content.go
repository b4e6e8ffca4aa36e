package grading

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ledgerlab/coursebook/internal/spreadsheet"
)

var ErrUnsupportedContent = errors.New("unsupported activity content")

// Content is the decoded shape of an activity's props. Exactly one concrete
// type applies to any given activity; callers switch exhaustively.
type Content interface {
	isContent()
}

// QuestionBank is multiple-choice / short-answer question sets.
type QuestionBank struct {
	Questions []Question `json:"questions"`
}

// SentenceBank is fill-in-the-blank sentence sets.
type SentenceBank struct {
	Sentences []Sentence `json:"sentences"`
}

// SpreadsheetSheet is a graded spreadsheet exercise.
type SpreadsheetSheet struct {
	TargetCells []spreadsheet.TargetCell `json:"targetCells"`
}

func (QuestionBank) isContent()     {}
func (SentenceBank) isContent()     {}
func (SpreadsheetSheet) isContent() {}

type Question struct {
	ID            string `json:"id"`
	Prompt        string `json:"prompt,omitempty"`
	CorrectAnswer Answer `json:"correctAnswer"`
}

type Sentence struct {
	ID                 string   `json:"id"`
	Text               string   `json:"text,omitempty"`
	Answer             string   `json:"answer"`
	AlternativeAnswers []string `json:"alternativeAnswers,omitempty"`
}

// Answer accepts either a single accepted value or a list of them (used by
// multi-select questions).
type Answer struct {
	Values []string
	Multi  bool
}

func (a *Answer) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		a.Values = []string{one}
		a.Multi = false
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err == nil {
		a.Values = many
		a.Multi = true
		return nil
	}
	return fmt.Errorf("correctAnswer must be a string or an array of strings")
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.Multi {
		return json.Marshal(a.Values)
	}
	if len(a.Values) == 0 {
		return json.Marshal("")
	}
	return json.Marshal(a.Values[0])
}

// DecodeContent discriminates an activity's stored props by shape: a
// "questions" array selects question-bank grading, "sentences" fill-in-blank,
// "targetCells" a spreadsheet sheet. Anything else is unsupported.
func DecodeContent(props json.RawMessage) (Content, error) {
	var probe struct {
		Questions   json.RawMessage `json:"questions"`
		Sentences   json.RawMessage `json:"sentences"`
		TargetCells json.RawMessage `json:"targetCells"`
	}
	if err := json.Unmarshal(props, &probe); err != nil {
		return nil, fmt.Errorf("decode props: %w", err)
	}
	switch {
	case probe.Questions != nil:
		var c QuestionBank
		if err := json.Unmarshal(props, &c); err != nil {
			return nil, fmt.Errorf("decode questions: %w", err)
		}
		return c, nil
	case probe.Sentences != nil:
		var c SentenceBank
		if err := json.Unmarshal(props, &c); err != nil {
			return nil, fmt.Errorf("decode sentences: %w", err)
		}
		return c, nil
	case probe.TargetCells != nil:
		var c SpreadsheetSheet
		if err := json.Unmarshal(props, &c); err != nil {
			return nil, fmt.Errorf("decode target cells: %w", err)
		}
		return c, nil
	default:
		return nil, ErrUnsupportedContent
	}
}
