package activity

import (
	"encoding/json"

	"github.com/ledgerlab/coursebook/internal/grading"
)

// Activity is a reusable exercise definition. ComponentKey tells the client
// which widget renders it; Props carries the widget's content and is decoded
// server-side only when grading.
type Activity struct {
	ID           string          `json:"id"`
	LessonID     string          `json:"lesson_id"`
	ComponentKey string          `json:"component_key"`
	Title        string          `json:"title"`
	Props        json.RawMessage `json:"props"`
	Grading      grading.Config  `json:"grading_config"`
	CreatedAt    int64           `json:"created_at,omitempty"`
}

// Content decodes Props into the grading tagged union.
func (a Activity) Content() (grading.Content, error) {
	return grading.DecodeContent(a.Props)
}

// StudentView strips answer keys so activities can be served to students.
func (a Activity) StudentView() Activity {
	c, err := a.Content()
	if err != nil {
		return a
	}
	switch t := c.(type) {
	case grading.QuestionBank:
		for i := range t.Questions {
			t.Questions[i].CorrectAnswer = grading.Answer{}
		}
		if b, err := json.Marshal(t); err == nil {
			a.Props = b
		}
	case grading.SentenceBank:
		for i := range t.Sentences {
			t.Sentences[i].Answer = ""
			t.Sentences[i].AlternativeAnswers = nil
		}
		if b, err := json.Marshal(t); err == nil {
			a.Props = b
		}
	case grading.SpreadsheetSheet:
		for i := range t.TargetCells {
			t.TargetCells[i].Expected = nil
			t.TargetCells[i].Formula = ""
		}
		if b, err := json.Marshal(t); err == nil {
			a.Props = b
		}
	}
	return a
}
