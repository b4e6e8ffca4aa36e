package spreadsheet

import (
	"fmt"
	"time"
)

// TargetCell declares the expected value for one cell of a spreadsheet
// activity. Formula is informational (shown to instructors), grading compares
// values only.
type TargetCell struct {
	Ref      string      `json:"ref"`
	Expected interface{} `json:"expected"`
	Formula  string      `json:"formula,omitempty"`
}

// CellFeedback reports how one target cell was graded.
type CellFeedback struct {
	Ref     string `json:"ref"`
	Correct bool   `json:"correct"`
	Message string `json:"message,omitempty"`
}

// Result is the outcome of grading a full grid submission. Computed fresh on
// every call; nothing is remembered between attempts.
type Result struct {
	IsComplete   bool           `json:"is_complete"`
	TotalCells   int            `json:"total_cells"`
	CorrectCells int            `json:"correct_cells"`
	Feedback     []CellFeedback `json:"feedback"`
	Timestamp    time.Time      `json:"timestamp"`
}

// ValidateGrid runs the sanitizer over every non-empty string cell in
// row-major order and stops at the first violation, identifying the offending
// cell by 1-based row and column.
func ValidateGrid(g Grid) (bool, string) {
	for i, row := range g {
		for j, c := range row {
			s, ok := c.Value.(string)
			if !ok || s == "" {
				continue
			}
			if valid, reason := Sanitize(s); !valid {
				return false, fmt.Sprintf("row %d, column %d: %s", i+1, j+1, reason)
			}
		}
	}
	return true, ""
}

// ValidateSubmission grades a grid against the activity's target cells.
// Actual and expected values are normalized before comparison so type and
// incidental whitespace or case never cause a false mismatch.
func ValidateSubmission(g Grid, targets []TargetCell) Result {
	res := Result{
		TotalCells: len(targets),
		Feedback:   make([]CellFeedback, 0, len(targets)),
		Timestamp:  time.Now(),
	}
	for _, t := range targets {
		actual := CellValue(g, t.Ref)
		fb := CellFeedback{Ref: t.Ref}
		if Normalize(actual) == Normalize(t.Expected) {
			fb.Correct = true
			res.CorrectCells++
		} else {
			fb.Message = fmt.Sprintf("Expected %q, got %q", fmt.Sprintf("%v", t.Expected), fmt.Sprintf("%v", actual))
		}
		res.Feedback = append(res.Feedback, fb)
	}
	res.IsComplete = res.CorrectCells == res.TotalCells
	return res
}
