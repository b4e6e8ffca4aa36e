package spreadsheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToCoordinates(t *testing.T) {
	cases := []struct {
		ref      string
		row, col int
	}{
		{"A1", 0, 0},
		{"B2", 1, 1},
		{"Z10", 9, 25},
		{"AA1", 0, 26},
		{"AB3", 2, 27},
	}
	for _, c := range cases {
		row, col, err := ToCoordinates(c.ref)
		require.NoError(t, err, c.ref)
		assert.Equal(t, c.row, row, c.ref)
		assert.Equal(t, c.col, col, c.ref)
	}

	for _, bad := range []string{"", "1A", "a1", "A", "12", "A1B", "A-1"} {
		_, _, err := ToCoordinates(bad)
		assert.Error(t, err, bad)
	}
}

func TestCellValueNeverFails(t *testing.T) {
	g := Grid{
		{{Value: "100"}, {Value: "Revenue"}},
		{{Value: float64(42)}},
	}
	assert.Equal(t, "100", CellValue(g, "A1"))
	assert.Equal(t, "Revenue", CellValue(g, "B1"))
	assert.Equal(t, float64(42), CellValue(g, "A2"))
	assert.Equal(t, "", CellValue(g, "B2"))   // absent in row
	assert.Equal(t, "", CellValue(g, "C99"))  // out of range
	assert.Equal(t, "", CellValue(g, "junk")) // malformed ref
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "100", Normalize("100"))
	assert.Equal(t, "100", Normalize(float64(100)))
	assert.Equal(t, "100.5", Normalize(100.5))
	assert.Equal(t, "revenue", Normalize("  Revenue "))
	assert.Equal(t, "", Normalize(nil))
	assert.Equal(t, Normalize("  REVENUE"), Normalize("revenue"))
}

func TestValidateGridShortCircuits(t *testing.T) {
	g := Grid{
		{{Value: "=SUM(A2:A3)"}, {Value: "fine"}},
		{{Value: 10}, {Value: "=EVAL(1)"}},
		{{Value: "=CONCAT(A1)"}},
	}
	ok, reason := ValidateGrid(g)
	assert.False(t, ok)
	assert.Equal(t, "row 2, column 2: formula contains potentially dangerous content", reason)

	ok, reason = ValidateGrid(Grid{{{Value: "plain"}, {Value: "=MIN(A1:A2)"}}})
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestValidateSubmissionAllCorrect(t *testing.T) {
	g := Grid{{{Value: "100"}, {Value: "Revenue"}}}
	targets := []TargetCell{
		{Ref: "A1", Expected: float64(100)},
		{Ref: "B1", Expected: "Revenue"},
	}
	res := ValidateSubmission(g, targets)
	assert.True(t, res.IsComplete)
	assert.Equal(t, 2, res.TotalCells)
	assert.Equal(t, 2, res.CorrectCells)
	for _, fb := range res.Feedback {
		assert.True(t, fb.Correct)
		assert.Empty(t, fb.Message)
	}
}

func TestValidateSubmissionMismatchMessage(t *testing.T) {
	res := ValidateSubmission(Grid{}, []TargetCell{{Ref: "A1", Expected: float64(100)}})
	require.Len(t, res.Feedback, 1)
	assert.False(t, res.IsComplete)
	assert.Equal(t, 0, res.CorrectCells)
	assert.Equal(t, `Expected "100", got ""`, res.Feedback[0].Message)
}

func TestValidateSubmissionIdempotent(t *testing.T) {
	g := Grid{{{Value: "99"}, {Value: "Revenue"}}}
	targets := []TargetCell{
		{Ref: "A1", Expected: float64(100)},
		{Ref: "B1", Expected: "revenue"},
	}
	a := ValidateSubmission(g, targets)
	b := ValidateSubmission(g, targets)
	a.Timestamp = b.Timestamp
	assert.Equal(t, a, b)
}
