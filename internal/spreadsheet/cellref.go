package spreadsheet

import (
	"fmt"
	"regexp"
)

// Cell is one spreadsheet cell as submitted by the client. Values arrive as
// strings or numbers depending on how the grid widget serialized them.
type Cell struct {
	Value interface{} `json:"value"`
}

// Grid is a row-major sheet.
type Grid [][]Cell

var cellRefRe = regexp.MustCompile(`^([A-Z]+)([0-9]+)$`)

// ToCoordinates parses an A1-style reference ("B2", "AA10") into 0-based
// row/column indices. Column letters are base-26 with A=1.
func ToCoordinates(ref string) (row, col int, err error) {
	m := cellRefRe.FindStringSubmatch(ref)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid cell reference %q", ref)
	}
	for _, r := range m[1] {
		col = col*26 + int(r-'A'+1)
	}
	var n int
	if _, err := fmt.Sscanf(m[2], "%d", &n); err != nil || n < 1 {
		return 0, 0, fmt.Errorf("invalid cell reference %q", ref)
	}
	return n - 1, col - 1, nil
}

// CellValue returns the value at ref, or "" when the reference is malformed,
// out of range, or the cell is empty. It never fails.
func CellValue(g Grid, ref string) interface{} {
	row, col, err := ToCoordinates(ref)
	if err != nil {
		return ""
	}
	if row >= len(g) || col >= len(g[row]) {
		return ""
	}
	v := g[row][col].Value
	if v == nil {
		return ""
	}
	return v
}
