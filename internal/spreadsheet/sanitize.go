package spreadsheet

import (
	"fmt"
	"regexp"
	"strings"
)

// Cell texts that do not start with one of these are plain values and skip
// all formula checks.
var formulaTriggers = "=@+-"

// Substrings that mark a formula as hostile regardless of which functions it
// calls: script/markup execution, CSV/DDE injection, file access.
var denylist = []string{
	"eval",
	"script",
	"javascript:",
	"document.",
	"window.",
	"<script",
	"onerror",
	"onclick",
	"onload",
	"href=",
	"src=",
	"cmd|",
	"exec(",
	"dde(",
	"file://",
}

// Functions students are allowed to use in formulas.
var allowedFunctions = map[string]bool{
	"SUM":     true,
	"AVERAGE": true,
	"COUNT":   true,
	"IF":      true,
	"MIN":     true,
	"MAX":     true,
	"ROUND":   true,
	"ABS":     true,
	"SQRT":    true,
	"POWER":   true,
}

var funcCallRe = regexp.MustCompile(`([A-Z]+)\(`)

// Sanitize checks one cell's raw text. Plain values are always accepted;
// formulas are screened against the denylist first, then every function call
// must be on the allowlist. Same input always yields the same verdict.
func Sanitize(cellText string) (bool, string) {
	if cellText == "" || !strings.ContainsRune(formulaTriggers, rune(cellText[0])) {
		return true, ""
	}

	low := strings.ToLower(cellText)
	for _, bad := range denylist {
		if strings.Contains(low, bad) {
			return false, "formula contains potentially dangerous content"
		}
	}

	for _, m := range funcCallRe.FindAllStringSubmatch(cellText, -1) {
		if !allowedFunctions[m[1]] {
			return false, fmt.Sprintf("function %s is not allowed", m[1])
		}
	}
	return true, ""
}
