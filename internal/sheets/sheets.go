// Package sheets defines the spreadsheet reader contract the sync engine
// depends on, plus header formatting shared by every implementation.
package sheets

import (
	"context"
	"regexp"
	"strings"
)

// Row is one data row of a sub-sheet. Number is 1-based and counts the
// header row, so the first data row is 2. Cells are keyed by formatted
// header.
type Row struct {
	Number int               `json:"row_number"`
	Cells  map[string]string `json:"cells"`
}

// Reader provides access to an external spreadsheet.
type Reader interface {
	// ListSubSheets returns the sub-sheet names of a spreadsheet in order.
	ListSubSheets(ctx context.Context, spreadsheetID string) ([]string, error)
	// FetchRows returns the data rows of one sub-sheet.
	FetchRows(ctx context.Context, spreadsheetID, subSheet string) ([]Row, error)
	// FetchHeaders returns the raw header row of every sub-sheet.
	FetchHeaders(ctx context.Context, spreadsheetID string) (map[string][]string, error)
}

var headerStrip = regexp.MustCompile(`[^a-z0-9_]`)

// FormatHeader normalizes a raw column header for row lookup: lowercased,
// whitespace collapsed to underscores, everything else stripped.
func FormatHeader(header string) string {
	h := strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(header))), "_")
	h = headerStrip.ReplaceAllString(h, "")
	if h == "" {
		return "unknown"
	}
	return h
}
