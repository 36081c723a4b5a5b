package sheets

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXReader implements Reader over local XLSX workbooks. A spreadsheet id
// resolves to a .xlsx file under the reader's root directory; each sheet in
// the workbook is a sub-sheet.
type XLSXReader struct {
	dir string
}

// NewXLSXReader creates a Reader serving workbooks from dir.
func NewXLSXReader(dir string) *XLSXReader {
	return &XLSXReader{dir: dir}
}

func (r *XLSXReader) open(spreadsheetID string) (*xlsx.File, error) {
	path := spreadsheetID
	if !strings.HasSuffix(path, ".xlsx") {
		path += ".xlsx"
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.dir, path)
	}
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "xlsx: open %s", spreadsheetID)
	}
	return f, nil
}

func (r *XLSXReader) ListSubSheets(ctx context.Context, spreadsheetID string) ([]string, error) {
	f, err := r.open(spreadsheetID)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(f.Sheets))
	for i, sheet := range f.Sheets {
		names[i] = sheet.Name
	}
	return names, nil
}

func (r *XLSXReader) FetchHeaders(ctx context.Context, spreadsheetID string) (map[string][]string, error) {
	f, err := r.open(spreadsheetID)
	if err != nil {
		return nil, err
	}
	headers := make(map[string][]string, len(f.Sheets))
	for _, sheet := range f.Sheets {
		var cols []string
		if len(sheet.Rows) > 0 {
			for _, cell := range sheet.Rows[0].Cells {
				if v := strings.TrimSpace(cell.String()); v != "" {
					cols = append(cols, v)
				}
			}
		}
		headers[sheet.Name] = cols
	}
	return headers, nil
}

func (r *XLSXReader) FetchRows(ctx context.Context, spreadsheetID, subSheet string) ([]Row, error) {
	f, err := r.open(spreadsheetID)
	if err != nil {
		return nil, err
	}
	sheet, ok := f.Sheet[subSheet]
	if !ok {
		return nil, eris.Errorf("xlsx: sheet %q not found in %s", subSheet, spreadsheetID)
	}
	if len(sheet.Rows) == 0 {
		return nil, nil
	}

	headers := make([]string, len(sheet.Rows[0].Cells))
	for i, cell := range sheet.Rows[0].Cells {
		headers[i] = FormatHeader(cell.String())
	}

	var rows []Row
	for i := 1; i < len(sheet.Rows); i++ {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "xlsx: fetch rows cancelled")
		}
		cells := make(map[string]string, len(headers))
		empty := true
		for col, header := range headers {
			var v string
			if col < len(sheet.Rows[i].Cells) {
				v = strings.TrimSpace(sheet.Rows[i].Cells[col].String())
			}
			cells[header] = v
			if v != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		rows = append(rows, Row{Number: i + 1, Cells: cells})
	}
	return rows, nil
}

var _ Reader = (*XLSXReader)(nil)
