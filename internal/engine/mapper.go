package engine

import (
	"strings"

	"github.com/sells-group/sheetsync/internal/model"
	"github.com/sells-group/sheetsync/internal/sheets"
)

// MapRow projects one spreadsheet row onto the canonical lead attributes
// using the sub-sheet's field mapping. Unmapped fields and empty cells
// leave the attribute zero; columns the mapping does not mention are
// ignored. The email is lowercased here so every later comparison sees
// one form.
func MapRow(row sheets.Row, m model.FieldMapping) model.CanonicalLead {
	var lead model.CanonicalLead
	for _, field := range model.CanonicalFields {
		col := m.Column(field)
		if col == "" {
			continue
		}
		val := strings.TrimSpace(row.Cells[sheets.FormatHeader(col)])
		if val == "" {
			continue
		}
		switch field {
		case model.FieldName:
			lead.Name = val
		case model.FieldEmail:
			lead.Email = strings.ToLower(val)
		case model.FieldPhone:
			lead.Phone = val
		case model.FieldCity:
			lead.City = val
		case model.FieldSource:
			lead.Source = val
		}
	}
	return lead
}
