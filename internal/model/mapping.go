package model

import "time"

// CanonicalField names a lead attribute a spreadsheet column can map to.
type CanonicalField string

const (
	FieldName   CanonicalField = "name"
	FieldEmail  CanonicalField = "email"
	FieldPhone  CanonicalField = "phone"
	FieldCity   CanonicalField = "city"
	FieldSource CanonicalField = "source"
)

// CanonicalFields lists every mappable attribute in a fixed order.
var CanonicalFields = []CanonicalField{FieldName, FieldEmail, FieldPhone, FieldCity, FieldSource}

// Connector registers a tenant's spreadsheet with the system. Deleting a
// connector removes its field mappings in the same transaction.
type Connector struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenant_id"`
	SpreadsheetID string    `json:"spreadsheet_id"`
	SheetName     string    `json:"sheet_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FieldMapping tells the mapper which spreadsheet column supplies each
// canonical attribute for one (tenant, spreadsheet, sub-sheet). Column names
// are stored raw; the mapper formats them before row lookup.
type FieldMapping struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenant_id"`
	SpreadsheetID string    `json:"spreadsheet_id"`
	SubSheetName  string    `json:"sub_sheet_name"`
	NameColumn    string    `json:"name_column,omitempty"`
	EmailColumn   string    `json:"email_column,omitempty"`
	PhoneColumn   string    `json:"phone_column,omitempty"`
	CityColumn    string    `json:"city_column,omitempty"`
	SourceColumn  string    `json:"source_column,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Column returns the configured source column for a canonical field,
// or "" when the field is unmapped.
func (m FieldMapping) Column(f CanonicalField) string {
	switch f {
	case FieldName:
		return m.NameColumn
	case FieldEmail:
		return m.EmailColumn
	case FieldPhone:
		return m.PhoneColumn
	case FieldCity:
		return m.CityColumn
	case FieldSource:
		return m.SourceColumn
	}
	return ""
}
