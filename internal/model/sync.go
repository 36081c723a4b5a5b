package model

import "time"

// RowOutcome classifies what the engine did with a single row.
type RowOutcome string

const (
	RowCreated RowOutcome = "created"
	RowUpdated RowOutcome = "updated"
	RowSkipped RowOutcome = "skipped"
	RowFailed  RowOutcome = "failed"
	RowError   RowOutcome = "error"
)

// RunStatus is the tri-state result of a sub-sheet or a whole run.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunPartial RunStatus = "partial"
	RunError   RunStatus = "error"
)

// RowDetail reports one row's outcome within a sync run.
type RowDetail struct {
	SubSheet      string        `json:"sub_sheet"`
	RowNumber     int           `json:"row_number"`
	LeadID        string        `json:"lead_id,omitempty"`
	Outcome       RowOutcome    `json:"status"`
	Reason        string        `json:"reason,omitempty"`
	ProcessStatus ProcessStatus `json:"process_status,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// SyncCounts aggregates row outcomes.
type SyncCounts struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	Errors  int `json:"errors"`
}

// Add accumulates another count set into this one.
func (c *SyncCounts) Add(o SyncCounts) {
	c.Total += o.Total
	c.Created += o.Created
	c.Updated += o.Updated
	c.Skipped += o.Skipped
	c.Failed += o.Failed
	c.Errors += o.Errors
}

// Status applies the tri-state rule: no errors is success, errors with
// progress is partial, errors without progress is error.
func (c SyncCounts) Status() RunStatus {
	if c.Errors == 0 {
		return RunSuccess
	}
	if c.Created+c.Updated > 0 {
		return RunPartial
	}
	return RunError
}

// SubSheetReport is the per-sub-sheet breakdown inside a SyncSummary.
type SubSheetReport struct {
	SubSheet string     `json:"sub_sheet"`
	Counts   SyncCounts `json:"counts"`
	Status   RunStatus  `json:"status"`
}

// SyncSummary is what a sync run returns to its caller.
type SyncSummary struct {
	SpreadsheetID string           `json:"spreadsheet_id"`
	Counts        SyncCounts       `json:"counts"`
	Status        RunStatus        `json:"status"`
	SubSheets     []SubSheetReport `json:"sub_sheets_processed"`
	Details       []RowDetail      `json:"details"`
}

// SyncRecord is one append-only history row, written per sub-sheet per run.
type SyncRecord struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenant_id"`
	SpreadsheetID string    `json:"spreadsheet_id"`
	SubSheetName  string    `json:"sub_sheet_name"`
	TotalRecords  int       `json:"total_records"`
	CreatedCount  int       `json:"created_count"`
	UpdatedCount  int       `json:"updated_count"`
	SkippedCount  int       `json:"skipped_count"`
	FailedCount   int       `json:"failed_count"`
	ErrorCount    int       `json:"error_count"`
	SyncType      string    `json:"sync_type"`
	Status        RunStatus `json:"status"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	CompletedAt   time.Time `json:"completed_at"`
	CreatedAt     time.Time `json:"created_at"`
}
