package model

import (
	"encoding/json"
	"time"
)

// LeadStatus is the business-facing lifecycle of a lead. The sync engine
// never changes it; agents move leads through these states elsewhere.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusLost      LeadStatus = "lost"
)

// ProcessStatus records whether the downstream CRM relay accepted a lead.
// Empty means the relay has not been attempted yet.
type ProcessStatus string

const (
	ProcessStatusSuccess ProcessStatus = "success"
	ProcessStatusFailed  ProcessStatus = "failed"
)

// CanonicalLead holds the mapped attributes of a single spreadsheet row
// before persistence. Unmapped attributes are left empty.
type CanonicalLead struct {
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	City   string `json:"city,omitempty"`
	Source string `json:"source,omitempty"`
}

// Lead is a spreadsheet row synced into the system of record.
type Lead struct {
	ID            string        `json:"id"`
	TenantID      string        `json:"tenant_id"`
	SpreadsheetID string        `json:"spreadsheet_id"`
	SubSheetName  string        `json:"sub_sheet_name"`
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	Phone         string        `json:"phone,omitempty"`
	City          string        `json:"city,omitempty"`
	Source        string        `json:"source"`
	RowNumber     int           `json:"row_number"`
	Status        LeadStatus    `json:"status"`
	ProcessStatus ProcessStatus `json:"process_status,omitempty"`
	Message       string        `json:"message,omitempty"`
	SyncedAt      time.Time     `json:"synced_at"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// FailureReason tags why a row could not become a lead.
type FailureReason string

const (
	ReasonMissingEmail FailureReason = "missing_email"
	ReasonMissingName  FailureReason = "missing_name"
	ReasonDuplicate    FailureReason = "duplicate"
)

// FailedLead is the audit record for a row that was rejected before relay.
// It keeps the raw row so mapping problems can be diagnosed after the fact.
type FailedLead struct {
	ID            string          `json:"id"`
	TenantID      string          `json:"tenant_id"`
	SpreadsheetID string          `json:"spreadsheet_id"`
	SubSheetName  string          `json:"sub_sheet_name"`
	Email         string          `json:"email,omitempty"`
	Name          string          `json:"name,omitempty"`
	RowNumber     int             `json:"row_number"`
	Reason        FailureReason   `json:"reason"`
	RawRow        json.RawMessage `json:"raw_row,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
