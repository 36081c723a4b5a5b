// Package store persists connectors, field mappings, leads, and sync history.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sheetsync/internal/model"
)

// Sentinel errors surfaced to callers; match with errors.Is via eris.
var (
	// ErrDuplicateLead means the (tenant, sub-sheet, email) uniqueness
	// constraint rejected a lead insert.
	ErrDuplicateLead = eris.New("store: duplicate lead")
	// ErrConnectorExists means a connector is already registered for the
	// (tenant, spreadsheet) pair.
	ErrConnectorExists = eris.New("store: connector already exists")
	// ErrConnectorNotFound means no connector is registered for the pair.
	ErrConnectorNotFound = eris.New("store: connector not found")
	// ErrMappingNotFound means no field mapping is configured where one is
	// required.
	ErrMappingNotFound = eris.New("store: field mapping not found")
)

// LeadFilter narrows ListLeads. Zero values mean "no filter".
type LeadFilter struct {
	Status        model.LeadStatus    `json:"status,omitempty"`
	ProcessStatus model.ProcessStatus `json:"process_status,omitempty"`
	Page          int                 `json:"page,omitempty"`
	Limit         int                 `json:"limit,omitempty"`
}

// Store is the persistence contract the sync engine and the API depend on.
// All operations are tenant-scoped.
type Store interface {
	// Connectors
	CreateConnector(ctx context.Context, tenantID, spreadsheetID, sheetName string) (*model.Connector, error)
	GetConnector(ctx context.Context, tenantID, spreadsheetID string) (*model.Connector, error)
	ListConnectors(ctx context.Context, tenantID string) ([]model.Connector, error)
	// DeleteConnectorWithMappings removes the connector and all of its field
	// mappings as a single transaction.
	DeleteConnectorWithMappings(ctx context.Context, tenantID, spreadsheetID string) error

	// Field mappings
	UpsertFieldMapping(ctx context.Context, m model.FieldMapping) error
	GetFieldMapping(ctx context.Context, tenantID, spreadsheetID, subSheet string) (*model.FieldMapping, error)
	ListFieldMappings(ctx context.Context, tenantID, spreadsheetID string) ([]model.FieldMapping, error)

	// Leads
	CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error)
	// LeadRowExists reports the id of the lead already ingested for the exact
	// (tenant, spreadsheet, sub-sheet, email, row number) combination, or ""
	// when the row has not been processed.
	LeadRowExists(ctx context.Context, tenantID, spreadsheetID, subSheet, email string, rowNumber int) (string, error)
	UpdateLeadProcess(ctx context.Context, tenantID, leadID string, status model.ProcessStatus, message string) error
	ListLeads(ctx context.Context, tenantID string, f LeadFilter) ([]model.Lead, int, error)
	RecentLeads(ctx context.Context, tenantID string, limit int) ([]model.Lead, error)

	// Failed leads (write-mostly audit trail)
	CreateFailedLead(ctx context.Context, fl model.FailedLead) error
	ListFailedLeads(ctx context.Context, tenantID string) ([]model.FailedLead, error)

	// Sync history (append-only, one record per sub-sheet per run)
	CreateSyncRecord(ctx context.Context, rec model.SyncRecord) (string, error)
	RecentSyncRecords(ctx context.Context, tenantID string, limit int) ([]model.SyncRecord, error)
	// ListSyncRecordsWithLeads returns history rows that created at least one
	// lead, newest first.
	ListSyncRecordsWithLeads(ctx context.Context, tenantID string) ([]model.SyncRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
