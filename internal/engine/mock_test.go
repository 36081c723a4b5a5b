package engine

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/sheetsync/internal/model"
	"github.com/sells-group/sheetsync/internal/sheets"
	"github.com/sells-group/sheetsync/internal/store"
	"github.com/sells-group/sheetsync/pkg/crm"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateConnector(ctx context.Context, tenantID, spreadsheetID, sheetName string) (*model.Connector, error) {
	args := m.Called(ctx, tenantID, spreadsheetID, sheetName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Connector), args.Error(1)
}

func (m *mockStore) GetConnector(ctx context.Context, tenantID, spreadsheetID string) (*model.Connector, error) {
	args := m.Called(ctx, tenantID, spreadsheetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Connector), args.Error(1)
}

func (m *mockStore) ListConnectors(ctx context.Context, tenantID string) ([]model.Connector, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Connector), args.Error(1)
}

func (m *mockStore) DeleteConnectorWithMappings(ctx context.Context, tenantID, spreadsheetID string) error {
	args := m.Called(ctx, tenantID, spreadsheetID)
	return args.Error(0)
}

func (m *mockStore) UpsertFieldMapping(ctx context.Context, fm model.FieldMapping) error {
	args := m.Called(ctx, fm)
	return args.Error(0)
}

func (m *mockStore) GetFieldMapping(ctx context.Context, tenantID, spreadsheetID, subSheet string) (*model.FieldMapping, error) {
	args := m.Called(ctx, tenantID, spreadsheetID, subSheet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FieldMapping), args.Error(1)
}

func (m *mockStore) ListFieldMappings(ctx context.Context, tenantID, spreadsheetID string) ([]model.FieldMapping, error) {
	args := m.Called(ctx, tenantID, spreadsheetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FieldMapping), args.Error(1)
}

func (m *mockStore) CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error) {
	args := m.Called(ctx, lead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

func (m *mockStore) LeadRowExists(ctx context.Context, tenantID, spreadsheetID, subSheet, email string, rowNumber int) (string, error) {
	args := m.Called(ctx, tenantID, spreadsheetID, subSheet, email, rowNumber)
	return args.String(0), args.Error(1)
}

func (m *mockStore) UpdateLeadProcess(ctx context.Context, tenantID, leadID string, status model.ProcessStatus, message string) error {
	args := m.Called(ctx, tenantID, leadID, status, message)
	return args.Error(0)
}

func (m *mockStore) ListLeads(ctx context.Context, tenantID string, f store.LeadFilter) ([]model.Lead, int, error) {
	args := m.Called(ctx, tenantID, f)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]model.Lead), args.Int(1), args.Error(2)
}

func (m *mockStore) RecentLeads(ctx context.Context, tenantID string, limit int) ([]model.Lead, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Lead), args.Error(1)
}

func (m *mockStore) CreateFailedLead(ctx context.Context, fl model.FailedLead) error {
	args := m.Called(ctx, fl)
	return args.Error(0)
}

func (m *mockStore) ListFailedLeads(ctx context.Context, tenantID string) ([]model.FailedLead, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FailedLead), args.Error(1)
}

func (m *mockStore) CreateSyncRecord(ctx context.Context, rec model.SyncRecord) (string, error) {
	args := m.Called(ctx, rec)
	return args.String(0), args.Error(1)
}

func (m *mockStore) RecentSyncRecords(ctx context.Context, tenantID string, limit int) ([]model.SyncRecord, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SyncRecord), args.Error(1)
}

func (m *mockStore) ListSyncRecordsWithLeads(ctx context.Context, tenantID string) ([]model.SyncRecord, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SyncRecord), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Reader Mock ---

type mockReader struct {
	mock.Mock
}

func (m *mockReader) ListSubSheets(ctx context.Context, spreadsheetID string) ([]string, error) {
	args := m.Called(ctx, spreadsheetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockReader) FetchRows(ctx context.Context, spreadsheetID, subSheet string) ([]sheets.Row, error) {
	args := m.Called(ctx, spreadsheetID, subSheet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sheets.Row), args.Error(1)
}

func (m *mockReader) FetchHeaders(ctx context.Context, spreadsheetID string) (map[string][]string, error) {
	args := m.Called(ctx, spreadsheetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]string), args.Error(1)
}

// --- Relay Mock ---

type mockRelay struct {
	mock.Mock
}

func (m *mockRelay) SubmitLead(ctx context.Context, payload crm.LeadPayload, tenantKey string) (*crm.SubmitResult, error) {
	args := m.Called(ctx, payload, tenantKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.SubmitResult), args.Error(1)
}

// Interface compliance.
var (
	_ store.Store   = (*mockStore)(nil)
	_ sheets.Reader = (*mockReader)(nil)
	_ crm.Client    = (*mockRelay)(nil)
)
