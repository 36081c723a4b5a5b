package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sheetsync/internal/engine"
	"github.com/sells-group/sheetsync/internal/model"
	"github.com/sells-group/sheetsync/internal/sheets"
	"github.com/sells-group/sheetsync/internal/store"
	"github.com/sells-group/sheetsync/pkg/crm"
)

// stubStore implements store.Store with overridable functions so each
// test wires only what it exercises.
type stubStore struct {
	createConnector   func(ctx context.Context, tenantID, spreadsheetID, sheetName string) (*model.Connector, error)
	getConnector      func(ctx context.Context, tenantID, spreadsheetID string) (*model.Connector, error)
	listConnectors    func(ctx context.Context, tenantID string) ([]model.Connector, error)
	deleteConnector   func(ctx context.Context, tenantID, spreadsheetID string) error
	upsertMapping     func(ctx context.Context, m model.FieldMapping) error
	getMapping        func(ctx context.Context, tenantID, spreadsheetID, subSheet string) (*model.FieldMapping, error)
	listMappings      func(ctx context.Context, tenantID, spreadsheetID string) ([]model.FieldMapping, error)
	createLead        func(ctx context.Context, lead model.Lead) (*model.Lead, error)
	leadRowExists     func(ctx context.Context, tenantID, spreadsheetID, subSheet, email string, rowNumber int) (string, error)
	updateLeadProcess func(ctx context.Context, tenantID, leadID string, status model.ProcessStatus, message string) error
	listLeads         func(ctx context.Context, tenantID string, f store.LeadFilter) ([]model.Lead, int, error)
	recentLeads       func(ctx context.Context, tenantID string, limit int) ([]model.Lead, error)
	createFailedLead  func(ctx context.Context, fl model.FailedLead) error
	listFailedLeads   func(ctx context.Context, tenantID string) ([]model.FailedLead, error)
	createSyncRecord  func(ctx context.Context, rec model.SyncRecord) (string, error)
	recentSyncRecords func(ctx context.Context, tenantID string, limit int) ([]model.SyncRecord, error)
	syncRecordsLeads  func(ctx context.Context, tenantID string) ([]model.SyncRecord, error)
	ping              func(ctx context.Context) error
}

var errStubNotWired = eris.New("stub: not wired")

func (s *stubStore) CreateConnector(ctx context.Context, tenantID, spreadsheetID, sheetName string) (*model.Connector, error) {
	if s.createConnector == nil {
		return nil, errStubNotWired
	}
	return s.createConnector(ctx, tenantID, spreadsheetID, sheetName)
}

func (s *stubStore) GetConnector(ctx context.Context, tenantID, spreadsheetID string) (*model.Connector, error) {
	if s.getConnector == nil {
		return nil, errStubNotWired
	}
	return s.getConnector(ctx, tenantID, spreadsheetID)
}

func (s *stubStore) ListConnectors(ctx context.Context, tenantID string) ([]model.Connector, error) {
	if s.listConnectors == nil {
		return nil, errStubNotWired
	}
	return s.listConnectors(ctx, tenantID)
}

func (s *stubStore) DeleteConnectorWithMappings(ctx context.Context, tenantID, spreadsheetID string) error {
	if s.deleteConnector == nil {
		return errStubNotWired
	}
	return s.deleteConnector(ctx, tenantID, spreadsheetID)
}

func (s *stubStore) UpsertFieldMapping(ctx context.Context, m model.FieldMapping) error {
	if s.upsertMapping == nil {
		return errStubNotWired
	}
	return s.upsertMapping(ctx, m)
}

func (s *stubStore) GetFieldMapping(ctx context.Context, tenantID, spreadsheetID, subSheet string) (*model.FieldMapping, error) {
	if s.getMapping == nil {
		return nil, errStubNotWired
	}
	return s.getMapping(ctx, tenantID, spreadsheetID, subSheet)
}

func (s *stubStore) ListFieldMappings(ctx context.Context, tenantID, spreadsheetID string) ([]model.FieldMapping, error) {
	if s.listMappings == nil {
		return nil, errStubNotWired
	}
	return s.listMappings(ctx, tenantID, spreadsheetID)
}

func (s *stubStore) CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error) {
	if s.createLead == nil {
		return nil, errStubNotWired
	}
	return s.createLead(ctx, lead)
}

func (s *stubStore) LeadRowExists(ctx context.Context, tenantID, spreadsheetID, subSheet, email string, rowNumber int) (string, error) {
	if s.leadRowExists == nil {
		return "", errStubNotWired
	}
	return s.leadRowExists(ctx, tenantID, spreadsheetID, subSheet, email, rowNumber)
}

func (s *stubStore) UpdateLeadProcess(ctx context.Context, tenantID, leadID string, status model.ProcessStatus, message string) error {
	if s.updateLeadProcess == nil {
		return errStubNotWired
	}
	return s.updateLeadProcess(ctx, tenantID, leadID, status, message)
}

func (s *stubStore) ListLeads(ctx context.Context, tenantID string, f store.LeadFilter) ([]model.Lead, int, error) {
	if s.listLeads == nil {
		return nil, 0, errStubNotWired
	}
	return s.listLeads(ctx, tenantID, f)
}

func (s *stubStore) RecentLeads(ctx context.Context, tenantID string, limit int) ([]model.Lead, error) {
	if s.recentLeads == nil {
		return nil, errStubNotWired
	}
	return s.recentLeads(ctx, tenantID, limit)
}

func (s *stubStore) CreateFailedLead(ctx context.Context, fl model.FailedLead) error {
	if s.createFailedLead == nil {
		return errStubNotWired
	}
	return s.createFailedLead(ctx, fl)
}

func (s *stubStore) ListFailedLeads(ctx context.Context, tenantID string) ([]model.FailedLead, error) {
	if s.listFailedLeads == nil {
		return nil, errStubNotWired
	}
	return s.listFailedLeads(ctx, tenantID)
}

func (s *stubStore) CreateSyncRecord(ctx context.Context, rec model.SyncRecord) (string, error) {
	if s.createSyncRecord == nil {
		return "", errStubNotWired
	}
	return s.createSyncRecord(ctx, rec)
}

func (s *stubStore) RecentSyncRecords(ctx context.Context, tenantID string, limit int) ([]model.SyncRecord, error) {
	if s.recentSyncRecords == nil {
		return nil, errStubNotWired
	}
	return s.recentSyncRecords(ctx, tenantID, limit)
}

func (s *stubStore) ListSyncRecordsWithLeads(ctx context.Context, tenantID string) ([]model.SyncRecord, error) {
	if s.syncRecordsLeads == nil {
		return nil, errStubNotWired
	}
	return s.syncRecordsLeads(ctx, tenantID)
}

func (s *stubStore) Migrate(ctx context.Context) error { return nil }

func (s *stubStore) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func (s *stubStore) Close() error { return nil }

// stubReader implements sheets.Reader.
type stubReader struct {
	listSubSheets func(ctx context.Context, spreadsheetID string) ([]string, error)
	fetchRows     func(ctx context.Context, spreadsheetID, subSheet string) ([]sheets.Row, error)
	fetchHeaders  func(ctx context.Context, spreadsheetID string) (map[string][]string, error)
}

func (s *stubReader) ListSubSheets(ctx context.Context, spreadsheetID string) ([]string, error) {
	if s.listSubSheets == nil {
		return nil, errStubNotWired
	}
	return s.listSubSheets(ctx, spreadsheetID)
}

func (s *stubReader) FetchRows(ctx context.Context, spreadsheetID, subSheet string) ([]sheets.Row, error) {
	if s.fetchRows == nil {
		return nil, errStubNotWired
	}
	return s.fetchRows(ctx, spreadsheetID, subSheet)
}

func (s *stubReader) FetchHeaders(ctx context.Context, spreadsheetID string) (map[string][]string, error) {
	if s.fetchHeaders == nil {
		return nil, errStubNotWired
	}
	return s.fetchHeaders(ctx, spreadsheetID)
}

// stubRelay implements crm.Client.
type stubRelay struct {
	submit func(ctx context.Context, payload crm.LeadPayload, tenantKey string) (*crm.SubmitResult, error)
}

func (s *stubRelay) SubmitLead(ctx context.Context, payload crm.LeadPayload, tenantKey string) (*crm.SubmitResult, error) {
	if s.submit == nil {
		return &crm.SubmitResult{Status: "success"}, nil
	}
	return s.submit(ctx, payload, tenantKey)
}

var (
	_ store.Store   = (*stubStore)(nil)
	_ sheets.Reader = (*stubReader)(nil)
	_ crm.Client    = (*stubRelay)(nil)
)

const testTenantHeader = "X-Tenant-ID"

func newTestAPI(st *stubStore, rd *stubReader, relay *stubRelay) http.Handler {
	if st == nil {
		st = &stubStore{}
	}
	if rd == nil {
		rd = &stubReader{}
	}
	if relay == nil {
		relay = &stubRelay{}
	}
	eng := engine.New(st, rd, relay, engine.WithThrottle(0, 0))
	return newAPIRouter(&api{store: st, reader: rd, engine: eng, tenantHeader: testTenantHeader})
}

func doJSON(t *testing.T, h http.Handler, method, path, tenant string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if tenant != "" {
		req.Header.Set(testTenantHeader, tenant)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth_OK(t *testing.T) {
	h := newTestAPI(nil, nil, nil)

	rr := doJSON(t, h, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"success":true`)
}

func TestHealth_StoreDown(t *testing.T) {
	st := &stubStore{ping: func(ctx context.Context) error { return eris.New("down") }}
	h := newTestAPI(st, nil, nil)

	rr := doJSON(t, h, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestAPI_MissingTenantHeader(t *testing.T) {
	h := newTestAPI(nil, nil, nil)

	rr := doJSON(t, h, http.MethodGet, "/api/sheets", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), `"success":false`)
}

func TestCreateConnector(t *testing.T) {
	st := &stubStore{
		createConnector: func(ctx context.Context, tenantID, spreadsheetID, sheetName string) (*model.Connector, error) {
			assert.Equal(t, "tenant-1", tenantID)
			assert.Equal(t, "sheet-abc", spreadsheetID)
			return &model.Connector{ID: "conn-1", TenantID: tenantID, SpreadsheetID: spreadsheetID}, nil
		},
	}
	h := newTestAPI(st, nil, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/sheets", "tenant-1",
		map[string]string{"spreadsheet_id": "sheet-abc"})

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), "conn-1")
}

func TestCreateConnector_Duplicate(t *testing.T) {
	st := &stubStore{
		createConnector: func(ctx context.Context, tenantID, spreadsheetID, sheetName string) (*model.Connector, error) {
			return nil, store.ErrConnectorExists
		},
	}
	h := newTestAPI(st, nil, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/sheets", "tenant-1",
		map[string]string{"spreadsheet_id": "sheet-abc"})

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestCreateConnector_MissingSpreadsheetID(t *testing.T) {
	h := newTestAPI(nil, nil, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/sheets", "tenant-1", map[string]string{})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListConnectors_MappingStatusFlag(t *testing.T) {
	st := &stubStore{
		listConnectors: func(ctx context.Context, tenantID string) ([]model.Connector, error) {
			return []model.Connector{
				{ID: "c1", SpreadsheetID: "mapped"},
				{ID: "c2", SpreadsheetID: "unmapped"},
			}, nil
		},
		listMappings: func(ctx context.Context, tenantID, spreadsheetID string) ([]model.FieldMapping, error) {
			if spreadsheetID == "mapped" {
				return []model.FieldMapping{{SubSheetName: "Leads"}}, nil
			}
			return nil, nil
		},
	}
	h := newTestAPI(st, nil, nil)

	rr := doJSON(t, h, http.MethodGet, "/api/sheets", "tenant-1", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Data []connectorView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.True(t, resp.Data[0].FieldMappingStatus)
	assert.False(t, resp.Data[1].FieldMappingStatus)
}

func TestDeleteConnector_NotFound(t *testing.T) {
	st := &stubStore{
		deleteConnector: func(ctx context.Context, tenantID, spreadsheetID string) error {
			return store.ErrConnectorNotFound
		},
	}
	h := newTestAPI(st, nil, nil)

	rr := doJSON(t, h, http.MethodDelete, "/api/sheets", "tenant-1",
		map[string]string{"spreadsheet_id": "gone"})

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSheetColumns_FormatsHeaders(t *testing.T) {
	rd := &stubReader{
		fetchHeaders: func(ctx context.Context, spreadsheetID string) (map[string][]string, error) {
			return map[string][]string{"Leads": {"Full Name", "E-Mail Address"}}, nil
		},
	}
	h := newTestAPI(nil, rd, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/sheets/columns", "tenant-1",
		map[string]string{"spreadsheet_id": "sheet-abc"})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "full_name")
	assert.Contains(t, rr.Body.String(), "email_address")
}

func TestUpsertMapping_RequiredColumns(t *testing.T) {
	h := newTestAPI(nil, nil, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/mappings", "tenant-1", map[string]string{
		"spreadsheet_id": "sheet-abc",
		"sub_sheet_name": "Leads",
		"name_column":    "Full Name",
		// email_column and phone_column missing
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "email_column")
}

func TestUpsertMapping_OK(t *testing.T) {
	var saved model.FieldMapping
	st := &stubStore{
		upsertMapping: func(ctx context.Context, m model.FieldMapping) error {
			saved = m
			return nil
		},
	}
	h := newTestAPI(st, nil, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/mappings", "tenant-1", map[string]string{
		"spreadsheet_id": "sheet-abc",
		"sub_sheet_name": "Leads",
		"name_column":    "Full Name",
		"email_column":   "Email Address",
		"phone_column":   "Phone",
	})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "tenant-1", saved.TenantID)
	assert.Equal(t, "Full Name", saved.NameColumn)
}

func TestSyncManual_NoMappings(t *testing.T) {
	st := &stubStore{
		listMappings: func(ctx context.Context, tenantID, spreadsheetID string) ([]model.FieldMapping, error) {
			return nil, nil
		},
	}
	h := newTestAPI(st, nil, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/leads/sync/manual", "tenant-1",
		map[string]string{"spreadsheet_id": "sheet-abc"})

	assert.Equal(t, http.StatusPreconditionFailed, rr.Code)
}

func TestSyncManual_RunsEngine(t *testing.T) {
	st := &stubStore{
		listMappings: func(ctx context.Context, tenantID, spreadsheetID string) ([]model.FieldMapping, error) {
			return []model.FieldMapping{{
				TenantID: tenantID, SpreadsheetID: spreadsheetID, SubSheetName: "Leads",
				NameColumn: "Name", EmailColumn: "Email",
			}}, nil
		},
		leadRowExists: func(ctx context.Context, tenantID, spreadsheetID, subSheet, email string, rowNumber int) (string, error) {
			return "", nil
		},
		createLead: func(ctx context.Context, lead model.Lead) (*model.Lead, error) {
			lead.ID = "lead-1"
			return &lead, nil
		},
		updateLeadProcess: func(ctx context.Context, tenantID, leadID string, status model.ProcessStatus, message string) error {
			return nil
		},
		createSyncRecord: func(ctx context.Context, rec model.SyncRecord) (string, error) {
			return "rec-1", nil
		},
	}
	rd := &stubReader{
		fetchRows: func(ctx context.Context, spreadsheetID, subSheet string) ([]sheets.Row, error) {
			return []sheets.Row{{Number: 2, Cells: map[string]string{
				"name": "Jane Doe", "email": "jane@acme.com",
			}}}, nil
		},
	}
	h := newTestAPI(st, rd, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/leads/sync/manual", "tenant-1",
		map[string]string{"spreadsheet_id": "sheet-abc"})

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Data model.SyncSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, model.RunSuccess, resp.Data.Status)
	assert.Equal(t, 1, resp.Data.Counts.Created)
}

func TestSyncVerify_ReportsMappedSubSheets(t *testing.T) {
	st := &stubStore{
		listMappings: func(ctx context.Context, tenantID, spreadsheetID string) ([]model.FieldMapping, error) {
			return []model.FieldMapping{{SubSheetName: "Leads"}}, nil
		},
	}
	rd := &stubReader{
		listSubSheets: func(ctx context.Context, spreadsheetID string) ([]string, error) {
			return []string{"Leads", "Archive"}, nil
		},
	}
	h := newTestAPI(st, rd, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/leads/sync/verify", "tenant-1",
		map[string]string{"spreadsheet_id": "sheet-abc"})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"name":"Leads","mapped":true`)
	assert.Contains(t, rr.Body.String(), `"name":"Archive","mapped":false`)
}

func TestLeadsByProcessStatus_Validation(t *testing.T) {
	h := newTestAPI(nil, nil, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/leads/all", "tenant-1",
		map[string]string{"process_status": "bogus"})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListLeads_Pagination(t *testing.T) {
	var gotFilter store.LeadFilter
	st := &stubStore{
		listLeads: func(ctx context.Context, tenantID string, f store.LeadFilter) ([]model.Lead, int, error) {
			gotFilter = f
			return []model.Lead{{ID: "lead-1"}}, 101, nil
		},
	}
	h := newTestAPI(st, nil, nil)

	rr := doJSON(t, h, http.MethodGet, "/api/leads?page=3&limit=10&status=new", "tenant-1", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 3, gotFilter.Page)
	assert.Equal(t, 10, gotFilter.Limit)
	assert.Equal(t, model.LeadStatusNew, gotFilter.Status)
	assert.Contains(t, rr.Body.String(), `"total":101`)
}

func TestFailedLeads(t *testing.T) {
	st := &stubStore{
		listFailedLeads: func(ctx context.Context, tenantID string) ([]model.FailedLead, error) {
			return []model.FailedLead{{ID: "fl-1", Reason: model.ReasonMissingEmail}}, nil
		},
	}
	h := newTestAPI(st, nil, nil)

	rr := doJSON(t, h, http.MethodGet, "/api/leads/failed", "tenant-1", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "missing_email")
}

func TestLeadLogs(t *testing.T) {
	st := &stubStore{
		syncRecordsLeads: func(ctx context.Context, tenantID string) ([]model.SyncRecord, error) {
			return []model.SyncRecord{{ID: "rec-1", CreatedCount: 5}}, nil
		},
	}
	h := newTestAPI(st, nil, nil)

	rr := doJSON(t, h, http.MethodGet, "/api/leads/logs", "tenant-1", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"created_count":5`)
}

func TestSyncHistory(t *testing.T) {
	st := &stubStore{
		recentSyncRecords: func(ctx context.Context, tenantID string, limit int) ([]model.SyncRecord, error) {
			assert.Equal(t, 20, limit)
			return []model.SyncRecord{{ID: "rec-1"}}, nil
		},
		recentLeads: func(ctx context.Context, tenantID string, limit int) ([]model.Lead, error) {
			return []model.Lead{{ID: "lead-1"}}, nil
		},
	}
	h := newTestAPI(st, nil, nil)

	rr := doJSON(t, h, http.MethodGet, "/api/leads/sync/history", "tenant-1", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "rec-1")
	assert.Contains(t, rr.Body.String(), "lead-1")
}
