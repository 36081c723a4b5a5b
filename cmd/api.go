package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/sheetsync/internal/engine"
	"github.com/sells-group/sheetsync/internal/model"
	"github.com/sells-group/sheetsync/internal/sheets"
	"github.com/sells-group/sheetsync/internal/store"
)

// api holds the handler dependencies and the tenant header name.
type api struct {
	store        store.Store
	reader       sheets.Reader
	engine       *engine.Engine
	tenantHeader string
}

func newAPIRouter(a *api) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", a.tenantHeader},
	}))

	r.Get("/health", a.health)

	r.Route("/api", func(r chi.Router) {
		r.Use(a.requireTenant)

		r.Route("/sheets", func(r chi.Router) {
			r.Post("/", a.createConnector)
			r.Delete("/", a.deleteConnector)
			r.Get("/", a.listConnectors)
			r.Post("/columns", a.sheetColumns)
		})

		r.Post("/mappings", a.upsertMapping)

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", a.listLeads)
			r.Post("/all", a.leadsByProcessStatus)
			r.Get("/logs", a.leadLogs)
			r.Get("/failed", a.failedLeads)
			r.Post("/sync/manual", a.syncManual)
			r.Post("/sync/verify", a.syncVerify)
			r.Get("/sync/history", a.syncHistory)
		})
	})

	return r
}

type tenantKeyType struct{}

var tenantKey tenantKeyType

func contextWithTenant(ctx context.Context, tenant string) context.Context {
	return context.WithValue(ctx, tenantKey, tenant)
}

func tenantFrom(r *http.Request) string {
	tenant, _ := r.Context().Value(tenantKey).(string)
	return tenant
}

// requireTenant rejects requests without a tenant id header and stores
// the id in the request context.
func (a *api) requireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant := r.Header.Get(a.tenantHeader)
		if tenant == "" {
			writeError(w, http.StatusUnauthorized, "tenant id header is required")
			return
		}
		ctx := contextWithTenant(r.Context(), tenant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type connectorRequest struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	SheetName     string `json:"sheet_name,omitempty"`
}

func (a *api) createConnector(w http.ResponseWriter, r *http.Request) {
	var req connectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SpreadsheetID == "" {
		writeError(w, http.StatusBadRequest, "spreadsheet_id is required")
		return
	}

	conn, err := a.store.CreateConnector(r.Context(), tenantFrom(r), req.SpreadsheetID, req.SheetName)
	if err != nil {
		if errors.Is(err, store.ErrConnectorExists) {
			writeError(w, http.StatusConflict, "connector already exists for this spreadsheet")
			return
		}
		a.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, conn)
}

func (a *api) deleteConnector(w http.ResponseWriter, r *http.Request) {
	var req connectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SpreadsheetID == "" {
		writeError(w, http.StatusBadRequest, "spreadsheet_id is required")
		return
	}

	err := a.store.DeleteConnectorWithMappings(r.Context(), tenantFrom(r), req.SpreadsheetID)
	if err != nil {
		if errors.Is(err, store.ErrConnectorNotFound) {
			writeError(w, http.StatusNotFound, "connector not found")
			return
		}
		a.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": req.SpreadsheetID})
}

// connectorView adds the mapping-status flag the UI renders per sheet.
type connectorView struct {
	model.Connector
	FieldMappingStatus bool `json:"field_mapping_status"`
}

func (a *api) listConnectors(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	conns, err := a.store.ListConnectors(r.Context(), tenant)
	if err != nil {
		a.serverError(w, r, err)
		return
	}

	views := make([]connectorView, 0, len(conns))
	for _, c := range conns {
		mappings, err := a.store.ListFieldMappings(r.Context(), tenant, c.SpreadsheetID)
		if err != nil {
			a.serverError(w, r, err)
			return
		}
		views = append(views, connectorView{Connector: c, FieldMappingStatus: len(mappings) > 0})
	}
	writeJSON(w, http.StatusOK, views)
}

type subSheetColumns struct {
	SubSheet string   `json:"sub_sheet"`
	Columns  []string `json:"columns"`
}

func (a *api) sheetColumns(w http.ResponseWriter, r *http.Request) {
	var req connectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SpreadsheetID == "" {
		writeError(w, http.StatusBadRequest, "spreadsheet_id is required")
		return
	}

	headers, err := a.reader.FetchHeaders(r.Context(), req.SpreadsheetID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "could not read spreadsheet: "+err.Error())
		return
	}

	out := make([]subSheetColumns, 0, len(headers))
	for name, cols := range headers {
		formatted := make([]string, len(cols))
		for i, c := range cols {
			formatted[i] = sheets.FormatHeader(c)
		}
		out = append(out, subSheetColumns{SubSheet: name, Columns: formatted})
	}
	writeJSON(w, http.StatusOK, out)
}

type mappingRequest struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	SubSheetName  string `json:"sub_sheet_name"`
	NameColumn    string `json:"name_column"`
	EmailColumn   string `json:"email_column"`
	PhoneColumn   string `json:"phone_column"`
	CityColumn    string `json:"city_column,omitempty"`
	SourceColumn  string `json:"source_column,omitempty"`
}

func (a *api) upsertMapping(w http.ResponseWriter, r *http.Request) {
	var req mappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	switch {
	case req.SpreadsheetID == "":
		writeError(w, http.StatusBadRequest, "spreadsheet_id is required")
		return
	case req.SubSheetName == "":
		writeError(w, http.StatusBadRequest, "sub_sheet_name is required")
		return
	case req.NameColumn == "" || req.EmailColumn == "" || req.PhoneColumn == "":
		writeError(w, http.StatusBadRequest, "name_column, email_column and phone_column are required")
		return
	}

	m := model.FieldMapping{
		TenantID:      tenantFrom(r),
		SpreadsheetID: req.SpreadsheetID,
		SubSheetName:  req.SubSheetName,
		NameColumn:    req.NameColumn,
		EmailColumn:   req.EmailColumn,
		PhoneColumn:   req.PhoneColumn,
		CityColumn:    req.CityColumn,
		SourceColumn:  req.SourceColumn,
	}
	if err := a.store.UpsertFieldMapping(r.Context(), m); err != nil {
		a.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *api) listLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.LeadFilter{
		Status: model.LeadStatus(q.Get("status")),
		Page:   queryInt(q.Get("page"), 1),
		Limit:  queryInt(q.Get("limit"), 50),
	}

	leads, total, err := a.store.ListLeads(r.Context(), tenantFrom(r), filter)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"leads": leads,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

func (a *api) leadsByProcessStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProcessStatus string `json:"process_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ps := model.ProcessStatus(req.ProcessStatus)
	if ps != model.ProcessStatusSuccess && ps != model.ProcessStatusFailed {
		writeError(w, http.StatusBadRequest, "process_status must be success or failed")
		return
	}

	leads, total, err := a.store.ListLeads(r.Context(), tenantFrom(r), store.LeadFilter{ProcessStatus: ps})
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leads": leads, "total": total})
}

func (a *api) leadLogs(w http.ResponseWriter, r *http.Request) {
	recs, err := a.store.ListSyncRecordsWithLeads(r.Context(), tenantFrom(r))
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (a *api) failedLeads(w http.ResponseWriter, r *http.Request) {
	fls, err := a.store.ListFailedLeads(r.Context(), tenantFrom(r))
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fls)
}

func (a *api) syncManual(w http.ResponseWriter, r *http.Request) {
	var req connectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SpreadsheetID == "" {
		writeError(w, http.StatusBadRequest, "spreadsheet_id is required")
		return
	}

	summary, err := a.engine.Sync(r.Context(), tenantFrom(r), req.SpreadsheetID)
	if err != nil {
		if errors.Is(err, store.ErrMappingNotFound) {
			writeError(w, http.StatusPreconditionFailed, "no field mappings configured for this spreadsheet")
			return
		}
		a.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *api) syncVerify(w http.ResponseWriter, r *http.Request) {
	var req connectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SpreadsheetID == "" {
		writeError(w, http.StatusBadRequest, "spreadsheet_id is required")
		return
	}

	subSheets, err := a.reader.ListSubSheets(r.Context(), req.SpreadsheetID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "could not read spreadsheet: "+err.Error())
		return
	}

	mappings, err := a.store.ListFieldMappings(r.Context(), tenantFrom(r), req.SpreadsheetID)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	mapped := make(map[string]bool, len(mappings))
	for _, m := range mappings {
		mapped[m.SubSheetName] = true
	}

	type subSheetInfo struct {
		Name   string `json:"name"`
		Mapped bool   `json:"mapped"`
	}
	infos := make([]subSheetInfo, len(subSheets))
	for i, name := range subSheets {
		infos[i] = subSheetInfo{Name: name, Mapped: mapped[name]}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"spreadsheet_id": req.SpreadsheetID,
		"sub_sheets":     infos,
	})
}

func (a *api) syncHistory(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	limit := queryInt(r.URL.Query().Get("limit"), 20)

	recs, err := a.store.RecentSyncRecords(r.Context(), tenant, limit)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	leads, err := a.store.RecentLeads(r.Context(), tenant, limit)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": recs, "recent_leads": leads})
}

func (a *api) serverError(w http.ResponseWriter, r *http.Request, err error) {
	zap.L().Error("api: request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func queryInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}
