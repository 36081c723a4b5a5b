// Package engine maps spreadsheet rows to leads, validates and dedupes
// them, relays accepted leads to the CRM intake endpoint, and records
// per-sub-sheet sync history.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sheetsync/internal/model"
	"github.com/sells-group/sheetsync/internal/sheets"
	"github.com/sells-group/sheetsync/internal/store"
	"github.com/sells-group/sheetsync/pkg/crm"
)

const (
	// SyncTypeManual is the only trigger currently wired. History records
	// keep the column so scheduled runs can be told apart later.
	SyncTypeManual = "manual"

	defaultThrottleEvery = 10
	defaultThrottleDelay = 50 * time.Millisecond
)

// Engine orchestrates one sync run: fetch, map, validate, dedupe, relay,
// record.
type Engine struct {
	store  store.Store
	reader sheets.Reader
	relay  crm.Client

	throttleEvery int
	throttleDelay time.Duration
}

// Option adjusts engine behavior.
type Option func(*Engine)

// WithThrottle overrides the pacing applied between row batches. Passing
// every <= 0 disables throttling.
func WithThrottle(every int, delay time.Duration) Option {
	return func(e *Engine) {
		e.throttleEvery = every
		e.throttleDelay = delay
	}
}

// New creates an Engine with all collaborators.
func New(st store.Store, reader sheets.Reader, relay crm.Client, opts ...Option) *Engine {
	e := &Engine{
		store:         st,
		reader:        reader,
		relay:         relay,
		throttleEvery: defaultThrottleEvery,
		throttleDelay: defaultThrottleDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sync processes every mapped sub-sheet of one spreadsheet for a tenant.
// Sub-sheets without a field mapping are untouched. Row failures never
// abort the run; each sub-sheet always gets exactly one history record.
func (e *Engine) Sync(ctx context.Context, tenantID, spreadsheetID string) (*model.SyncSummary, error) {
	log := zap.L().With(
		zap.String("tenant", tenantID),
		zap.String("spreadsheet", spreadsheetID),
	)

	mappings, err := e.store.ListFieldMappings(ctx, tenantID, spreadsheetID)
	if err != nil {
		return nil, eris.Wrap(err, "engine: load field mappings")
	}
	if len(mappings) == 0 {
		return nil, eris.Wrap(store.ErrMappingNotFound, "engine: no field mappings configured")
	}

	bySubSheet := make(map[string]model.FieldMapping, len(mappings))
	names := make([]string, 0, len(mappings))
	for _, m := range mappings {
		bySubSheet[m.SubSheetName] = m
		names = append(names, m.SubSheetName)
	}
	sort.Strings(names)

	log.Info("sync: starting run", zap.Int("sub_sheets", len(names)))

	summary := &model.SyncSummary{SpreadsheetID: spreadsheetID}
	for _, name := range names {
		report, details, err := e.syncSubSheet(ctx, tenantID, spreadsheetID, name, bySubSheet[name])
		if err != nil {
			return nil, err
		}
		summary.Counts.Add(report.Counts)
		summary.SubSheets = append(summary.SubSheets, *report)
		summary.Details = append(summary.Details, details...)
	}
	summary.Status = summary.Counts.Status()

	log.Info("sync: run complete",
		zap.String("status", string(summary.Status)),
		zap.Int("total", summary.Counts.Total),
		zap.Int("created", summary.Counts.Created),
		zap.Int("skipped", summary.Counts.Skipped),
		zap.Int("failed", summary.Counts.Failed),
		zap.Int("errors", summary.Counts.Errors),
	)
	return summary, nil
}

// syncSubSheet processes one sub-sheet and writes its history record.
// Only context cancellation and history-write failures propagate as
// errors; everything row-level is folded into the counts.
func (e *Engine) syncSubSheet(ctx context.Context, tenantID, spreadsheetID, subSheet string, mapping model.FieldMapping) (*model.SubSheetReport, []model.RowDetail, error) {
	log := zap.L().With(
		zap.String("tenant", tenantID),
		zap.String("spreadsheet", spreadsheetID),
		zap.String("sub_sheet", subSheet),
	)

	var (
		counts  model.SyncCounts
		details []model.RowDetail
		lastErr string
	)

	rows, err := e.reader.FetchRows(ctx, spreadsheetID, subSheet)
	if err != nil {
		// The run goes on; the record carries the fetch failure.
		log.Error("sync: fetch rows failed", zap.Error(err))
		counts.Errors = 1
		lastErr = err.Error()
	}

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, nil, eris.Wrap(err, "engine: sync canceled")
		}

		detail := e.processRow(ctx, tenantID, spreadsheetID, subSheet, mapping, row)
		details = append(details, detail)

		counts.Total++
		switch detail.Outcome {
		case model.RowCreated:
			counts.Created++
		case model.RowUpdated:
			counts.Updated++
		case model.RowSkipped:
			counts.Skipped++
		case model.RowFailed:
			counts.Failed++
		case model.RowError:
			counts.Errors++
			lastErr = detail.Error
		}

		if e.throttleEvery > 0 && (i+1)%e.throttleEvery == 0 {
			select {
			case <-ctx.Done():
				return nil, nil, eris.Wrap(ctx.Err(), "engine: sync canceled")
			case <-time.After(e.throttleDelay):
			}
		}
	}

	status := counts.Status()
	rec := model.SyncRecord{
		TenantID:      tenantID,
		SpreadsheetID: spreadsheetID,
		SubSheetName:  subSheet,
		TotalRecords:  counts.Total,
		CreatedCount:  counts.Created,
		UpdatedCount:  counts.Updated,
		SkippedCount:  counts.Skipped,
		FailedCount:   counts.Failed,
		ErrorCount:    counts.Errors,
		SyncType:      SyncTypeManual,
		Status:        status,
		ErrorMessage:  lastErr,
		CompletedAt:   time.Now().UTC(),
	}
	if _, err := e.store.CreateSyncRecord(ctx, rec); err != nil {
		return nil, nil, eris.Wrap(err, "engine: record sync history")
	}

	log.Info("sync: sub-sheet done",
		zap.String("status", string(status)),
		zap.Int("total", counts.Total),
		zap.Int("created", counts.Created),
	)

	return &model.SubSheetReport{SubSheet: subSheet, Counts: counts, Status: status}, details, nil
}

// processRow takes one row through map, validate, dedupe, create, and
// relay. It never returns an error; the outcome carries what happened. A
// panic from a collaborator is recovered here so one bad row cannot abort
// the sub-sheet.
func (e *Engine) processRow(ctx context.Context, tenantID, spreadsheetID, subSheet string, mapping model.FieldMapping, row sheets.Row) (detail model.RowDetail) {
	detail = model.RowDetail{SubSheet: subSheet, RowNumber: row.Number}
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("sync: row processing panicked",
				zap.String("sub_sheet", subSheet),
				zap.Int("row", row.Number),
				zap.Any("panic", r),
			)
			detail.Outcome = model.RowError
			detail.Error = eris.Errorf("engine: row %d panicked: %v", row.Number, r).Error()
		}
	}()

	canonical := MapRow(row, mapping)

	if result := Validate(canonical); !result.OK {
		reason := result.Missing[0]
		e.recordFailure(ctx, tenantID, spreadsheetID, subSheet, canonical, row, reason)
		detail.Outcome = model.RowFailed
		detail.Reason = string(reason)
		return detail
	}

	existingID, err := e.store.LeadRowExists(ctx, tenantID, spreadsheetID, subSheet, canonical.Email, row.Number)
	if err != nil {
		detail.Outcome = model.RowError
		detail.Error = eris.Wrap(err, "engine: dedup check").Error()
		return detail
	}
	if existingID != "" {
		detail.Outcome = model.RowSkipped
		detail.LeadID = existingID
		return detail
	}

	lead, err := e.store.CreateLead(ctx, model.Lead{
		TenantID:      tenantID,
		SpreadsheetID: spreadsheetID,
		SubSheetName:  subSheet,
		Name:          canonical.Name,
		Email:         canonical.Email,
		Phone:         canonical.Phone,
		City:          canonical.City,
		Source:        canonical.Source,
		RowNumber:     row.Number,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateLead) {
			e.recordFailure(ctx, tenantID, spreadsheetID, subSheet, canonical, row, model.ReasonDuplicate)
			detail.Outcome = model.RowSkipped
			detail.Reason = string(model.ReasonDuplicate)
			return detail
		}
		detail.Outcome = model.RowError
		detail.Error = eris.Wrap(err, "engine: create lead").Error()
		return detail
	}

	detail.Outcome = model.RowCreated
	detail.LeadID = lead.ID
	detail.ProcessStatus, detail.Error = e.relayLead(ctx, tenantID, spreadsheetID, lead)
	return detail
}

// relayLead submits one created lead to the intake endpoint and records
// the outcome on the lead. Relay failures never escape; the lead stays
// created with process_status failed.
func (e *Engine) relayLead(ctx context.Context, tenantID, spreadsheetID string, lead *model.Lead) (model.ProcessStatus, string) {
	log := zap.L().With(
		zap.String("tenant", tenantID),
		zap.String("lead", lead.ID),
	)

	source := lead.Source
	if source == "" {
		source = crm.DefaultSource
	}

	payload := crm.LeadPayload{Para: crm.LeadPara{
		CustName:      lead.Name,
		CustEmail:     lead.Email,
		PhoneNo:       lead.Phone,
		SourceID:      source,
		GoogleSheetID: spreadsheetID,
	}}

	status := model.ProcessStatusSuccess
	message := ""
	result, err := e.relay.SubmitLead(ctx, payload, tenantID)
	switch {
	case err != nil:
		status = model.ProcessStatusFailed
		message = err.Error()
		log.Warn("sync: relay call failed", zap.Error(err))
	case !result.Success():
		status = model.ProcessStatusFailed
		message = result.Message
		if message == "" {
			message = "relay rejected lead"
		}
		log.Warn("sync: relay rejected lead", zap.String("message", message))
	}

	if err := e.store.UpdateLeadProcess(ctx, tenantID, lead.ID, status, message); err != nil {
		log.Warn("sync: update lead process status failed", zap.Error(err))
	}

	if status == model.ProcessStatusFailed {
		return status, message
	}
	return status, ""
}

// recordFailure persists the audit record for a rejected row. Failures
// here are logged and swallowed; they must not stop the run.
func (e *Engine) recordFailure(ctx context.Context, tenantID, spreadsheetID, subSheet string, canonical model.CanonicalLead, row sheets.Row, reason model.FailureReason) {
	raw, err := json.Marshal(row.Cells)
	if err != nil {
		raw = nil
	}
	fl := model.FailedLead{
		TenantID:      tenantID,
		SpreadsheetID: spreadsheetID,
		SubSheetName:  subSheet,
		Email:         canonical.Email,
		Name:          canonical.Name,
		RowNumber:     row.Number,
		Reason:        reason,
		RawRow:        raw,
	}
	if err := e.store.CreateFailedLead(ctx, fl); err != nil {
		zap.L().Warn("sync: record failed lead",
			zap.String("tenant", tenantID),
			zap.String("sub_sheet", subSheet),
			zap.Int("row", row.Number),
			zap.Error(err),
		)
	}
}
