package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/sheetsync/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Useful for
// single-node deployments and for running the full store in tests.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given DSN and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sheet_connectors (
	id             TEXT PRIMARY KEY,
	tenant_id      TEXT NOT NULL,
	spreadsheet_id TEXT NOT NULL,
	sheet_name     TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (tenant_id, spreadsheet_id)
);

CREATE TABLE IF NOT EXISTS field_mappings (
	id             TEXT PRIMARY KEY,
	tenant_id      TEXT NOT NULL,
	spreadsheet_id TEXT NOT NULL,
	sub_sheet_name TEXT NOT NULL,
	name_column    TEXT,
	email_column   TEXT,
	phone_column   TEXT,
	city_column    TEXT,
	source_column  TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (tenant_id, spreadsheet_id, sub_sheet_name)
);

CREATE TABLE IF NOT EXISTS leads (
	id             TEXT PRIMARY KEY,
	tenant_id      TEXT NOT NULL,
	spreadsheet_id TEXT NOT NULL,
	sub_sheet_name TEXT NOT NULL,
	name           TEXT,
	email          TEXT NOT NULL,
	phone          TEXT,
	city           TEXT,
	source         TEXT NOT NULL DEFAULT 'Google Sheet',
	row_number     INTEGER,
	status         TEXT NOT NULL DEFAULT 'new',
	process_status TEXT,
	message        TEXT,
	synced_at      DATETIME NOT NULL,
	created_at     DATETIME NOT NULL,
	updated_at     DATETIME NOT NULL,
	UNIQUE (tenant_id, sub_sheet_name, email)
);

CREATE INDEX IF NOT EXISTS idx_leads_tenant_status ON leads(tenant_id, status);
CREATE INDEX IF NOT EXISTS idx_leads_row_lookup ON leads(tenant_id, spreadsheet_id, sub_sheet_name, email, row_number);

CREATE TABLE IF NOT EXISTS failed_leads (
	id             TEXT PRIMARY KEY,
	tenant_id      TEXT NOT NULL,
	spreadsheet_id TEXT NOT NULL,
	sub_sheet_name TEXT NOT NULL,
	name           TEXT,
	email          TEXT,
	row_number     INTEGER,
	reason         TEXT NOT NULL,
	raw_row        TEXT,
	created_at     DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_history (
	id             TEXT PRIMARY KEY,
	tenant_id      TEXT NOT NULL,
	spreadsheet_id TEXT NOT NULL,
	sub_sheet_name TEXT NOT NULL,
	total_records  INTEGER NOT NULL DEFAULT 0,
	created_count  INTEGER NOT NULL DEFAULT 0,
	updated_count  INTEGER NOT NULL DEFAULT 0,
	skipped_count  INTEGER NOT NULL DEFAULT 0,
	failed_count   INTEGER NOT NULL DEFAULT 0,
	error_count    INTEGER NOT NULL DEFAULT 0,
	sync_type      TEXT NOT NULL DEFAULT 'manual',
	status         TEXT NOT NULL DEFAULT 'success',
	error_message  TEXT,
	completed_at   DATETIME NOT NULL,
	created_at     DATETIME NOT NULL
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isSQLiteUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *SQLiteStore) CreateConnector(ctx context.Context, tenantID, spreadsheetID, sheetName string) (*model.Connector, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sheet_connectors (id, tenant_id, spreadsheet_id, sheet_name, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, tenantID, spreadsheetID, sheetName, now, now,
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return nil, ErrConnectorExists
		}
		return nil, eris.Wrap(err, "sqlite: insert connector")
	}
	return &model.Connector{
		ID:            id,
		TenantID:      tenantID,
		SpreadsheetID: spreadsheetID,
		SheetName:     sheetName,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (s *SQLiteStore) GetConnector(ctx context.Context, tenantID, spreadsheetID string) (*model.Connector, error) {
	var c model.Connector
	var sheetName sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, spreadsheet_id, sheet_name, created_at, updated_at FROM sheet_connectors WHERE tenant_id = ? AND spreadsheet_id = ?`,
		tenantID, spreadsheetID,
	).Scan(&c.ID, &c.TenantID, &c.SpreadsheetID, &sheetName, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get connector")
	}
	c.SheetName = sheetName.String
	return &c, nil
}

func (s *SQLiteStore) ListConnectors(ctx context.Context, tenantID string) ([]model.Connector, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, spreadsheet_id, sheet_name, created_at, updated_at FROM sheet_connectors WHERE tenant_id = ? ORDER BY created_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list connectors")
	}
	defer rows.Close()

	var connectors []model.Connector
	for rows.Next() {
		var c model.Connector
		var sheetName sql.NullString
		if err := rows.Scan(&c.ID, &c.TenantID, &c.SpreadsheetID, &sheetName, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan connector")
		}
		c.SheetName = sheetName.String
		connectors = append(connectors, c)
	}
	return connectors, eris.Wrap(rows.Err(), "sqlite: list connectors iterate")
}

func (s *SQLiteStore) DeleteConnectorWithMappings(ctx context.Context, tenantID, spreadsheetID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`DELETE FROM sheet_connectors WHERE tenant_id = ? AND spreadsheet_id = ?`,
		tenantID, spreadsheetID,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: delete connector")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: delete connector rows affected")
	}
	if affected == 0 {
		return ErrConnectorNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM field_mappings WHERE tenant_id = ? AND spreadsheet_id = ?`,
		tenantID, spreadsheetID,
	); err != nil {
		return eris.Wrap(err, "sqlite: delete field mappings")
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit tx")
}

func (s *SQLiteStore) UpsertFieldMapping(ctx context.Context, m model.FieldMapping) error {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO field_mappings (id, tenant_id, spreadsheet_id, sub_sheet_name, name_column, email_column, phone_column, city_column, source_column, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tenant_id, spreadsheet_id, sub_sheet_name) DO UPDATE SET
		   name_column = excluded.name_column,
		   email_column = excluded.email_column,
		   phone_column = excluded.phone_column,
		   city_column = excluded.city_column,
		   source_column = excluded.source_column,
		   updated_at = excluded.updated_at`,
		id, m.TenantID, m.SpreadsheetID, m.SubSheetName,
		m.NameColumn, m.EmailColumn, m.PhoneColumn, m.CityColumn, m.SourceColumn,
		now, now,
	)
	return eris.Wrap(err, "sqlite: upsert field mapping")
}

const sqliteMappingColumns = `id, tenant_id, spreadsheet_id, sub_sheet_name, name_column, email_column, phone_column, city_column, source_column, created_at, updated_at`

func (s *SQLiteStore) GetFieldMapping(ctx context.Context, tenantID, spreadsheetID, subSheet string) (*model.FieldMapping, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteMappingColumns+` FROM field_mappings WHERE tenant_id = ? AND spreadsheet_id = ? AND sub_sheet_name = ?`,
		tenantID, spreadsheetID, subSheet,
	)
	m, err := scanSQLiteMapping(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get field mapping")
	}
	return m, nil
}

func (s *SQLiteStore) ListFieldMappings(ctx context.Context, tenantID, spreadsheetID string) ([]model.FieldMapping, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteMappingColumns+` FROM field_mappings WHERE tenant_id = ? AND spreadsheet_id = ? ORDER BY sub_sheet_name`,
		tenantID, spreadsheetID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list field mappings")
	}
	defer rows.Close()

	var mappings []model.FieldMapping
	for rows.Next() {
		m, err := scanSQLiteMapping(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan field mapping")
		}
		mappings = append(mappings, *m)
	}
	return mappings, eris.Wrap(rows.Err(), "sqlite: list field mappings iterate")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteMapping(row rowScanner) (*model.FieldMapping, error) {
	var m model.FieldMapping
	var name, email, phone, city, source sql.NullString
	if err := row.Scan(&m.ID, &m.TenantID, &m.SpreadsheetID, &m.SubSheetName,
		&name, &email, &phone, &city, &source, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.NameColumn = name.String
	m.EmailColumn = email.String
	m.PhoneColumn = phone.String
	m.CityColumn = city.String
	m.SourceColumn = source.String
	return &m, nil
}

func (s *SQLiteStore) CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error) {
	lead.ID = uuid.New().String()
	lead.Email = strings.ToLower(lead.Email)
	if lead.Source == "" {
		lead.Source = "Google Sheet"
	}
	if lead.Status == "" {
		lead.Status = model.LeadStatusNew
	}
	now := time.Now().UTC()
	if lead.SyncedAt.IsZero() {
		lead.SyncedAt = now
	}
	lead.CreatedAt = now
	lead.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (id, tenant_id, spreadsheet_id, sub_sheet_name, name, email, phone, city, source, row_number, status, synced_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.ID, lead.TenantID, lead.SpreadsheetID, lead.SubSheetName,
		lead.Name, lead.Email, lead.Phone, lead.City, lead.Source,
		lead.RowNumber, string(lead.Status), lead.SyncedAt, lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return nil, ErrDuplicateLead
		}
		return nil, eris.Wrap(err, "sqlite: insert lead")
	}
	return &lead, nil
}

func (s *SQLiteStore) LeadRowExists(ctx context.Context, tenantID, spreadsheetID, subSheet, email string, rowNumber int) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM leads WHERE tenant_id = ? AND spreadsheet_id = ? AND sub_sheet_name = ? AND email = ? AND row_number = ?`,
		tenantID, spreadsheetID, subSheet, strings.ToLower(email), rowNumber,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", eris.Wrap(err, "sqlite: lead row exists")
	}
	return id, nil
}

func (s *SQLiteStore) UpdateLeadProcess(ctx context.Context, tenantID, leadID string, status model.ProcessStatus, message string) error {
	var msg any
	if message != "" {
		msg = message
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET process_status = ?, message = ?, updated_at = ? WHERE tenant_id = ? AND id = ?`,
		string(status), msg, time.Now().UTC(), tenantID, leadID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update lead process %s", leadID)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: update lead rows affected")
	}
	if affected == 0 {
		return eris.Errorf("lead not found: %s", leadID)
	}
	return nil
}

const sqliteLeadColumns = `id, tenant_id, spreadsheet_id, sub_sheet_name, name, email, phone, city, source, row_number, status, process_status, message, synced_at, created_at, updated_at`

func (s *SQLiteStore) ListLeads(ctx context.Context, tenantID string, f LeadFilter) ([]model.Lead, int, error) {
	where := `WHERE tenant_id = ?`
	args := []any{tenantID}

	if f.Status != "" {
		where += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.ProcessStatus != "" {
		where += ` AND process_status = ?`
		args = append(args, string(f.ProcessStatus))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads `+where, args...).Scan(&total); err != nil {
		return nil, 0, eris.Wrap(err, "sqlite: count leads")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + sqliteLeadColumns + ` FROM leads ` + where + ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)
	if f.Page > 1 {
		query += ` OFFSET ?`
		args = append(args, (f.Page-1)*limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanSQLiteLead(rows)
		if err != nil {
			return nil, 0, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, total, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) RecentLeads(ctx context.Context, tenantID string, limit int) ([]model.Lead, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteLeadColumns+` FROM leads WHERE tenant_id = ? ORDER BY synced_at DESC LIMIT ?`,
		tenantID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: recent leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanSQLiteLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: recent leads iterate")
}

func scanSQLiteLead(row rowScanner) (*model.Lead, error) {
	var l model.Lead
	var name, phone, city, processStatus, message sql.NullString
	var rowNumber sql.NullInt64
	if err := row.Scan(&l.ID, &l.TenantID, &l.SpreadsheetID, &l.SubSheetName,
		&name, &l.Email, &phone, &city, &l.Source, &rowNumber, &l.Status,
		&processStatus, &message, &l.SyncedAt, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.Name = name.String
	l.Phone = phone.String
	l.City = city.String
	l.ProcessStatus = model.ProcessStatus(processStatus.String)
	l.Message = message.String
	l.RowNumber = int(rowNumber.Int64)
	return &l, nil
}

func (s *SQLiteStore) CreateFailedLead(ctx context.Context, fl model.FailedLead) error {
	id := uuid.New().String()
	var rawRow any
	if len(fl.RawRow) > 0 {
		rawRow = string(fl.RawRow)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO failed_leads (id, tenant_id, spreadsheet_id, sub_sheet_name, name, email, row_number, reason, raw_row, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, fl.TenantID, fl.SpreadsheetID, fl.SubSheetName,
		fl.Name, strings.ToLower(fl.Email), fl.RowNumber, string(fl.Reason), rawRow, time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: insert failed lead")
}

func (s *SQLiteStore) ListFailedLeads(ctx context.Context, tenantID string) ([]model.FailedLead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, spreadsheet_id, sub_sheet_name, name, email, row_number, reason, raw_row, created_at
		 FROM failed_leads WHERE tenant_id = ? ORDER BY created_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list failed leads")
	}
	defer rows.Close()

	var failed []model.FailedLead
	for rows.Next() {
		var fl model.FailedLead
		var name, email, rawRow sql.NullString
		var rowNumber sql.NullInt64
		if err := rows.Scan(&fl.ID, &fl.TenantID, &fl.SpreadsheetID, &fl.SubSheetName,
			&name, &email, &rowNumber, &fl.Reason, &rawRow, &fl.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan failed lead")
		}
		fl.Name = name.String
		fl.Email = email.String
		fl.RowNumber = int(rowNumber.Int64)
		if rawRow.Valid {
			fl.RawRow = []byte(rawRow.String)
		}
		failed = append(failed, fl)
	}
	return failed, eris.Wrap(rows.Err(), "sqlite: list failed leads iterate")
}

func (s *SQLiteStore) CreateSyncRecord(ctx context.Context, rec model.SyncRecord) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	var errMsg any
	if rec.ErrorMessage != "" {
		errMsg = rec.ErrorMessage
	}
	syncType := rec.SyncType
	if syncType == "" {
		syncType = "manual"
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_history (id, tenant_id, spreadsheet_id, sub_sheet_name, total_records, created_count, updated_count, skipped_count, failed_count, error_count, sync_type, status, error_message, completed_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.TenantID, rec.SpreadsheetID, rec.SubSheetName,
		rec.TotalRecords, rec.CreatedCount, rec.UpdatedCount, rec.SkippedCount,
		rec.FailedCount, rec.ErrorCount, syncType, string(rec.Status), errMsg, now, now,
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert sync record")
	}
	return id, nil
}

const sqliteSyncColumns = `id, tenant_id, spreadsheet_id, sub_sheet_name, total_records, created_count, updated_count, skipped_count, failed_count, error_count, sync_type, status, error_message, completed_at, created_at`

func (s *SQLiteStore) RecentSyncRecords(ctx context.Context, tenantID string, limit int) ([]model.SyncRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteSyncColumns+` FROM sync_history WHERE tenant_id = ? ORDER BY created_at DESC LIMIT ?`,
		tenantID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: recent sync records")
	}
	defer rows.Close()
	return collectSQLiteSyncRecords(rows)
}

func (s *SQLiteStore) ListSyncRecordsWithLeads(ctx context.Context, tenantID string) ([]model.SyncRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteSyncColumns+` FROM sync_history WHERE tenant_id = ? AND created_count > 0 ORDER BY created_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sync records with leads")
	}
	defer rows.Close()
	return collectSQLiteSyncRecords(rows)
}

func collectSQLiteSyncRecords(rows *sql.Rows) ([]model.SyncRecord, error) {
	var records []model.SyncRecord
	for rows.Next() {
		var r model.SyncRecord
		var errMsg sql.NullString
		if err := rows.Scan(&r.ID, &r.TenantID, &r.SpreadsheetID, &r.SubSheetName,
			&r.TotalRecords, &r.CreatedCount, &r.UpdatedCount, &r.SkippedCount,
			&r.FailedCount, &r.ErrorCount, &r.SyncType, &r.Status, &errMsg,
			&r.CompletedAt, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sync record")
		}
		r.ErrorMessage = errMsg.String
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: sync records iterate")
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
