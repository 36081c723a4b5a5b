package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/sheetsync/internal/db"
	"github.com/sells-group/sheetsync/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// the hot per-row path of the sync engine.
var preparedStatements = map[string]string{
	"lead_row_exists":     `SELECT id FROM leads WHERE tenant_id = $1 AND spreadsheet_id = $2 AND sub_sheet_name = $3 AND email = $4 AND row_number = $5`,
	"insert_lead":         `INSERT INTO leads (id, tenant_id, spreadsheet_id, sub_sheet_name, name, email, phone, city, source, row_number, status, synced_at, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
	"update_lead_process": `UPDATE leads SET process_status = $1, message = $2, updated_at = $3 WHERE tenant_id = $4 AND id = $5`,
	"insert_failed_lead":  `INSERT INTO failed_leads (id, tenant_id, spreadsheet_id, sub_sheet_name, name, email, row_number, reason, raw_row, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sheet_connectors (
	id             TEXT PRIMARY KEY,
	tenant_id      TEXT NOT NULL,
	spreadsheet_id TEXT NOT NULL,
	sheet_name     TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
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
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
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
	synced_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (tenant_id, sub_sheet_name, email)
);

CREATE INDEX IF NOT EXISTS idx_leads_tenant_status ON leads(tenant_id, status);
CREATE INDEX IF NOT EXISTS idx_leads_tenant_process ON leads(tenant_id, process_status);
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
	raw_row        JSONB,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_failed_leads_tenant ON failed_leads(tenant_id, created_at DESC);

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
	completed_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_sync_history_tenant ON sync_history(tenant_id, created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PostgresStore) CreateConnector(ctx context.Context, tenantID, spreadsheetID, sheetName string) (*model.Connector, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO sheet_connectors (id, tenant_id, spreadsheet_id, sheet_name, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, tenantID, spreadsheetID, sheetName, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConnectorExists
		}
		return nil, eris.Wrap(err, "postgres: insert connector")
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

func (s *PostgresStore) GetConnector(ctx context.Context, tenantID, spreadsheetID string) (*model.Connector, error) {
	var c model.Connector
	var sheetName *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, spreadsheet_id, sheet_name, created_at, updated_at FROM sheet_connectors WHERE tenant_id = $1 AND spreadsheet_id = $2`,
		tenantID, spreadsheetID,
	).Scan(&c.ID, &c.TenantID, &c.SpreadsheetID, &sheetName, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get connector")
	}
	if sheetName != nil {
		c.SheetName = *sheetName
	}
	return &c, nil
}

func (s *PostgresStore) ListConnectors(ctx context.Context, tenantID string) ([]model.Connector, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, spreadsheet_id, sheet_name, created_at, updated_at FROM sheet_connectors WHERE tenant_id = $1 ORDER BY created_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list connectors")
	}
	defer rows.Close()

	var connectors []model.Connector
	for rows.Next() {
		var c model.Connector
		var sheetName *string
		if err := rows.Scan(&c.ID, &c.TenantID, &c.SpreadsheetID, &sheetName, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan connector")
		}
		if sheetName != nil {
			c.SheetName = *sheetName
		}
		connectors = append(connectors, c)
	}
	return connectors, eris.Wrap(rows.Err(), "postgres: list connectors iterate")
}

func (s *PostgresStore) DeleteConnectorWithMappings(ctx context.Context, tenantID, spreadsheetID string) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM sheet_connectors WHERE tenant_id = $1 AND spreadsheet_id = $2`,
			tenantID, spreadsheetID,
		)
		if err != nil {
			return eris.Wrap(err, "postgres: delete connector")
		}
		if tag.RowsAffected() == 0 {
			return ErrConnectorNotFound
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM field_mappings WHERE tenant_id = $1 AND spreadsheet_id = $2`,
			tenantID, spreadsheetID,
		); err != nil {
			return eris.Wrap(err, "postgres: delete field mappings")
		}
		return nil
	})
}

func (s *PostgresStore) UpsertFieldMapping(ctx context.Context, m model.FieldMapping) error {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO field_mappings (id, tenant_id, spreadsheet_id, sub_sheet_name, name_column, email_column, phone_column, city_column, source_column, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (tenant_id, spreadsheet_id, sub_sheet_name) DO UPDATE SET
		   name_column = EXCLUDED.name_column,
		   email_column = EXCLUDED.email_column,
		   phone_column = EXCLUDED.phone_column,
		   city_column = EXCLUDED.city_column,
		   source_column = EXCLUDED.source_column,
		   updated_at = EXCLUDED.updated_at`,
		id, m.TenantID, m.SpreadsheetID, m.SubSheetName,
		m.NameColumn, m.EmailColumn, m.PhoneColumn, m.CityColumn, m.SourceColumn,
		now, now,
	)
	return eris.Wrap(err, "postgres: upsert field mapping")
}

func (s *PostgresStore) GetFieldMapping(ctx context.Context, tenantID, spreadsheetID, subSheet string) (*model.FieldMapping, error) {
	m, err := scanFieldMapping(s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, spreadsheet_id, sub_sheet_name, name_column, email_column, phone_column, city_column, source_column, created_at, updated_at
		 FROM field_mappings WHERE tenant_id = $1 AND spreadsheet_id = $2 AND sub_sheet_name = $3`,
		tenantID, spreadsheetID, subSheet,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get field mapping")
	}
	return m, nil
}

func (s *PostgresStore) ListFieldMappings(ctx context.Context, tenantID, spreadsheetID string) ([]model.FieldMapping, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, spreadsheet_id, sub_sheet_name, name_column, email_column, phone_column, city_column, source_column, created_at, updated_at
		 FROM field_mappings WHERE tenant_id = $1 AND spreadsheet_id = $2 ORDER BY sub_sheet_name`,
		tenantID, spreadsheetID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list field mappings")
	}
	defer rows.Close()

	var mappings []model.FieldMapping
	for rows.Next() {
		m, err := scanFieldMapping(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan field mapping")
		}
		mappings = append(mappings, *m)
	}
	return mappings, eris.Wrap(rows.Err(), "postgres: list field mappings iterate")
}

func scanFieldMapping(row pgx.Row) (*model.FieldMapping, error) {
	var m model.FieldMapping
	var name, email, phone, city, source *string
	if err := row.Scan(&m.ID, &m.TenantID, &m.SpreadsheetID, &m.SubSheetName,
		&name, &email, &phone, &city, &source, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if name != nil {
		m.NameColumn = *name
	}
	if email != nil {
		m.EmailColumn = *email
	}
	if phone != nil {
		m.PhoneColumn = *phone
	}
	if city != nil {
		m.CityColumn = *city
	}
	if source != nil {
		m.SourceColumn = *source
	}
	return &m, nil
}

func (s *PostgresStore) CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error) {
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

	_, err := s.pool.Exec(ctx,
		`INSERT INTO leads (id, tenant_id, spreadsheet_id, sub_sheet_name, name, email, phone, city, source, row_number, status, synced_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		lead.ID, lead.TenantID, lead.SpreadsheetID, lead.SubSheetName,
		lead.Name, lead.Email, lead.Phone, lead.City, lead.Source,
		lead.RowNumber, string(lead.Status), lead.SyncedAt, lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateLead
		}
		return nil, eris.Wrap(err, "postgres: insert lead")
	}
	return &lead, nil
}

func (s *PostgresStore) LeadRowExists(ctx context.Context, tenantID, spreadsheetID, subSheet, email string, rowNumber int) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM leads WHERE tenant_id = $1 AND spreadsheet_id = $2 AND sub_sheet_name = $3 AND email = $4 AND row_number = $5`,
		tenantID, spreadsheetID, subSheet, strings.ToLower(email), rowNumber,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", eris.Wrap(err, "postgres: lead row exists")
	}
	return id, nil
}

func (s *PostgresStore) UpdateLeadProcess(ctx context.Context, tenantID, leadID string, status model.ProcessStatus, message string) error {
	var msg *string
	if message != "" {
		msg = &message
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET process_status = $1, message = $2, updated_at = $3 WHERE tenant_id = $4 AND id = $5`,
		string(status), msg, time.Now().UTC(), tenantID, leadID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update lead process %s", leadID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("lead not found: %s", leadID)
	}
	return nil
}

const leadColumns = `id, tenant_id, spreadsheet_id, sub_sheet_name, name, email, phone, city, source, row_number, status, process_status, message, synced_at, created_at, updated_at`

func (s *PostgresStore) ListLeads(ctx context.Context, tenantID string, f LeadFilter) ([]model.Lead, int, error) {
	where := `WHERE tenant_id = $1`
	args := []any{tenantID}
	argIdx := 2

	if f.Status != "" {
		where += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(f.Status))
		argIdx++
	}
	if f.ProcessStatus != "" {
		where += fmt.Sprintf(` AND process_status = $%d`, argIdx)
		args = append(args, string(f.ProcessStatus))
		argIdx++
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads `+where, args...).Scan(&total); err != nil {
		return nil, 0, eris.Wrap(err, "postgres: count leads")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + leadColumns + ` FROM leads ` + where + ` ORDER BY created_at DESC`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++
	if f.Page > 1 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, (f.Page-1)*limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, 0, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, total, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) RecentLeads(ctx context.Context, tenantID string, limit int) ([]model.Lead, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE tenant_id = $1 ORDER BY synced_at DESC LIMIT $2`,
		tenantID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: recent leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: recent leads iterate")
}

func scanLead(row pgx.Row) (*model.Lead, error) {
	var l model.Lead
	var name, phone, city, processStatus, message *string
	var rowNumber *int
	if err := row.Scan(&l.ID, &l.TenantID, &l.SpreadsheetID, &l.SubSheetName,
		&name, &l.Email, &phone, &city, &l.Source, &rowNumber, &l.Status,
		&processStatus, &message, &l.SyncedAt, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	if name != nil {
		l.Name = *name
	}
	if phone != nil {
		l.Phone = *phone
	}
	if city != nil {
		l.City = *city
	}
	if processStatus != nil {
		l.ProcessStatus = model.ProcessStatus(*processStatus)
	}
	if message != nil {
		l.Message = *message
	}
	if rowNumber != nil {
		l.RowNumber = *rowNumber
	}
	return &l, nil
}

func (s *PostgresStore) CreateFailedLead(ctx context.Context, fl model.FailedLead) error {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO failed_leads (id, tenant_id, spreadsheet_id, sub_sheet_name, name, email, row_number, reason, raw_row, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, fl.TenantID, fl.SpreadsheetID, fl.SubSheetName,
		fl.Name, strings.ToLower(fl.Email), fl.RowNumber, string(fl.Reason), []byte(fl.RawRow), time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: insert failed lead")
}

func (s *PostgresStore) ListFailedLeads(ctx context.Context, tenantID string) ([]model.FailedLead, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, spreadsheet_id, sub_sheet_name, name, email, row_number, reason, raw_row, created_at
		 FROM failed_leads WHERE tenant_id = $1 ORDER BY created_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list failed leads")
	}
	defer rows.Close()

	var failed []model.FailedLead
	for rows.Next() {
		var fl model.FailedLead
		var name, email *string
		var rowNumber *int
		var rawRow []byte
		if err := rows.Scan(&fl.ID, &fl.TenantID, &fl.SpreadsheetID, &fl.SubSheetName,
			&name, &email, &rowNumber, &fl.Reason, &rawRow, &fl.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan failed lead")
		}
		if name != nil {
			fl.Name = *name
		}
		if email != nil {
			fl.Email = *email
		}
		if rowNumber != nil {
			fl.RowNumber = *rowNumber
		}
		fl.RawRow = rawRow
		failed = append(failed, fl)
	}
	return failed, eris.Wrap(rows.Err(), "postgres: list failed leads iterate")
}

func (s *PostgresStore) CreateSyncRecord(ctx context.Context, rec model.SyncRecord) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	var errMsg *string
	if rec.ErrorMessage != "" {
		errMsg = &rec.ErrorMessage
	}
	syncType := rec.SyncType
	if syncType == "" {
		syncType = "manual"
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO sync_history (id, tenant_id, spreadsheet_id, sub_sheet_name, total_records, created_count, updated_count, skipped_count, failed_count, error_count, sync_type, status, error_message, completed_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		id, rec.TenantID, rec.SpreadsheetID, rec.SubSheetName,
		rec.TotalRecords, rec.CreatedCount, rec.UpdatedCount, rec.SkippedCount,
		rec.FailedCount, rec.ErrorCount, syncType, string(rec.Status), errMsg, now, now,
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert sync record")
	}
	return id, nil
}

const syncRecordColumns = `id, tenant_id, spreadsheet_id, sub_sheet_name, total_records, created_count, updated_count, skipped_count, failed_count, error_count, sync_type, status, error_message, completed_at, created_at`

func (s *PostgresStore) RecentSyncRecords(ctx context.Context, tenantID string, limit int) ([]model.SyncRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+syncRecordColumns+` FROM sync_history WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2`,
		tenantID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: recent sync records")
	}
	defer rows.Close()
	return collectSyncRecords(rows)
}

func (s *PostgresStore) ListSyncRecordsWithLeads(ctx context.Context, tenantID string) ([]model.SyncRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+syncRecordColumns+` FROM sync_history WHERE tenant_id = $1 AND created_count > 0 ORDER BY created_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sync records with leads")
	}
	defer rows.Close()
	return collectSyncRecords(rows)
}

func collectSyncRecords(rows pgx.Rows) ([]model.SyncRecord, error) {
	var records []model.SyncRecord
	for rows.Next() {
		var r model.SyncRecord
		var errMsg *string
		if err := rows.Scan(&r.ID, &r.TenantID, &r.SpreadsheetID, &r.SubSheetName,
			&r.TotalRecords, &r.CreatedCount, &r.UpdatedCount, &r.SkippedCount,
			&r.FailedCount, &r.ErrorCount, &r.SyncType, &r.Status, &errMsg,
			&r.CompletedAt, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan sync record")
		}
		if errMsg != nil {
			r.ErrorMessage = *errMsg
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: sync records iterate")
}
