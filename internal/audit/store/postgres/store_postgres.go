// Package postgres implements the audit store on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"chronicle/internal/audit"
	"chronicle/internal/audit/store"
)

// Store persists audit records in the audit_logs table.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS audit_logs (
	id                BIGSERIAL PRIMARY KEY,
	action            VARCHAR(255) NOT NULL,
	date              TIMESTAMPTZ NOT NULL,
	payload           JSONB,
	user_id           BIGINT,
	user_display_name TEXT,
	user_email        TEXT,
	endpoint          TEXT,
	method            VARCHAR(10),
	status_code       INTEGER,
	ip_address        VARCHAR(64),
	user_agent        TEXT,
	request_body      JSONB,
	response_body     JSONB,
	duration          BIGINT
);
CREATE INDEX IF NOT EXISTS idx_audit_logs_date ON audit_logs (date DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_audit_logs_action ON audit_logs (action);
`

// Migrate creates the audit_logs table and its indexes if missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate audit_logs: %w", err)
	}
	return nil
}

const insertColumns = `action, date, payload, user_id, user_display_name, user_email,
	endpoint, method, status_code, ip_address, user_agent, request_body, response_body, duration`

func (s *Store) Insert(ctx context.Context, rec *audit.Record) error {
	payload, err := marshalJSONColumn(rec.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	requestBody, err := marshalJSONColumn(rec.RequestBody)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}
	responseBody, err := marshalJSONColumn(rec.ResponseBody)
	if err != nil {
		return fmt.Errorf("marshal response body: %w", err)
	}

	query := `
		INSERT INTO audit_logs (` + insertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`
	err = s.db.QueryRowContext(ctx, query,
		rec.Action,
		rec.Date,
		payload,
		rec.UserID,
		nullString(rec.UserDisplayName),
		nullString(rec.UserEmail),
		nullString(rec.Endpoint),
		nullString(rec.Method),
		rec.StatusCode,
		nullString(rec.IPAddress),
		nullString(rec.UserAgent),
		requestBody,
		responseBody,
		rec.Duration,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

const selectColumns = `id, action, date, payload, user_id, user_display_name, user_email,
	endpoint, method, status_code, ip_address, user_agent, request_body, response_body, duration`

func (s *Store) Find(ctx context.Context, q store.Query) ([]audit.Record, error) {
	where, args := buildWhere(q.Filters)

	query := `SELECT ` + selectColumns + ` FROM audit_logs` + where +
		` ORDER BY ` + orderBy(q.Sort)
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (s *Store) FindByID(ctx context.Context, id int64) (*audit.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM audit_logs WHERE id = $1`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query audit record: %w", err)
	}
	return rec, nil
}

func (s *Store) Count(ctx context.Context, f store.Filters) (int64, error) {
	where, args := buildWhere(f)

	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count audit records: %w", err)
	}
	return total, nil
}

func (s *Store) DeleteByID(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete audit record: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) IDsBefore(ctx context.Context, cutoff time.Time) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM audit_logs WHERE date < $1`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query audit record ids: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (s *Store) OldestIDs(ctx context.Context, limit int) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM audit_logs ORDER BY date ASC, id ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query oldest audit record ids: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// sortColumns maps API sort fields to columns. Validated upstream against
// the query-service allowlist; unknown fields fall back to date.
var sortColumns = map[string]string{
	"action":          "action",
	"date":            "date",
	"method":          "method",
	"statusCode":      "status_code",
	"userDisplayName": "user_display_name",
	"endpoint":        "endpoint",
	"ipAddress":       "ip_address",
}

// orderBy builds the composite ordering: date first (requested direction
// when sorting on date, desc otherwise), then the requested column, then
// the id tiebreak for stable pagination.
func orderBy(s store.Sort) string {
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}

	column, known := sortColumns[s.Field]
	if !known || column == "date" {
		dateDir := "DESC"
		if known && column == "date" {
			dateDir = dir
		}
		return "date " + dateDir + ", id DESC"
	}
	return "date DESC, " + column + " " + dir + ", id DESC"
}

func buildWhere(f store.Filters) (string, []any) {
	var clauses []string
	var args []any

	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if f.Action != "" {
		add("action = $%d", f.Action)
	}
	if f.User != "" {
		add("user_display_name ILIKE $%d", "%"+escapeLike(f.User)+"%")
	}
	if f.DateFrom != nil {
		add("date >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		add("date <= $%d", *f.DateTo)
	}
	if f.Method != "" {
		add("method = $%d", f.Method)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*audit.Record, error) {
	var (
		rec             audit.Record
		payload         []byte
		requestBody     []byte
		responseBody    []byte
		userDisplayName sql.NullString
		userEmail       sql.NullString
		endpoint        sql.NullString
		method          sql.NullString
		ipAddress       sql.NullString
		userAgent       sql.NullString
	)

	err := row.Scan(
		&rec.ID,
		&rec.Action,
		&rec.Date,
		&payload,
		&rec.UserID,
		&userDisplayName,
		&userEmail,
		&endpoint,
		&method,
		&rec.StatusCode,
		&ipAddress,
		&userAgent,
		&requestBody,
		&responseBody,
		&rec.Duration,
	)
	if err != nil {
		return nil, err
	}

	rec.UserDisplayName = userDisplayName.String
	rec.UserEmail = userEmail.String
	rec.Endpoint = endpoint.String
	rec.Method = method.String
	rec.IPAddress = ipAddress.String
	rec.UserAgent = userAgent.String

	if rec.Payload, err = unmarshalJSONColumn(payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	if rec.RequestBody, err = unmarshalJSONColumn(requestBody); err != nil {
		return nil, fmt.Errorf("unmarshal request body: %w", err)
	}
	if rec.ResponseBody, err = unmarshalJSONColumn(responseBody); err != nil {
		return nil, fmt.Errorf("unmarshal response body: %w", err)
	}
	return &rec, nil
}

func scanRecords(rows *sql.Rows) ([]audit.Record, error) {
	records := []audit.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan audit record id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit record ids: %w", err)
	}
	return ids, nil
}

func marshalJSONColumn(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func unmarshalJSONColumn(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
