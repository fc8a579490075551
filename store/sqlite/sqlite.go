/*
Package sqlite persists generated schedules in a SQLite database.

PURPOSE:
  The engine itself never persists anything; this package is the export
  collaborator. It stores one flat record per ScheduleRow - policy/event
  context, YYYYMM join keys, cancellation info, base instalments per
  {product x component} and the upgrade mirror - plus a runs table keyed by
  a uuid per engine run.

KEY TABLES:
  runs:          One record per engine run (uuid, counts, issues as JSON)
  schedule_rows: One record per ScheduleRow, column set mirroring the
                 engine's output contract

COLUMN GENERATION:
  The 22 monetary columns (base_* and upgrade_* per component key) are
  generated from schedule.ComponentKeys(), so the schema follows the
  product enumeration instead of repeating it by hand.

BATCH SEMANTICS:
  SaveRun inserts the run and all its rows in one transaction: a run
  persists in total or not at all.

CONCURRENCY:
  sync.RWMutex plus WAL mode. In production with PostgreSQL the database
  handles this instead.

USAGE:
  store, err := sqlite.New("./data/schedules.db")   // or ":memory:"
  if err != nil { log.Fatal(err) }
  defer store.Close()
  err = store.SaveRun(ctx, run)
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/instalment-engine/schedule"
)

const dateLayout = "2006-01-02"

// Store persists engine runs and their schedule rows.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Run is one persisted engine run.
type Run struct {
	ID         uuid.UUID
	CreatedAt  time.Time
	EventCount int
	Rows       []schedule.ScheduleRow
	Issues     []schedule.Issue
}

// RunSummary is the runs-table view without the row payload.
type RunSummary struct {
	ID         uuid.UUID        `json:"id"`
	CreatedAt  time.Time        `json:"createdAt"`
	EventCount int              `json:"eventCount"`
	RowCount   int              `json:"rowCount"`
	Issues     []schedule.Issue `json:"issues"`
}

// New opens (or creates) a store at dbPath. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// SCHEMA
// =============================================================================

// amountColumn derives the SQL column name for a component key,
// e.g. ("base", {A, admin_fee}) -> "base_admin_fee_a".
func amountColumn(prefix string, key schedule.ComponentKey) string {
	return fmt.Sprintf("%s_%s_%s", prefix, key.Component, strings.ToLower(string(key.Product)))
}

func amountColumns() []string {
	var cols []string
	for _, prefix := range []string{"base", "upgrade"} {
		for _, key := range schedule.ComponentKeys() {
			cols = append(cols, amountColumn(prefix, key))
		}
	}
	return cols
}

func (s *Store) migrate() error {
	var monetary strings.Builder
	for _, col := range amountColumns() {
		monetary.WriteString(",\n\t\t" + col + " TEXT")
	}

	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		event_count INTEGER NOT NULL,
		row_count INTEGER NOT NULL,
		issues TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS schedule_rows (
		run_id TEXT NOT NULL REFERENCES runs(id),
		record_id TEXT NOT NULL,
		policy_id TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		pay_date TEXT NOT NULL,
		payment_month_key INTEGER NOT NULL,
		underwritten_month_key INTEGER NOT NULL,
		interval_months INTEGER NOT NULL,
		aligned_start TEXT,
		pay_start TEXT NOT NULL,
		cancellation_effective_date TEXT,
		cancellation_month_key INTEGER,
		cancellation_status TEXT NOT NULL,
		instalment_count INTEGER,
		upgrade_instalment_count INTEGER%s,
		PRIMARY KEY (run_id, record_id, pay_date)
	);

	CREATE INDEX IF NOT EXISTS idx_rows_run_policy ON schedule_rows(run_id, policy_id);
	CREATE INDEX IF NOT EXISTS idx_rows_payment_month ON schedule_rows(payment_month_key);
	CREATE INDEX IF NOT EXISTS idx_rows_underwritten_month ON schedule_rows(underwritten_month_key);
	`, monetary.String())

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// WRITES
// =============================================================================

// SaveRun persists a run and all of its rows in one transaction.
func (s *Store) SaveRun(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	issues := run.Issues
	if issues == nil {
		issues = []schedule.Issue{}
	}
	issuesJSON, err := json.Marshal(issues)
	if err != nil {
		return fmt.Errorf("failed to encode issues: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, event_count, row_count, issues) VALUES (?, ?, ?, ?, ?)`,
		run.ID.String(), run.CreatedAt.UTC().Format(time.RFC3339), run.EventCount, len(run.Rows), string(issuesJSON))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	cols := rowColumns()
	insert := fmt.Sprintf(`INSERT INTO schedule_rows (run_id, %s) VALUES (%s)`,
		strings.Join(cols, ", "), placeholders(len(cols)+1))

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range run.Rows {
		if _, err := stmt.ExecContext(ctx, rowArgs(run.ID, row)...); err != nil {
			return fmt.Errorf("failed to insert row %s/%s: %w", row.RecordID, row.PayDate, err)
		}
	}

	return tx.Commit()
}

func rowColumns() []string {
	cols := []string{
		"record_id", "policy_id", "tx_type", "pay_date",
		"payment_month_key", "underwritten_month_key", "interval_months",
		"aligned_start", "pay_start",
		"cancellation_effective_date", "cancellation_month_key", "cancellation_status",
		"instalment_count", "upgrade_instalment_count",
	}
	return append(cols, amountColumns()...)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func rowArgs(runID uuid.UUID, row schedule.ScheduleRow) []any {
	args := []any{
		runID.String(),
		string(row.RecordID),
		string(row.PolicyID),
		string(row.Type),
		row.PayDate.String(),
		int(row.PaymentMonthKey),
		int(row.UnderwrittenMonthKey),
		row.IntervalMonths,
		nullableDate(row.AlignedStart),
		row.PayStart.String(),
		nullableDate(row.CancellationEffectiveDate),
		nullableMonthKey(row.CancellationEffectiveMonthKey),
		string(row.CancellationStatus),
		nullableInt(row.InstalmentCount),
		nullableInt(row.UpgradeInstalmentCount),
	}
	for _, set := range []schedule.AmountSet{row.Base, row.Upgrade} {
		for _, key := range schedule.ComponentKeys() {
			if set == nil {
				args = append(args, nil)
				continue
			}
			args = append(args, set.Get(key).String())
		}
	}
	return args
}

func nullableDate(d *schedule.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullableMonthKey(mk *schedule.MonthKey) any {
	if mk == nil {
		return nil
	}
	return int(*mk)
}

func nullableInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

// =============================================================================
// READS
// =============================================================================

// GetRun returns the summary for one run, or sql.ErrNoRows.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var summary RunSummary
	var rawID, createdAt, issuesJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, event_count, row_count, issues FROM runs WHERE id = ?`,
		id.String()).Scan(&rawID, &createdAt, &summary.EventCount, &summary.RowCount, &issuesJSON)
	if err != nil {
		return nil, err
	}
	if summary.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("failed to parse run id: %w", err)
	}
	if summary.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse run timestamp: %w", err)
	}
	if err := json.Unmarshal([]byte(issuesJSON), &summary.Issues); err != nil {
		return nil, fmt.Errorf("failed to decode issues: %w", err)
	}
	return &summary, nil
}

// RowsByRun returns a run's rows in their stable engine order, optionally
// filtered by policy (empty PolicyID means all policies).
func (s *Store) RowsByRun(ctx context.Context, runID uuid.UUID, policyID schedule.PolicyID) ([]schedule.ScheduleRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf(`SELECT %s FROM schedule_rows WHERE run_id = ?`, strings.Join(rowColumns(), ", "))
	args := []any{runID.String()}
	if policyID != "" {
		query += ` AND policy_id = ?`
		args = append(args, string(policyID))
	}
	query += ` ORDER BY policy_id, record_id, pay_date`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.ScheduleRow
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func scanRow(rows *sql.Rows) (schedule.ScheduleRow, error) {
	var row schedule.ScheduleRow
	var recordID, policyID, txType, payDate, payStart, status string
	var alignedStart, cancellationDate sql.NullString
	var cancellationKey, instalmentCount, upgradeCount sql.NullInt64
	var paymentKey, underwrittenKey int

	dest := []any{
		&recordID, &policyID, &txType, &payDate,
		&paymentKey, &underwrittenKey, &row.IntervalMonths,
		&alignedStart, &payStart,
		&cancellationDate, &cancellationKey, &status,
		&instalmentCount, &upgradeCount,
	}
	amounts := make([]sql.NullString, 2*len(schedule.ComponentKeys()))
	for i := range amounts {
		dest = append(dest, &amounts[i])
	}

	if err := rows.Scan(dest...); err != nil {
		return row, err
	}

	row.RecordID = schedule.RecordID(recordID)
	row.PolicyID = schedule.PolicyID(policyID)
	row.Type = schedule.TransactionType(txType)
	row.PaymentMonthKey = schedule.MonthKey(paymentKey)
	row.UnderwrittenMonthKey = schedule.MonthKey(underwrittenKey)
	row.CancellationStatus = schedule.CancellationStatus(status)

	var err error
	if row.PayDate, err = parseDate(payDate); err != nil {
		return row, err
	}
	if row.PayStart, err = parseDate(payStart); err != nil {
		return row, err
	}
	if row.AlignedStart, err = parseNullDate(alignedStart); err != nil {
		return row, err
	}
	if row.CancellationEffectiveDate, err = parseNullDate(cancellationDate); err != nil {
		return row, err
	}
	if cancellationKey.Valid {
		mk := schedule.MonthKey(cancellationKey.Int64)
		row.CancellationEffectiveMonthKey = &mk
	}
	if instalmentCount.Valid {
		n := int(instalmentCount.Int64)
		row.InstalmentCount = &n
	}
	if upgradeCount.Valid {
		n := int(upgradeCount.Int64)
		row.UpgradeInstalmentCount = &n
	}

	keys := schedule.ComponentKeys()
	if row.Base, err = parseAmountSet(amounts[:len(keys)], keys); err != nil {
		return row, err
	}
	if row.Upgrade, err = parseAmountSet(amounts[len(keys):], keys); err != nil {
		return row, err
	}
	return row, nil
}

func parseDate(s string) (schedule.Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return schedule.Date{}, fmt.Errorf("failed to parse stored date %q: %w", s, err)
	}
	return schedule.DateOf(t), nil
}

func parseNullDate(s sql.NullString) (*schedule.Date, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := parseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// parseAmountSet reconstructs an AmountSet from its columns. All-NULL
// columns mean the set did not apply to the row (nil set).
func parseAmountSet(values []sql.NullString, keys []schedule.ComponentKey) (schedule.AmountSet, error) {
	set := schedule.NewAmountSet()
	present := false
	for i, v := range values {
		if !v.Valid {
			continue
		}
		present = true
		d, err := decimal.NewFromString(v.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored amount %q: %w", v.String, err)
		}
		set.Set(keys[i], d)
	}
	if !present {
		return nil, nil
	}
	return set, nil
}
