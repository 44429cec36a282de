package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/username/vertex/backend/src/logger"
	"github.com/username/vertex/backend/src/models"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateTrx = errors.New("duplicate trx_id")
)

const trxColumns = `t.id, t.trx_id, t.emisor_name, t.emisor_cuit, t.emisor_cbu, t.receptor_cbu,
	t.entity_id, t.client_id, t.account_id, t.amount, t.date, t.status, t.created_at, t.reconciled_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func scanTrx(row rowScanner, extra ...any) (models.Trx, error) {
	var (
		trx          models.Trx
		emisorCBU    sql.NullString
		clientID     sql.NullInt64
		accountID    sql.NullInt64
		dateStr      string
		status       string
		reconciledAt sql.NullTime
	)

	dest := []any{
		&trx.ID, &trx.TrxID, &trx.EmisorName, &trx.EmisorCUIT, &emisorCBU, &trx.ReceptorCBU,
		&trx.EntityID, &clientID, &accountID, &trx.Amount, &dateStr, &status, &trx.CreatedAt, &reconciledAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return models.Trx{}, err
	}

	d, err := civil.ParseDate(dateStr)
	if err != nil {
		return models.Trx{}, fmt.Errorf("trx %s has malformed date %q: %w", trx.TrxID, dateStr, err)
	}
	trx.Date = d
	trx.EmisorCBU = emisorCBU.String
	trx.ClientID = clientID.Int64
	trx.AccountID = accountID.Int64
	trx.Status = models.TrxStatus(status)
	if reconciledAt.Valid {
		at := reconciledAt.Time
		trx.ReconciledAt = &at
	}
	return trx, nil
}

// GetPendingTrx returns every pending transaction across all tenants, with the
// currency of the balance account it is booked against (empty when unassigned).
func GetPendingTrx(ctx context.Context, db *sql.DB) ([]models.Trx, error) {
	query := `
	SELECT ` + trxColumns + `, COALESCE(cur.name, '')
	FROM trx t
	LEFT JOIN customers_balance cb ON cb.id = t.account_id
	LEFT JOIN currency cur ON cur.id = cb.balance_currency_id
	WHERE t.status = ?
	ORDER BY t.id`
	rows, err := db.QueryContext(ctx, query, string(models.TrxStatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to query pending trx: %w", err)
	}
	defer rows.Close()

	var pending []models.Trx
	for rows.Next() {
		var currency string
		trx, err := scanTrx(rows, &currency)
		if err != nil {
			return nil, err
		}
		trx.Currency = currency
		pending = append(pending, trx)
	}
	return pending, rows.Err()
}

// MarkTrxReconciled flips a pending transaction to reconciled. It reports false
// when the row was not pending anymore (or does not exist), so a concurrent run
// can never reconcile the same transaction twice.
func MarkTrxReconciled(ctx context.Context, db *sql.DB, trxID string, at time.Time) (bool, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE trx SET status = ?, reconciled_at = ? WHERE trx_id = ? AND status = ?`,
		string(models.TrxStatusReconciled), at.UTC(), trxID, string(models.TrxStatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark trx %s reconciled: %w", trxID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetTrxByTrxID fetches one transaction by its external id.
func GetTrxByTrxID(ctx context.Context, db *sql.DB, trxID string) (*models.Trx, error) {
	row := db.QueryRowContext(ctx, `SELECT `+trxColumns+` FROM trx t WHERE t.trx_id = ?`, trxID)
	trx, err := scanTrx(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &trx, nil
}

func TrxExists(ctx context.Context, db *sql.DB, trxID string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM trx WHERE trx_id = ?)`, trxID).Scan(&exists)
	return exists, err
}

// GetExistingTrxIDs returns which of trxIDs are already stored, in one query.
func GetExistingTrxIDs(ctx context.Context, db *sql.DB, trxIDs []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(trxIDs) == 0 {
		return existing, nil
	}

	query := `SELECT trx_id FROM trx WHERE trx_id IN (?` + strings.Repeat(",?", len(trxIDs)-1) + `)`
	args := make([]interface{}, len(trxIDs))
	for i, id := range trxIDs {
		args[i] = id
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		existing[id] = true
	}
	return existing, rows.Err()
}

const insertTrxQuery = `
	INSERT INTO trx (trx_id, emisor_name, emisor_cuit, emisor_cbu, receptor_cbu, entity_id, client_id, account_id, amount, date, status, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertTrx(ctx context.Context, ex execer, trx *models.Trx) error {
	if trx.Status == "" {
		trx.Status = models.TrxStatusPending
	}
	if trx.CreatedAt.IsZero() {
		trx.CreatedAt = time.Now().UTC()
	}

	res, err := ex.ExecContext(ctx, insertTrxQuery,
		trx.TrxID,
		trx.EmisorName,
		trx.EmisorCUIT,
		nullIfEmpty(trx.EmisorCBU),
		trx.ReceptorCBU,
		trx.EntityID,
		nullIfZero(trx.ClientID),
		nullIfZero(trx.AccountID),
		trx.Amount.String(),
		trx.Date.String(),
		string(trx.Status),
		trx.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateTrx, trx.TrxID)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	trx.ID = id
	return nil
}

// InsertTrx stores a single transaction. A trx_id that already exists yields
// ErrDuplicateTrx.
func InsertTrx(ctx context.Context, db *sql.DB, trx *models.Trx) error {
	return insertTrx(ctx, db, trx)
}

// InsertTrxBatch stores trxs in one SQL transaction. Rows rejected by the trx_id
// UNIQUE constraint are skipped and returned as duplicates; any other failure
// rolls the whole batch back.
func InsertTrxBatch(ctx context.Context, db *sql.DB, trxs []models.Trx) (created []string, duplicates []string, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range trxs {
		if err := insertTrx(ctx, tx, &trxs[i]); err != nil {
			if errors.Is(err, ErrDuplicateTrx) {
				logger.L.Debug("Skipping duplicate trx in batch", "trx_id", trxs[i].TrxID)
				duplicates = append(duplicates, trxs[i].TrxID)
				continue
			}
			return nil, nil, fmt.Errorf("failed to insert trx %s: %w", trxs[i].TrxID, err)
		}
		created = append(created, trxs[i].TrxID)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return created, duplicates, nil
}

// GetTrxByEntityAndDate lists the transactions an entity received on day d.
func GetTrxByEntityAndDate(ctx context.Context, db *sql.DB, entityID int64, d civil.Date) ([]models.Trx, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+trxColumns+` FROM trx t WHERE t.entity_id = ? AND t.date = ? ORDER BY t.id`, entityID, d.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trxs := []models.Trx{}
	for rows.Next() {
		trx, err := scanTrx(rows)
		if err != nil {
			return nil, err
		}
		trxs = append(trxs, trx)
	}
	return trxs, rows.Err()
}
