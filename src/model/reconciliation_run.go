package model

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/username/vertex/backend/src/models"
)

// SaveReconciliationRun records the totals of a finished run. Per-account detail is
// not persisted.
func SaveReconciliationRun(ctx context.Context, db *sql.DB, report models.ReconciliationReport) error {
	var errorText any
	if len(report.Errors) > 0 {
		errorText = strings.Join(report.Errors, "\n")
	}

	_, err := db.ExecContext(ctx, `
	INSERT INTO reconciliation_runs (id, started_at, finished_at, accounts, pending, reconciled, failed_accounts, error_text)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID,
		report.StartedAt.UTC(),
		report.FinishedAt.UTC(),
		len(report.Accounts),
		report.TotalPending,
		report.TotalMatched,
		report.FailedAccounts,
		errorText,
	)
	return err
}

// GetLatestReconciliationRun returns the summary of the most recent run. Accounts is
// left empty.
func GetLatestReconciliationRun(ctx context.Context, db *sql.DB) (*models.ReconciliationReport, error) {
	var (
		report    models.ReconciliationReport
		accounts  int
		errorText sql.NullString
	)
	err := db.QueryRowContext(ctx, `
	SELECT id, started_at, finished_at, accounts, pending, reconciled, failed_accounts, error_text
	FROM reconciliation_runs
	ORDER BY started_at DESC
	LIMIT 1`).Scan(
		&report.RunID,
		&report.StartedAt,
		&report.FinishedAt,
		&accounts,
		&report.TotalPending,
		&report.TotalMatched,
		&report.FailedAccounts,
		&errorText,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	report.Accounts = []models.AccountReconciliation{}
	if errorText.Valid && errorText.String != "" {
		report.Errors = strings.Split(errorText.String, "\n")
	}
	return &report, nil
}
