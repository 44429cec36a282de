// backend/src/services/interfaces.go
package services

import (
	"context"
	"errors"
	"io"
	"time"

	"cloud.google.com/go/civil"
	"github.com/username/vertex/backend/src/models"
)

// Define common service errors
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrGateway       = errors.New("bank provider gateway error")
	ErrRunInProgress = errors.New("reconciliation run already in progress")
)

// BankGateway is the bank provider's account and movement feed.
type BankGateway interface {
	ListAccounts(ctx context.Context) ([]models.BankAccount, error)
	// ListMovements returns the account's movements between since and until, both
	// inclusive, in provider order.
	ListMovements(ctx context.Context, accountNumber, bankNumber string, since, until civil.Date) ([]models.BankMovement, error)
}

// ReconciliationStore is the persistence the reconciler needs.
type ReconciliationStore interface {
	GetPendingTrx(ctx context.Context) ([]models.Trx, error)
	// MarkReconciled reports false when the transaction was no longer pending.
	MarkReconciled(ctx context.Context, trxID string, at time.Time) (bool, error)
	SaveRun(ctx context.Context, report models.ReconciliationReport) error
	GetLatestRun(ctx context.Context) (*models.ReconciliationReport, error)
}

// IngestionStore is the persistence the ingestion paths need. Lookups return
// ErrNotFound and inserts of an existing trx_id return ErrConflict.
type IngestionStore interface {
	GetCBUByCUIT(ctx context.Context, cuit string) (*models.CBU, error)
	GetCBUByNro(ctx context.Context, nro string) (*models.CBU, error)
	GetCBUByEntityID(ctx context.Context, entityID int64) (*models.CBU, error)
	GetEntityByCBUID(ctx context.Context, cbuID int64) (*models.Entity, error)
	TrxExists(ctx context.Context, trxID string) (bool, error)
	GetExistingTrxIDs(ctx context.Context, trxIDs []string) (map[string]bool, error)
	InsertTrx(ctx context.Context, trx *models.Trx) error
	InsertTrxBatch(ctx context.Context, trxs []models.Trx) (created []string, duplicates []string, err error)
	GetTrxByEntityAndDate(ctx context.Context, entityID int64, d civil.Date) ([]models.Trx, error)
}

// Reconciler runs reconciliation passes and exposes the latest outcome.
type Reconciler interface {
	Run(ctx context.Context, out io.Writer) (*models.ReconciliationReport, error)
	LastReport(ctx context.Context) (*models.ReconciliationReport, error)
}

// Ingester books claimed transfers as pending transactions.
type Ingester interface {
	CreateTransaction(ctx context.Context, rec models.DocumentRecord, accountID int64) (*models.Trx, error)
	CreateTransactions(ctx context.Context, principal models.Principal, recs []models.DocumentRecord) (*models.BatchResult, error)
	ListByDate(ctx context.Context, principal models.Principal, d civil.Date) (*models.DailyTransactions, error)
}
