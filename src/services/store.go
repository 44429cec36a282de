package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/username/vertex/backend/src/model"
	"github.com/username/vertex/backend/src/models"
)

// SQLStore adapts the model package to the service store interfaces.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, model.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, model.ErrDuplicateTrx):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}

func (s *SQLStore) GetPendingTrx(ctx context.Context) ([]models.Trx, error) {
	return model.GetPendingTrx(ctx, s.db)
}

func (s *SQLStore) MarkReconciled(ctx context.Context, trxID string, at time.Time) (bool, error) {
	return model.MarkTrxReconciled(ctx, s.db, trxID, at)
}

func (s *SQLStore) SaveRun(ctx context.Context, report models.ReconciliationReport) error {
	return model.SaveReconciliationRun(ctx, s.db, report)
}

func (s *SQLStore) GetLatestRun(ctx context.Context) (*models.ReconciliationReport, error) {
	report, err := model.GetLatestReconciliationRun(ctx, s.db)
	return report, translate(err)
}

func (s *SQLStore) GetCBUByCUIT(ctx context.Context, cuit string) (*models.CBU, error) {
	cbu, err := model.GetCBUByCUIT(ctx, s.db, cuit)
	return cbu, translate(err)
}

func (s *SQLStore) GetCBUByNro(ctx context.Context, nro string) (*models.CBU, error) {
	cbu, err := model.GetCBUByNro(ctx, s.db, nro)
	return cbu, translate(err)
}

func (s *SQLStore) GetCBUByEntityID(ctx context.Context, entityID int64) (*models.CBU, error) {
	cbu, err := model.GetCBUByEntityID(ctx, s.db, entityID)
	return cbu, translate(err)
}

func (s *SQLStore) GetEntityByCBUID(ctx context.Context, cbuID int64) (*models.Entity, error) {
	entity, err := model.GetEntityByCBUID(ctx, s.db, cbuID)
	return entity, translate(err)
}

func (s *SQLStore) TrxExists(ctx context.Context, trxID string) (bool, error) {
	return model.TrxExists(ctx, s.db, trxID)
}

func (s *SQLStore) GetExistingTrxIDs(ctx context.Context, trxIDs []string) (map[string]bool, error) {
	return model.GetExistingTrxIDs(ctx, s.db, trxIDs)
}

func (s *SQLStore) InsertTrx(ctx context.Context, trx *models.Trx) error {
	return translate(model.InsertTrx(ctx, s.db, trx))
}

func (s *SQLStore) InsertTrxBatch(ctx context.Context, trxs []models.Trx) ([]string, []string, error) {
	return model.InsertTrxBatch(ctx, s.db, trxs)
}

func (s *SQLStore) GetTrxByEntityAndDate(ctx context.Context, entityID int64, d civil.Date) ([]models.Trx, error) {
	return model.GetTrxByEntityAndDate(ctx, s.db, entityID, d)
}
