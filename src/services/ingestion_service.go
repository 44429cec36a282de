// backend/src/services/ingestion_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/username/vertex/backend/src/logger"
	"github.com/username/vertex/backend/src/models"
	"github.com/username/vertex/backend/src/security/validation"
)

// IngestionService books claimed transfers as pending transactions, rejecting
// external ids that are already stored.
type IngestionService struct {
	store IngestionStore
}

func NewIngestionService(store IngestionStore) *IngestionService {
	return &IngestionService{store: store}
}

// relaxedCounterparty reports whether rec may skip the counterparty names: wallet
// receipts, and records that identify the receiver by CBU/CVU only.
func relaxedCounterparty(rec models.DocumentRecord) bool {
	return rec.Wallet || rec.ReceptorCUIT == ""
}

func newPendingTrx(rec models.DocumentRecord, receptorCBU string, entityID int64) models.Trx {
	return models.Trx{
		TrxID:       rec.TrxID,
		EmisorName:  validation.SanitizeName(rec.EmisorName),
		EmisorCUIT:  rec.EmisorCUIT,
		EmisorCBU:   rec.EmisorCBU,
		ReceptorCBU: receptorCBU,
		EntityID:    entityID,
		Amount:      rec.Amount,
		Date:        rec.Date,
		Status:      models.TrxStatusPending,
	}
}

// resolveReceivingCBU finds the registered account a record was paid into: by
// receiver tax id first, then by receiver CBU/CVU.
func (s *IngestionService) resolveReceivingCBU(ctx context.Context, rec models.DocumentRecord) (*models.CBU, error) {
	if rec.ReceptorCUIT != "" {
		cbu, err := s.store.GetCBUByCUIT(ctx, rec.ReceptorCUIT)
		if err == nil {
			return cbu, nil
		}
		if !errors.Is(err, ErrNotFound) || rec.ReceptorCBU == "" {
			return nil, err
		}
	}
	if rec.ReceptorCBU != "" {
		return s.store.GetCBUByNro(ctx, rec.ReceptorCBU)
	}
	return nil, fmt.Errorf("%w: record has no receiver identifier", ErrNotFound)
}

// CreateTransaction books a single record against the entity owning the receiving
// account. accountID optionally ties it to a customer balance.
func (s *IngestionService) CreateTransaction(ctx context.Context, rec models.DocumentRecord, accountID int64) (*models.Trx, error) {
	log := logger.FromContext(ctx)

	if err := validation.ValidateDocumentRecord(rec, relaxedCounterparty(rec)); err != nil {
		return nil, err
	}

	cbu, err := s.resolveReceivingCBU(ctx, rec)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			receiver := rec.ReceptorCUIT
			if receiver == "" {
				receiver = rec.ReceptorCBU
			}
			return nil, fmt.Errorf("%w: no bank account registered for receiver %s", ErrNotFound, receiver)
		}
		return nil, err
	}

	exists, err := s.store.TrxExists(ctx, rec.TrxID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: transaction %s already registered", ErrConflict, rec.TrxID)
	}

	entity, err := s.store.GetEntityByCBUID(ctx, cbu.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: no entity owns cbu %s", ErrNotFound, cbu.Nro)
		}
		return nil, err
	}

	trx := newPendingTrx(rec, cbu.Nro, entity.ID)
	trx.AccountID = accountID
	if err := s.store.InsertTrx(ctx, &trx); err != nil {
		return nil, err
	}

	log.Info("Transaction registered", "trx_id", trx.TrxID, "entity_id", entity.ID, "amount", trx.Amount.String())
	return &trx, nil
}

// CreateTransactions books a batch for the caller's entity. Records whose trx_id is
// already stored, or repeated within the batch, are reported as duplicates; a batch
// made only of duplicates is a conflict and writes nothing.
func (s *IngestionService) CreateTransactions(ctx context.Context, principal models.Principal, recs []models.DocumentRecord) (*models.BatchResult, error) {
	log := logger.FromContext(ctx)

	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: transactions cannot be empty", validation.ErrValidationFailed)
	}
	for i, rec := range recs {
		if err := validation.ValidateDocumentRecord(rec, relaxedCounterparty(rec)); err != nil {
			return nil, fmt.Errorf("transactions[%d]: %w", i, err)
		}
	}

	cbu, err := s.store.GetCBUByEntityID(ctx, principal.EntityID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: entity %d has no registered bank account", ErrNotFound, principal.EntityID)
		}
		return nil, err
	}

	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.TrxID)
	}
	existing, err := s.store.GetExistingTrxIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	duplicates := []string{}
	seen := make(map[string]bool, len(recs))
	var fresh []models.Trx
	for _, rec := range recs {
		if existing[rec.TrxID] || seen[rec.TrxID] {
			duplicates = append(duplicates, rec.TrxID)
			continue
		}
		seen[rec.TrxID] = true
		fresh = append(fresh, newPendingTrx(rec, cbu.Nro, principal.EntityID))
	}

	if len(fresh) == 0 {
		log.Info("Batch rejected, all transactions already exist", "count", len(recs))
		return nil, fmt.Errorf("%w: all transactions already exist", ErrConflict)
	}

	created, raced, err := s.store.InsertTrxBatch(ctx, fresh)
	if err != nil {
		return nil, err
	}
	duplicates = append(duplicates, raced...)
	if len(created) == 0 {
		return nil, fmt.Errorf("%w: all transactions already exist", ErrConflict)
	}

	log.Info("Batch registered", "entity_id", principal.EntityID, "created", len(created), "duplicates", len(duplicates))
	return &models.BatchResult{Created: len(created), Duplicates: duplicates}, nil
}

// ListByDate returns the caller entity's transactions for one day and their total.
func (s *IngestionService) ListByDate(ctx context.Context, principal models.Principal, d civil.Date) (*models.DailyTransactions, error) {
	trxs, err := s.store.GetTrxByEntityAndDate(ctx, principal.EntityID, d)
	if err != nil {
		return nil, err
	}
	if trxs == nil {
		trxs = []models.Trx{}
	}

	total := decimal.Zero
	for _, trx := range trxs {
		total = total.Add(trx.Amount)
	}
	return &models.DailyTransactions{Transactions: trxs, TotalAmount: total}, nil
}
