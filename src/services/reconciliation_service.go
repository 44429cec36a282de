// backend/src/services/reconciliation_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"text/tabwriter"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/patrickmn/go-cache"
	"github.com/username/vertex/backend/src/logger"
	"github.com/username/vertex/backend/src/models"
	"golang.org/x/sync/errgroup"
)

const (
	lastReportCacheKey = "reconciliation:last"

	DefaultReportCacheTTL = 24 * time.Hour
	CacheCleanupInterval  = 1 * time.Hour
)

// ReconciliationConfig tunes a reconciliation run.
type ReconciliationConfig struct {
	// Concurrency is the number of accounts reconciled in parallel.
	Concurrency int
	CacheTTL    time.Duration
}

// ReconciliationService matches pending transactions against the bank provider's
// movement feed and flips the matched ones to reconciled.
type ReconciliationService struct {
	gateway     BankGateway
	store       ReconciliationStore
	reportCache *cache.Cache
	cfg         ReconciliationConfig
	now         func() time.Time

	running sync.Mutex
}

func NewReconciliationService(gateway BankGateway, store ReconciliationStore, reportCache *cache.Cache, cfg ReconciliationConfig) *ReconciliationService {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultReportCacheTTL
	}
	return &ReconciliationService{
		gateway:     gateway,
		store:       store,
		reportCache: reportCache,
		cfg:         cfg,
		now:         time.Now,
	}
}

// MovementMatches reports whether m settles trx: same amount to the cent, same
// calendar day, and, when the transaction names a sender account, the same
// depositor.
func MovementMatches(m models.BankMovement, trx models.Trx) bool {
	if !m.Amount.Equal(trx.Amount) {
		return false
	}
	if civil.DateOf(m.MovementDate) != trx.Date {
		return false
	}
	return trx.EmisorCBU == "" || trx.EmisorCBU == m.DepositorCode
}

// FirstMatch returns the first movement, in provider order, that settles trx.
func FirstMatch(movements []models.BankMovement, trx models.Trx) (models.BankMovement, bool) {
	for _, m := range movements {
		if MovementMatches(m, trx) {
			return m, true
		}
	}
	return models.BankMovement{}, false
}

type movementKey struct {
	accountNumber string
	bankNumber    string
	since         civil.Date
	until         civil.Date
}

// movementMemo dedupes identical movement queries within a single run.
type movementMemo struct {
	mu      sync.Mutex
	entries map[movementKey][]models.BankMovement
}

func newMovementMemo() *movementMemo {
	return &movementMemo{entries: make(map[movementKey][]models.BankMovement)}
}

func (m *movementMemo) fetch(ctx context.Context, gateway BankGateway, key movementKey) ([]models.BankMovement, error) {
	m.mu.Lock()
	cached, ok := m.entries[key]
	m.mu.Unlock()
	if ok {
		return cached, nil
	}

	movements, err := gateway.ListMovements(ctx, key.accountNumber, key.bankNumber, key.since, key.until)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.entries[key] = movements
	m.mu.Unlock()
	return movements, nil
}

// Run performs one reconciliation pass and writes a summary to out (may be nil).
// Failures of single accounts are recorded in the report; only a failure to list
// accounts or load pending transactions aborts the run.
func (s *ReconciliationService) Run(ctx context.Context, out io.Writer) (*models.ReconciliationReport, error) {
	if !s.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.running.Unlock()

	report := &models.ReconciliationReport{
		RunID:     uuid.New().String(),
		StartedAt: s.now(),
		Accounts:  []models.AccountReconciliation{},
	}
	ctx, log := logger.With(ctx, slog.String("runID", report.RunID))
	log.Info("Reconciliation run started")

	accounts, err := s.gateway.ListAccounts(ctx)
	if err != nil {
		log.Error("Failed to list bank accounts", "error", err)
		return nil, fmt.Errorf("listing bank accounts: %w", err)
	}

	pending, err := s.store.GetPendingTrx(ctx)
	if err != nil {
		log.Error("Failed to load pending transactions", "error", err)
		return nil, fmt.Errorf("loading pending transactions: %w", err)
	}
	report.TotalPending = len(pending)

	// Each pending transaction belongs to the first account carrying its CBU.
	owner := make(map[string]int, len(accounts))
	for i, a := range accounts {
		if _, seen := owner[a.CBU]; !seen && a.CBU != "" {
			owner[a.CBU] = i
		}
	}
	perAccount := make([][]models.Trx, len(accounts))
	for _, trx := range pending {
		if i, ok := owner[trx.ReceptorCBU]; ok {
			perAccount[i] = append(perAccount[i], trx)
		}
	}

	results := make([]models.AccountReconciliation, len(accounts))
	accountErrs := make([]error, len(accounts))
	memo := newMovementMemo()

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i := range accounts {
		g.Go(func() error {
			results[i], accountErrs[i] = s.reconcileAccount(ctx, accounts[i], perAccount[i], memo)
			return nil
		})
	}
	_ = g.Wait()

	var runErr *multierror.Error
	for i, res := range results {
		report.Accounts = append(report.Accounts, res)
		report.TotalMatched += res.Reconciled
		if accountErrs[i] != nil {
			report.FailedAccounts++
			runErr = multierror.Append(runErr, fmt.Errorf("account %s: %w", accounts[i].AccountNumber, accountErrs[i]))
		}
	}
	if runErr != nil {
		for _, e := range runErr.Errors {
			report.Errors = append(report.Errors, e.Error())
		}
		log.Warn("Reconciliation finished with account failures", "failedAccounts", report.FailedAccounts, "error", runErr.ErrorOrNil())
	}

	report.FinishedAt = s.now()
	log.Info("Reconciliation run finished",
		"accounts", len(report.Accounts),
		"pending", report.TotalPending,
		"reconciled", report.TotalMatched,
		"duration", report.FinishedAt.Sub(report.StartedAt).String())

	if err := s.store.SaveRun(ctx, *report); err != nil {
		log.Error("Failed to persist reconciliation run", "error", err)
	}
	if s.reportCache != nil {
		s.reportCache.Set(lastReportCacheKey, report, s.cfg.CacheTTL)
	}
	if out != nil {
		if err := RenderReport(out, report); err != nil {
			log.Warn("Failed to write reconciliation summary", "error", err)
		}
	}
	return report, nil
}

func (s *ReconciliationService) reconcileAccount(ctx context.Context, account models.BankAccount, trxs []models.Trx, memo *movementMemo) (models.AccountReconciliation, error) {
	result := models.AccountReconciliation{
		AccountNumber: account.AccountNumber,
		BankName:      account.BankName,
		CBU:           account.CBU,
		Pending:       len(trxs),
	}
	log := logger.FromContext(ctx).With(slog.String("account", account.AccountNumber))

	for _, trx := range trxs {
		if err := ctx.Err(); err != nil {
			result.Error = err.Error()
			return result, err
		}

		key := movementKey{
			accountNumber: account.AccountNumber,
			bankNumber:    account.BankNumber,
			since:         trx.Date.AddDays(-1),
			until:         trx.Date.AddDays(1),
		}
		movements, err := memo.fetch(ctx, s.gateway, key)
		if err != nil {
			log.Error("Failed to fetch movements", "trx_id", trx.TrxID, "error", err)
			result.Error = err.Error()
			return result, err
		}

		movement, ok := FirstMatch(movements, trx)
		if !ok {
			log.Debug("No matching movement", "trx_id", trx.TrxID)
			continue
		}

		updated, err := s.store.MarkReconciled(ctx, trx.TrxID, s.now())
		if err != nil {
			// Left pending; the next run retries it.
			log.Error("Failed to mark transaction reconciled", "trx_id", trx.TrxID, "error", err)
			continue
		}
		if !updated {
			log.Info("Transaction was already reconciled", "trx_id", trx.TrxID)
			continue
		}
		result.Reconciled++
		log.Info("Transaction reconciled", "trx_id", trx.TrxID, "amount", trx.Amount.String(), "depositor", movement.DepositorCode)
	}
	return result, nil
}

// LastReport returns the most recent run, from the cache or the run audit table.
func (s *ReconciliationService) LastReport(ctx context.Context) (*models.ReconciliationReport, error) {
	if s.reportCache != nil {
		if cached, found := s.reportCache.Get(lastReportCacheKey); found {
			if report, ok := cached.(*models.ReconciliationReport); ok {
				return report, nil
			}
		}
	}

	report, err := s.store.GetLatestRun(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: no reconciliation run recorded", ErrNotFound)
		}
		return nil, err
	}
	return report, nil
}

// RenderReport writes a human-readable run summary.
func RenderReport(w io.Writer, report *models.ReconciliationReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Reconciliation run %s (%s)\n", report.RunID, report.StartedAt.Format(time.RFC3339))
	fmt.Fprintln(tw, "ACCOUNT\tBANK\tRECONCILED\tPENDING\tERROR")
	for _, a := range report.Accounts {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", a.AccountNumber, a.BankName, a.Reconciled, a.Pending, a.Error)
	}
	fmt.Fprintf(tw, "TOTAL\t\t%d\t%d\t\n", report.TotalMatched, report.TotalPending)
	return tw.Flush()
}
