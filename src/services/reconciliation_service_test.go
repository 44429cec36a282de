package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/vertex/backend/src/models"
)

var march5 = civil.Date{Year: 2024, Month: time.March, Day: 5}

type fakeGateway struct {
	mu        sync.Mutex
	accounts  []models.BankAccount
	movements map[string][]models.BankMovement // by account number
	failures  map[string]error
	calls     map[string]int
	entered   chan struct{}
	block     chan struct{}
}

func newFakeGateway(accounts ...models.BankAccount) *fakeGateway {
	return &fakeGateway{
		accounts:  accounts,
		movements: map[string][]models.BankMovement{},
		failures:  map[string]error{},
		calls:     map[string]int{},
	}
}

func (g *fakeGateway) ListAccounts(ctx context.Context) ([]models.BankAccount, error) {
	if g.block != nil {
		close(g.entered)
		<-g.block
	}
	return g.accounts, nil
}

func (g *fakeGateway) ListMovements(ctx context.Context, accountNumber, bankNumber string, since, until civil.Date) ([]models.BankMovement, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[accountNumber]++
	if err := g.failures[accountNumber]; err != nil {
		return nil, err
	}
	var out []models.BankMovement
	for _, m := range g.movements[accountNumber] {
		d := civil.DateOf(m.MovementDate)
		if !d.Before(since) && !d.After(until) {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeReconciliationStore struct {
	mu      sync.Mutex
	trxs    map[string]*models.Trx
	order   []string
	runs    []models.ReconciliationReport
	markErr error
}

func newFakeReconciliationStore(trxs ...models.Trx) *fakeReconciliationStore {
	s := &fakeReconciliationStore{trxs: map[string]*models.Trx{}}
	for i := range trxs {
		trx := trxs[i]
		s.trxs[trx.TrxID] = &trx
		s.order = append(s.order, trx.TrxID)
	}
	return s
}

func (s *fakeReconciliationStore) GetPendingTrx(ctx context.Context) ([]models.Trx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Trx
	for _, id := range s.order {
		if s.trxs[id].Status == models.TrxStatusPending {
			out = append(out, *s.trxs[id])
		}
	}
	return out, nil
}

func (s *fakeReconciliationStore) MarkReconciled(ctx context.Context, trxID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return false, s.markErr
	}
	trx, ok := s.trxs[trxID]
	if !ok || trx.Status != models.TrxStatusPending {
		return false, nil
	}
	trx.Status = models.TrxStatusReconciled
	trx.ReconciledAt = &at
	return true, nil
}

func (s *fakeReconciliationStore) SaveRun(ctx context.Context, report models.ReconciliationReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, report)
	return nil
}

func (s *fakeReconciliationStore) GetLatestRun(ctx context.Context) (*models.ReconciliationReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.runs) == 0 {
		return nil, ErrNotFound
	}
	report := s.runs[len(s.runs)-1]
	return &report, nil
}

func (s *fakeReconciliationStore) status(trxID string) models.TrxStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trxs[trxID].Status
}

func account(number, cbu string) models.BankAccount {
	return models.BankAccount{AccountNumber: number, BankNumber: "017", BankName: "BBVA Argentina", CBU: cbu}
}

func pendingTrx(trxID, receptorCBU, amount string, d civil.Date) models.Trx {
	return models.Trx{
		TrxID:       trxID,
		EmisorCUIT:  "20123456783",
		ReceptorCBU: receptorCBU,
		Amount:      decimal.RequireFromString(amount),
		Date:        d,
		Status:      models.TrxStatusPending,
	}
}

func movement(amount string, d civil.Date, depositor string) models.BankMovement {
	return models.BankMovement{
		Amount:        decimal.RequireFromString(amount),
		MovementDate:  time.Date(d.Year, d.Month, d.Day, 10, 0, 0, 0, time.UTC),
		DepositorCode: depositor,
	}
}

func newTestReconciler(g BankGateway, s ReconciliationStore) *ReconciliationService {
	return NewReconciliationService(g, s, cache.New(time.Hour, time.Hour), ReconciliationConfig{Concurrency: 4})
}

func TestMovementMatches(t *testing.T) {
	trx := pendingTrx("T1", "C1", "1000.00", march5)
	withSender := trx
	withSender.EmisorCBU = "X"

	tests := []struct {
		name string
		m    models.BankMovement
		trx  models.Trx
		want bool
	}{
		{"same amount and day", movement("1000", march5, "anything"), trx, true},
		{"amount differs by a cent", movement("1000.01", march5, ""), trx, false},
		{"different day", movement("1000", march5.AddDays(1), ""), trx, false},
		{"sender matches depositor", movement("1000", march5, "X"), withSender, true},
		{"sender differs from depositor", movement("1000", march5, "Y"), withSender, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MovementMatches(tt.m, tt.trx))
		})
	}
}

func TestFirstMatch_ProviderOrderWins(t *testing.T) {
	trx := pendingTrx("T1", "C1", "1000", march5)
	movements := []models.BankMovement{
		movement("999", march5, "W"),
		movement("1000", march5, "X"),
		movement("1000", march5, "Y"),
	}

	m, ok := FirstMatch(movements, trx)
	require.True(t, ok)
	assert.Equal(t, "X", m.DepositorCode)

	_, ok = FirstMatch(nil, trx)
	assert.False(t, ok)
}

func TestRun_ReconcilesMatchingTransactions(t *testing.T) {
	g := newFakeGateway(account("A1", "C1"))
	g.movements["A1"] = []models.BankMovement{movement("1000.00", march5, "X")}
	s := newFakeReconciliationStore(
		pendingTrx("T1", "C1", "1000", march5),
		pendingTrx("T2", "C1", "500", march5),
		pendingTrx("T3", "UNKNOWN", "1000", march5),
	)
	svc := newTestReconciler(g, s)

	var out bytes.Buffer
	report, err := svc.Run(context.Background(), &out)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 3, report.TotalPending)
	assert.Equal(t, 1, report.TotalMatched)
	assert.Zero(t, report.FailedAccounts)
	require.Len(t, report.Accounts, 1)
	assert.Equal(t, 2, report.Accounts[0].Pending)
	assert.Equal(t, 1, report.Accounts[0].Reconciled)

	assert.Equal(t, models.TrxStatusReconciled, s.status("T1"))
	assert.Equal(t, models.TrxStatusPending, s.status("T2"))
	assert.Equal(t, models.TrxStatusPending, s.status("T3"), "no account carries its CBU")

	assert.Len(t, s.runs, 1)
	assert.Contains(t, out.String(), "A1")
	assert.Contains(t, out.String(), "TOTAL")
}

func TestRun_IsIdempotent(t *testing.T) {
	g := newFakeGateway(account("A1", "C1"))
	g.movements["A1"] = []models.BankMovement{movement("1000", march5, "X")}
	s := newFakeReconciliationStore(pendingTrx("T1", "C1", "1000", march5))
	svc := newTestReconciler(g, s)

	first, err := svc.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, first.TotalMatched)

	second, err := svc.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, second.TotalPending)
	assert.Zero(t, second.TotalMatched)
	assert.Equal(t, models.TrxStatusReconciled, s.status("T1"))
}

func TestRun_AccountFailureIsIsolated(t *testing.T) {
	g := newFakeGateway(account("A1", "C1"), account("A2", "C2"))
	g.failures["A1"] = fmt.Errorf("%w: GET movements returned 500", ErrGateway)
	g.movements["A2"] = []models.BankMovement{movement("42", march5, "")}
	s := newFakeReconciliationStore(
		pendingTrx("T1", "C1", "42", march5),
		pendingTrx("T2", "C2", "42", march5),
	)
	svc := newTestReconciler(g, s)

	report, err := svc.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, report.FailedAccounts)
	assert.Equal(t, 1, report.TotalMatched)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "A1")
	assert.NotEmpty(t, report.Accounts[0].Error)
	assert.Empty(t, report.Accounts[1].Error)

	assert.Equal(t, models.TrxStatusPending, s.status("T1"))
	assert.Equal(t, models.TrxStatusReconciled, s.status("T2"))
}

func TestRun_MarkFailureLeavesTransactionPending(t *testing.T) {
	g := newFakeGateway(account("A1", "C1"))
	g.movements["A1"] = []models.BankMovement{movement("10", march5, "")}
	s := newFakeReconciliationStore(pendingTrx("T1", "C1", "10", march5))
	s.markErr = errors.New("database is locked")
	svc := newTestReconciler(g, s)

	report, err := svc.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, report.TotalMatched)
	assert.Zero(t, report.FailedAccounts)
	assert.Equal(t, models.TrxStatusPending, s.status("T1"))
}

func TestRun_SharedMovementWindowIsFetchedOnce(t *testing.T) {
	g := newFakeGateway(account("A1", "C1"))
	s := newFakeReconciliationStore(
		pendingTrx("T1", "C1", "1", march5),
		pendingTrx("T2", "C1", "2", march5),
		pendingTrx("T3", "C1", "3", march5.AddDays(1)),
	)
	svc := newTestReconciler(g, s)

	_, err := svc.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, g.calls["A1"])
}

func TestRun_ConcurrentRunIsRejected(t *testing.T) {
	g := newFakeGateway(account("A1", "C1"))
	g.entered = make(chan struct{})
	g.block = make(chan struct{})
	svc := newTestReconciler(g, newFakeReconciliationStore())

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background(), nil)
		done <- err
	}()

	select {
	case <-g.entered:
	case <-time.After(time.Second):
		t.Fatal("first run never reached the gateway")
	}

	_, err := svc.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(g.block)
	assert.NoError(t, <-done)
}

func TestLastReport(t *testing.T) {
	t.Run("nothing recorded", func(t *testing.T) {
		svc := newTestReconciler(newFakeGateway(), newFakeReconciliationStore())
		_, err := svc.LastReport(context.Background())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("served from cache after a run", func(t *testing.T) {
		svc := newTestReconciler(newFakeGateway(), newFakeReconciliationStore())
		report, err := svc.Run(context.Background(), nil)
		require.NoError(t, err)

		last, err := svc.LastReport(context.Background())
		require.NoError(t, err)
		assert.Same(t, report, last)
	})

	t.Run("falls back to the store", func(t *testing.T) {
		s := newFakeReconciliationStore()
		s.runs = append(s.runs, models.ReconciliationReport{RunID: "persisted"})
		svc := newTestReconciler(newFakeGateway(), s)

		last, err := svc.LastReport(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "persisted", last.RunID)
	})
}

func TestRenderReport(t *testing.T) {
	report := &models.ReconciliationReport{
		RunID:        "run-1",
		StartedAt:    time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
		TotalPending: 3,
		TotalMatched: 1,
		Accounts: []models.AccountReconciliation{
			{AccountNumber: "A1", BankName: "BBVA Argentina", Pending: 2, Reconciled: 1},
			{AccountNumber: "A2", BankName: "Banco Macro", Pending: 1, Error: "bank provider gateway error"},
		},
	}

	var out bytes.Buffer
	require.NoError(t, RenderReport(&out, report))
	text := out.String()
	assert.Contains(t, text, "run-1")
	assert.Contains(t, text, "BBVA Argentina")
	assert.Contains(t, text, "bank provider gateway error")
	assert.Regexp(t, `TOTAL\s+1\s+3`, text)
}
