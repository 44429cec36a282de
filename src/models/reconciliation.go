package models

import "time"

// AccountReconciliation is the outcome of one account within a run.
type AccountReconciliation struct {
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
	CBU           string `json:"cbu"`
	Pending       int    `json:"pending"`
	Reconciled    int    `json:"reconciled"`
	Error         string `json:"error,omitempty"`
}

// ReconciliationReport summarizes a reconciliation run.
type ReconciliationReport struct {
	RunID          string                  `json:"run_id"`
	StartedAt      time.Time               `json:"started_at"`
	FinishedAt     time.Time               `json:"finished_at"`
	Accounts       []AccountReconciliation `json:"accounts"`
	TotalPending   int                     `json:"total_pending"`
	TotalMatched   int                     `json:"total_reconciled"`
	FailedAccounts int                     `json:"failed_accounts"`
	Errors         []string                `json:"errors,omitempty"`
}
