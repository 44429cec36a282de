package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankAccount is a tenant bank account as reported by the provider's balances API.
type BankAccount struct {
	AccountNumber    string          `json:"account_number"`
	BankNumber       string          `json:"bank_number"`
	BankName         string          `json:"bank_name"`
	AccountType      string          `json:"account_type"`
	CBU              string          `json:"cbu"`
	CountableBalance decimal.Decimal `json:"countable_balance"`
	Currency         string          `json:"currency"`
}

// BankMovement is one line of the provider's movement feed. It is never persisted.
type BankMovement struct {
	Amount        decimal.Decimal `json:"amount"`
	MovementDate  time.Time       `json:"movement_date"`
	DepositorCode string          `json:"depositor_code"`
	Description   string          `json:"description"`
}
