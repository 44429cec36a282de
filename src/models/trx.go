package models

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TrxStatus is the lifecycle state of a claimed incoming transfer.
// The only transition is TrxStatusPending -> TrxStatusReconciled.
type TrxStatus string

const (
	TrxStatusPending    TrxStatus = "pending"
	TrxStatusReconciled TrxStatus = "reconciled"
)

// Trx represents a claimed incoming transfer booked against a tenant's CBU.
type Trx struct {
	ID           int64           `json:"id,omitempty"` // Database primary key
	TrxID        string          `json:"trx_id"`       // External, provider-issued id. Globally unique.
	EmisorName   string          `json:"emisor_name"`
	EmisorCUIT   string          `json:"emisor_cuit"`
	EmisorCBU    string          `json:"emisor_cbu,omitempty"` // Optional; wallet transfers often omit it
	ReceptorCBU  string          `json:"receptor_cbu"`
	EntityID     int64           `json:"entity_id"`
	ClientID     int64           `json:"client_id,omitempty"`
	AccountID    int64           `json:"account_id,omitempty"` // customers_balance id, 0 when unassigned
	Amount       decimal.Decimal `json:"amount"`
	Date         civil.Date      `json:"date"`
	Status       TrxStatus       `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	ReconciledAt *time.Time      `json:"reconciled_at,omitempty"`

	// Populated on pending reads from the booked balance account.
	Currency string `json:"currency,omitempty"`
}

// DailyTransactions is the per-day listing for one entity.
type DailyTransactions struct {
	Transactions []Trx           `json:"transactions"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}

// BatchResult reports the outcome of a multi-record ingestion.
type BatchResult struct {
	Created    int      `json:"created"`
	Duplicates []string `json:"duplicates"`
}

// CBU is a registered bank-account identifier owned by a tax id.
type CBU struct {
	ID    int64  `json:"id"`
	Nro   string `json:"nro"`
	Banco string `json:"banco"`
	Alias string `json:"alias"`
	CUIT  string `json:"cuit"`
}

// Entity is a tenant organization.
type Entity struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Mail   string `json:"mail"`
	Status string `json:"status"`
}
