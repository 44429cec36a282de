package models

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ExtractedField is a raw key/value pair handed over by a document-extraction backend.
type ExtractedField struct {
	Key        string   `json:"key"`
	Value      string   `json:"value"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// DocumentRecord is a transaction candidate assembled from extracted fields.
// It is also the request body of the ingestion endpoints.
type DocumentRecord struct {
	Amount       decimal.Decimal `json:"amount"`
	TrxID        string          `json:"trx_id"`
	EmisorName   string          `json:"emisor_name"`
	EmisorCUIT   string          `json:"emisor_cuit"`
	EmisorCBU    string          `json:"emisor_cbu,omitempty"`
	ReceptorName string          `json:"receptor_name"`
	ReceptorCUIT string          `json:"receptor_cuit"`
	ReceptorCBU  string          `json:"receptor_cbu,omitempty"`
	Date         civil.Date      `json:"date"`
	// Wallet marks a virtual wallet receipt, which may omit counterparty names.
	Wallet bool `json:"wallet,omitempty"`
}

// FieldIssue names a field that was present but could not be used.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// DocumentBuildResult distinguishes a fully valid record from a partial one.
// Partial results are a normal outcome for low-quality scans, not an error.
type DocumentBuildResult struct {
	OK        bool             `json:"ok"`
	Document  *DocumentRecord  `json:"document,omitempty"`
	Partial   map[string]any   `json:"partial"`
	Missing   []string         `json:"missing"`
	Errors    []FieldIssue     `json:"errors"`
	Wallet    bool             `json:"wallet"`
	RawFields []ExtractedField `json:"raw_fields,omitempty"`
}
