// backend/src/security/validation/field_validator.go
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"
	"github.com/username/vertex/backend/src/logger"
	"github.com/username/vertex/backend/src/models"
)

var ErrValidationFailed = fmt.Errorf("validation failed")

const (
	DefaultMaxStringLength = 255
	MinTrxIDLength         = 4
	MaxTrxIDLength         = 100
	CUITLength             = 11
	CBULength              = 22
)

var (
	cuitRegex = regexp.MustCompile(`^\d{11}$`)
	cbuRegex  = regexp.MustCompile(`^\d{22}$`)
)

// --- String Validators ---

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

// ValidateStringRegex checks if a string matches a given regex pattern.
func ValidateStringRegex(s string, pattern *regexp.Regexp, fieldName, formatDescription string) error {
	if !pattern.MatchString(s) {
		return fmt.Errorf("%w: %s ('%s') is not in the expected format (%s)", ErrValidationFailed, fieldName, s, formatDescription)
	}
	return nil
}

// --- Domain Validators ---

// ValidateCUIT checks an Argentine tax id: exactly 11 digits, no separators.
func ValidateCUIT(s, fieldName string) error {
	if err := ValidateStringNotEmpty(s, fieldName); err != nil {
		return err
	}
	return ValidateStringRegex(s, cuitRegex, fieldName, "11 digits")
}

// ValidateCBU checks an optional CBU/CVU. Empty is accepted.
func ValidateCBU(s, fieldName string) error {
	if s == "" {
		return nil
	}
	return ValidateStringRegex(s, cbuRegex, fieldName, "22 digits")
}

// ValidateTrxID checks the external transaction id printed on the voucher.
func ValidateTrxID(s string) error {
	trimmed := strings.TrimSpace(s)
	if utf8.RuneCountInString(trimmed) < MinTrxIDLength {
		return fmt.Errorf("%w: trx_id must have at least %d characters", ErrValidationFailed, MinTrxIDLength)
	}
	return ValidateStringMaxLength(trimmed, MaxTrxIDLength, "trx_id")
}

// ValidatePositiveAmount rejects zero and negative amounts.
func ValidatePositiveAmount(amount decimal.Decimal, fieldName string) error {
	if !amount.IsPositive() {
		logger.L.Warn("Non-positive amount rejected", "field", fieldName, "value", amount.String())
		return fmt.Errorf("%w: %s must be greater than 0, got %s", ErrValidationFailed, fieldName, amount.String())
	}
	return nil
}

// ValidateDocumentRecord checks everything an ingestible record must satisfy and
// reports all violations at once. With relaxCounterparty the counterparty names and
// receiver tax id may be empty, as on wallet receipts; the record must then carry a
// receiver CBU/CVU instead.
func ValidateDocumentRecord(rec models.DocumentRecord, relaxCounterparty bool) error {
	var result *multierror.Error

	if err := ValidatePositiveAmount(rec.Amount, "amount"); err != nil {
		result = multierror.Append(result, err)
	}
	if err := ValidateTrxID(rec.TrxID); err != nil {
		result = multierror.Append(result, err)
	}
	if err := ValidateCUIT(rec.EmisorCUIT, "emisor_cuit"); err != nil {
		result = multierror.Append(result, err)
	}
	if err := ValidateCBU(rec.EmisorCBU, "emisor_cbu"); err != nil {
		result = multierror.Append(result, err)
	}
	if err := ValidateCBU(rec.ReceptorCBU, "receptor_cbu"); err != nil {
		result = multierror.Append(result, err)
	}
	if !rec.Date.IsValid() {
		result = multierror.Append(result, fmt.Errorf("%w: date is required", ErrValidationFailed))
	}

	if relaxCounterparty {
		if rec.ReceptorCUIT == "" && rec.ReceptorCBU == "" {
			result = multierror.Append(result, fmt.Errorf("%w: receptor_cuit or receptor_cbu is required", ErrValidationFailed))
		}
		if rec.ReceptorCUIT != "" {
			if err := ValidateCUIT(rec.ReceptorCUIT, "receptor_cuit"); err != nil {
				result = multierror.Append(result, err)
			}
		}
	} else {
		if err := ValidateStringNotEmpty(rec.EmisorName, "emisor_name"); err != nil {
			result = multierror.Append(result, err)
		}
		if err := ValidateStringNotEmpty(rec.ReceptorName, "receptor_name"); err != nil {
			result = multierror.Append(result, err)
		}
		if err := ValidateCUIT(rec.ReceptorCUIT, "receptor_cuit"); err != nil {
			result = multierror.Append(result, err)
		}
	}

	for field, value := range map[string]string{
		"trx_id":        rec.TrxID,
		"emisor_name":   rec.EmisorName,
		"receptor_name": rec.ReceptorName,
	} {
		if err := ValidateStringMaxLength(value, DefaultMaxStringLength, field); err != nil {
			result = multierror.Append(result, err)
		}
		if err := CheckXSSPatterns(value, field, rec.TrxID); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}
