package document

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/username/vertex/backend/src/models"
	"github.com/username/vertex/backend/src/security/validation"
)

// DateLayout is the receipt timestamp format (DD/MM/YY HH:MM:SS).
const DateLayout = "02/01/06 15:04:05"

const cbuLength = 22

var nonDigitRegex = regexp.MustCompile(`\D`)

// requiredFields is also the order in which missing fields are reported.
var requiredFields = []Field{
	FieldAmount,
	FieldTrxID,
	FieldEmisorName,
	FieldEmisorCUIT,
	FieldReceptorName,
	FieldReceptorCUIT,
	FieldDate,
}

// walletRelaxed lists the fields wallet receipts are allowed to omit.
var walletRelaxed = map[Field]bool{
	FieldEmisorName:   true,
	FieldReceptorName: true,
	FieldReceptorCUIT: true,
}

const walletMarker = "mercado pago"

var (
	walletTerms       = []string{"cvu", "cuit cuil", "cuitcuil"}
	bankTransferTerms = []string{"cbu", "transferencia", "comprobante", "cbu origen", "cbu destino"}
)

// orderedFields holds one raw value per logical field. The first value added for a
// field is kept and later ones are ignored.
type orderedFields struct {
	order  []Field
	values map[Field]string
}

func newOrderedFields() *orderedFields {
	return &orderedFields{values: make(map[Field]string)}
}

func (o *orderedFields) add(f Field, value string) bool {
	if _, exists := o.values[f]; exists {
		return false
	}
	o.order = append(o.order, f)
	o.values[f] = value
	return true
}

func (o *orderedFields) get(f Field) (string, bool) {
	v, ok := o.values[f]
	return v, ok
}

// Build assembles a DocumentRecord from extracted key/value pairs. It never fails:
// incomplete or unparseable input yields OK=false with the gaps named in Missing and
// Errors.
func Build(fields []models.ExtractedField) models.DocumentBuildResult {
	result := models.DocumentBuildResult{
		Partial:   make(map[string]any),
		Missing:   []string{},
		Errors:    []models.FieldIssue{},
		RawFields: fields,
	}

	collected, haystack := collectFields(fields)
	result.Wallet = IsWalletDocument(haystack)

	parseInto(collected, &result)

	// Wallet receipts identify the payer by CUIT/CUIL and CVU only.
	if _, ok := result.Partial[string(FieldEmisorCUIT)]; !ok {
		if v, ok := result.Partial[string(FieldWalletCUIT)]; ok {
			result.Partial[string(FieldEmisorCUIT)] = v
		}
	}
	if _, ok := result.Partial[string(FieldEmisorCBU)]; !ok {
		if v, ok := result.Partial[string(FieldWalletCVU)]; ok {
			result.Partial[string(FieldEmisorCBU)] = v
		}
	}

	complete := true
	for _, f := range requiredFields {
		if result.Wallet && walletRelaxed[f] {
			continue
		}
		if _, ok := result.Partial[string(f)]; ok {
			continue
		}
		complete = false
		if _, raw := collected.get(f); !raw {
			result.Missing = append(result.Missing, string(f))
		}
	}
	if !complete || len(result.Errors) > 0 {
		return result
	}

	record := recordFromPartial(result.Partial)
	record.Wallet = result.Wallet
	issues := validateRecord(record, result.Wallet)
	if len(issues) > 0 {
		result.Errors = append(result.Errors, issues...)
		return result
	}

	result.OK = true
	result.Document = &record
	return result
}

// collectFields resolves every extracted key to its logical field and returns the
// first value per field together with the normalized text of the whole document.
func collectFields(fields []models.ExtractedField) (*orderedFields, string) {
	collected := newOrderedFields()
	var text []string

	for _, f := range fields {
		key := Normalize(f.Key)
		value := strings.TrimSpace(f.Value)
		if key != "" {
			text = append(text, key)
		}
		if nv := Normalize(value); nv != "" {
			text = append(text, nv)
		}

		if value == "" {
			continue
		}
		field, ok := keyAliases[key]
		if !ok {
			continue
		}
		collected.add(field, value)
	}
	return collected, strings.Join(text, " ")
}

func parseInto(collected *orderedFields, result *models.DocumentBuildResult) {
	for _, f := range collected.order {
		raw, _ := collected.get(f)
		switch f {
		case FieldAmount:
			amount, err := ParseAmount(raw)
			if err != nil {
				result.Errors = append(result.Errors, models.FieldIssue{
					Field:   string(f),
					Message: fmt.Sprintf("Invalid amount '%s': %v", raw, err),
				})
				continue
			}
			result.Partial[string(f)] = amount
		case FieldDate:
			d, err := ParseDate(raw)
			if err != nil {
				result.Errors = append(result.Errors, models.FieldIssue{
					Field:   string(f),
					Message: fmt.Sprintf("Invalid date '%s': %v", raw, err),
				})
				continue
			}
			result.Partial[string(f)] = d
		case FieldEmisorCUIT, FieldReceptorCUIT, FieldWalletCUIT:
			digits := ExtractDigits(raw)
			if digits == "" {
				result.Errors = append(result.Errors, models.FieldIssue{
					Field:   string(f),
					Message: fmt.Sprintf("Invalid %s '%s': no digits", f, raw),
				})
				continue
			}
			result.Partial[string(f)] = digits
		case FieldEmisorCBU, FieldReceptorCBU, FieldWalletCVU:
			if cbu, ok := ExtractCBU(raw); ok {
				result.Partial[string(f)] = cbu
			}
		default:
			result.Partial[string(f)] = raw
		}
	}
}

func recordFromPartial(partial map[string]any) models.DocumentRecord {
	str := func(f Field) string {
		s, _ := partial[string(f)].(string)
		return s
	}
	amount, _ := partial[string(FieldAmount)].(decimal.Decimal)
	date, _ := partial[string(FieldDate)].(civil.Date)

	return models.DocumentRecord{
		Amount:       amount,
		TrxID:        str(FieldTrxID),
		EmisorName:   str(FieldEmisorName),
		EmisorCUIT:   str(FieldEmisorCUIT),
		EmisorCBU:    str(FieldEmisorCBU),
		ReceptorName: str(FieldReceptorName),
		ReceptorCUIT: str(FieldReceptorCUIT),
		ReceptorCBU:  str(FieldReceptorCBU),
		Date:         date,
	}
}

func validateRecord(rec models.DocumentRecord, wallet bool) []models.FieldIssue {
	var issues []models.FieldIssue
	check := func(f Field, err error) {
		if err != nil {
			issues = append(issues, models.FieldIssue{Field: string(f), Message: err.Error()})
		}
	}

	check(FieldAmount, validation.ValidatePositiveAmount(rec.Amount, string(FieldAmount)))
	check(FieldTrxID, validation.ValidateTrxID(rec.TrxID))
	check(FieldEmisorCUIT, validation.ValidateCUIT(rec.EmisorCUIT, string(FieldEmisorCUIT)))
	if rec.ReceptorCUIT != "" || !wallet {
		check(FieldReceptorCUIT, validation.ValidateCUIT(rec.ReceptorCUIT, string(FieldReceptorCUIT)))
	}
	return issues
}

// IsWalletDocument reports whether normalized document text looks like a virtual
// wallet receipt rather than a bank transfer voucher.
func IsWalletDocument(text string) bool {
	if strings.Contains(text, walletMarker) {
		return true
	}
	if !containsAny(text, walletTerms) {
		return false
	}
	return !containsAny(text, bankTransferTerms)
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// ParseAmount parses an Argentine-formatted amount such as "$ 1.234,56".
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(raw, "$", "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	return decimal.NewFromString(s)
}

// ParseDate parses a DD/MM/YY HH:MM:SS timestamp and keeps only its calendar date.
func ParseDate(raw string) (civil.Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return civil.Date{}, err
	}
	return civil.DateOf(t), nil
}

// ExtractDigits drops every non-digit character.
func ExtractDigits(raw string) string {
	return nonDigitRegex.ReplaceAllString(raw, "")
}

// ExtractCBU returns the 22 digits of a CBU/CVU, or false when raw does not hold
// exactly that many.
func ExtractCBU(raw string) (string, bool) {
	digits := ExtractDigits(raw)
	if len(digits) != cbuLength {
		return "", false
	}
	return digits, true
}
