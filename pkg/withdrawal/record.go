// Package withdrawal holds the withdrawal record model: the raw records returned
// by the withdraw detail endpoint, the status table, and the nine-column row
// written to the spreadsheet.
package withdrawal

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Raw record keys read by Normalize.
const (
	KeyCreated         = "created"
	KeyModified        = "modified"
	KeyAmount          = "amount"
	KeyWithdrawID      = "withdrawId"
	KeyUTR             = "utr"
	KeyStatus          = "status"
	KeyWithdrawRequest = "withdrawRequest"
)

// Keys of the JSON document carried as a string in withdrawRequest.
const (
	KeyBankAccountNumber     = "bankAccountNumber"
	KeyBankAccountHolderName = "bankAccountHolderName"
	KeyBankAccountIfscCode   = "bankAccountIfscCode"
)

// ErrInvalidAmount is returned when the amount field is not a number.
var ErrInvalidAmount = errors.New("invalid amount")

// RawRecord is one withdrawal event as returned by the detail endpoint. It is
// kept opaque: only the keys above are interpreted, everything else is ignored.
// Numbers decoded by the client are json.Number.
type RawRecord map[string]any

// WithdrawID returns the record identifier for logs, or "Unknown".
func (r RawRecord) WithdrawID() string {
	if v, ok := r[KeyWithdrawID]; ok && v != nil {
		return stringValue(v)
	}
	return "Unknown"
}

// String returns the value of key as text. Missing and null values are "".
func (r RawRecord) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	return stringValue(v)
}

// Amount returns the amount field. Missing and null amounts are zero.
func (r RawRecord) Amount() (decimal.Decimal, error) {
	v, ok := r[KeyAmount]
	if !ok || v == nil {
		return decimal.Zero, nil
	}

	switch n := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, n.String())
		}
		return d, nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, n)
		}
		return decimal.NewFromFloat(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, n)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported type %T", ErrInvalidAmount, v)
	}
}

// stringValue renders a decoded JSON value the way it appeared in the payload.
func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	default:
		b, err := json.Marshal(s)
		if err != nil {
			return fmt.Sprint(s)
		}
		return string(b)
	}
}
