package withdrawal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrBadWithdrawRequest marks a withdrawRequest value that is not a JSON object.
var ErrBadWithdrawRequest = errors.New("unparsable withdrawRequest")

// Columns is the fixed header of the output sheet.
var Columns = []string{
	"Date",
	"Success Date",
	"Amount",
	"Withdraw Id",
	"UTR",
	"Account Number",
	"Account Holder Name",
	"IFSC Code",
	"Status",
}

// NormalizedRow is the flattened form of a RawRecord, one spreadsheet row.
type NormalizedRow struct {
	Date              string
	SuccessDate       string
	Amount            decimal.Decimal
	WithdrawID        string
	UTR               string
	AccountNumber     string
	AccountHolderName string
	IFSCCode          string
	Status            string
}

// Values returns the cells in Columns order. Amount is written as a number.
func (r NormalizedRow) Values() []any {
	return []any{
		r.Date,
		r.SuccessDate,
		r.Amount.InexactFloat64(),
		r.WithdrawID,
		r.UTR,
		r.AccountNumber,
		r.AccountHolderName,
		r.IFSCCode,
		r.Status,
	}
}

// Normalized is the outcome of normalizing one record. RequestErr is set when
// withdrawRequest could not be parsed; the row is still valid, with empty
// bank fields.
type Normalized struct {
	Row        NormalizedRow
	RequestErr error
}

// RecordError reports a record that could not be normalized at all.
type RecordError struct {
	Index      int
	WithdrawID string
	Err        error
}

// Error implements the error interface.
func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d (%s): %v", e.Index, e.WithdrawID, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RecordError) Unwrap() error {
	return e.Err
}

// Normalize flattens rec into a NormalizedRow. index is the position of the
// record in the fetched sequence and is only used for error reporting.
func Normalize(index int, rec RawRecord) (Normalized, error) {
	if rec == nil {
		return Normalized{}, &RecordError{Index: index, WithdrawID: "Unknown", Err: errors.New("record is null")}
	}

	amount, err := rec.Amount()
	if err != nil {
		return Normalized{}, &RecordError{Index: index, WithdrawID: rec.WithdrawID(), Err: err}
	}

	bank, reqErr := parseWithdrawRequest(rec[KeyWithdrawRequest])

	return Normalized{
		Row: NormalizedRow{
			Date:              rec.String(KeyCreated),
			SuccessDate:       rec.String(KeyModified),
			Amount:            amount,
			WithdrawID:        rec.String(KeyWithdrawID),
			UTR:               rec.String(KeyUTR),
			AccountNumber:     bank.String(KeyBankAccountNumber),
			AccountHolderName: bank.String(KeyBankAccountHolderName),
			IFSCCode:          bank.String(KeyBankAccountIfscCode),
			Status:            StatusLabel(rec[KeyStatus]),
		},
		RequestErr: reqErr,
	}, nil
}

// parseWithdrawRequest decodes the nested request document. Absent or empty
// values yield an empty document without error; anything that is not a JSON
// object yields an empty document and ErrBadWithdrawRequest.
func parseWithdrawRequest(v any) (RawRecord, error) {
	switch req := v.(type) {
	case nil:
		return RawRecord{}, nil
	case string:
		if req == "" {
			return RawRecord{}, nil
		}
		dec := json.NewDecoder(bytes.NewReader([]byte(req)))
		dec.UseNumber()
		var doc RawRecord
		if err := dec.Decode(&doc); err != nil {
			return RawRecord{}, fmt.Errorf("%w: %v", ErrBadWithdrawRequest, err)
		}
		if doc == nil {
			return RawRecord{}, nil
		}
		return doc, nil
	case map[string]any:
		return RawRecord(req), nil
	case RawRecord:
		return req, nil
	default:
		return RawRecord{}, fmt.Errorf("%w: unexpected type %T", ErrBadWithdrawRequest, v)
	}
}
