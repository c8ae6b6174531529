package withdrawal

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"succeeded", json.Number("4"), "Succeeded"},
		{"failed", json.Number("3"), "Failed"},
		{"processing", json.Number("2"), "Processing"},
		{"unknown integer", json.Number("7"), "Unknown (7)"},
		{"zero", json.Number("0"), "Unknown (0)"},
		{"negative", json.Number("-1"), "Unknown (-1)"},
		{"integral float", json.Number("4.0"), "Succeeded"},
		{"fractional", json.Number("4.5"), "Unknown (4.5)"},
		{"plain int", 3, "Failed"},
		{"float64", float64(2), "Processing"},
		{"string code", "4", "Unknown (4)"},
		{"missing", nil, "Unknown (None)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusLabel(tt.input); got != tt.expected {
				t.Errorf("StatusLabel(%v) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestStatusCode_Label(t *testing.T) {
	if StatusSucceeded.Label() != "Succeeded" {
		t.Errorf("StatusSucceeded.Label() = %q", StatusSucceeded.Label())
	}
	if StatusCode(9).Label() != "Unknown (9)" {
		t.Errorf("StatusCode(9).Label() = %q", StatusCode(9).Label())
	}
}

func TestNormalize_Example(t *testing.T) {
	rec := RawRecord{
		"created":         "2024-01-01",
		"amount":          json.Number("100"),
		"withdrawId":      "W1",
		"status":          json.Number("4"),
		"utr":             "U1",
		"withdrawRequest": `{"bankAccountNumber":"123"}`,
	}

	got, err := Normalize(0, rec)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got.RequestErr != nil {
		t.Errorf("RequestErr = %v, want nil", got.RequestErr)
	}

	want := NormalizedRow{
		Date:          "2024-01-01",
		Amount:        decimal.NewFromInt(100),
		WithdrawID:    "W1",
		UTR:           "U1",
		AccountNumber: "123",
		Status:        "Succeeded",
	}

	row := got.Row
	if !row.Amount.Equal(want.Amount) {
		t.Errorf("Amount = %s, want %s", row.Amount, want.Amount)
	}
	row.Amount = want.Amount
	if row != want {
		t.Errorf("Row = %+v, want %+v", row, want)
	}
}

func TestNormalize_AllFields(t *testing.T) {
	rec := RawRecord{
		"created":         "2024-03-05 09:00:00",
		"modified":        "2024-03-05 09:30:00",
		"amount":          json.Number("2500.75"),
		"withdrawId":      json.Number("880011"),
		"utr":             "UTR998",
		"status":          json.Number("3"),
		"withdrawRequest": `{"bankAccountNumber":"000111","bankAccountHolderName":"A Kumar","bankAccountIfscCode":"SBIN0001"}`,
		"extra":           "ignored",
	}

	got, err := Normalize(3, rec)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	row := got.Row
	checks := map[string][2]string{
		"Date":              {row.Date, "2024-03-05 09:00:00"},
		"SuccessDate":       {row.SuccessDate, "2024-03-05 09:30:00"},
		"Amount":            {row.Amount.String(), "2500.75"},
		"WithdrawID":        {row.WithdrawID, "880011"},
		"UTR":               {row.UTR, "UTR998"},
		"AccountNumber":     {row.AccountNumber, "000111"},
		"AccountHolderName": {row.AccountHolderName, "A Kumar"},
		"IFSCCode":          {row.IFSCCode, "SBIN0001"},
		"Status":            {row.Status, "Failed"},
	}
	for field, pair := range checks {
		if pair[0] != pair[1] {
			t.Errorf("%s = %q, want %q", field, pair[0], pair[1])
		}
	}
}

func TestNormalize_Defaults(t *testing.T) {
	got, err := Normalize(0, RawRecord{})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	row := got.Row
	if !row.Amount.IsZero() {
		t.Errorf("Amount = %s, want 0", row.Amount)
	}
	if row.Status != "Unknown (None)" {
		t.Errorf("Status = %q, want Unknown (None)", row.Status)
	}
	for name, v := range map[string]string{
		"Date": row.Date, "SuccessDate": row.SuccessDate, "WithdrawID": row.WithdrawID,
		"UTR": row.UTR, "AccountNumber": row.AccountNumber,
		"AccountHolderName": row.AccountHolderName, "IFSCCode": row.IFSCCode,
	} {
		if v != "" {
			t.Errorf("%s = %q, want empty", name, v)
		}
	}
	if got.RequestErr != nil {
		t.Errorf("RequestErr = %v, want nil for a missing withdrawRequest", got.RequestErr)
	}
}

func TestNormalize_NullUTR(t *testing.T) {
	got, err := Normalize(0, RawRecord{"utr": nil, "amount": nil})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got.Row.UTR != "" {
		t.Errorf("UTR = %q, want empty", got.Row.UTR)
	}
	if !got.Row.Amount.IsZero() {
		t.Errorf("Amount = %s, want 0", got.Row.Amount)
	}
}

func TestNormalize_BadWithdrawRequest(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"truncated json", `{"bankAccountNumber":`},
		{"not json", "bank=123"},
		{"json array", `["123"]`},
		{"number", json.Number("12")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := RawRecord{
				"withdrawId":      "W9",
				"status":          json.Number("2"),
				"withdrawRequest": tt.value,
			}

			got, err := Normalize(0, rec)
			if err != nil {
				t.Fatalf("Normalize() error = %v, want row to be kept", err)
			}
			if !errors.Is(got.RequestErr, ErrBadWithdrawRequest) {
				t.Errorf("RequestErr = %v, want ErrBadWithdrawRequest", got.RequestErr)
			}
			if got.Row.AccountNumber != "" || got.Row.AccountHolderName != "" || got.Row.IFSCCode != "" {
				t.Errorf("bank fields = %+v, want empty", got.Row)
			}
			if got.Row.WithdrawID != "W9" || got.Row.Status != "Processing" {
				t.Errorf("Row = %+v, other fields should survive", got.Row)
			}
		})
	}
}

func TestNormalize_ObjectWithdrawRequest(t *testing.T) {
	rec := RawRecord{
		"withdrawRequest": map[string]any{"bankAccountIfscCode": "HDFC0001"},
	}

	got, err := Normalize(0, rec)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got.RequestErr != nil {
		t.Errorf("RequestErr = %v, want nil", got.RequestErr)
	}
	if got.Row.IFSCCode != "HDFC0001" {
		t.Errorf("IFSCCode = %q, want HDFC0001", got.Row.IFSCCode)
	}
}

func TestNormalize_InvalidAmount(t *testing.T) {
	rec := RawRecord{"withdrawId": "W5", "amount": "a lot"}

	_, err := Normalize(7, rec)
	if err == nil {
		t.Fatal("Expected error for invalid amount")
	}

	var recErr *RecordError
	if !errors.As(err, &recErr) {
		t.Fatalf("error type = %T, want *RecordError", err)
	}
	if recErr.Index != 7 || recErr.WithdrawID != "W5" {
		t.Errorf("RecordError = %+v, want index 7 and W5", recErr)
	}
	if !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("errors.Is(err, ErrInvalidAmount) = false")
	}
}

func TestNormalize_NilRecord(t *testing.T) {
	if _, err := Normalize(0, nil); err == nil {
		t.Error("Expected error for null record")
	}
}

func TestNormalizedRow_Values(t *testing.T) {
	row := NormalizedRow{
		Date:       "2024-01-01",
		Amount:     decimal.RequireFromString("99.5"),
		WithdrawID: "W1",
		Status:     "Succeeded",
	}

	values := row.Values()
	if len(values) != len(Columns) {
		t.Fatalf("len(Values()) = %d, want %d", len(values), len(Columns))
	}
	if values[2] != 99.5 {
		t.Errorf("Amount cell = %v (%T), want float64 99.5", values[2], values[2])
	}
	if values[8] != "Succeeded" {
		t.Errorf("Status cell = %v, want Succeeded", values[8])
	}
}

func TestColumns(t *testing.T) {
	want := []string{"Date", "Success Date", "Amount", "Withdraw Id", "UTR", "Account Number", "Account Holder Name", "IFSC Code", "Status"}
	if len(Columns) != len(want) {
		t.Fatalf("len(Columns) = %d, want %d", len(Columns), len(want))
	}
	for i := range want {
		if Columns[i] != want[i] {
			t.Errorf("Columns[%d] = %q, want %q", i, Columns[i], want[i])
		}
	}
}

func TestRawRecord_WithdrawID(t *testing.T) {
	if got := (RawRecord{}).WithdrawID(); got != "Unknown" {
		t.Errorf("WithdrawID() = %q, want Unknown", got)
	}
	if got := (RawRecord{"withdrawId": json.Number("42")}).WithdrawID(); got != "42" {
		t.Errorf("WithdrawID() = %q, want 42", got)
	}
}
