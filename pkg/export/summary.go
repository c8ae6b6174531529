package export

import (
	"sort"

	"github.com/jatushlashkari/finance-v1/pkg/withdrawal"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// StatusCount is the number of rows carrying one status label.
type StatusCount struct {
	Status string
	Count  int
}

// Summary holds the statistics reported after an export.
type Summary struct {
	Rows    int
	Columns []string
	// DateMin and DateMax are the lexical bounds of the non-empty Date values.
	DateMin string
	DateMax string
	// TotalAmount and MeanAmount are zero for an empty export.
	TotalAmount decimal.Decimal
	MeanAmount  decimal.Decimal
	// StatusCounts is ordered by count, most frequent first, ties by label.
	StatusCounts      []StatusCount
	WithUTR           int
	WithAccountNumber int
}

// Summarize computes the summary of rows.
func Summarize(rows []withdrawal.NormalizedRow) Summary {
	s := Summary{
		Rows:        len(rows),
		Columns:     append([]string(nil), withdrawal.Columns...),
		TotalAmount: decimal.Zero,
		MeanAmount:  decimal.Zero,
	}

	counts := make(map[string]int)
	for _, r := range rows {
		if r.Date != "" {
			if s.DateMin == "" || r.Date < s.DateMin {
				s.DateMin = r.Date
			}
			if r.Date > s.DateMax {
				s.DateMax = r.Date
			}
		}
		s.TotalAmount = s.TotalAmount.Add(r.Amount)
		counts[r.Status]++
		if r.UTR != "" {
			s.WithUTR++
		}
		if r.AccountNumber != "" {
			s.WithAccountNumber++
		}
	}

	if len(rows) > 0 {
		s.MeanAmount = s.TotalAmount.Div(decimal.NewFromInt(int64(len(rows))))
	}

	for status, n := range counts {
		s.StatusCounts = append(s.StatusCounts, StatusCount{Status: status, Count: n})
	}
	sort.Slice(s.StatusCounts, func(i, j int) bool {
		if s.StatusCounts[i].Count != s.StatusCounts[j].Count {
			return s.StatusCounts[i].Count > s.StatusCounts[j].Count
		}
		return s.StatusCounts[i].Status < s.StatusCounts[j].Status
	})

	return s
}

// Log writes the summary as a block of info lines.
func (s Summary) Log(logger zerolog.Logger) {
	logger.Info().
		Int("rows", s.Rows).
		Strs("columns", s.Columns).
		Msg("Data summary")

	if s.Rows == 0 {
		return
	}

	if s.DateMin != "" {
		logger.Info().Str("from", s.DateMin).Str("to", s.DateMax).Msg("Date range")
	}
	logger.Info().
		Str("total", s.TotalAmount.StringFixed(2)).
		Str("average", s.MeanAmount.StringFixed(2)).
		Msg("Amount")

	for _, c := range s.StatusCounts {
		logger.Info().Str("status", c.Status).Int("count", c.Count).Msg("Status distribution")
	}

	logger.Info().
		Int("with_utr", s.WithUTR).
		Int("with_account_number", s.WithAccountNumber).
		Msg("Field coverage")
}
