package sheets

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type SkipReason string

const (
	SkipBlank      SkipReason = "blank"
	SkipNotANumber SkipReason = "not_a_number"
	SkipOutOfRange SkipReason = "out_of_range"
	SkipBadAmount  SkipReason = "invalid_amount"
)

// CellSkip records a cell that produced no candidate.
type CellSkip struct {
	Row    int        `json:"row"`
	Column string     `json:"column"`
	Value  string     `json:"value"`
	Reason SkipReason `json:"reason"`
}

// Blank reports whether the skip came from a sentinel rather than bad data.
func (s CellSkip) Blank() bool {
	return s.Reason == SkipBlank
}

// GradeCandidate is a mark for one student and one subject column, not yet
// resolved to internal ids.
type GradeCandidate struct {
	Row                int
	RegistrationNumber string
	Subject            string
	Marks              int
}

type GradeBatch struct {
	Candidates []GradeCandidate
	Skipped    []CellSkip
}

// GradeCandidates fans each row out into one candidate per value column.
// With subject set, only the mark column is read and every candidate is
// tagged with subject.
func GradeCandidates(s *Sheet, subject string) (*GradeBatch, error) {
	columns := s.ValueColumns()
	subject = strings.TrimSpace(subject)
	if subject != "" {
		col := s.Find(func(h string) bool {
			return h == "mark" || h == "marks" || h == "score" || strings.Contains(h, "mark")
		})
		if col == "" {
			return nil, ErrMarkColumnNotFound
		}
		columns = []string{col}
	}

	batch := &GradeBatch{}
	for _, row := range s.Rows {
		reg := row.Get(s.Identity)
		for _, col := range columns {
			raw := row.Get(col)
			if IsBlank(raw) {
				batch.Skipped = append(batch.Skipped, CellSkip{Row: row.Number, Column: col, Value: raw, Reason: SkipBlank})
				continue
			}
			marks, ok := ParseMark(raw)
			if !ok {
				reason := SkipNotANumber
				if isWholeNumber(raw) {
					reason = SkipOutOfRange
				}
				batch.Skipped = append(batch.Skipped, CellSkip{Row: row.Number, Column: col, Value: raw, Reason: reason})
				continue
			}
			name := col
			if subject != "" {
				name = subject
			}
			batch.Candidates = append(batch.Candidates, GradeCandidate{
				Row:                row.Number,
				RegistrationNumber: reg,
				Subject:            name,
				Marks:              marks,
			})
		}
	}
	return batch, nil
}

type PaymentCandidate struct {
	Row                int
	RegistrationNumber string
	Amount             decimal.Decimal
	PaidAt             string
	Reference          string
}

type PaymentBatch struct {
	Candidates []PaymentCandidate
	Skipped    []CellSkip
}

// PaymentCandidates produces one candidate per row from the amount column
// and the optional date and reference columns.
func PaymentCandidates(s *Sheet, now time.Time) (*PaymentBatch, error) {
	amountCol := s.Find(func(h string) bool { return strings.Contains(h, "amount") })
	if amountCol == "" {
		return nil, ErrAmountColumnNotFound
	}
	dateCol := s.Find(func(h string) bool { return strings.Contains(h, "date") })
	refCol := s.Find(func(h string) bool {
		return strings.Contains(h, "ref") || strings.Contains(h, "receipt")
	})
	if refCol == s.Identity {
		refCol = ""
	}

	batch := &PaymentBatch{}
	for _, row := range s.Rows {
		raw := row.Get(amountCol)
		if IsBlank(raw) {
			batch.Skipped = append(batch.Skipped, CellSkip{Row: row.Number, Column: amountCol, Value: raw, Reason: SkipBlank})
			continue
		}
		amount, ok := ParseAmount(raw)
		if !ok {
			batch.Skipped = append(batch.Skipped, CellSkip{Row: row.Number, Column: amountCol, Value: raw, Reason: SkipBadAmount})
			continue
		}
		c := PaymentCandidate{
			Row:                row.Number,
			RegistrationNumber: row.Get(s.Identity),
			Amount:             amount,
			PaidAt:             now.UTC().Format(time.RFC3339),
		}
		if dateCol != "" {
			c.PaidAt = CoerceDate(row.Get(dateCol), now)
		}
		if refCol != "" && !IsBlank(row.Get(refCol)) {
			c.Reference = row.Get(refCol)
		}
		batch.Candidates = append(batch.Candidates, c)
	}
	return batch, nil
}

func isWholeNumber(v string) bool {
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	return err == nil && d.IsInteger()
}
