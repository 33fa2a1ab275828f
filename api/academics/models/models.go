package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Student is the roster entry a spreadsheet row is joined to through its
// registration number.
type Student struct {
	ID                 string `json:"id" db:"id"`
	RegistrationNumber string `json:"registration_number" db:"registration_number"`
	Name               string `json:"name" db:"name"`
	ClassLabel         string `json:"class_label" db:"class_label"`
}

type Subject struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// GradeRecord is unique on (StudentID, SubjectID, Term, Year).
type GradeRecord struct {
	StudentID string `json:"student_id" db:"student_id"`
	SubjectID string `json:"subject_id" db:"subject_id"`
	Term      string `json:"term" db:"term"`
	Year      int    `json:"year" db:"year"`
	Marks     int    `json:"marks" db:"marks"`
	Grade     string `json:"grade" db:"grade"`
}

// GradeKey returns the composite key a grade upsert conflicts on.
func (g GradeRecord) GradeKey() GradeKey {
	return GradeKey{StudentID: g.StudentID, SubjectID: g.SubjectID, Term: g.Term, Year: g.Year}
}

type GradeKey struct {
	StudentID string
	SubjectID string
	Term      string
	Year      int
}

// PaymentRecord is append-only; there is no natural key.
type PaymentRecord struct {
	StudentID   string          `json:"student_id" db:"student_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	PaidAt      string          `json:"paid_at" db:"paid_at"`
	Reference   string          `json:"reference" db:"reference"`
	Term        string          `json:"term" db:"term"`
	Year        int             `json:"year" db:"year"`
	ImportRunID uuid.UUID       `json:"import_run_id" db:"import_run_id"`
}

// ImportRun is the history row written once a run reaches done or failed.
type ImportRun struct {
	ID                     uuid.UUID `json:"id" db:"id"`
	Kind                   string    `json:"kind" db:"kind"`
	FileName               string    `json:"file_name" db:"file_name"`
	FileHash               string    `json:"file_hash" db:"file_hash"`
	Term                   string    `json:"term" db:"term"`
	Year                   int       `json:"year" db:"year"`
	State                  string    `json:"state" db:"state"`
	Imported               int       `json:"imported" db:"imported"`
	SkippedBlank           int       `json:"skipped_blank" db:"skipped_blank"`
	SkippedInvalid         int       `json:"skipped_invalid" db:"skipped_invalid"`
	SkippedStudentNotFound int       `json:"skipped_student_not_found" db:"skipped_student_not_found"`
	SkippedSubjectNotFound int       `json:"skipped_subject_not_found" db:"skipped_subject_not_found"`
	Error                  string    `json:"error,omitempty" db:"error"`
	CreatedBy              string    `json:"created_by" db:"created_by"`
	CreatedAt              time.Time `json:"created_at" db:"created_at"`
}
