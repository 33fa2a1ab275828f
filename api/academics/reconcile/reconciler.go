// Package reconcile resolves parsed spreadsheet candidates against the
// student roster and subject list and commits them in a single store call.
package reconcile

import (
	"context"
	"errors"
	"strings"
	"time"

	"SchoolPortal/api/academics/models"
	"SchoolPortal/api/academics/sheets"
	"SchoolPortal/internal/logger"

	"github.com/google/uuid"
)

var ErrInvalidPeriod = errors.New("term and year are required")

// Directory is read once per run to build the identity and subject maps.
type Directory interface {
	ListStudents(ctx context.Context) ([]models.Student, error)
	ListSubjects(ctx context.Context) ([]models.Subject, error)
}

// GradeWriter must upsert on (student_id, subject_id, term, year).
type GradeWriter interface {
	UpsertGrades(ctx context.Context, records []models.GradeRecord) error
}

// PaymentWriter appends; it has no conflict key.
type PaymentWriter interface {
	InsertPayments(ctx context.Context, records []models.PaymentRecord) error
}

type Store interface {
	Directory
	GradeWriter
	PaymentWriter
}

type GradeImport struct {
	FileName string
	Data     []byte
	Term     string
	Year     int
	// Subject selects single-subject mode; empty means one column per subject.
	Subject string
}

type PaymentImport struct {
	FileName string
	Data     []byte
	Term     string
	Year     int
}

type Reconciler struct {
	store Store
	now   func() time.Time
}

func NewReconciler(store Store) *Reconciler {
	return &Reconciler{store: store, now: time.Now}
}

// WithClock replaces the clock used for blank payment dates and run
// timestamps.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// ImportGrades runs parse, resolve and a single upsert. The summary is
// always returned; err is non-nil when the run ends failed.
func (r *Reconciler) ImportGrades(ctx context.Context, in GradeImport) (*Summary, error) {
	run := newRun(KindGrades, in.FileName, strings.TrimSpace(in.Term), in.Year, r.now)
	if err := validPeriod(in.Term, in.Year); err != nil {
		return run.fail(err)
	}

	batch, err := ParseGrades(in.Data, in.FileName, in.Subject)
	if err != nil {
		return run.fail(err)
	}
	if err := run.advance(StateReconciling); err != nil {
		return run.fail(err)
	}

	students, err := r.store.ListStudents(ctx)
	if err != nil {
		return run.fail(&PersistenceError{Op: "load students", Err: err})
	}
	subjects, err := r.store.ListSubjects(ctx)
	if err != nil {
		return run.fail(&PersistenceError{Op: "load subjects", Err: err})
	}

	records := ResolveGrades(batch, NewIdentityMap(students), NewSubjectMap(subjects), run.summary)
	if len(records) == 0 {
		return run.finish(0)
	}
	if err := r.store.UpsertGrades(ctx, records); err != nil {
		return run.fail(&PersistenceError{Op: "upsert grades", Err: err})
	}
	return run.finish(len(records))
}

// ImportPayments runs parse, resolve and a single append. Re-importing the
// same file appends the same payments again.
func (r *Reconciler) ImportPayments(ctx context.Context, in PaymentImport) (*Summary, error) {
	run := newRun(KindPayments, in.FileName, strings.TrimSpace(in.Term), in.Year, r.now)
	if err := validPeriod(in.Term, in.Year); err != nil {
		return run.fail(err)
	}

	batch, err := ParsePayments(in.Data, in.FileName, r.now())
	if err != nil {
		return run.fail(err)
	}
	if err := run.advance(StateReconciling); err != nil {
		return run.fail(err)
	}

	students, err := r.store.ListStudents(ctx)
	if err != nil {
		return run.fail(&PersistenceError{Op: "load students", Err: err})
	}

	records := ResolvePayments(batch, NewIdentityMap(students), run.ID(), run.summary)
	if len(records) == 0 {
		return run.finish(0)
	}
	if err := r.store.InsertPayments(ctx, records); err != nil {
		return run.fail(&PersistenceError{Op: "insert payments", Err: err})
	}
	return run.finish(len(records))
}

// ParseGrades is the parse stage for grade files.
func ParseGrades(data []byte, fileName, subject string) (*sheets.GradeBatch, error) {
	sheet, err := parseFile(data, fileName)
	if err != nil {
		return nil, err
	}
	return sheets.GradeCandidates(sheet, subject)
}

// ParsePayments is the parse stage for payment files.
func ParsePayments(data []byte, fileName string, now time.Time) (*sheets.PaymentBatch, error) {
	sheet, err := parseFile(data, fileName)
	if err != nil {
		return nil, err
	}
	return sheets.PaymentCandidates(sheet, now)
}

func parseFile(data []byte, fileName string) (*sheets.Sheet, error) {
	rows, err := sheets.ReadRows(data, fileName)
	if err != nil {
		return nil, err
	}
	return sheets.Parse(rows)
}

// ResolveGrades maps candidates to grade records, counting every dropped
// candidate on sum. When a key appears more than once the last row wins,
// so the commit never touches one key twice.
func ResolveGrades(batch *sheets.GradeBatch, students IdentityMap, subjects SubjectMap, sum *Summary) []models.GradeRecord {
	sum.countCellSkips(batch.Skipped)

	records := make([]models.GradeRecord, 0, len(batch.Candidates))
	index := make(map[models.GradeKey]int, len(batch.Candidates))
	for _, c := range batch.Candidates {
		studentID, ok := students.Lookup(c.RegistrationNumber)
		if !ok {
			sum.studentNotFound(c.RegistrationNumber)
			continue
		}
		subjectID, ok := subjects.Lookup(c.Subject)
		if !ok {
			sum.subjectNotFound(c.Subject)
			continue
		}
		rec := models.GradeRecord{
			StudentID: studentID,
			SubjectID: subjectID,
			Term:      sum.Term,
			Year:      sum.Year,
			Marks:     c.Marks,
			Grade:     DeriveGrade(c.Marks),
		}
		if i, dup := index[rec.GradeKey()]; dup {
			logger.Audit("[Import %s] row %d overrides an earlier mark for %s / %s", sum.RunID, c.Row, c.RegistrationNumber, c.Subject)
			records[i] = rec
			continue
		}
		index[rec.GradeKey()] = len(records)
		records = append(records, rec)
	}
	return records
}

// ResolvePayments maps candidates to payment records.
func ResolvePayments(batch *sheets.PaymentBatch, students IdentityMap, runID uuid.UUID, sum *Summary) []models.PaymentRecord {
	sum.countCellSkips(batch.Skipped)

	records := make([]models.PaymentRecord, 0, len(batch.Candidates))
	for _, c := range batch.Candidates {
		studentID, ok := students.Lookup(c.RegistrationNumber)
		if !ok {
			sum.studentNotFound(c.RegistrationNumber)
			continue
		}
		records = append(records, models.PaymentRecord{
			StudentID:   studentID,
			Amount:      c.Amount,
			PaidAt:      c.PaidAt,
			Reference:   c.Reference,
			Term:        sum.Term,
			Year:        sum.Year,
			ImportRunID: runID,
		})
	}
	return records
}

func validPeriod(term string, year int) error {
	if strings.TrimSpace(term) == "" || year < 1900 || year > 9999 {
		return ErrInvalidPeriod
	}
	return nil
}
