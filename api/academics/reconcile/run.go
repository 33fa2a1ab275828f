package reconcile

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"SchoolPortal/api/academics/sheets"
	"SchoolPortal/internal/logger"

	"github.com/google/uuid"
)

type Kind string

const (
	KindGrades   Kind = "grades"
	KindPayments Kind = "payments"
)

// State is the lifecycle of one import run: parsing, then reconciling, then
// done or failed. There is no retry state.
type State string

const (
	StateParsing     State = "parsing"
	StateReconciling State = "reconciling"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

var ErrInvalidTransition = errors.New("invalid import run state transition")

var transitions = map[State][]State{
	StateParsing:     {StateReconciling, StateFailed},
	StateReconciling: {StateDone, StateFailed},
}

// PersistenceError wraps a failed store call. Its message is the store's
// message, unchanged, so the operator sees what the database said.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return e.Err.Error() }

func (e *PersistenceError) Unwrap() error { return e.Err }

// Summary is what the operator sees at the end of a run.
type Summary struct {
	RunID                  uuid.UUID         `json:"run_id"`
	Kind                   Kind              `json:"kind"`
	State                  State             `json:"state"`
	FileName               string            `json:"file_name"`
	Term                   string            `json:"term"`
	Year                   int               `json:"year"`
	Imported               int               `json:"imported"`
	SkippedBlank           int               `json:"skipped_blank"`
	SkippedInvalid         int               `json:"skipped_invalid"`
	SkippedStudentNotFound int               `json:"skipped_student_not_found"`
	SkippedSubjectNotFound int               `json:"skipped_subject_not_found"`
	InvalidCells           []sheets.CellSkip `json:"invalid_cells,omitempty"`
	UnknownStudents        []string          `json:"unknown_students,omitempty"`
	UnknownSubjects        []string          `json:"unknown_subjects,omitempty"`
	Error                  string            `json:"error,omitempty"`
	StartedAt              time.Time         `json:"started_at"`
	FinishedAt             time.Time         `json:"finished_at"`
}

// Skipped is the total of records dropped for any reason other than a
// blank cell.
func (s *Summary) Skipped() int {
	return s.SkippedInvalid + s.SkippedStudentNotFound + s.SkippedSubjectNotFound
}

// Message renders the one-line operator message for the run.
func (s *Summary) Message() string {
	if s.State == StateFailed {
		return fmt.Sprintf("Import of %s failed: %s", s.FileName, s.Error)
	}
	msg := fmt.Sprintf("Imported %d %s record(s) from %s (skipped: %d invalid, %d student not found",
		s.Imported, strings.TrimSuffix(string(s.Kind), "s"), s.FileName, s.SkippedInvalid, s.SkippedStudentNotFound)
	if s.Kind == KindGrades {
		msg += fmt.Sprintf(", %d subject not found", s.SkippedSubjectNotFound)
	}
	return msg + ")"
}

func (s *Summary) countCellSkips(skips []sheets.CellSkip) {
	for _, sk := range skips {
		if sk.Blank() {
			s.SkippedBlank++
			continue
		}
		s.SkippedInvalid++
		s.InvalidCells = append(s.InvalidCells, sk)
		logger.Audit("[Import %s] row %d column %q skipped: %s (%q)", s.RunID, sk.Row, sk.Column, sk.Reason, sk.Value)
	}
}

func (s *Summary) studentNotFound(reg string) {
	s.SkippedStudentNotFound++
	s.UnknownStudents = appendUnique(s.UnknownStudents, reg)
}

func (s *Summary) subjectNotFound(subject string) {
	s.SkippedSubjectNotFound++
	s.UnknownSubjects = appendUnique(s.UnknownSubjects, subject)
}

// Run tracks one import through its states.
type Run struct {
	summary *Summary
	now     func() time.Time
}

func newRun(kind Kind, fileName, term string, year int, now func() time.Time) *Run {
	r := &Run{
		summary: &Summary{
			RunID:     uuid.New(),
			Kind:      kind,
			State:     StateParsing,
			FileName:  fileName,
			Term:      term,
			Year:      year,
			StartedAt: now().UTC(),
		},
		now: now,
	}
	logger.Audit("[Import %s] %s run started for %s (%s %d)", r.summary.RunID, kind, fileName, term, year)
	return r
}

func (r *Run) ID() uuid.UUID { return r.summary.RunID }

func (r *Run) State() State { return r.summary.State }

func (r *Run) advance(next State) error {
	cur := r.summary.State
	for _, allowed := range transitions[cur] {
		if allowed == next {
			r.summary.State = next
			logger.Audit("[Import %s] %s -> %s", r.summary.RunID, cur, next)
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur, next)
}

// fail moves the run to failed and returns the summary with err.
func (r *Run) fail(err error) (*Summary, error) {
	if advErr := r.advance(StateFailed); advErr != nil {
		logger.Audit("[Import %s] %v", r.summary.RunID, advErr)
	}
	r.summary.Error = err.Error()
	r.summary.FinishedAt = r.now().UTC()
	logger.Audit("[Import %s] failed: %v", r.summary.RunID, err)
	return r.summary, err
}

func (r *Run) finish(imported int) (*Summary, error) {
	if err := r.advance(StateDone); err != nil {
		return r.fail(err)
	}
	r.summary.Imported = imported
	r.summary.FinishedAt = r.now().UTC()
	logger.Audit("[Import %s] %s", r.summary.RunID, r.summary.Message())
	return r.summary, nil
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
