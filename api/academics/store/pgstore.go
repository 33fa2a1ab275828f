// Package store persists students, subjects, grades and payments in
// PostgreSQL (pgx) and keeps the import run history (database/sql).
package store

import (
	"context"
	"fmt"
	"log"
	"strings"

	"SchoolPortal/api/academics/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	upsertGradeSQL = `INSERT INTO public.grades
		(student_id, subject_id, term, year, marks, grade, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (student_id, subject_id, term, year)
		DO UPDATE SET marks = EXCLUDED.marks, grade = EXCLUDED.grade, updated_at = now()`

	insertPaymentSQL = `INSERT INTO public.fee_payments
		(student_id, amount, paid_at, reference, term, year, import_run_id)
		VALUES ($1, $2::numeric, $3, NULLIF($4, ''), $5, $6, $7)`
)

// PgStore is the academic data store.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) ListStudents(ctx context.Context) ([]models.Student, error) {
	return s.queryStudents(ctx, `SELECT id::text, registration_number, name, COALESCE(class_label, '')
		FROM public.students`)
}

// ListClassStudents matches the class label case-insensitively.
func (s *PgStore) ListClassStudents(ctx context.Context, class string) ([]models.Student, error) {
	return s.queryStudents(ctx, `SELECT id::text, registration_number, name, COALESCE(class_label, '')
		FROM public.students
		WHERE lower(class_label) = lower($1)
		ORDER BY name`, strings.TrimSpace(class))
}

func (s *PgStore) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	return s.querySubjects(ctx, `SELECT id::text, name FROM public.subjects ORDER BY name`)
}

func (s *PgStore) ListClassSubjects(ctx context.Context, class string) ([]models.Subject, error) {
	return s.querySubjects(ctx, `SELECT s.id::text, s.name
		FROM public.class_subjects cs
		JOIN public.subjects s ON s.id = cs.subject_id
		WHERE lower(cs.class_label) = lower($1)
		ORDER BY s.name`, strings.TrimSpace(class))
}

// UpsertGrades writes every record in one transaction. The first failing
// statement aborts the batch and its error is returned unchanged.
func (s *PgStore) UpsertGrades(ctx context.Context, records []models.GradeRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(upsertGradeSQL, r.StudentID, r.SubjectID, r.Term, r.Year, r.Marks, r.Grade)
	}
	return s.sendInTx(ctx, batch, "grades")
}

// InsertPayments appends every record in one transaction.
func (s *PgStore) InsertPayments(ctx context.Context, records []models.PaymentRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(insertPaymentSQL, r.StudentID, r.Amount.String(), r.PaidAt, r.Reference, r.Term, r.Year, r.ImportRunID)
	}
	return s.sendInTx(ctx, batch, "fee_payments")
}

func (s *PgStore) sendInTx(ctx context.Context, batch *pgx.Batch, table string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("operation cancelled: %w", ctx.Err())
	default:
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			log.Printf("[Store] rollback %s: %v", table, err)
		}
	}()

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			log.Printf("[Store] %s record %d failed: %v", table, i+1, err)
			return err
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	log.Printf("[Store] wrote %d %s rows", batch.Len(), table)
	return nil
}

func (s *PgStore) queryStudents(ctx context.Context, query string, args ...interface{}) ([]models.Student, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Student
	for rows.Next() {
		var st models.Student
		if err := rows.Scan(&st.ID, &st.RegistrationNumber, &st.Name, &st.ClassLabel); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *PgStore) querySubjects(ctx context.Context, query string, args ...interface{}) ([]models.Subject, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Subject
	for rows.Next() {
		var sub models.Subject
		if err := rows.Scan(&sub.ID, &sub.Name); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}
