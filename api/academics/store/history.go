package store

import (
	"context"
	"database/sql"
	"errors"

	"SchoolPortal/api/academics/models"

	"github.com/google/uuid"
)

// HistoryStore keeps one row per finished import run.
type HistoryStore struct {
	db *sql.DB
}

func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

func (h *HistoryStore) RecordRun(ctx context.Context, run models.ImportRun) error {
	_, err := h.db.ExecContext(ctx, `INSERT INTO public.import_runs
		(id, kind, file_name, file_hash, term, year, state, imported,
		 skipped_blank, skipped_invalid, skipped_student_not_found, skipped_subject_not_found,
		 error, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, ''), $14, $15)`,
		run.ID, run.Kind, run.FileName, run.FileHash, run.Term, run.Year, run.State, run.Imported,
		run.SkippedBlank, run.SkippedInvalid, run.SkippedStudentNotFound, run.SkippedSubjectNotFound,
		run.Error, run.CreatedBy, run.CreatedAt)
	return err
}

// FindByHash returns the latest successful run of kind with the same file
// hash, or nil when there is none.
func (h *HistoryStore) FindByHash(ctx context.Context, kind, hash string) (*models.ImportRun, error) {
	row := h.db.QueryRowContext(ctx, `SELECT `+runColumns+`
		FROM public.import_runs
		WHERE kind = $1 AND file_hash = $2 AND state = 'done'
		ORDER BY created_at DESC LIMIT 1`, kind, hash)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (h *HistoryStore) Recent(ctx context.Context, limit, offset int) ([]models.ImportRun, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT `+runColumns+`
		FROM public.import_runs
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.ImportRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

const runColumns = `id, kind, file_name, file_hash, term, year, state, imported,
	skipped_blank, skipped_invalid, skipped_student_not_found, skipped_subject_not_found,
	COALESCE(error, ''), created_by, created_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*models.ImportRun, error) {
	var run models.ImportRun
	var id string
	err := s.Scan(&id, &run.Kind, &run.FileName, &run.FileHash, &run.Term, &run.Year, &run.State, &run.Imported,
		&run.SkippedBlank, &run.SkippedInvalid, &run.SkippedStudentNotFound, &run.SkippedSubjectNotFound,
		&run.Error, &run.CreatedBy, &run.CreatedAt)
	if err != nil {
		return nil, err
	}
	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	return &run, nil
}
