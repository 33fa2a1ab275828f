package academics

import (
	"context"
	"fmt"
	"time"

	"SchoolPortal/api/academics/archive"
	"SchoolPortal/api/academics/models"
	"SchoolPortal/api/academics/reconcile"
	"SchoolPortal/api/constants"
	"SchoolPortal/internal/checksum"
	"SchoolPortal/internal/logger"
	"SchoolPortal/internal/notification"

	"github.com/google/uuid"
)

// History is the import run log.
type History interface {
	RecordRun(ctx context.Context, run models.ImportRun) error
	FindByHash(ctx context.Context, kind, hash string) (*models.ImportRun, error)
	Recent(ctx context.Context, limit, offset int) ([]models.ImportRun, error)
}

// Outcome is a run summary plus what the service adds around the run.
type Outcome struct {
	*reconcile.Summary
	FileHash    string     `json:"file_hash"`
	DuplicateOf *uuid.UUID `json:"duplicate_of,omitempty"`
	Warning     string     `json:"warning,omitempty"`
	ArchivePath string     `json:"archive_path,omitempty"`
	Message     string     `json:"message"`
}

// Importer wraps the reconciler with upload bookkeeping: history, archive,
// duplicate flagging and operator notifications. None of these can fail a
// run.
type Importer struct {
	reconciler *reconcile.Reconciler
	history    History
	archiver   archive.Archiver
	notes      *notification.NotificationService
}

func NewImporter(r *reconcile.Reconciler, history History, archiver archive.Archiver, notes *notification.NotificationService) *Importer {
	if archiver == nil {
		archiver = archive.Noop{}
	}
	return &Importer{reconciler: r, history: history, archiver: archiver, notes: notes}
}

func (im *Importer) ImportGrades(ctx context.Context, operator string, in reconcile.GradeImport) (*Outcome, error) {
	hash := checksum.Sum(in.Data)
	sum, err := im.reconciler.ImportGrades(ctx, in)
	return im.complete(ctx, operator, hash, in.Data, sum, nil, err)
}

// ImportPayments flags a file whose hash matches an earlier successful
// payment run. The import still goes ahead.
func (im *Importer) ImportPayments(ctx context.Context, operator string, in reconcile.PaymentImport) (*Outcome, error) {
	hash := checksum.Sum(in.Data)
	previous := im.findPrevious(ctx, string(reconcile.KindPayments), hash)
	sum, err := im.reconciler.ImportPayments(ctx, in)
	return im.complete(ctx, operator, hash, in.Data, sum, previous, err)
}

func (im *Importer) complete(ctx context.Context, operator, hash string, data []byte, sum *reconcile.Summary, previous *models.ImportRun, runErr error) (*Outcome, error) {
	out := &Outcome{Summary: sum, FileHash: hash, Message: sum.Message()}
	if previous != nil {
		id := previous.ID
		out.DuplicateOf = &id
		out.Warning = fmt.Sprintf(constants.ErrDuplicatePaymentRun, previous.CreatedAt.Format(constants.DateTimeFormat), previous.ID)
		logger.Audit("[Import %s] file hash %s matches run %s", sum.RunID, hash, previous.ID)
	}

	if p, err := im.archiver.Archive(ctx, string(sum.Kind), sum.RunID, sum.FileName, data); err != nil {
		logger.Audit("[Import %s] archive failed: %v", sum.RunID, err)
	} else {
		out.ArchivePath = p
	}

	if im.history != nil {
		if err := im.history.RecordRun(ctx, historyRow(sum, hash, operator)); err != nil {
			logger.Audit("[Import %s] history write failed: %v", sum.RunID, err)
		}
	}

	if im.notes != nil {
		level := notification.LevelInfo
		switch {
		case runErr != nil:
			level = notification.LevelError
		case out.Warning != "" || sum.Skipped() > 0:
			level = notification.LevelWarning
		}
		msg := out.Message
		if out.Warning != "" {
			msg += ". " + out.Warning
		}
		im.notes.AddNotification(level, msg, sum.RunID.String())
	}
	return out, runErr
}

func (im *Importer) findPrevious(ctx context.Context, kind, hash string) *models.ImportRun {
	if im.history == nil {
		return nil
	}
	run, err := im.history.FindByHash(ctx, kind, hash)
	if err != nil {
		logger.Audit("[Import] duplicate lookup failed for %s: %v", hash, err)
		return nil
	}
	return run
}

func historyRow(sum *reconcile.Summary, hash, operator string) models.ImportRun {
	created := sum.StartedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return models.ImportRun{
		ID:                     sum.RunID,
		Kind:                   string(sum.Kind),
		FileName:               sum.FileName,
		FileHash:               hash,
		Term:                   sum.Term,
		Year:                   sum.Year,
		State:                  string(sum.State),
		Imported:               sum.Imported,
		SkippedBlank:           sum.SkippedBlank,
		SkippedInvalid:         sum.SkippedInvalid,
		SkippedStudentNotFound: sum.SkippedStudentNotFound,
		SkippedSubjectNotFound: sum.SkippedSubjectNotFound,
		Error:                  sum.Error,
		CreatedBy:              operator,
		CreatedAt:              created,
	}
}
