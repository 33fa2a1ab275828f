package academics

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"SchoolPortal/api"
	"SchoolPortal/api/academics/reconcile"
	"SchoolPortal/api/academics/sheets"
	"SchoolPortal/api/academics/templates"
	"SchoolPortal/api/constants"
	"SchoolPortal/api/utils"
	"SchoolPortal/internal/config"
	"SchoolPortal/internal/notification"
)

// Handler serves the academics endpoints.
type Handler struct {
	templates      *templates.Generator
	importer       *Importer
	history        History
	notes          *notification.NotificationService
	maxUploadBytes int64
}

func NewHandler(gen *templates.Generator, importer *Importer, history History, notes *notification.NotificationService, maxUploadMB int) *Handler {
	if maxUploadMB <= 0 {
		maxUploadMB = config.DefaultMaxUploadMB
	}
	return &Handler{
		templates:      gen,
		importer:       importer,
		history:        history,
		notes:          notes,
		maxUploadBytes: int64(maxUploadMB) << 20,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Academics Service is active"))
}

// GradeTemplate handles GET /academics/grades/template
func (h *Handler) GradeTemplate(w http.ResponseWriter, r *http.Request) {
	req, ok := templateRequest(w, r)
	if !ok {
		return
	}
	tpl, err := h.templates.GradeTemplate(r.Context(), req)
	h.writeTemplate(w, tpl, err)
}

// PaymentTemplate handles GET /academics/payments/template
func (h *Handler) PaymentTemplate(w http.ResponseWriter, r *http.Request) {
	req, ok := templateRequest(w, r)
	if !ok {
		return
	}
	req.Subject = ""
	tpl, err := h.templates.PaymentTemplate(r.Context(), req)
	h.writeTemplate(w, tpl, err)
}

func (h *Handler) writeTemplate(w http.ResponseWriter, tpl *templates.Template, err error) {
	switch {
	case errors.Is(err, templates.ErrNoSubjectsConfigured):
		api.RespondWithError(w, http.StatusUnprocessableEntity, constants.ErrNoSubjectsConfigured)
		return
	case errors.Is(err, templates.ErrRequestIncomplete):
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrTemplateRequest)
		return
	case err != nil:
		api.LogError("template generation failed: %v", err)
		api.RespondWithError(w, http.StatusInternalServerError, constants.ErrTemplateFailed)
		return
	}
	w.Header().Set(constants.ContentTypeText, constants.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", tpl.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(tpl.Content)))
	w.WriteHeader(http.StatusOK)
	w.Write(tpl.Content)
}

func templateRequest(w http.ResponseWriter, r *http.Request) (templates.Request, bool) {
	q := r.URL.Query()
	year, err := parseYear(q.Get(constants.QueryYear))
	if err != nil {
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidYear)
		return templates.Request{}, false
	}
	return templates.Request{
		Class:   q.Get(constants.QueryClass),
		Subject: q.Get(constants.QuerySubject),
		Term:    q.Get(constants.QueryTerm),
		Year:    year,
	}, true
}

// ImportGrades handles POST /academics/grades/import
func (h *Handler) ImportGrades(w http.ResponseWriter, r *http.Request) {
	up, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	out, err := h.importer.ImportGrades(r.Context(), api.GetOperatorFromCtx(r.Context()), reconcile.GradeImport{
		FileName: up.fileName,
		Data:     up.data,
		Term:     up.term,
		Year:     up.year,
		Subject:  r.FormValue(constants.QuerySubject),
	})
	respondWithOutcome(w, out, err)
}

// ImportPayments handles POST /academics/payments/import
func (h *Handler) ImportPayments(w http.ResponseWriter, r *http.Request) {
	up, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	out, err := h.importer.ImportPayments(r.Context(), api.GetOperatorFromCtx(r.Context()), reconcile.PaymentImport{
		FileName: up.fileName,
		Data:     up.data,
		Term:     up.term,
		Year:     up.year,
	})
	respondWithOutcome(w, out, err)
}

// RecentImports handles GET /academics/imports
func (h *Handler) RecentImports(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		api.RespondWithPayload(w, true, "", []interface{}{})
		return
	}
	page, err := utils.ExtractPagination(r, 20, config.RecentImportsLimit)
	if err != nil {
		api.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	runs, err := h.history.Recent(r.Context(), page.Limit, page.Offset)
	if err != nil {
		api.LogError("recent imports: %v", err)
		api.RespondWithError(w, http.StatusInternalServerError, constants.ErrDB)
		return
	}
	api.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		constants.ValueSuccess: true,
		"rows":                 runs,
		"pagination":           page,
	})
}

// Notifications handles GET /academics/notifications
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	if h.notes == nil {
		api.RespondWithPayload(w, true, "", []interface{}{})
		return
	}
	api.RespondWithPayload(w, true, "", h.notes.GetNotifications())
}

type upload struct {
	fileName string
	data     []byte
	term     string
	year     int
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (*upload, bool) {
	limit := h.maxUploadBytes + (1 << 20)
	if r.ContentLength > limit {
		api.RespondWithError(w, http.StatusRequestEntityTooLarge, constants.FormatError(constants.ErrFileTooLarge, h.maxUploadBytes>>20))
		return nil, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.RespondWithError(w, http.StatusRequestEntityTooLarge, constants.FormatError(constants.ErrFileTooLarge, h.maxUploadBytes>>20))
			return nil, false
		}
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrFileRequired)
		return nil, false
	}

	term := strings.TrimSpace(r.FormValue(constants.QueryTerm))
	yearRaw := strings.TrimSpace(r.FormValue(constants.QueryYear))
	if term == "" || yearRaw == "" {
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrTermYearRequired)
		return nil, false
	}
	year, err := parseYear(yearRaw)
	if err != nil {
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidYear)
		return nil, false
	}

	file, header, err := r.FormFile(constants.FormFieldFile)
	if err != nil {
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrFileRequired)
		return nil, false
	}
	defer file.Close()
	if header.Size > h.maxUploadBytes {
		api.RespondWithError(w, http.StatusRequestEntityTooLarge, constants.FormatError(constants.ErrFileTooLarge, h.maxUploadBytes>>20))
		return nil, false
	}
	data, err := io.ReadAll(file)
	if err != nil {
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrFileRequired)
		return nil, false
	}
	if len(data) == 0 {
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrEmptyFile)
		return nil, false
	}
	return &upload{fileName: header.Filename, data: data, term: term, year: year}, true
}

func respondWithOutcome(w http.ResponseWriter, out *Outcome, err error) {
	if err == nil {
		body := map[string]interface{}{
			constants.ValueSuccess: true,
			constants.ValueMessage: out.Message,
			constants.ValueSummary: out,
		}
		if out.Warning != "" {
			body[constants.ValueWarning] = out.Warning
		}
		api.RespondWithJSON(w, http.StatusOK, body)
		return
	}

	status, msg := importErrorStatus(err)
	api.LogError("import failed: %v", err)
	body := map[string]interface{}{
		constants.ValueSuccess: false,
		constants.ValueError:   msg,
	}
	if out != nil {
		body[constants.ValueSummary] = out
		body[constants.ValueMessage] = out.Message
	}
	api.RespondWithJSON(w, status, body)
}

// importErrorStatus maps a failed run to an HTTP status and operator message.
func importErrorStatus(err error) (int, string) {
	var perr *reconcile.PersistenceError
	switch {
	case errors.As(err, &perr):
		return http.StatusBadGateway, perr.Error()
	case errors.Is(err, sheets.ErrIdentityColumnNotFound):
		return http.StatusBadRequest, constants.ErrIdentityColumn
	case errors.Is(err, sheets.ErrAmountColumnNotFound):
		return http.StatusBadRequest, constants.ErrAmountColumn
	case errors.Is(err, sheets.ErrMarkColumnNotFound):
		return http.StatusBadRequest, constants.ErrMarkColumn
	case errors.Is(err, sheets.ErrEmptySheet):
		return http.StatusBadRequest, constants.ErrEmptyFile
	case errors.Is(err, sheets.ErrUnsupportedFile):
		return http.StatusBadRequest, constants.ErrInvalidFileFormat
	case errors.Is(err, reconcile.ErrInvalidPeriod):
		return http.StatusBadRequest, constants.ErrTermYearRequired
	}
	return http.StatusInternalServerError, err.Error()
}

func parseYear(v string) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || year < 1900 || year > 9999 {
		return 0, fmt.Errorf("invalid year %q", v)
	}
	return year, nil
}
