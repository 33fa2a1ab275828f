package academics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"SchoolPortal/api/academics/models"
	"SchoolPortal/api/academics/reconcile"
	"SchoolPortal/api/academics/templates"
	"SchoolPortal/internal/notification"
	"SchoolPortal/internal/session"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeStore struct {
	students  []models.Student
	subjects  []models.Subject
	grades    map[models.GradeKey]models.GradeRecord
	payments  []models.PaymentRecord
	upsertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		students: []models.Student{
			{ID: "stu-x", RegistrationNumber: "A1", Name: "X", ClassLabel: "Form 1"},
			{ID: "stu-y", RegistrationNumber: "A2", Name: "Y", ClassLabel: "Form 1"},
		},
		subjects: []models.Subject{{ID: "sub-math", Name: "Math"}, {ID: "sub-eng", Name: "English"}},
		grades:   map[models.GradeKey]models.GradeRecord{},
	}
}

func (f *fakeStore) ListStudents(ctx context.Context) ([]models.Student, error) { return f.students, nil }
func (f *fakeStore) ListSubjects(ctx context.Context) ([]models.Subject, error) { return f.subjects, nil }
func (f *fakeStore) ListClassStudents(ctx context.Context, class string) ([]models.Student, error) {
	return f.students, nil
}
func (f *fakeStore) ListClassSubjects(ctx context.Context, class string) ([]models.Subject, error) {
	return nil, nil
}

func (f *fakeStore) UpsertGrades(ctx context.Context, records []models.GradeRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, r := range records {
		f.grades[r.GradeKey()] = r
	}
	return nil
}

func (f *fakeStore) InsertPayments(ctx context.Context, records []models.PaymentRecord) error {
	f.payments = append(f.payments, records...)
	return nil
}

type fakeHistory struct {
	runs []models.ImportRun
}

func (h *fakeHistory) RecordRun(ctx context.Context, run models.ImportRun) error {
	h.runs = append(h.runs, run)
	return nil
}

func (h *fakeHistory) FindByHash(ctx context.Context, kind, hash string) (*models.ImportRun, error) {
	for i := len(h.runs) - 1; i >= 0; i-- {
		r := h.runs[i]
		if r.Kind == kind && r.FileHash == hash && r.State == "done" {
			return &r, nil
		}
	}
	return nil, nil
}

func (h *fakeHistory) Recent(ctx context.Context, limit, offset int) ([]models.ImportRun, error) {
	if offset >= len(h.runs) {
		return []models.ImportRun{}, nil
	}
	end := offset + limit
	if end > len(h.runs) {
		end = len(h.runs)
	}
	return h.runs[offset:end], nil
}

type fakeSessions struct{}

func (fakeSessions) Validate(id string) (*session.Session, error) {
	if id != "good" {
		return nil, errors.New("session not found")
	}
	return &session.Session{ID: id, UserID: "bursar", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

type testEnv struct {
	store   *fakeStore
	history *fakeHistory
	notes   *notification.NotificationService
	router  http.Handler
}

func newTestEnv() *testEnv {
	st := newFakeStore()
	hist := &fakeHistory{}
	notes := notification.NewNotificationService(10)
	importer := NewImporter(reconcile.NewReconciler(st), hist, nil, notes)
	h := NewHandler(templates.NewGenerator(st), importer, hist, notes, 1)
	return &testEnv{store: st, history: hist, notes: notes, router: NewRouter(h, fakeSessions{})}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, path, fileName string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Session-ID", "good")
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthIsOpen(t *testing.T) {
	env := newTestEnv()
	rec := env.do(httptest.NewRequest(http.MethodGet, "/academics/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEndpointsNeedSession(t *testing.T) {
	env := newTestEnv()
	req := httptest.NewRequest(http.MethodGet, "/academics/notifications", nil)
	assert.Equal(t, http.StatusUnauthorized, env.do(req).Code)

	req.Header.Set("X-Session-ID", "stale")
	assert.Equal(t, http.StatusUnauthorized, env.do(req).Code)
}

func TestGradeTemplateDownload(t *testing.T) {
	env := newTestEnv()
	req := httptest.NewRequest(http.MethodGet, "/academics/grades/template?class=Form+1&term=Term+1&year=2024", nil)
	req.Header.Set("X-Session-ID", "good")
	rec := env.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Form_1_ALL_SUBJECTS_Term_1_2024_TEMPLATE.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	assert.Equal(t, []string{"Reg Number", "Student Name", "Class", "Math", "English"}, rows[0])
	assert.Len(t, rows, 3)
}

func TestTemplateNoSubjectsConfigured(t *testing.T) {
	env := newTestEnv()
	env.store.subjects = nil
	req := httptest.NewRequest(http.MethodGet, "/academics/grades/template?class=Form+1&term=Term+1&year=2024", nil)
	req.Header.Set("X-Session-ID", "good")
	assert.Equal(t, http.StatusUnprocessableEntity, env.do(req).Code)
}

func TestTemplateBadYear(t *testing.T) {
	env := newTestEnv()
	req := httptest.NewRequest(http.MethodGet, "/academics/payments/template?class=Form+1&term=Term+1&year=soon", nil)
	req.Header.Set("X-Session-ID", "good")
	assert.Equal(t, http.StatusBadRequest, env.do(req).Code)
}

func TestGradeImportRoundTrip(t *testing.T) {
	env := newTestEnv()
	csv := []byte("Reg Number,Student Name,Math\nA1,X,85\n")
	fields := map[string]string{"term": "Term 1", "year": "2024"}

	for i := 0; i < 2; i++ {
		rec := env.do(uploadRequest(t, "/academics/grades/import", "marks.csv", csv, fields))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decode(t, rec)
		assert.Equal(t, true, body["success"])
		summary := body["summary"].(map[string]interface{})
		assert.Equal(t, float64(1), summary["imported"])
		assert.Equal(t, "done", summary["state"])
	}

	key := models.GradeKey{StudentID: "stu-x", SubjectID: "sub-math", Term: "Term 1", Year: 2024}
	require.Len(t, env.store.grades, 1)
	assert.Equal(t, "A", env.store.grades[key].Grade)

	require.Len(t, env.history.runs, 2)
	assert.Equal(t, "bursar", env.history.runs[0].CreatedBy)
	assert.Len(t, env.notes.GetNotifications(), 2)
}

func TestGradeImportWithoutIdentityColumn(t *testing.T) {
	env := newTestEnv()
	rec := env.do(uploadRequest(t, "/academics/grades/import", "marks.csv",
		[]byte("Student Name,Math\nX,85\n"), map[string]string{"term": "Term 1", "year": "2024"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "registration number")
	assert.Empty(t, env.store.grades)

	notes := env.notes.GetNotifications()
	require.Len(t, notes, 1)
	assert.Equal(t, notification.LevelError, notes[0].Level)
}

func TestGradeImportPersistenceError(t *testing.T) {
	env := newTestEnv()
	env.store.upsertErr = errors.New("connection reset by peer")
	rec := env.do(uploadRequest(t, "/academics/grades/import", "marks.csv",
		[]byte("Reg Number,Math\nA1,85\n"), map[string]string{"term": "Term 1", "year": "2024"}))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "connection reset by peer", body["error"])
	assert.Equal(t, "failed", env.history.runs[0].State)
}

func TestImportFormValidation(t *testing.T) {
	env := newTestEnv()
	csv := []byte("Reg Number,Math\nA1,85\n")

	rec := env.do(uploadRequest(t, "/academics/grades/import", "marks.csv", csv, map[string]string{"year": "2024"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(uploadRequest(t, "/academics/grades/import", "", nil, map[string]string{"term": "Term 1", "year": "2024"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	big := bytes.Repeat([]byte("x"), 3<<20)
	rec = env.do(uploadRequest(t, "/academics/grades/import", "marks.csv", big, map[string]string{"term": "Term 1", "year": "2024"}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestPaymentImportFlagsDuplicateFile(t *testing.T) {
	env := newTestEnv()
	csv := []byte("Reg Number,Amount,Date\nA1,1500,44927\nA2,2000,\n")
	fields := map[string]string{"term": "Term 1", "year": "2024"}

	rec := env.do(uploadRequest(t, "/academics/payments/import", "fees.csv", csv, fields))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Nil(t, decode(t, rec)["warning"])

	rec = env.do(uploadRequest(t, "/academics/payments/import", "fees.csv", csv, fields))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.NotEmpty(t, body["warning"])
	summary := body["summary"].(map[string]interface{})
	assert.Equal(t, env.history.runs[0].ID.String(), summary["duplicate_of"])

	assert.Len(t, env.store.payments, 4)
	assert.Equal(t, "2023-01-01T00:00:00Z", env.store.payments[0].PaidAt)
}

func TestRecentImportsAndNotifications(t *testing.T) {
	env := newTestEnv()
	env.history.runs = append(env.history.runs, models.ImportRun{ID: uuid.New(), Kind: "grades", State: "done"})
	env.notes.AddNotification(notification.LevelInfo, "hello", "")

	req := httptest.NewRequest(http.MethodGet, "/academics/imports", nil)
	req.Header.Set("X-Session-ID", "good")
	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["rows"], 1)
	assert.Equal(t, float64(1), body["pagination"].(map[string]interface{})["page"])

	req = httptest.NewRequest(http.MethodGet, "/academics/imports?page=2", nil)
	req.Header.Set("X-Session-ID", "good")
	rec = env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["rows"])

	req = httptest.NewRequest(http.MethodGet, "/academics/imports?page=zero", nil)
	req.Header.Set("X-Session-ID", "good")
	assert.Equal(t, http.StatusBadRequest, env.do(req).Code)

	req = httptest.NewRequest(http.MethodGet, "/academics/notifications", nil)
	req.Header.Set("X-Session-ID", "good")
	rec = env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode(t, rec)["rows"].([]interface{})
	require.Len(t, rows, 1)
	assert.Equal(t, "hello", rows[0].(map[string]interface{})["message"])
}
