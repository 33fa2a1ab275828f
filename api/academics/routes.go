package academics

import (
	"net/http"

	"SchoolPortal/api"

	"github.com/gorilla/mux"
)

// NewRouter wires the academics endpoints. Everything except health needs a
// live operator session.
func NewRouter(h *Handler, sessions api.SessionValidator) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/academics/health", h.Health).Methods(http.MethodGet)

	secured := router.PathPrefix("/academics").Subrouter()
	secured.Use(mux.MiddlewareFunc(api.SessionMiddleware(sessions)))
	secured.HandleFunc("/grades/template", h.GradeTemplate).Methods(http.MethodGet)
	secured.HandleFunc("/payments/template", h.PaymentTemplate).Methods(http.MethodGet)
	secured.HandleFunc("/grades/import", h.ImportGrades).Methods(http.MethodPost)
	secured.HandleFunc("/payments/import", h.ImportPayments).Methods(http.MethodPost)
	secured.HandleFunc("/imports", h.RecentImports).Methods(http.MethodGet)
	secured.HandleFunc("/notifications", h.Notifications).Methods(http.MethodGet)
	return router
}
