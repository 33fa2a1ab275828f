package academics

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"SchoolPortal/api"
	"SchoolPortal/api/academics/archive"
	"SchoolPortal/api/academics/reconcile"
	"SchoolPortal/api/academics/store"
	"SchoolPortal/api/academics/templates"
	"SchoolPortal/internal/config"
	"SchoolPortal/internal/notification"
)

// Deps are the collaborators the service is built from. History and
// Archiver may be nil.
type Deps struct {
	Store    *store.PgStore
	History  History
	Archiver archive.Archiver
	Notes    *notification.NotificationService
	Sessions api.SessionValidator
}

type AcademicsService struct {
	config map[string]interface{}
	deps   Deps
	server *http.Server
}

func NewAcademicsService(cfg map[string]interface{}, deps Deps) *AcademicsService {
	return &AcademicsService{config: cfg, deps: deps}
}

func (s *AcademicsService) Name() string {
	return "academics"
}

func (s *AcademicsService) Start() error {
	if s.deps.Store == nil {
		return fmt.Errorf("academics service needs a database pool")
	}
	if config.BoolFromConfig(s.config, "auto_migrate", false) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := s.deps.Store.EnsureSchema(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	port := config.IntFromConfig(s.config, "port", config.DefaultAcademicsPort)
	maxUploadMB := config.IntFromConfig(s.config, "max_upload_mb", config.DefaultMaxUploadMB)

	importer := NewImporter(reconcile.NewReconciler(s.deps.Store), s.deps.History, s.deps.Archiver, s.deps.Notes)
	handler := NewHandler(templates.NewGenerator(s.deps.Store), importer, s.deps.History, s.deps.Notes, maxUploadMB)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           NewRouter(handler, s.deps.Sessions),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Academics Service started on :%d", port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Academics service failed: %v", err)
		}
	}()
	return nil
}

func (s *AcademicsService) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
