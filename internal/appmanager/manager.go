package appmanager

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"SchoolPortal/api"
	"SchoolPortal/api/academics"
	"SchoolPortal/api/academics/archive"
	"SchoolPortal/api/academics/store"
	"SchoolPortal/api/auth"
	"SchoolPortal/internal/config"
	"SchoolPortal/internal/jobs"
	"SchoolPortal/internal/logger"
	"SchoolPortal/internal/notification"
	"SchoolPortal/internal/serviceiface"

	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"
)

var db *sql.DB
var pgxPool *pgxpool.Pool

func SetDB(database *sql.DB) {
	db = database
}

func SetPgxPool(pool *pgxpool.Pool) {
	pgxPool = pool
}

// GetDB returns the database connection
func GetDB() *sql.DB {
	return db
}

// GetPgxPool returns the pgx pool connection
func GetPgxPool() *pgxpool.Pool {
	return pgxPool
}

type constructor func(am *AppManager, cfg map[string]interface{}) serviceiface.Service

var serviceConstructors = map[string]constructor{
	"logger": func(am *AppManager, cfg map[string]interface{}) serviceiface.Service {
		return logger.NewLoggerService(cfg)
	},
	"auth": func(am *AppManager, cfg map[string]interface{}) serviceiface.Service {
		svc := auth.NewAuthService(
			auth.PassphraseVerifierFromEnv(config.StringFromConfig(cfg, "operator", "")),
			config.IntFromConfig(cfg, "session_timeout", config.DefaultSessionTimeoutMinutes),
			config.IntFromConfig(cfg, "max_login_attempts", 0),
			config.IntFromConfig(cfg, "account_lock_duration", 0),
		)
		am.auth = svc
		return svc
	},
	"academics": func(am *AppManager, cfg map[string]interface{}) serviceiface.Service {
		deps := academics.Deps{
			Archiver: archive.FromEnv(),
			Notes:    am.notes,
		}
		if pgxPool != nil {
			deps.Store = store.NewPgStore(pgxPool)
		}
		if db != nil {
			deps.History = store.NewHistoryStore(db)
		}
		if am.auth != nil {
			deps.Sessions = am.auth
		}
		return academics.NewAcademicsService(cfg, deps)
	},
	"cron": func(am *AppManager, cfg map[string]interface{}) serviceiface.Service {
		var sweeper jobs.SessionSweeper
		if am.auth != nil {
			sweeper = am.auth
		}
		return jobs.NewCronService(cfg, sweeper, am.notes)
	},
	"gateway": func(am *AppManager, cfg map[string]interface{}) serviceiface.Service {
		return api.NewGatewayService(cfg, am.auth)
	},
}

// ------------------- MANAGER -------------------

type AppManager struct {
	services []serviceiface.Service
	mu       sync.Mutex

	auth  *auth.AuthService
	notes *notification.NotificationService
}

func NewAppManager() *AppManager {
	return &AppManager{
		services: make([]serviceiface.Service, 0),
		notes:    notification.NewNotificationService(config.DefaultNotificationLimit),
	}
}

func (am *AppManager) RegisterService(s serviceiface.Service) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.services = append(am.services, s)
}

func (am *AppManager) StartAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()
	for _, service := range am.services {
		fmt.Println("Starting service:", service.Name())
		if err := service.Start(); err != nil {
			return fmt.Errorf("failed to start service %s: %w", service.Name(), err)
		}
	}
	return nil
}

func (am *AppManager) StopAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()
	for i := len(am.services) - 1; i >= 0; i-- {
		svc := am.services[i]
		if err := svc.Stop(); err != nil {
			return fmt.Errorf("failed to stop service %s: %w", svc.Name(), err)
		}
	}
	return nil
}

// ------------------- YAML CONFIG -------------------

type ServiceSequencer struct {
	Services []ServiceConfig `yaml:"services"`
}

type ServiceConfig struct {
	Name       string                 `yaml:"name"`
	StartOrder int                    `yaml:"start_order"`
	Config     map[string]interface{} `yaml:"config"`
}

func LoadServiceSequence(path string) ([]ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seq ServiceSequencer
	if err := yaml.Unmarshal(data, &seq); err != nil {
		return nil, err
	}

	// sort by start_order
	sort.SliceStable(seq.Services, func(i, j int) bool {
		return seq.Services[i].StartOrder < seq.Services[j].StartOrder
	})

	return seq.Services, nil
}

// AutoRegisterServices builds every known service in the given order.
// Services that depend on auth (academics, cron, gateway) must come after it
// in services.yaml. Unknown names are ignored.
func (am *AppManager) AutoRegisterServices(configs []ServiceConfig) {
	for _, svc := range configs {
		build, ok := serviceConstructors[svc.Name]
		if !ok {
			fmt.Println("Unknown service in sequence:", svc.Name)
			continue
		}
		am.RegisterService(build(am, svc.Config))
	}

	for _, svc := range am.services {
		if l, ok := svc.(*logger.LoggerService); ok {
			logger.SetGlobalLogger(l)
			break
		}
	}
}

func (am *AppManager) GetServiceByName(name string) serviceiface.Service {
	for _, svc := range am.services {
		if svc.Name() == name {
			return svc
		}
	}
	return nil
}
