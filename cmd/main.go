package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"SchoolPortal/internal/appmanager"
	"SchoolPortal/internal/config"
)

// InitDB opens the database/sql handle used for import history.
func InitDB() (*sql.DB, error) {
	return sql.Open("postgres", config.PostgresDSN())
}

func main() {
	// Load .env for local dev
	_ = godotenv.Load("../.env")
	_ = godotenv.Load()

	db, err := InitDB()
	if err != nil {
		log.Fatal("failed to connect to DB:", err)
	}
	defer db.Close()
	appmanager.SetDB(db)

	pool, err := pgxpool.New(context.Background(), config.PostgresDSN())
	if err != nil {
		log.Fatal("failed to create pgx pool:", err)
	}
	defer pool.Close()
	appmanager.SetPgxPool(pool)

	manager := appmanager.NewAppManager()

	servicesCfg, err := appmanager.LoadServiceSequence(config.Env(config.EnvServicesFile, "../services.yaml"))
	if err != nil {
		log.Fatal("failed to load service sequence:", err)
	}
	manager.AutoRegisterServices(servicesCfg)

	if err := manager.StartAll(); err != nil {
		log.Fatal("failed to start:", err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	if err := manager.StopAll(); err != nil {
		log.Fatal("failed to stop:", err)
	}
}
