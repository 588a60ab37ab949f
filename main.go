package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"github.com/cmmshub/verification-backend/api"
	"github.com/cmmshub/verification-backend/checker"
	"github.com/cmmshub/verification-backend/db"
	"github.com/cmmshub/verification-backend/scheduler"
	"github.com/cmmshub/verification-backend/verifier"
)

func main() {
	// Raven reads SENTRY_DSN from the environment on init.
	godotenv.Load()

	cfg, err := db.LoadEnvironmentVariables()
	if err != nil {
		log.Fatal(err)
	}
	database, err := db.InitSQLDatabase(cfg)
	if err != nil {
		log.Fatal(err)
	}

	v := &verifier.Verifier{
		Database: database,
		Prober:   &checker.Checker{},
	}
	sweeper := &scheduler.Sweeper{
		Store:    database,
		Verifier: v,
	}
	go sweeper.Run(context.Background())

	mux := http.NewServeMux()
	a := api.API{Database: database, Verifier: v}
	log.Printf("[verification] listening on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, a.RegisterHandlers(mux)))
}
