package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ledgerlab/coursebook/internal/activity"
	api "github.com/ledgerlab/coursebook/internal/api/http"
	"github.com/ledgerlab/coursebook/internal/auth"
	"github.com/ledgerlab/coursebook/internal/config"
	"github.com/ledgerlab/coursebook/internal/content"
	"github.com/ledgerlab/coursebook/internal/db"
	"github.com/ledgerlab/coursebook/internal/events"
	"github.com/ledgerlab/coursebook/internal/progress"
	"github.com/ledgerlab/coursebook/internal/rbac"
)

func main() {
	cfg := config.FromEnv()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	progressStore := progress.NewSQLStore(dbh)
	activityStore := activity.NewSQLStore(dbh)
	eventLog := events.NewLog(dbh)
	cache := progress.NewCache(cfg.ProgressCacheTTL, nil)
	svc := progress.NewService(progressStore, activityStore,
		progress.WithEvents(eventLog),
		progress.WithCache(cache),
	)

	authSvc := auth.NewAuthService(cfg.AuthSecret)

	cs, err := content.NewFSStore(cfg.AssetBasePath)
	if err != nil {
		log.Fatalf("content store: %v", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))

	// Protected API (JWT -> subject+role in context -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// Student flow
		pr.With(rbac.Require("lesson:view")).
			Get("/lessons/{lessonID}/progress", api.LessonStatusHandler(svc))
		pr.With(rbac.Require("phase:start")).
			Post("/lessons/{lessonID}/phases/{phaseNumber}/start", api.StartPhaseHandler(svc))
		pr.With(rbac.Require("phase:complete")).
			Post("/lessons/{lessonID}/phases/{phaseNumber}/complete", api.CompletePhaseHandler(svc))
		pr.With(rbac.Require("lesson:view")).
			Get("/activities/{activityID}", api.GetActivityHandler(activityStore))
		pr.With(rbac.Require("lesson:view")).
			Get("/lessons/{lessonID}/activities", api.ListActivitiesHandler(activityStore))
		pr.With(rbac.Require("activity:submit")).
			Post("/activities/{activityID}/score", api.ScoreActivityHandler(svc))
		pr.With(rbac.Require("activity:submit")).
			Post("/activities/{activityID}/spreadsheet", api.SubmitSpreadsheetHandler(svc))
		pr.With(rbac.Require("activity:submit")).
			Post("/activities/{activityID}/complete", api.CompleteActivityHandler(svc))
		pr.With(rbac.RequireAny("progress:view-own", "progress:view-all")).
			Get("/competencies", api.CompetenciesHandler(svc))

		// Instructor authoring
		pr.With(rbac.Require("activity:create")).
			Post("/activities", api.CreateActivityHandler(activityStore))
		pr.With(rbac.Require("activity:create")).
			Put("/lessons/{lessonID}/phases", api.PutPhasesHandler(progressStore))

		// Admin
		pr.With(rbac.Require("users:create")).
			Post("/users", api.CreateUserHandler(dbh))
		pr.With(rbac.Require("progress:view-all")).
			Get("/events", api.RecentEventsHandler(eventLog))

		pr.Route("/assets", func(ar chi.Router) {
			api.MountAssets(ar, cs)
		})
	})

	log.Printf("coursebookd listening on %s", cfg.HTTPAddr)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatal(err)
	}
}
