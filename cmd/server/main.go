// Package main is the entry point for the citizen engagement backend
// server. It provides a REST API for citizen complaint submission and
// tracking, routed through a sector, district and organization admin
// hierarchy with escalation, comments and notifications.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/citizenvoice/engagement-server/internal/config"
	"github.com/citizenvoice/engagement-server/internal/database"
	"github.com/citizenvoice/engagement-server/internal/handlers"
	"github.com/citizenvoice/engagement-server/internal/mail"
	"github.com/citizenvoice/engagement-server/internal/middleware"
	"github.com/citizenvoice/engagement-server/internal/models"
	"github.com/citizenvoice/engagement-server/internal/services"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("Failed to load config: %v", err)
	}

	sugar.Infow("Starting Citizen Engagement Server",
		"port", cfg.Port,
		"env", cfg.Environment,
	)

	// Initialize database connection pool and schema
	db, err := database.NewPool(cfg.DatabaseURL)
	if err != nil {
		sugar.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(migrateCtx, db); err != nil {
		cancelMigrate()
		sugar.Fatalf("Failed to run migrations: %v", err)
	}
	cancelMigrate()

	// Redis backs the unread-count cache and the rate limiter
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		sugar.Fatalf("Invalid Redis URL: %v", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	// Mail delivery runs off the request path on a background worker
	mailer := mail.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom, sugar)
	mailCtx, stopMailer := context.WithCancel(context.Background())
	defer stopMailer()
	go mailer.Start(mailCtx)

	// Initialize services
	notifSvc := services.NewNotificationService(db, rdb, mailer, sugar)
	complaintSvc := services.NewComplaintService(db, notifSvc, sugar)
	authSvc := services.NewAuthService(db, cfg.JWTSecret, mailer, sugar)
	userSvc := services.NewUserService(db, mailer, sugar)
	orgSvc := services.NewOrganizationService(db, mailer, sugar)
	districtSvc := services.NewDistrictService(db, mailer, sugar)
	sectorSvc := services.NewSectorService(db, mailer, sugar)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authSvc, sugar)
	complaintHandler := handlers.NewComplaintHandler(complaintSvc, sugar)
	orgHandler := handlers.NewOrganizationHandler(orgSvc, sugar)
	districtHandler := handlers.NewDistrictHandler(districtSvc, sugar)
	sectorHandler := handlers.NewSectorHandler(sectorSvc, sugar)
	userHandler := handlers.NewUserHandler(userSvc, sugar)
	notifHandler := handlers.NewNotificationHandler(notifSvc, sugar)
	healthHandler := handlers.NewHealthHandler(db, rdb, sugar)

	authn := middleware.Authenticator(cfg.JWTSecret, userSvc)
	admins := middleware.RequireRole(
		models.RoleSectorAdmin, models.RoleDistrictAdmin, models.RoleOrgAdmin, models.RoleSuperAdmin,
	)

	// Build router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Rate limiting
	r.Use(middleware.RateLimit(rdb, cfg.RateLimitRPM, sugar))

	// API Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", healthHandler.Check)
		r.Get("/health/ready", healthHandler.Ready)

		// Auth endpoints
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/forgot-password", authHandler.ForgotPassword)

			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Get("/me", authHandler.Me)
				r.Put("/change-password", authHandler.ChangePassword)

				r.With(middleware.RequireRole(models.RoleSuperAdmin)).
					Post("/create-admin", authHandler.CreateAdmin)
			})
		})

		// Complaint endpoints
		r.Route("/complaints", func(r chi.Router) {
			r.Use(authn)

			r.With(middleware.RequireRole(models.RoleCitizen)).Post("/", complaintHandler.Submit)
			r.With(middleware.RequireRole(models.RoleCitizen)).Get("/my-complaints", complaintHandler.Mine)

			r.With(middleware.RequireRole(models.RoleSectorAdmin)).Get("/sector", complaintHandler.SectorQueue)
			r.With(middleware.RequireRole(models.RoleDistrictAdmin)).Get("/district", complaintHandler.DistrictQueue)
			r.With(middleware.RequireRole(models.RoleOrgAdmin)).Get("/organization", complaintHandler.OrganizationQueue)

			// Per-complaint authorization is the access policy's call, so
			// these carry no role gate.
			r.Get("/{id}", complaintHandler.Get)
			r.Post("/{id}/comments", complaintHandler.AddComment)
			r.Post("/{id}/escalate", complaintHandler.Escalate)
			r.Delete("/{id}/files", complaintHandler.RemoveFile)

			r.With(admins).Patch("/{id}/status", complaintHandler.UpdateStatus)
		})

		// Organization endpoints
		r.Route("/organizations", func(r chi.Router) {
			r.Use(authn)

			r.With(middleware.RequireRole(models.RoleSuperAdmin)).Post("/", orgHandler.Create)
			r.With(middleware.RequireRole(models.RoleSuperAdmin)).Get("/", orgHandler.List)
			r.With(middleware.RequireRole(models.RoleSuperAdmin)).Put("/{id}", orgHandler.Update)
			r.With(middleware.RequireRole(models.RoleSuperAdmin)).Delete("/{id}", orgHandler.Delete)

			r.Get("/{id}", orgHandler.Get)
			r.With(middleware.RequireRole(models.RoleOrgAdmin, models.RoleSuperAdmin)).
				Get("/{id}/districts", orgHandler.Districts)
			r.With(middleware.RequireRole(models.RoleOrgAdmin, models.RoleSuperAdmin)).
				Get("/{id}/statistics", orgHandler.Statistics)
		})

		// District endpoints
		r.Route("/districts", func(r chi.Router) {
			r.Use(authn)

			orgAdmins := middleware.RequireRole(models.RoleOrgAdmin, models.RoleSuperAdmin)
			r.With(orgAdmins).Post("/", districtHandler.Create)
			r.With(orgAdmins).Get("/", districtHandler.List)
			r.With(orgAdmins).Put("/{id}", districtHandler.Update)
			r.With(orgAdmins).Delete("/{id}", districtHandler.Delete)
			r.With(orgAdmins).Post("/{id}/assign-admin", districtHandler.AssignAdmin)

			r.Get("/{id}", districtHandler.Get)
			viewers := middleware.RequireRole(models.RoleDistrictAdmin, models.RoleOrgAdmin, models.RoleSuperAdmin)
			r.With(viewers).Get("/{id}/sectors", districtHandler.Sectors)
			r.With(viewers).Get("/{id}/statistics", districtHandler.Statistics)
		})

		// Sector endpoints
		r.Route("/sectors", func(r chi.Router) {
			r.Use(authn)

			districtAdmins := middleware.RequireRole(models.RoleDistrictAdmin, models.RoleSuperAdmin)
			r.With(districtAdmins).Post("/", sectorHandler.Create)
			r.With(districtAdmins).Put("/{id}", sectorHandler.Update)
			r.With(districtAdmins).Delete("/{id}", sectorHandler.Delete)
			r.With(districtAdmins).Post("/{id}/assign-admin", sectorHandler.AssignAdmin)

			r.With(middleware.RequireRole(models.RoleDistrictAdmin, models.RoleOrgAdmin, models.RoleSuperAdmin)).
				Get("/", sectorHandler.List)

			r.Get("/{id}", sectorHandler.Get)
			viewers := middleware.RequireRole(models.RoleSectorAdmin, models.RoleDistrictAdmin, models.RoleSuperAdmin)
			r.With(viewers).Get("/{id}/citizens", sectorHandler.Citizens)
			r.With(viewers).Get("/{id}/statistics", sectorHandler.Statistics)
		})

		// User management endpoints
		r.Route("/users", func(r chi.Router) {
			r.Use(authn)

			r.With(admins).Get("/", userHandler.List)
			r.Get("/{id}", userHandler.Get)

			super := middleware.RequireRole(models.RoleSuperAdmin)
			r.With(super).Put("/{id}", userHandler.Update)
			r.With(super).Delete("/{id}", userHandler.Delete)
			r.With(super).Post("/{id}/reset-password", userHandler.ResetPassword)
		})

		// Notification endpoints
		r.Route("/notifications", func(r chi.Router) {
			r.Use(authn)

			r.Get("/", notifHandler.List)
			r.Get("/unread-count", notifHandler.UnreadCount)
			r.Patch("/read-all", notifHandler.MarkAllRead)
			r.Patch("/{id}/read", notifHandler.MarkRead)
			r.Delete("/{id}", notifHandler.Delete)
		})
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sugar.Infof("Server listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	sugar.Info("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		sugar.Fatalf("Forced shutdown: %v", err)
	}
	stopMailer()

	sugar.Info("Server stopped")
}
