package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/collegeerp/backend/docs"
	"github.com/collegeerp/backend/internal/audit"
	"github.com/collegeerp/backend/internal/auth"
	"github.com/collegeerp/backend/internal/config"
	"github.com/collegeerp/backend/internal/database"
	"github.com/collegeerp/backend/internal/handlers"
	mW "github.com/collegeerp/backend/internal/middleware"
	"github.com/collegeerp/backend/internal/models"
	"github.com/collegeerp/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title College ERP API
// @version 1.0
// @description Student, staff and fee administration for a college office
// @host localhost:5000
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	config.Load()

	docs.SwaggerInfo.Host = "localhost:" + viper.GetString("server.port")
	docs.SwaggerInfo.BasePath = "/api"

	db := database.InitDatabase()
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}
	store := database.NewRedisStore(redisClient)

	authCfg := config.LoadAuthConfig()
	if authCfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET_KEY must be set")
	}

	tokens := auth.NewTokenManager(authCfg.JWTSecret, authCfg.JWTExpiry)
	auditLogger := audit.NewAuditLogger()

	authService := services.NewAuthService(db, store, tokens, authCfg, auditLogger)
	feeService := services.NewFeeService(db, store, auditLogger, authCfg.StatsCacheTTL)
	receiptHandler := handlers.NewReceiptHandler(services.NewReceiptService(feeService))
	studentService := services.NewStudentService(db, store)
	staffService := services.NewStaffService(db)
	loginLimiter := mW.NewIPRateLimiter(authCfg.LoginRatePerMin, authCfg.LoginBurst)

	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   viper.GetStringSlice("server.allowed_origins"),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			status, code := "healthy", http.StatusOK
			if err := db.PingContext(r.Context()); err != nil {
				status, code = "degraded", http.StatusServiceUnavailable
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			json.NewEncoder(w).Encode(map[string]any{
				"status":    status,
				"timestamp": time.Now().UTC(),
			})
		})

		r.Post("/auth/register", authService.Register)
		r.With(loginLimiter.Middleware).Post("/auth/login", authService.Login)

		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware(tokens, store))

			r.Post("/auth/logout", authService.Logout)
			r.Get("/auth/me", authService.Me)
			r.Put("/auth/change-password", authService.UpdatePassword)

			r.Post("/students", studentService.Create)
			r.Get("/students/stats/dashboard", studentService.Dashboard)
			r.Get("/students/roll/{rollNumber}", studentService.GetByRollNumber)
			r.Get("/students/{id}", studentService.Get)
			r.Put("/students/{id}", studentService.Update)

			r.Post("/staff", staffService.Create)
			r.Get("/staff/stats/dashboard", staffService.Dashboard)
			r.Get("/staff/employee/{employeeId}", staffService.GetByEmployeeID)
			r.Get("/staff/{id}", staffService.Get)
			r.Put("/staff/{id}", staffService.Update)

			r.Post("/fees", feeService.Create)
			r.Get("/fees/stats/dashboard", feeService.Dashboard)
			r.Get("/fees/student/{rollNumber}", feeService.ListByStudent)
			r.Get("/fees/{id}", feeService.Get)
			r.Put("/fees/{id}", feeService.Update)
			r.Post("/fees/{id}/payment", feeService.PostPayment)
			r.Get("/fees/{id}/receipt", receiptHandler.GetReceipt)

			r.Group(func(r chi.Router) {
				r.Use(mW.RequireRole(models.RoleSuperAdmin))

				r.Delete("/students/{id}", studentService.Delete)
				r.Delete("/staff/{id}", staffService.Delete)
				r.Delete("/fees/{id}", feeService.Delete)
			})
		})
	})

	r.NotFound(mW.StaticFileServer(viper.GetString("server.static_dir")).ServeHTTP)

	port := viper.GetString("server.port")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
