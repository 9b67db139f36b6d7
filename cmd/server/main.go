package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thatlq1812/signature-system/internal/api"
	"github.com/thatlq1812/signature-system/internal/configs"
	"github.com/thatlq1812/signature-system/internal/middleware"
	"github.com/thatlq1812/signature-system/internal/repository"
	"github.com/thatlq1812/signature-system/internal/service"
)

func main() {
	// 1. Load configuration
	cfg, err := configs.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Connect to database
	ctx := context.Background()
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()

	// Verify connection
	if err := dbPool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Database connection established")

	// 3. Initialize layers
	requestRepo := repository.NewSignatureRequestRepository(dbPool)
	auditRepo := repository.NewAuditLogRepository(dbPool)
	otpRepo := repository.NewOtpRepository(dbPool)
	documentRepo := repository.NewDocumentRepository(dbPool)
	employeeRepo := repository.NewEmployeeRepository(dbPool)

	otpService := service.NewOtpService(otpRepo, service.NewLogEmailSender(), service.NewLogSmsSender())
	signatureService := service.NewSignatureService(
		requestRepo, auditRepo, documentRepo, employeeRepo,
		otpService, service.NewLogNotifier(),
	)
	signatureAPI := api.NewSignatureAPI(signatureService)

	// 4. Setup HTTP router
	router := gin.New()
	router.Use(middleware.GinLogger(), gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "signature-system"})
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	signatureAPI.RegisterRoutes(v1)

	// 5. Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 6. Graceful shutdown setup
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Signature service listening on :%d", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down signature service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Signature service stopped")
}
