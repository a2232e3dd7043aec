package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"yieldboard/config"
	"yieldboard/database"
	"yieldboard/handlers"
	"yieldboard/middleware"
	"yieldboard/store"
	"yieldboard/utils"
)

// api bundles the handlers mounted under /api/v1.
type api struct {
	auth        *handlers.AuthHandlers
	tpy         *handlers.TPYHandlers
	workstation *handlers.WorkstationHandlers
	testboard   *handlers.TestboardHandlers
	packing     *handlers.PackingHandlers
	portal      *handlers.PortalHandlers
	upload      *handlers.UploadHandlers
	health      *handlers.HealthHandlers
}

func setupRouter(cfg config.Server, h api, jwt *utils.JWTManager) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORSMiddleware(cfg.FrontendOrigin))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", h.health.Health)

		auth := v1.Group("/auth")
		auth.POST("/signup", h.auth.Signup)
		auth.POST("/login", h.auth.Login)
		auth.POST("/logout", h.auth.Logout)

		tpy := v1.Group("/tpy")
		tpy.GET("/daily", h.tpy.Daily)
		tpy.GET("/weekly", h.tpy.Weekly)
		tpy.POST("/test-yields", h.tpy.TestYields)

		ws := v1.Group("/workstation-routes")
		ws.POST("/station-times", h.workstation.StationTimes)
		ws.POST("/filtered-yields", h.workstation.FilteredYields)

		tb := v1.Group("/testboard-records")
		tb.POST("/sn-check", h.testboard.SNCheck)
		tb.POST("/pass-check", h.testboard.PassCheck)
		tb.POST("/most-recent-fail", h.testboard.MostRecentFail)
		tb.POST("/by-error", h.testboard.ByError)
		tb.POST("/fail-check", h.testboard.FailCheck)
		tb.POST("/x-bar-r", h.testboard.XBarR)

		v1.GET("/packing/records", h.packing.Records)

		protected := v1.Group("/")
		protected.Use(middleware.AuthRequired(cfg.APIKey, jwt))
		{
			protected.POST("/sql-portal/query", h.portal.Query)
			protected.GET("/sql-portal/audit/slowest", h.portal.Slowest)
			protected.POST("/upload/catch-file", h.upload.CatchFile)
		}
	}
	return r
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Infof("No .env file loaded: %v", err)
	}

	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if err := cfg.Apply(); err != nil {
		log.Fatalf("Logger configuration error: %v", err)
	}
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	jwt, err := utils.NewJWTManager(cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		log.Fatalf("JWT_SECRET_KEY must be set: %v", err)
	}

	ctx := context.Background()

	dbClient, err := database.NewPostgresDB(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL database: %v", err)
	}
	defer dbClient.Close()

	userStore := store.NewUserStore(dbClient.DB)
	if err := userStore.EnsureTable(ctx); err != nil {
		log.Fatalf("Failed to prepare dashboard_users table: %v", err)
	}

	var audit handlers.AuditLog
	if cfg.ClickHouse.Enabled() {
		chClient, err := database.NewClickHouseDB(ctx, cfg.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to initialize ClickHouse database: %v", err)
		}
		defer chClient.Close()

		auditStore := store.NewAuditStore(chClient)
		if err := auditStore.EnsureTable(ctx); err != nil {
			log.Fatalf("Failed to prepare portal audit table: %v", err)
		}
		audit = auditStore
	} else {
		log.Warn("CLICKHOUSE_HOST not set; SQL portal audit log disabled")
	}
	if cfg.APIKey == "" {
		log.Warn("AUTH_DEFAULT not set; portal and upload routes accept JWT sessions only")
	}

	h := api{
		auth:        handlers.NewAuthHandlers(userStore, jwt),
		tpy:         handlers.NewTPYHandlers(store.NewTPYStore(dbClient.DB)),
		workstation: handlers.NewWorkstationHandlers(store.NewWorkstationStore(dbClient.DB)),
		testboard:   handlers.NewTestboardHandlers(store.NewTestboardStore(dbClient.DB)),
		packing:     handlers.NewPackingHandlers(store.NewPackingStore(dbClient.DB)),
		portal:      handlers.NewPortalHandlers(store.NewPortalStore(dbClient.DB, cfg.PortalRowLimit, cfg.PortalTimeout), audit),
		upload:      handlers.NewUploadHandlers(cfg.UploadDir, cfg.UploadMaxBytes),
		health:      handlers.NewHealthHandlers(dbClient.DB),
	}
	h.auth.SecureCookie = cfg.GinMode == gin.ReleaseMode

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(cfg, h, jwt),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Yield API listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}
	log.Info("Server exiting")
}
