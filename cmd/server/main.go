package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recallme-go/config"
	"recallme-go/internal/api/handlers"
	"recallme-go/internal/api/middleware"
	"recallme-go/internal/cleanup"
	"recallme-go/internal/database"
	"recallme-go/internal/detection"
	"recallme-go/internal/facestore"
	"recallme-go/internal/integrations/faceapi"
	"recallme-go/internal/integrations/llm"
	"recallme-go/internal/logger"
	"recallme-go/internal/mqtt"
	"recallme-go/internal/recall"
	"recallme-go/internal/server/sse"
	"recallme-go/internal/stream"
	"recallme-go/internal/util/timezone"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// API-Präfix des Dienstes
const apiPrefix = "/use-case-svc/api/v1/reinforce_memory"

func main() {
	// .env-Datei laden, falls vorhanden
	if err := godotenv.Load(); err == nil {
		log.Debug("Loaded environment from .env file")
	}

	configPath := flag.String("config", os.Getenv("RECALLME_CONFIG"), "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Log); err != nil {
		// Log the error but continue, the logger might have defaulted
		log.Errorf("Failed to initialize logger completely: %v", err)
	}

	// Zeitzone aus der TZ-Umgebungsvariable übernehmen
	timezone.Initialize()

	// Initialize database connection
	log.Info("Initializing database...")
	db, err := database.Open(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	log.Info("Database initialization complete.")

	// Known-Face-Store
	store := facestore.New(db, cfg.Faces)
	log.Infof("Face store ready (strategy: %s, threshold: %.2f)", store.Strategy(), cfg.Faces.SimilarityThreshold)

	// Externe Dienste
	extractor := faceapi.NewClient(cfg.FaceAPI)
	generator := llm.NewClient(cfg.LLM)

	// Objektdetektor
	detector := detection.NewDetector(cfg.Detector)
	if err := detector.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize object detector: %v", err)
	}
	defer detector.Close()

	redactor := detection.NewRedactor(cfg.Detector.Denylist)

	// Live-Pipeline
	pipeline := stream.NewPipeline(cfg.Camera, detector, redactor, nil)
	if cfg.Camera.Enabled {
		pipeline.Start()
		defer pipeline.Stop()
	} else {
		log.Info("Live capture is disabled in the configuration.")
	}

	// Erkennungsdienst
	service := recall.NewService(detector, redactor, extractor, store, generator)

	// SSE-Hub
	sseHub := sse.NewHub()
	go sseHub.Run()
	service.AddPublisher(sseHub)

	// MQTT-Publisher, falls aktiviert
	mqttClient, err := mqtt.NewClient(cfg.MQTT)
	if err != nil {
		log.Warnf("Failed to initialize MQTT client: %v. Continuing without MQTT.", err)
	} else if mqttClient != nil {
		go func() {
			if err := mqttClient.Start(); err != nil {
				log.Errorf("MQTT client error: %v", err)
			}
		}()
		defer mqttClient.Stop()
		service.AddPublisher(mqttClient)
	}

	// Cleanup-Service für abgelegte Uploads
	cleanupService := cleanup.NewService(cfg.Cleanup.RetentionDays, cfg.Server.UploadDir, 24*time.Hour)
	if cleanupService != nil {
		cleanupService.StartBackgroundCleanup()
		defer cleanupService.StopBackgroundCleanup()
	}

	// --- Router aufbauen ---
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	sessionStore := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	router.Use(sessions.Sessions("recallme_session", sessionStore))
	router.Use(middleware.I18n(cfg.I18n))

	// Handler registrieren
	apiHandler := handlers.NewAPIHandler(cfg, store, service, pipeline)
	systemHandler := handlers.NewSystemHandler(cfg, store, pipeline, sseHub)
	webHandler := handlers.NewWebHandler(pipeline)

	router.GET("/check-alive", systemHandler.CheckAlive)

	apiGroup := router.Group(apiPrefix)
	apiHandler.RegisterRoutes(apiGroup)
	systemHandler.RegisterRoutes(apiGroup)
	webHandler.RegisterRoutes(apiGroup)

	// --- Server starten ---
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		log.Infof("Starting server on %s", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Auf Beendigungssignal warten
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutdown signal received...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown error: %v", err)
	}

	log.Info("Server stopped.")
}
