package handlers

import (
	"io"
	"net/http"

	"recallme-go/config"
	"recallme-go/internal/facestore"
	"recallme-go/internal/server/sse"
	"recallme-go/internal/stream"
	"recallme-go/internal/utils"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// SystemHandler behandelt System- und Status-Anfragen
type SystemHandler struct {
	cfg      *config.Config
	store    *facestore.Store
	pipeline *stream.Pipeline
	sseHub   *sse.Hub
}

// NewSystemHandler erstellt einen neuen System-Handler
func NewSystemHandler(cfg *config.Config, store *facestore.Store, pipeline *stream.Pipeline, sseHub *sse.Hub) *SystemHandler {
	return &SystemHandler{
		cfg:      cfg,
		store:    store,
		pipeline: pipeline,
		sseHub:   sseHub,
	}
}

// RegisterRoutes registriert die System-Routen
func (h *SystemHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/status", h.GetStatus)
	router.GET("/events", h.HandleSSE)
}

// CheckAlive beantwortet die Lebenszeichen-Anfrage
func (h *SystemHandler) CheckAlive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "alive",
		"message": translate(c, "status.alive", "Service is alive"),
	})
}

// GetStatus liefert System- und Bestandsstatistiken
func (h *SystemHandler) GetStatus(c *gin.Context) {
	stats, err := h.store.GetStatistics()
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"system":     utils.GetSystemStats(h.pipeline.Running()),
		"statistics": stats,
		"similarity": gin.H{
			"strategy":  h.cfg.Faces.SimilarityStrategy,
			"threshold": h.cfg.Faces.SimilarityThreshold,
		},
	})
}

// HandleSSE behandelt SSE-Verbindungen für Echtzeit-Erkennungsereignisse
func (h *SystemHandler) HandleSSE(c *gin.Context) {
	// SSE-Header setzen
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")

	// Client-Kanal erstellen
	client := make(sse.Client, 10) // Puffer für 10 Nachrichten

	// Client beim Hub registrieren
	h.sseHub.Register(client)
	defer h.sseHub.Unregister(client)

	log.Debug("SSE client connected")

	// Client-Verbindung überwachen
	c.Stream(func(w io.Writer) bool {
		// Auf die nächste Nachricht warten
		msg, ok := <-client
		if !ok {
			return false // Kanal geschlossen, Stream beenden
		}

		// Nachricht im SSE-Format senden
		c.SSEvent("message", string(msg))
		return true
	})
}
