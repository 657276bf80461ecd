package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"recallme-go/config"
	"recallme-go/internal/core/apperr"
	"recallme-go/internal/facestore"
	"recallme-go/internal/recall"
	"recallme-go/internal/stream"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// APIHandler behandelt die API-Anfragen des Erinnerungsdienstes
type APIHandler struct {
	cfg      *config.Config
	store    *facestore.Store
	service  *recall.Service
	pipeline *stream.Pipeline
}

// NewAPIHandler erstellt einen neuen API-Handler
func NewAPIHandler(cfg *config.Config, store *facestore.Store, service *recall.Service, pipeline *stream.Pipeline) *APIHandler {
	return &APIHandler{
		cfg:      cfg,
		store:    store,
		service:  service,
		pipeline: pipeline,
	}
}

// RegisterRoutes registriert alle API-Routen
func (h *APIHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Erkennungs-Endpunkte
	router.POST("/add_known_face", h.AddKnownFace)
	router.POST("/detect_unknown_face", h.DetectUnknownFace)

	// Live-Pipeline-Endpunkte
	router.GET("/live_detection", h.GetLatestFrame)
	router.POST("/live_detection", h.DetectFrame)
	router.POST("/live_detection/start", h.StartLiveDetection)
	router.POST("/live_detection/stop", h.StopLiveDetection)

	// Bestands-Endpunkte
	router.GET("/patients", h.ListPatients)
	router.POST("/patients", h.CreatePatient)
	router.GET("/persons", h.ListPersons)
}

// translate löst einen Schlüssel über die i18n-Middleware auf. Ohne
// Middleware oder ohne Eintrag wird der englische Standardtext verwendet.
func translate(c *gin.Context, key, fallback string) string {
	if fn, ok := c.Get("t"); ok {
		if t, ok := fn.(func(key string, args ...interface{}) string); ok {
			if msg := t(key); msg != key {
				return msg
			}
		}
	}
	return fallback
}

// errorMessage liefert die lokalisierte Dienstmeldung zu einem Fehler der
// Taxonomie; für alles andere den Fehlertext selbst.
func errorMessage(c *gin.Context, err error) string {
	switch {
	case errors.Is(err, apperr.ErrNoFaceFound):
		return translate(c, "errors.no_face", err.Error())
	case errors.Is(err, apperr.ErrForeignKeyViolation):
		return translate(c, "errors.patient_not_found", err.Error())
	case errors.Is(err, apperr.ErrUpstreamService):
		return translate(c, "errors.upstream", err.Error())
	default:
		return err.Error()
	}
}

// errorStatus bildet die Fehlertaxonomie auf HTTP-Statuscodes ab.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNoFaceFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrExtractionFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrForeignKeyViolation):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperr.ErrCameraUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperr.ErrUpstreamService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// saveUpload legt die hochgeladene Datei im Upload-Verzeichnis ab und gibt
// den Pfad zurück.
func (h *APIHandler) saveUpload(c *gin.Context) (string, error) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		return "", fmt.Errorf("no file uploaded or invalid form data")
	}
	defer file.Close()

	timestamp := time.Now().Format("20060102_150405.000000")
	filename := fmt.Sprintf("%s_%s", timestamp, filepath.Base(header.Filename))
	filePath := filepath.Join(h.cfg.Server.UploadDir, filename)

	os.MkdirAll(filepath.Dir(filePath), 0755)

	outFile, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer outFile.Close()

	if _, err = io.Copy(outFile, file); err != nil {
		os.Remove(filePath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return filePath, nil
}

// AddKnownFace registriert das Gesicht auf dem hochgeladenen Bild als
// bekannte Person eines Patienten
func (h *APIHandler) AddKnownFace(c *gin.Context) {
	filePath, err := h.saveUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	firstName := c.PostForm("first_name")
	lastName := c.PostForm("last_name")
	relationship := c.PostForm("relationship")
	notes := c.PostForm("notes")

	if firstName == "" || relationship == "" {
		os.Remove(filePath)
		c.JSON(http.StatusBadRequest, gin.H{"error": "first_name and relationship are required"})
		return
	}

	var patientID uint
	if raw := c.PostForm("patient_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			os.Remove(filePath)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid patient_id"})
			return
		}
		patientID = uint(parsed)
	} else {
		// Ohne patient_id wird ein neuer Patientensatz angelegt
		id, err := h.store.AddPatient(firstName, lastName)
		if err != nil {
			os.Remove(filePath)
			c.JSON(errorStatus(err), gin.H{"error": errorMessage(c, err)})
			return
		}
		patientID = id
	}

	personID, err := h.service.RegisterFace(c.Request.Context(), patientID, firstName, lastName, relationship, notes, filePath)
	if err != nil {
		os.Remove(filePath)
		c.JSON(errorStatus(err), gin.H{"error": errorMessage(c, err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    translate(c, "messages.face_added", "Known face added"),
		"patient_id": patientID,
		"person_id":  personID,
	})
}

// DetectUnknownFace führt den Entscheidungspfad für ein einzelnes Bild aus
// und gibt die Erinnerungsnachricht des Textdienstes zurück
func (h *APIHandler) DetectUnknownFace(c *gin.Context) {
	filePath, err := h.saveUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// Einzelframe-Uploads sind transient und werden auf jedem Pfad entfernt
	defer func() {
		if err := os.Remove(filePath); err != nil {
			log.Warnf("Failed to remove transient upload %s: %v", filePath, err)
		}
	}()

	result, err := h.service.RecognizeFrame(c.Request.Context(), filePath)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": errorMessage(c, err)})
		return
	}

	c.JSON(http.StatusOK, result)
}

// DetectFrame führt den Entscheidungspfad für einen als Base64 übermittelten
// Frame aus, etwa aus der Live-Ansicht eines Clients
func (h *APIHandler) DetectFrame(c *gin.Context) {
	var req struct {
		Frame string `json:"frame" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.Frame)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid base64 frame"})
		return
	}

	timestamp := time.Now().Format("20060102_150405.000000")
	filePath := filepath.Join(h.cfg.Server.UploadDir, fmt.Sprintf("%s_frame.jpg", timestamp))
	os.MkdirAll(filepath.Dir(filePath), 0755)
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store frame"})
		return
	}
	defer func() {
		if err := os.Remove(filePath); err != nil {
			log.Warnf("Failed to remove transient frame %s: %v", filePath, err)
		}
	}()

	result, err := h.service.RecognizeFrame(c.Request.Context(), filePath)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": errorMessage(c, err)})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetLatestFrame liefert den zuletzt veröffentlichten Frame der Live-Pipeline
// als Base64
func (h *APIHandler) GetLatestFrame(c *gin.Context) {
	frame, ok := h.pipeline.LatestFrame()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": translate(c, "errors.no_frame", "No frame available")})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"frame": base64.StdEncoding.EncodeToString(frame),
	})
}

// StartLiveDetection startet die Live-Pipeline
func (h *APIHandler) StartLiveDetection(c *gin.Context) {
	h.pipeline.Start()
	c.JSON(http.StatusOK, gin.H{"message": translate(c, "status.running", "Live detection running")})
}

// StopLiveDetection stoppt die Live-Pipeline
func (h *APIHandler) StopLiveDetection(c *gin.Context) {
	h.pipeline.Stop()
	c.JSON(http.StatusOK, gin.H{"message": translate(c, "status.stopped", "Live detection stopped")})
}

// CreatePatient legt einen neuen Patientensatz an
func (h *APIHandler) CreatePatient(c *gin.Context) {
	var req struct {
		FirstName string `json:"first_name" binding:"required"`
		LastName  string `json:"last_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.store.AddPatient(req.FirstName, req.LastName)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": errorMessage(c, err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"patient_id": id})
}

// ListPatients gibt alle Patienten zurück
func (h *APIHandler) ListPatients(c *gin.Context) {
	patients, err := h.store.ListPatients()
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": errorMessage(c, err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"patients": patients})
}

// ListPersons gibt alle bekannten Personen zurück
func (h *APIHandler) ListPersons(c *gin.Context) {
	persons, err := h.store.ListPersons()
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": errorMessage(c, err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"persons": persons})
}
