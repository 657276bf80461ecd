package faceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"recallme-go/config"
	"recallme-go/internal/core/apperr"
	"recallme-go/internal/core/models"

	log "github.com/sirupsen/logrus"
)

// Log-Felder für die Face-API-Komponente definieren
var logFields = log.Fields{
	"component": "faceapi",
}

// Client implementiert die Kommunikation mit dem externen Embedding-Dienst.
// Das gleiche Bild liefert unter gleichen Dienstversionen das gleiche
// Embedding; enthält ein Bild mehrere Gesichter, wird nur das erste
// gemeldete verwendet.
type Client struct {
	config     config.FaceAPIConfig
	httpClient *http.Client
}

// apiInfoResponse enthält Informationen über den Embedding-Dienst
type apiInfoResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// apiDetectResponse enthält die Antwort auf eine Embedding-Anfrage
type apiDetectResponse struct {
	Status     string `json:"status"`
	FacesCount int    `json:"faces_count"`
	Faces      []struct {
		BoundingBox []int     `json:"bbox"`
		Confidence  float64   `json:"confidence"`
		Embedding   []float32 `json:"embedding"`
	} `json:"faces"`
}

// NewClient erstellt einen neuen Face-API-Client
func NewClient(config config.FaceAPIConfig) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}
}

// Ping prüft, ob der Embedding-Dienst verfügbar ist
func (c *Client) Ping(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/info", c.config.URL), nil)
	if err != nil {
		return false, fmt.Errorf("fehler beim Erstellen der Anfrage: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", apperr.ErrUpstreamService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: embedding service status %d", apperr.ErrUpstreamService, resp.StatusCode)
	}

	var info apiInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return false, fmt.Errorf("fehler beim Dekodieren der Antwort: %w", err)
	}

	return info.Status == "ok", nil
}

// ExtractEmbedding sendet die Bilddatei an den Embedding-Dienst und gibt den
// Embedding-Vektor des ersten gefundenen Gesichts zurück. Meldet der Dienst
// kein Gesicht, ist der Fehler apperr.ErrNoFaceFound.
func (c *Client) ExtractEmbedding(ctx context.Context, imagePath string) ([]float32, error) {
	file, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening image: %v", apperr.ErrExtractionFailed, err)
	}
	defer file.Close()

	// Multipart-Form vorbereiten
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("fehler beim Erstellen des Formularfeldes: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("fehler beim Kopieren der Bilddaten: %w", err)
	}

	if err := writer.WriteField("threshold", fmt.Sprintf("%f", c.config.DetProbThreshold)); err != nil {
		return nil, fmt.Errorf("fehler beim Schreiben von threshold: %w", err)
	}
	if err := writer.WriteField("extract_embedding", "true"); err != nil {
		return nil, fmt.Errorf("fehler beim Schreiben von extract_embedding: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("fehler beim Schließen des Formularschreibers: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/detect", c.config.URL), body)
	if err != nil {
		return nil, fmt.Errorf("fehler beim Erstellen der Anfrage: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstreamService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: embedding service status %d: %s", apperr.ErrUpstreamService, resp.StatusCode, string(bodyBytes))
	}

	var apiResp apiDetectResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", apperr.ErrExtractionFailed, err)
	}

	if apiResp.Status != "ok" {
		return nil, fmt.Errorf("%w: service reported status %q", apperr.ErrExtractionFailed, apiResp.Status)
	}

	if apiResp.FacesCount == 0 || len(apiResp.Faces) == 0 {
		return nil, apperr.ErrNoFaceFound
	}

	if apiResp.FacesCount > 1 {
		log.WithFields(logFields).Debugf("Image contains %d faces, using the first", apiResp.FacesCount)
	}

	embedding := apiResp.Faces[0].Embedding
	if len(embedding) != models.EmbeddingDim {
		return nil, fmt.Errorf("%w: unexpected embedding dimension %d", apperr.ErrExtractionFailed, len(embedding))
	}

	return embedding, nil
}
