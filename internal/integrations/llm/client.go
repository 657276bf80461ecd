package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"recallme-go/config"
	"recallme-go/internal/core/apperr"

	log "github.com/sirupsen/logrus"
)

// Log-Felder für die LLM-Komponente definieren
var logFields = log.Fields{
	"component": "llm",
}

// PersonContext beschreibt die erkannte Person für die Nachrichtenerzeugung.
type PersonContext struct {
	Name                string `json:"name"`
	Relation            string `json:"relation"`
	PersonalInformation string `json:"personal_information"`
}

// Client spricht den externen Textgenerierungsdienst an, der aus Bild und
// Kontext eine beruhigende Erinnerungsnachricht formuliert.
type Client struct {
	config     config.LLMConfig
	httpClient *http.Client
}

// apiResponse enthält die Antwort des Textgenerierungsdienstes
type apiResponse struct {
	Response string `json:"response"`
}

// promptTemplate gibt dem Dienst Rolle, Kontext und Beispielantworten vor.
// %s wird durch den JSON-kodierten Personenkontext ersetzt.
const promptTemplate = `
System Instruction: You are assisting a dementia patient in identifying and recalling people they see. Given context about the person in front of them, provide a friendly, comforting message to help the patient recognize who it is.

Context:
%s

Few-shot Examples:

1. Context: {"name": "John", "relation": "son", "personal_information": "John visits you often and enjoys talking with you about gardening."}
   Message: "This is John, your son, sitting with you. He visits you often and loves chatting about gardening with you."

2. Context: {"name": "Mary", "relation": "daughter", "personal_information": "Mary loves baking with you on weekends and makes your favorite chocolate cake."}
   Message: "Here with you is Mary, your daughter. She enjoys baking with you, especially your favorite chocolate cake."

3. Context: {"name": "Michael", "relation": "friend", "personal_information": "You and Michael go way back. You both enjoy playing cards together."}
   Message: "This is Michael, your friend from many years ago. You both share fond memories of playing cards together."

New Instance:
Given the context: %s
Provide a comforting message that reminds the patient of the person's name, relationship, and something familiar about them.
`

// NewClient erstellt einen neuen LLM-Client
func NewClient(config config.LLMConfig) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}
}

// BuildPrompt setzt den vollständigen Prompt aus Vorlage und Kontext zusammen.
func BuildPrompt(pc PersonContext) (string, error) {
	contextJSON, err := json.Marshal(pc)
	if err != nil {
		return "", fmt.Errorf("fehler beim Kodieren des Kontexts: %w", err)
	}
	return fmt.Sprintf(promptTemplate, contextJSON, contextJSON), nil
}

// GenerateMessage sendet Bild und Kontext an den Textgenerierungsdienst und
// gibt die formulierte Erinnerungsnachricht zurück.
func (c *Client) GenerateMessage(ctx context.Context, imagePath string, pc PersonContext) (string, error) {
	prompt, err := BuildPrompt(pc)
	if err != nil {
		return "", err
	}

	file, err := os.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("fehler beim Öffnen des Bildes: %w", err)
	}
	defer file.Close()

	// Multipart-Form vorbereiten
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return "", fmt.Errorf("fehler beim Erstellen des Formularfeldes: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("fehler beim Kopieren der Bilddaten: %w", err)
	}

	if err := writer.WriteField("input_text", prompt); err != nil {
		return "", fmt.Errorf("fehler beim Schreiben von input_text: %w", err)
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("fehler beim Schließen des Formularschreibers: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.URL, body)
	if err != nil {
		return "", fmt.Errorf("fehler beim Erstellen der Anfrage: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	log.WithFields(logFields).Debugf("Requesting reminder message for %s (%s)", pc.Name, pc.Relation)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrUpstreamService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: llm service status %d: %s", apperr.ErrUpstreamService, resp.StatusCode, string(bodyBytes))
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", apperr.ErrUpstreamService, err)
	}

	message := strings.TrimSpace(apiResp.Response)
	if message == "" {
		return "", fmt.Errorf("%w: llm service returned an empty message", apperr.ErrUpstreamService)
	}

	return message, nil
}
