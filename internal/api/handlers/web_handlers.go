package handlers

import (
	"html/template"
	"net/http"

	"recallme-go/internal/stream"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// WebHandler liefert die Demo-Seite für den Live-Stream
type WebHandler struct {
	pipeline *stream.Pipeline
}

// NewWebHandler erstellt einen neuen Web-Handler
func NewWebHandler(pipeline *stream.Pipeline) *WebHandler {
	return &WebHandler{pipeline: pipeline}
}

// demoPage zeigt den zuletzt annotierten Frame und aktualisiert ihn zyklisch.
const demoPage = `<!DOCTYPE html>
<html lang="{{.Language}}">
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: sans-serif; background-color: #f0f0f0; text-align: center; }
        img { max-width: 640px; border: 1px solid #ccc; margin-top: 1em; }
    </style>
</head>
<body>
    <h1>{{.Title}}</h1>
    <p>{{.Description}}</p>
    <img id="frame" alt="{{.Waiting}}">
    <script>
        async function refresh() {
            try {
                const res = await fetch('live_detection');
                if (res.ok) {
                    const data = await res.json();
                    document.getElementById('frame').src = 'data:image/jpeg;base64,' + data.frame;
                }
            } catch (e) {
                // keep polling
            }
            setTimeout(refresh, 500);
        }
        refresh();
    </script>
</body>
</html>`

var demoTemplate = template.Must(template.New("live").Parse(demoPage))

// RegisterRoutes registriert die Web-Routen
func (h *WebHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/live", h.LivePage)
}

// LivePage liefert die Demo-Seite in der Sprache der Session aus
func (h *WebHandler) LivePage(c *gin.Context) {
	language := "en"
	if lang, ok := c.Get("language"); ok {
		if s, ok := lang.(string); ok && s != "" {
			language = s
		}
	}

	data := gin.H{
		"Language":    language,
		"Title":       translate(c, "app.title", "ReCallMe") + " Live",
		"Description": translate(c, "app.description", "Memory reinforcement service"),
		"Waiting":     translate(c, "app.waiting", "Waiting for frames..."),
	}

	c.Writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := demoTemplate.Execute(c.Writer, data); err != nil {
		log.WithError(err).Error("Failed to render live page")
	}
}
