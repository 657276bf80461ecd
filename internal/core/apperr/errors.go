package apperr

import "errors"

// Fehler-Taxonomie des Dienstes. Die HTTP-Schicht und der synchrone
// Entscheidungspfad prüfen diese Sentinel-Werte mit errors.Is und wandeln
// sie in strukturierte Fehlerantworten um; die Hintergrund-Pipeline
// protokolliert sie lediglich.
var (
	// ErrNoFaceFound wird gemeldet, wenn ein Bild kein erkennbares Gesicht enthält.
	ErrNoFaceFound = errors.New("no face found in image")

	// ErrExtractionFailed wird gemeldet, wenn ein Bild nicht dekodiert oder
	// kein Embedding berechnet werden konnte.
	ErrExtractionFailed = errors.New("face embedding extraction failed")

	// ErrForeignKeyViolation wird gemeldet, wenn eine Person auf einen nicht
	// existierenden Patienten verweist.
	ErrForeignKeyViolation = errors.New("referenced patient does not exist")

	// ErrStoreUnavailable wird gemeldet, wenn die Datenbank nicht erreichbar ist.
	ErrStoreUnavailable = errors.New("face store unavailable")

	// ErrCameraUnavailable wird gemeldet, wenn keine Kamera gefunden wurde.
	ErrCameraUnavailable = errors.New("no camera available")

	// ErrUpstreamService wird gemeldet, wenn ein externer Dienst (LLM oder
	// Embedding-Dienst) eine Nicht-Erfolgsantwort liefert.
	ErrUpstreamService = errors.New("upstream service error")
)
