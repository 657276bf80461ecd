package recall

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recallme-go/internal/core/apperr"
	"recallme-go/internal/core/models"
	"recallme-go/internal/detection"
	"recallme-go/internal/integrations/llm"
	"recallme-go/internal/util/timezone"

	log "github.com/sirupsen/logrus"
)

// RecognitionEvent beschreibt ein Erkennungsergebnis für Abonnenten (SSE,
// MQTT).
type RecognitionEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	Matched    bool      `json:"matched"`
	PersonID   uint      `json:"person_id,omitempty"`
	Name       string    `json:"name,omitempty"`
	Relation   string    `json:"relation,omitempty"`
	Similarity float64   `json:"similarity,omitempty"`
	Labels     []string  `json:"labels,omitempty"`
	Message    string    `json:"message"`
}

// Publisher verteilt Erkennungsereignisse an externe Abnehmer.
type Publisher interface {
	PublishRecognition(event RecognitionEvent)
}

// Result ist das Ergebnis des synchronen Erkennungspfads.
type Result struct {
	Message    string               `json:"response"`
	Matched    bool                 `json:"matched"`
	Match      *models.MatchResult  `json:"match,omitempty"`
	Labels     []string             `json:"labels"`
	Candidates []models.MatchResult `json:"-"`
}

// FileDetector ist die vom Erkennungspfad benötigte Teilmenge des
// Objektdetektors.
type FileDetector interface {
	DetectFile(ctx context.Context, imgPath string) ([]detection.DetectedObject, error)
}

// Extractor liefert das Gesichts-Embedding eines Bildes.
type Extractor interface {
	ExtractEmbedding(ctx context.Context, imagePath string) ([]float32, error)
}

// FaceStore ist die vom Erkennungspfad benötigte Teilmenge des Stores.
type FaceStore interface {
	AddPerson(patientID uint, firstName, lastName, relationship string, embedding []float32, notes string) (uint, error)
	FindSimilar(embedding []float32, threshold float64) ([]models.MatchResult, error)
	GetPatient(id uint) (*models.Patient, error)
}

// MessageGenerator formuliert aus Bild und Kontext die Erinnerungsnachricht.
type MessageGenerator interface {
	GenerateMessage(ctx context.Context, imagePath string, pc llm.PersonContext) (string, error)
}

// Service bündelt den Entscheidungspfad für einzelne Frames: Objekterkennung,
// Label-Filterung, Gesichtsabgleich und Nachrichtenerzeugung.
type Service struct {
	detector   FileDetector
	redactor   *detection.Redactor
	extractor  Extractor
	store      FaceStore
	generator  MessageGenerator
	publishers []Publisher
}

// NewService erstellt den Erkennungsdienst.
func NewService(detector FileDetector, redactor *detection.Redactor, extractor Extractor, store FaceStore, generator MessageGenerator) *Service {
	return &Service{
		detector:  detector,
		redactor:  redactor,
		extractor: extractor,
		store:     store,
		generator: generator,
	}
}

// AddPublisher registriert einen Abnehmer für Erkennungsereignisse.
func (s *Service) AddPublisher(p Publisher) {
	if p != nil {
		s.publishers = append(s.publishers, p)
	}
}

func (s *Service) publish(event RecognitionEvent) {
	for _, p := range s.publishers {
		p.PublishRecognition(event)
	}
}

// RegisterFace registriert das Gesicht auf dem Bild als bekannte Person des
// Patienten und gibt die neue Personen-ID zurück.
func (s *Service) RegisterFace(ctx context.Context, patientID uint, firstName, lastName, relationship, notes, imagePath string) (uint, error) {
	embedding, err := s.extractor.ExtractEmbedding(ctx, imagePath)
	if err != nil {
		return 0, err
	}

	personID, err := s.store.AddPerson(patientID, firstName, lastName, relationship, embedding, notes)
	if err != nil {
		return 0, err
	}

	log.Infof("Registered known face: person %d (%s %s, %s) for patient %d", personID, firstName, lastName, relationship, patientID)
	return personID, nil
}

// RecognizeFrame führt den Entscheidungspfad für ein einzelnes Bild aus:
// Objekte erkennen, sensible Labels filtern, bei einer Person das Gesicht
// gegen den Bestand abgleichen und in jedem Zweig eine Nachricht vom
// Textdienst anfordern.
func (s *Service) RecognizeFrame(ctx context.Context, imagePath string) (*Result, error) {
	objects, err := s.detector.DetectFile(ctx, imagePath)
	if err != nil {
		return nil, fmt.Errorf("object detection failed: %w", err)
	}

	// Filterung läuft bedingungslos, bevor Labels den Detektor verlassen
	objects = s.redactor.RedactObjects(objects)
	labels := detection.Labels(objects)

	result := &Result{Labels: labels}

	if detection.ContainsPerson(objects) {
		if err := s.recognizePerson(ctx, imagePath, result); err != nil {
			return nil, err
		}
	} else {
		pc := llm.PersonContext{
			Name:                "unknown scene",
			Relation:            "environment",
			PersonalInformation: fmt.Sprintf("No person is visible. Detected objects: %v. Describe the scene and offer gentle orientation help.", labels),
		}
		message, err := s.generator.GenerateMessage(ctx, imagePath, pc)
		if err != nil {
			return nil, err
		}
		result.Message = message
	}

	event := RecognitionEvent{
		Timestamp: timezone.Now(),
		Matched:   result.Matched,
		Labels:    labels,
		Message:   result.Message,
	}
	if result.Match != nil {
		event.PersonID = result.Match.PersonID
		event.Name = result.Match.FirstName + " " + result.Match.LastName
		event.Relation = result.Match.Relationship
		event.Similarity = result.Match.Similarity
	}
	s.publish(event)

	return result, nil
}

// recognizePerson gleicht das Gesicht gegen den Bestand ab und füllt das
// Ergebnis mit Treffer und Nachricht.
func (s *Service) recognizePerson(ctx context.Context, imagePath string, result *Result) error {
	embedding, err := s.extractor.ExtractEmbedding(ctx, imagePath)
	if err != nil {
		// Eine Person ohne extrahierbares Gesicht wird wie ein Unbekannter
		// behandelt
		if errors.Is(err, apperr.ErrNoFaceFound) {
			log.Debug("Person detected but no face could be extracted")
			return s.unfamiliarPerson(ctx, imagePath, result)
		}
		return err
	}

	matches, err := s.store.FindSimilar(embedding, 0)
	if err != nil {
		return err
	}

	if len(matches) == 0 {
		return s.unfamiliarPerson(ctx, imagePath, result)
	}

	top := matches[0]
	result.Matched = true
	result.Match = &top
	result.Candidates = matches

	pc := llm.PersonContext{
		Name:                top.FirstName + " " + top.LastName,
		Relation:            top.Relationship,
		PersonalInformation: top.Notes,
	}

	log.Infof("Face matched: %s (%s), similarity %.3f", pc.Name, pc.Relation, top.Similarity)

	message, err := s.generator.GenerateMessage(ctx, imagePath, pc)
	if err != nil {
		return err
	}
	result.Message = message
	return nil
}

func (s *Service) unfamiliarPerson(ctx context.Context, imagePath string, result *Result) error {
	pc := llm.PersonContext{
		Name:                "an unfamiliar person",
		Relation:            "unknown",
		PersonalInformation: "This person is not in the list of known people. Reassure the patient calmly and suggest asking the person who they are.",
	}
	message, err := s.generator.GenerateMessage(ctx, imagePath, pc)
	if err != nil {
		return err
	}
	result.Message = message
	return nil
}
