package facestore

import (
	"fmt"
	"sort"

	"recallme-go/config"
	"recallme-go/internal/core/apperr"
	"recallme-go/internal/core/models"
	"recallme-go/internal/database"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Ähnlichkeitsstrategien für FindSimilar. Die Strategie ist eine
// Deployment-Entscheidung und wird nie gemischt.
const (
	// StrategyEuclidean meldet einen Treffer bei Distanz < Schwellenwert;
	// die Ähnlichkeit ist 1 - Distanz und kann bei schlechten Treffern
	// negativ werden. Das ist eine akzeptierte Eigenheit der Semantik.
	StrategyEuclidean = "euclidean"

	// StrategyIndex nutzt den HNSW-Kosinus-Index; ein Treffer verlangt
	// Ähnlichkeit (1 - Distanz) > Schwellenwert.
	StrategyIndex = "index"
)

// maxResults begrenzt die Ergebnisliste von FindSimilar.
const maxResults = 5

// Store verwaltet Patienten und bekannte Personen samt Gesichts-Embeddings
// und führt die Ähnlichkeitssuche aus.
type Store struct {
	db       *gorm.DB
	cfg      config.FacesConfig
	index    *vectorIndex // nur bei StrategyIndex belegt
	strategy string
}

// New erstellt einen neuen Store. Bei der "index"-Strategie wird der
// HNSW-Index aus dem Datenbank-Bestand aufgebaut; ein Fehler dabei wird
// protokolliert und degradiert den Store nicht.
func New(db *gorm.DB, cfg config.FacesConfig) *Store {
	s := &Store{
		db:       db,
		cfg:      cfg,
		strategy: cfg.SimilarityStrategy,
	}

	if s.strategy == StrategyIndex {
		s.index = newVectorIndex()
		if err := s.warmIndex(); err != nil {
			log.WithError(err).Error("Failed to warm face index from database")
		} else {
			log.Infof("Face index warmed with %d persons", s.index.Count())
		}
	}

	return s
}

// Strategy gibt die konfigurierte Ähnlichkeitsstrategie zurück.
func (s *Store) Strategy() string {
	return s.strategy
}

// warmIndex lädt alle gespeicherten Embeddings in den HNSW-Index.
func (s *Store) warmIndex() error {
	var persons []models.Person
	if err := s.db.Find(&persons).Error; err != nil {
		return fmt.Errorf("loading persons: %w", err)
	}

	for i := range persons {
		p := &persons[i]
		embedding, err := p.Embedding()
		if err != nil {
			log.Warnf("Skipping person %d in index warm-up: %v", p.ID, err)
			continue
		}
		s.index.Add(indexEntry{
			PersonID:     p.ID,
			FirstName:    p.FirstName,
			LastName:     p.LastName,
			Relationship: p.Relationship,
			Notes:        p.Notes,
		}, embedding)
	}
	return nil
}

// AddPatient legt einen neuen, danach unveränderlichen Patienten an.
func (s *Store) AddPatient(firstName, lastName string) (uint, error) {
	patient := models.Patient{
		FirstName: firstName,
		LastName:  lastName,
	}
	if err := s.db.Create(&patient).Error; err != nil {
		return 0, fmt.Errorf("%w: creating patient: %v", apperr.ErrStoreUnavailable, err)
	}
	log.Infof("Created patient record ID: %d", patient.ID)
	return patient.ID, nil
}

// AddPerson registriert eine bekannte Person für einen Patienten. Verweist
// patientID auf keinen existierenden Patienten, schlägt der Aufruf mit
// apperr.ErrForeignKeyViolation fehl und es wird keine Zeile angelegt.
func (s *Store) AddPerson(patientID uint, firstName, lastName, relationship string, embedding []float32, notes string) (uint, error) {
	// Referentielle Integrität zum Schreibzeitpunkt prüfen
	var patient models.Patient
	if err := s.db.First(&patient, patientID).Error; err != nil {
		if database.IsRecordNotFound(err) {
			return 0, fmt.Errorf("%w: patient_id %d", apperr.ErrForeignKeyViolation, patientID)
		}
		return 0, fmt.Errorf("%w: checking patient %d: %v", apperr.ErrStoreUnavailable, patientID, err)
	}

	person := models.Person{
		PatientID:    patientID,
		FirstName:    firstName,
		LastName:     lastName,
		Relationship: relationship,
		Notes:        notes,
	}
	if err := person.SetEmbedding(embedding); err != nil {
		return 0, err
	}

	if err := s.db.Create(&person).Error; err != nil {
		return 0, fmt.Errorf("%w: creating person: %v", apperr.ErrStoreUnavailable, err)
	}
	log.Infof("Created person record ID: %d (patient: %d, relationship: %s)", person.ID, patientID, relationship)

	if s.index != nil {
		s.index.Add(indexEntry{
			PersonID:     person.ID,
			FirstName:    person.FirstName,
			LastName:     person.LastName,
			Relationship: person.Relationship,
			Notes:        person.Notes,
		}, embedding)
	}

	return person.ID, nil
}

// FindSimilar sucht die ähnlichsten bekannten Gesichter zum Abfrage-Embedding.
// Das Ergebnis hat höchstens fünf Einträge, absteigend nach Ähnlichkeit
// sortiert. Eine leere Liste ist ein gültiges Ergebnis, kein Fehler.
func (s *Store) FindSimilar(embedding []float32, threshold float64) ([]models.MatchResult, error) {
	if threshold <= 0 {
		threshold = s.cfg.SimilarityThreshold
	}

	switch s.strategy {
	case StrategyIndex:
		return s.findSimilarIndexed(embedding, threshold), nil
	default:
		return s.findSimilarEuclidean(embedding, threshold)
	}
}

// findSimilarEuclidean entspricht der Referenzsemantik: jedes gespeicherte
// Embedding wird gegen die Abfrage gehalten, Treffer bei Distanz <
// Schwellenwert, Ähnlichkeit = 1 - Distanz.
func (s *Store) findSimilarEuclidean(embedding []float32, threshold float64) ([]models.MatchResult, error) {
	var persons []models.Person
	if err := s.db.Find(&persons).Error; err != nil {
		return nil, fmt.Errorf("%w: loading persons: %v", apperr.ErrStoreUnavailable, err)
	}

	results := make([]models.MatchResult, 0)
	for i := range persons {
		p := &persons[i]
		stored, err := p.Embedding()
		if err != nil {
			log.Warnf("Skipping person %d in similarity search: %v", p.ID, err)
			continue
		}

		distance := EuclideanDistance(embedding, stored)
		if distance < threshold {
			results = append(results, models.MatchResult{
				PersonID:     p.ID,
				FirstName:    p.FirstName,
				LastName:     p.LastName,
				Relationship: p.Relationship,
				Notes:        p.Notes,
				Similarity:   1 - distance,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

// findSimilarIndexed nutzt den HNSW-Index; Treffer bei Ähnlichkeit >
// Schwellenwert.
func (s *Store) findSimilarIndexed(embedding []float32, threshold float64) []models.MatchResult {
	entries, distances := s.index.Search(embedding, maxResults)

	results := make([]models.MatchResult, 0, len(entries))
	for i, entry := range entries {
		similarity := 1 - distances[i]
		if similarity <= threshold {
			continue
		}
		results = append(results, models.MatchResult{
			PersonID:     entry.PersonID,
			FirstName:    entry.FirstName,
			LastName:     entry.LastName,
			Relationship: entry.Relationship,
			Notes:        entry.Notes,
			Similarity:   similarity,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	return results
}

// GetPatient holt einen Patienten anhand seiner ID; nil ohne Fehler, wenn er
// nicht existiert.
func (s *Store) GetPatient(id uint) (*models.Patient, error) {
	var patient models.Patient
	if err := s.db.First(&patient, id).Error; err != nil {
		if database.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: loading patient %d: %v", apperr.ErrStoreUnavailable, id, err)
	}
	return &patient, nil
}

// ListPatients holt alle Patienten.
func (s *Store) ListPatients() ([]models.Patient, error) {
	var patients []models.Patient
	if err := s.db.Find(&patients).Error; err != nil {
		return nil, fmt.Errorf("%w: loading patients: %v", apperr.ErrStoreUnavailable, err)
	}
	return patients, nil
}

// ListPersons holt alle bekannten Personen.
func (s *Store) ListPersons() ([]models.Person, error) {
	var persons []models.Person
	if err := s.db.Find(&persons).Error; err != nil {
		return nil, fmt.Errorf("%w: loading persons: %v", apperr.ErrStoreUnavailable, err)
	}
	return persons, nil
}

// GetStatistics gibt Kennzahlen über den Datenbestand zurück.
func (s *Store) GetStatistics() (models.Statistics, error) {
	var stats models.Statistics

	if err := s.db.Model(&models.Patient{}).Count(&stats.PatientCount).Error; err != nil {
		return stats, fmt.Errorf("%w: counting patients: %v", apperr.ErrStoreUnavailable, err)
	}
	if err := s.db.Model(&models.Person{}).Count(&stats.PersonCount).Error; err != nil {
		return stats, fmt.Errorf("%w: counting persons: %v", apperr.ErrStoreUnavailable, err)
	}

	return stats, nil
}
