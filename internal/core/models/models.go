package models

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EmbeddingDim ist die feste Länge der Gesichts-Embeddings, wie sie der
// Embedding-Dienst liefert (dlib-kompatibles 128-dimensionales Modell).
const EmbeddingDim = 128

// Patient repräsentiert den betreuten Patienten. Der Datensatz ist nach der
// Anlage unveränderlich.
type Patient struct {
	gorm.Model
	FirstName string   `gorm:"not null" json:"first_name"`
	LastName  string   `gorm:"not null" json:"last_name"`
	Persons   []Person `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE;" json:"-"`
}

// Person repräsentiert eine dem Patienten bekannte Person mit gespeichertem
// Gesichts-Embedding.
type Person struct {
	gorm.Model
	PatientID     uint           `gorm:"index;not null" json:"patient_id"` // Fremdschlüssel zur Patient-Tabelle
	FirstName     string         `gorm:"not null" json:"first_name"`
	LastName      string         `gorm:"not null" json:"last_name"`
	Relationship  string         `json:"relationship"`       // z.B. 'daughter', 'friend'
	FaceEmbedding datatypes.JSON `gorm:"type:json" json:"-"` // JSON-Array mit EmbeddingDim float32-Werten
	Notes         string         `json:"notes"`              // Persönlicher Kontext für die LLM-Nachricht
	Patient       Patient        `gorm:"foreignKey:PatientID" json:"-"`
}

// SetEmbedding serialisiert den Embedding-Vektor als JSON-Spalte. Die
// JSON-Darstellung von float32-Werten ist innerhalb einfacher Genauigkeit
// verlustfrei rekonstruierbar.
func (p *Person) SetEmbedding(embedding []float32) error {
	if len(embedding) != EmbeddingDim {
		return fmt.Errorf("embedding has %d dimensions, expected %d", len(embedding), EmbeddingDim)
	}
	data, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}
	p.FaceEmbedding = datatypes.JSON(data)
	return nil
}

// Embedding rekonstruiert den gespeicherten Vektor.
func (p *Person) Embedding() ([]float32, error) {
	var embedding []float32
	if err := json.Unmarshal(p.FaceEmbedding, &embedding); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedding for person %d: %w", p.ID, err)
	}
	if len(embedding) != EmbeddingDim {
		return nil, fmt.Errorf("stored embedding for person %d has %d dimensions, expected %d", p.ID, len(embedding), EmbeddingDim)
	}
	return embedding, nil
}

// MatchResult ist das transiente Ergebnis einer Ähnlichkeitssuche. Es wird
// pro Anfrage erzeugt und nicht persistiert.
type MatchResult struct {
	PersonID     uint    `json:"id"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Relationship string  `json:"relationship"`
	Notes        string  `json:"notes"`
	Similarity   float64 `json:"similarity"` // Kann bei der Euklid-Strategie negativ sein
}

// Statistics repräsentiert Kennzahlen über den Datenbestand für den
// Status-Endpunkt.
type Statistics struct {
	PatientCount int64 `json:"patient_count"`
	PersonCount  int64 `json:"person_count"`
}
