package facestore

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"recallme-go/config"
	"recallme-go/internal/core/apperr"
	"recallme-go/internal/core/models"
	"recallme-go/internal/database"

	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DBConfig{
		File: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return db
}

func testStore(t *testing.T, strategy string) *Store {
	t.Helper()
	return New(testDB(t), config.FacesConfig{
		SimilarityStrategy:  strategy,
		SimilarityThreshold: 0.55,
	})
}

// testEmbedding erzeugt einen Vektor voller Dimension, dessen erste
// Komponente den Wert trägt.
func testEmbedding(first float32) []float32 {
	e := make([]float32, models.EmbeddingDim)
	e[0] = first
	return e
}

func TestAddPersonForeignKeyViolation(t *testing.T) {
	store := testStore(t, StrategyEuclidean)

	_, err := store.AddPerson(9999, "Maria", "Muster", "daughter", testEmbedding(1), "")
	if !errors.Is(err, apperr.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
	}

	// Es darf keine Zeile entstanden sein
	persons, err := store.ListPersons()
	if err != nil {
		t.Fatalf("ListPersons failed: %v", err)
	}
	if len(persons) != 0 {
		t.Errorf("expected no persons after failed insert, got %d", len(persons))
	}
}

func TestGetPatientNotFound(t *testing.T) {
	store := testStore(t, StrategyEuclidean)

	patient, err := store.GetPatient(4711)
	if err != nil {
		t.Fatalf("GetPatient failed: %v", err)
	}
	if patient != nil {
		t.Errorf("expected nil for missing patient, got %+v", patient)
	}
}

func TestAddPersonRejectsWrongDimension(t *testing.T) {
	store := testStore(t, StrategyEuclidean)

	patientID, err := store.AddPatient("Hans", "Muster")
	if err != nil {
		t.Fatalf("AddPatient failed: %v", err)
	}

	if _, err := store.AddPerson(patientID, "Maria", "Muster", "daughter", []float32{1, 2, 3}, ""); err == nil {
		t.Error("expected error for wrong embedding dimension")
	}
}

func TestFindSimilarEuclidean(t *testing.T) {
	store := testStore(t, StrategyEuclidean)

	patientID, err := store.AddPatient("Hans", "Muster")
	if err != nil {
		t.Fatalf("AddPatient failed: %v", err)
	}

	// Personen in bekannten Abständen zum Abfragevektor anlegen
	people := []struct {
		name     string
		first    float32
		relation string
	}{
		{"Exact", 0.0, "daughter"},
		{"Near", 0.2, "son"},
		{"Borderline", 0.5, "friend"},
		{"Far", 0.9, "neighbor"}, // Distanz 0.9 > 0.55, kein Treffer
	}
	for _, p := range people {
		if _, err := store.AddPerson(patientID, p.name, "Muster", p.relation, testEmbedding(p.first), ""); err != nil {
			t.Fatalf("AddPerson(%s) failed: %v", p.name, err)
		}
	}

	results, err := store.FindSimilar(testEmbedding(0), 0)
	if err != nil {
		t.Fatalf("FindSimilar failed: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 matches below threshold, got %d", len(results))
	}

	// Absteigend nach Ähnlichkeit sortiert
	for i := 1; i < len(results); i++ {
		if results[i].Similarity > results[i-1].Similarity {
			t.Errorf("results not sorted descending: %v before %v", results[i-1].Similarity, results[i].Similarity)
		}
	}

	if results[0].FirstName != "Exact" {
		t.Errorf("expected best match 'Exact', got %q", results[0].FirstName)
	}
	if math.Abs(results[0].Similarity-1.0) > 1e-6 {
		t.Errorf("expected similarity 1.0 for exact match, got %v", results[0].Similarity)
	}

	// Jeder Treffer erfüllt das Distanzprädikat
	for _, r := range results {
		if 1-r.Similarity >= 0.55 {
			t.Errorf("match %q violates threshold: similarity %v", r.FirstName, r.Similarity)
		}
	}
}

func TestFindSimilarReturnsAtMostFive(t *testing.T) {
	store := testStore(t, StrategyEuclidean)

	patientID, err := store.AddPatient("Hans", "Muster")
	if err != nil {
		t.Fatalf("AddPatient failed: %v", err)
	}

	for i := 0; i < 8; i++ {
		first := float32(i) * 0.01
		if _, err := store.AddPerson(patientID, "Person", "Muster", "friend", testEmbedding(first), ""); err != nil {
			t.Fatalf("AddPerson failed: %v", err)
		}
	}

	results, err := store.FindSimilar(testEmbedding(0), 0)
	if err != nil {
		t.Fatalf("FindSimilar failed: %v", err)
	}
	if len(results) > 5 {
		t.Errorf("expected at most 5 results, got %d", len(results))
	}
}

func TestFindSimilarEmptyStore(t *testing.T) {
	store := testStore(t, StrategyEuclidean)

	results, err := store.FindSimilar(testEmbedding(0), 0)
	if err != nil {
		t.Fatalf("FindSimilar on empty store must not fail: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty result, got %d entries", len(results))
	}
}

func TestEmbeddingRoundTrip(t *testing.T) {
	store := testStore(t, StrategyEuclidean)

	patientID, err := store.AddPatient("Hans", "Muster")
	if err != nil {
		t.Fatalf("AddPatient failed: %v", err)
	}

	original := make([]float32, models.EmbeddingDim)
	for i := range original {
		original[i] = float32(i) * 0.0173
	}

	if _, err := store.AddPerson(patientID, "Maria", "Muster", "daughter", original, "likes gardening"); err != nil {
		t.Fatalf("AddPerson failed: %v", err)
	}

	persons, err := store.ListPersons()
	if err != nil {
		t.Fatalf("ListPersons failed: %v", err)
	}
	if len(persons) != 1 {
		t.Fatalf("expected 1 person, got %d", len(persons))
	}

	restored, err := persons[0].Embedding()
	if err != nil {
		t.Fatalf("Embedding failed: %v", err)
	}
	for i := range original {
		if restored[i] != original[i] {
			t.Fatalf("embedding not lossless at index %d: %v != %v", i, restored[i], original[i])
		}
	}
}

func TestFindSimilarIndexed(t *testing.T) {
	db := testDB(t)
	cfg := config.FacesConfig{
		SimilarityStrategy:  StrategyIndex,
		SimilarityThreshold: 0.5,
	}
	store := New(db, cfg)

	patientID, err := store.AddPatient("Hans", "Muster")
	if err != nil {
		t.Fatalf("AddPatient failed: %v", err)
	}

	same := testEmbedding(1)
	if _, err := store.AddPerson(patientID, "Maria", "Muster", "daughter", same, "notes"); err != nil {
		t.Fatalf("AddPerson failed: %v", err)
	}

	// Orthogonaler Vektor, Kosinus-Ähnlichkeit 0, unter dem Schwellenwert
	other := make([]float32, models.EmbeddingDim)
	other[1] = 1
	if _, err := store.AddPerson(patientID, "Fremd", "Person", "unknown", other, ""); err != nil {
		t.Fatalf("AddPerson failed: %v", err)
	}

	results, err := store.FindSimilar(same, 0)
	if err != nil {
		t.Fatalf("FindSimilar failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly 1 match above threshold, got %d", len(results))
	}
	if results[0].FirstName != "Maria" {
		t.Errorf("expected match 'Maria', got %q", results[0].FirstName)
	}
	if results[0].Similarity <= cfg.SimilarityThreshold {
		t.Errorf("match similarity %v does not exceed threshold", results[0].Similarity)
	}
}

func TestIndexWarmLoad(t *testing.T) {
	db := testDB(t)
	cfg := config.FacesConfig{
		SimilarityStrategy:  StrategyIndex,
		SimilarityThreshold: 0.5,
	}

	first := New(db, cfg)
	patientID, err := first.AddPatient("Hans", "Muster")
	if err != nil {
		t.Fatalf("AddPatient failed: %v", err)
	}
	if _, err := first.AddPerson(patientID, "Maria", "Muster", "daughter", testEmbedding(1), ""); err != nil {
		t.Fatalf("AddPerson failed: %v", err)
	}

	// Neuer Store auf derselben Datenbank muss den Bestand in den Index laden
	second := New(db, cfg)
	results, err := second.FindSimilar(testEmbedding(1), 0)
	if err != nil {
		t.Fatalf("FindSimilar failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected warm-loaded index to return 1 match, got %d", len(results))
	}
}

func TestGetStatistics(t *testing.T) {
	store := testStore(t, StrategyEuclidean)

	patientID, err := store.AddPatient("Hans", "Muster")
	if err != nil {
		t.Fatalf("AddPatient failed: %v", err)
	}
	if _, err := store.AddPerson(patientID, "Maria", "Muster", "daughter", testEmbedding(1), ""); err != nil {
		t.Fatalf("AddPerson failed: %v", err)
	}

	stats, err := store.GetStatistics()
	if err != nil {
		t.Fatalf("GetStatistics failed: %v", err)
	}
	if stats.PatientCount != 1 || stats.PersonCount != 1 {
		t.Errorf("unexpected statistics: %+v", stats)
	}
}
