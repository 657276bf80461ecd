package facestore

import (
	"sync"

	"github.com/coder/hnsw"
)

// indexEntry hält die Metadaten einer indizierten Person.
type indexEntry struct {
	PersonID     uint
	FirstName    string
	LastName     string
	Relationship string
	Notes        string
}

// vectorIndex kapselt den HNSW-Graphen für die "index"-Strategie. Der Graph
// arbeitet mit Kosinus-Distanz; die gemeldete Ähnlichkeit ist 1 - Distanz.
type vectorIndex struct {
	graph    *hnsw.Graph[uint]
	idToMeta map[uint]indexEntry
	mu       sync.RWMutex
}

const indexMaxNeighbors = 16

func newVectorIndex() *vectorIndex {
	return &vectorIndex{
		idToMeta: make(map[uint]indexEntry),
	}
}

// Add fügt eine Person mit ihrem Embedding in den Index ein.
func (v *vectorIndex) Add(entry indexEntry, embedding []float32) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(embedding) == 0 {
		return
	}

	if v.graph == nil {
		g := hnsw.NewGraph[uint]()
		g.M = indexMaxNeighbors
		g.Ml = 1.0 / float64(indexMaxNeighbors) // Standard HNSW formula
		g.Distance = hnsw.CosineDistance
		v.graph = g
	}

	v.graph.Add(hnsw.MakeNode(entry.PersonID, embedding))
	v.idToMeta[entry.PersonID] = entry
}

// Search liefert die k nächsten Nachbarn samt Kosinus-Distanz.
func (v *vectorIndex) Search(query []float32, k int) ([]indexEntry, []float64) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.graph == nil {
		return nil, nil
	}

	neighbors := v.graph.Search(query, k)

	entries := make([]indexEntry, 0, len(neighbors))
	distances := make([]float64, 0, len(neighbors))
	for _, n := range neighbors {
		meta, ok := v.idToMeta[n.Key]
		if !ok {
			continue
		}
		entries = append(entries, meta)
		// Exakte Distanz direkt aus dem Knoten-Embedding berechnen
		distances = append(distances, CosineDistance(query, n.Value))
	}

	return entries, distances
}

// Count gibt die Anzahl indizierter Personen zurück.
func (v *vectorIndex) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.idToMeta)
}
