package facestore

import "math"

// EuclideanDistance berechnet den euklidischen Abstand zweier Vektoren.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.MaxFloat64
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// CosineDistance berechnet den Kosinus-Abstand zweier Vektoren, also
// 1 - Kosinus-Ähnlichkeit. Das Ergebnis liegt zwischen 0 (identisch)
// und 2 (entgegengesetzt).
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0 // Maximalabstand bei ungültiger Eingabe
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2.0 // Nullvektoren haben keine Richtung
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rundungsfehler auf [-1, 1] begrenzen
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return 1 - similarity
}
