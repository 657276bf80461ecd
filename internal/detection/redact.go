package detection

import "strings"

// Redactor entfernt sensible Begriffe aus erkannten Objektlabels, bevor sie
// die Komponente verlassen. Der Filter ist idempotent und vergleicht
// unabhängig von Groß- und Kleinschreibung.
type Redactor struct {
	denylist map[string]struct{}
}

// NewRedactor erstellt einen Redactor aus der konfigurierten Begriffsliste.
func NewRedactor(terms []string) *Redactor {
	denylist := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		denylist[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return &Redactor{denylist: denylist}
}

// Redact filtert alle Labels heraus, die auf der Denyliste stehen. Die
// Reihenfolge der verbleibenden Labels bleibt erhalten.
func (r *Redactor) Redact(labels []string) []string {
	filtered := make([]string, 0, len(labels))
	for _, label := range labels {
		if _, denied := r.denylist[strings.ToLower(label)]; denied {
			continue
		}
		filtered = append(filtered, label)
	}
	return filtered
}

// RedactObjects filtert erkannte Objekte anhand ihres Labels.
func (r *Redactor) RedactObjects(objects []DetectedObject) []DetectedObject {
	filtered := make([]DetectedObject, 0, len(objects))
	for _, obj := range objects {
		if _, denied := r.denylist[strings.ToLower(obj.Label)]; denied {
			continue
		}
		filtered = append(filtered, obj)
	}
	return filtered
}

// Labels extrahiert die Labels aus einer Objektliste.
func Labels(objects []DetectedObject) []string {
	labels := make([]string, 0, len(objects))
	for _, obj := range objects {
		labels = append(labels, obj.Label)
	}
	return labels
}
