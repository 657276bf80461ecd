package detection

import (
	"reflect"
	"testing"
)

func TestRedact(t *testing.T) {
	redactor := NewRedactor([]string{"toilet", "Knife"})

	tests := []struct {
		name   string
		labels []string
		want   []string
	}{
		{
			name:   "denied label removed",
			labels: []string{"person", "toilet", "keys"},
			want:   []string{"person", "keys"},
		},
		{
			name:   "case insensitive",
			labels: []string{"Toilet", "KNIFE", "chair"},
			want:   []string{"chair"},
		},
		{
			name:   "nothing denied",
			labels: []string{"person", "chair"},
			want:   []string{"person", "chair"},
		},
		{
			name:   "empty input",
			labels: []string{},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := redactor.Redact(tt.labels)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Redact() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRedactIsIdempotent(t *testing.T) {
	redactor := NewRedactor([]string{"toilet", "gun"})

	input := []string{"person", "toilet", "gun", "cup"}
	once := redactor.Redact(input)
	twice := redactor.Redact(once)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Redact not idempotent: first %v, second %v", once, twice)
	}

	for _, label := range once {
		if label == "toilet" || label == "gun" {
			t.Errorf("denied label %q survived filtering", label)
		}
	}
}

func TestRedactObjects(t *testing.T) {
	redactor := NewRedactor([]string{"scissors"})

	objects := []DetectedObject{
		{Label: "person", Confidence: 0.9},
		{Label: "Scissors", Confidence: 0.8},
		{Label: "cup", Confidence: 0.7},
	}

	filtered := redactor.RedactObjects(objects)
	if len(filtered) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(filtered))
	}
	if filtered[0].Label != "person" || filtered[1].Label != "cup" {
		t.Errorf("unexpected labels after filtering: %v", Labels(filtered))
	}
}

func TestContainsPerson(t *testing.T) {
	if !ContainsPerson([]DetectedObject{{Label: "chair"}, {Label: "person"}}) {
		t.Error("expected person to be found")
	}
	if ContainsPerson([]DetectedObject{{Label: "chair"}}) {
		t.Error("expected no person")
	}
	if ContainsPerson(nil) {
		t.Error("expected no person in empty detections")
	}
}
