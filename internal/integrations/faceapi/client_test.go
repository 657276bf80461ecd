package faceapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"recallme-go/config"
	"recallme-go/internal/core/apperr"
	"recallme-go/internal/core/models"
)

func writeTestImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "face.jpg")
	if err := os.WriteFile(path, []byte("not-a-real-jpeg"), 0644); err != nil {
		t.Fatalf("failed to write test image: %v", err)
	}
	return path
}

func testClient(url string) *Client {
	return NewClient(config.FaceAPIConfig{
		URL:            url,
		TimeoutSeconds: 5,
	})
}

func TestExtractEmbedding(t *testing.T) {
	embedding := make([]float32, models.EmbeddingDim)
	embedding[0] = 0.42

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file field: %v", err)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "ok",
			"faces_count": 1,
			"faces": []map[string]interface{}{
				{"bbox": []int{0, 0, 100, 100}, "confidence": 0.99, "embedding": embedding},
			},
		})
	}))
	defer server.Close()

	got, err := testClient(server.URL).ExtractEmbedding(context.Background(), writeTestImage(t))
	if err != nil {
		t.Fatalf("ExtractEmbedding failed: %v", err)
	}
	if len(got) != models.EmbeddingDim {
		t.Fatalf("expected %d dimensions, got %d", models.EmbeddingDim, len(got))
	}
	if got[0] != 0.42 {
		t.Errorf("unexpected embedding value: %v", got[0])
	}
}

func TestExtractEmbeddingNoFace(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "ok",
			"faces_count": 0,
			"faces":       []interface{}{},
		})
	}))
	defer server.Close()

	_, err := testClient(server.URL).ExtractEmbedding(context.Background(), writeTestImage(t))
	if !errors.Is(err, apperr.ErrNoFaceFound) {
		t.Fatalf("expected ErrNoFaceFound, got %v", err)
	}
}

func TestExtractEmbeddingUsesFirstFace(t *testing.T) {
	first := make([]float32, models.EmbeddingDim)
	first[0] = 1
	second := make([]float32, models.EmbeddingDim)
	second[0] = 2

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "ok",
			"faces_count": 2,
			"faces": []map[string]interface{}{
				{"embedding": first},
				{"embedding": second},
			},
		})
	}))
	defer server.Close()

	got, err := testClient(server.URL).ExtractEmbedding(context.Background(), writeTestImage(t))
	if err != nil {
		t.Fatalf("ExtractEmbedding failed: %v", err)
	}
	if got[0] != 1 {
		t.Errorf("expected embedding of first face, got first value %v", got[0])
	}
}

func TestExtractEmbeddingServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := testClient(server.URL).ExtractEmbedding(context.Background(), writeTestImage(t))
	if !errors.Is(err, apperr.ErrUpstreamService) {
		t.Fatalf("expected ErrUpstreamService, got %v", err)
	}
}

func TestExtractEmbeddingWrongDimension(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "ok",
			"faces_count": 1,
			"faces": []map[string]interface{}{
				{"embedding": []float32{1, 2, 3}},
			},
		})
	}))
	defer server.Close()

	_, err := testClient(server.URL).ExtractEmbedding(context.Background(), writeTestImage(t))
	if !errors.Is(err, apperr.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/info" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"status":"ok","version":"1.0"}`)
	}))
	defer server.Close()

	ok, err := testClient(server.URL).Ping(context.Background())
	if err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if !ok {
		t.Error("expected service to report ok")
	}
}
