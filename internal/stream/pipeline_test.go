package stream

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"recallme-go/config"
	"recallme-go/internal/core/apperr"
	"recallme-go/internal/detection"

	gocv "gocv.io/x/gocv"
)

type nullDetector struct{}

func (nullDetector) Detect(ctx context.Context, img gocv.Mat) ([]detection.DetectedObject, error) {
	return nil, nil
}

// failingOpener simuliert ein System ohne Kamera.
func failingOpener() (Source, error) {
	return nil, fmt.Errorf("%w: no camera found", apperr.ErrCameraUnavailable)
}

func testPipeline() *Pipeline {
	cfg := config.CameraConfig{MaxProbe: 1, JPEGQuality: 80}
	redactor := detection.NewRedactor(nil)
	return NewPipeline(cfg, nullDetector{}, redactor, failingOpener)
}

func TestPipelineStartIsIdempotent(t *testing.T) {
	p := testPipeline()
	defer p.Stop()

	p.Start()
	p.Start() // zweiter Aufruf ist ein No-op

	if !p.Running() {
		t.Fatal("pipeline should be running after start")
	}
}

func TestPipelineStopIsIdempotent(t *testing.T) {
	p := testPipeline()

	p.Stop() // Stop ohne Start ist ein No-op
	if p.Running() {
		t.Fatal("pipeline should not be running")
	}

	p.Start()
	p.Stop()
	p.Stop() // zweiter Stop ist ein No-op

	if p.Running() {
		t.Fatal("pipeline should be stopped")
	}
}

func TestPipelineConcurrentStop(t *testing.T) {
	p := testPipeline()

	for i := 0; i < 100; i++ {
		p.Start()

		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p.Stop()
			}()
		}
		wg.Wait()

		if p.Running() {
			t.Fatal("pipeline should be stopped after concurrent stops")
		}
	}

	// Nach all den Stopps muss ein Neustart weiterhin möglich sein
	p.Start()
	defer p.Stop()
	if !p.Running() {
		t.Fatal("pipeline should be running after restart")
	}
}

func TestPipelineStopThenStart(t *testing.T) {
	p := testPipeline()

	p.Start()
	p.Stop()
	p.Start()
	defer p.Stop()

	if !p.Running() {
		t.Fatal("pipeline should be running after restart")
	}
}

func TestPipelineStopJoinsWorkers(t *testing.T) {
	p := testPipeline()
	p.Start()

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return within bounded time")
	}
}

func TestPipelineDegradedWithoutCamera(t *testing.T) {
	p := testPipeline()
	p.Start()
	defer p.Stop()

	// Ohne Kamera bleibt der Zustand Running, aber es entsteht kein Frame
	if !p.Running() {
		t.Fatal("pipeline should report running in degraded mode")
	}
	if _, ok := p.LatestFrame(); ok {
		t.Fatal("no frame should be published without a camera")
	}
}
