package stream

import (
	"context"
	"image"
	"sync"
	"time"

	"recallme-go/config"
	"recallme-go/internal/detection"

	log "github.com/sirupsen/logrus"
	gocv "gocv.io/x/gocv"
)

// Feste Parameter der Live-Verarbeitung
const (
	frameWidth    = 640
	frameHeight   = 480
	queueCapacity = 10
	popTimeout    = time.Second
)

// FrameDetector ist die von der Detektionsschleife benötigte Teilmenge des
// Objektdetektors.
type FrameDetector interface {
	Detect(ctx context.Context, img gocv.Mat) ([]detection.DetectedObject, error)
}

// Pipeline ist die Producer/Consumer-Schleife für die Live-Erfassung: eine
// Capture-Schleife liest und skaliert Kameraframes in eine begrenzte
// Warteschlange (Drop-Oldest), eine Detektionsschleife annotiert sie und
// veröffentlicht den jeweils neuesten JPEG-Frame.
type Pipeline struct {
	cfg      config.CameraConfig
	detector FrameDetector
	redactor *detection.Redactor
	open     SourceOpener

	queue *dropQueue[gocv.Mat]

	mu      sync.Mutex // schützt running, stopCh
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	frameMu sync.RWMutex // schützt latest
	latest  []byte
}

// NewPipeline erstellt eine neue Live-Pipeline. open darf nil sein, dann wird
// die lokale Kamera verwendet.
func NewPipeline(cfg config.CameraConfig, detector FrameDetector, redactor *detection.Redactor, open SourceOpener) *Pipeline {
	if open == nil {
		maxProbe := cfg.MaxProbe
		open = func() (Source, error) {
			return OpenCamera(maxProbe)
		}
	}
	return &Pipeline{
		cfg:      cfg,
		detector: detector,
		redactor: redactor,
		open:     open,
		queue: newDropQueue[gocv.Mat](queueCapacity, func(m gocv.Mat) {
			m.Close()
		}),
	}
}

// Start startet beide Schleifen. Ein Aufruf bei laufender Pipeline ist ein
// No-op.
func (p *Pipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		log.Debug("Live pipeline already running, start ignored")
		return
	}

	p.stopCh = make(chan struct{})
	p.running = true

	p.wg.Add(2)
	go p.captureLoop(p.stopCh)
	go p.detectionLoop(p.stopCh)

	log.Info("Live pipeline started")
}

// Stop signalisiert beiden Schleifen das Ende und wartet auf deren
// Terminierung. Ein Aufruf bei gestoppter Pipeline ist ein No-op.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	// stopCh == nil heißt: ein anderer Aufrufer hat das Ende bereits
	// signalisiert und wartet auf den Join
	if !p.running || p.stopCh == nil {
		p.mu.Unlock()
		log.Debug("Live pipeline not running, stop ignored")
		return
	}
	close(p.stopCh)
	p.stopCh = nil
	p.mu.Unlock()

	p.wg.Wait()
	p.queue.Drain()

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	log.Info("Live pipeline stopped")
}

// Running meldet, ob die Pipeline gestartet wurde. Auch im degradierten
// Betrieb ohne Kamera bleibt der Zustand Running.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// LatestFrame gibt den zuletzt veröffentlichten JPEG-Frame zurück. false,
// solange noch kein Frame veröffentlicht wurde.
func (p *Pipeline) LatestFrame() ([]byte, bool) {
	p.frameMu.RLock()
	defer p.frameMu.RUnlock()
	if p.latest == nil {
		return nil, false
	}
	return p.latest, true
}

// captureLoop liest Frames von der Quelle, skaliert sie auf das feste Format
// und reiht sie ein. Ohne Kamera loggt die Schleife und endet; der Prozess
// läuft weiter.
func (p *Pipeline) captureLoop(stopCh chan struct{}) {
	defer p.wg.Done()

	source, err := p.open()
	if err != nil {
		log.WithError(err).Error("Live pipeline running without camera, no frames will be produced")
		return
	}
	defer source.Close()

	raw := gocv.NewMat()
	defer raw.Close()

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		if !source.Read(&raw) || raw.Empty() {
			// kurze Pause, damit eine stotternde Kamera die Schleife nicht
			// heiß laufen lässt
			select {
			case <-stopCh:
				return
			case <-time.After(50 * time.Millisecond):
			}
			continue
		}

		resized := gocv.NewMat()
		gocv.Resize(raw, &resized, image.Point{X: frameWidth, Y: frameHeight}, 0, 0, gocv.InterpolationLinear)
		p.queue.Push(resized)
	}
}

// detectionLoop zieht Frames aus der Warteschlange, führt die Objekterkennung
// aus und veröffentlicht das annotierte Ergebnis als neuesten Frame.
func (p *Pipeline) detectionLoop(stopCh chan struct{}) {
	defer p.wg.Done()

	timer := time.NewTimer(popTimeout)
	defer timer.Stop()

	for {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(popTimeout)

		select {
		case <-stopCh:
			return
		case <-timer.C:
			// nichts im Zeitfenster, erneut warten
			continue
		case frame := <-p.queue.Chan():
			p.processFrame(frame)
		}
	}
}

func (p *Pipeline) processFrame(frame gocv.Mat) {
	defer frame.Close()

	objects, err := p.detector.Detect(context.Background(), frame)
	if err != nil {
		log.WithError(err).Warn("Frame detection failed, frame skipped")
		return
	}

	// Sensible Labels dürfen auch die Anzeige nicht erreichen
	if p.redactor != nil {
		objects = p.redactor.RedactObjects(objects)
	}

	detection.Annotate(&frame, objects)

	quality := p.cfg.JPEGQuality
	if quality <= 0 {
		quality = 80
	}
	buf, err := gocv.IMEncodeWithParams(".jpg", frame, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		log.WithError(err).Warn("Frame encoding failed, frame skipped")
		return
	}
	encoded := make([]byte, len(buf.GetBytes()))
	copy(encoded, buf.GetBytes())
	buf.Close()

	p.frameMu.Lock()
	p.latest = encoded
	p.frameMu.Unlock()
}
