package stream

import (
	"fmt"

	"recallme-go/internal/core/apperr"

	log "github.com/sirupsen/logrus"
	gocv "gocv.io/x/gocv"
)

// Source liefert rohe Frames für die Capture-Schleife. Die Abstraktion
// erlaubt Test-Implementierungen ohne echte Kamera.
type Source interface {
	// Read liest den nächsten Frame in dst. false signalisiert das Ende der
	// Quelle.
	Read(dst *gocv.Mat) bool
	Close() error
}

// SourceOpener öffnet eine Frame-Quelle. Schlägt das Öffnen fehl, liefert
// sie apperr.ErrCameraUnavailable.
type SourceOpener func() (Source, error)

// webcamSource kapselt eine lokale Kamera über OpenCV.
type webcamSource struct {
	capture *gocv.VideoCapture
	index   int
}

func (w *webcamSource) Read(dst *gocv.Mat) bool {
	return w.capture.Read(dst)
}

func (w *webcamSource) Close() error {
	log.Debugf("Closing camera device %d", w.index)
	return w.capture.Close()
}

// OpenCamera probiert die Geräteindizes 0 bis maxProbe-1 durch und gibt die
// erste funktionierende Kamera zurück.
func OpenCamera(maxProbe int) (Source, error) {
	if maxProbe <= 0 {
		maxProbe = 10
	}

	for i := 0; i < maxProbe; i++ {
		capture, err := gocv.OpenVideoCapture(i)
		if err != nil {
			continue
		}

		// Probelesen, manche Geräte öffnen sich, liefern aber nichts
		probe := gocv.NewMat()
		ok := capture.Read(&probe)
		probe.Close()
		if !ok {
			capture.Close()
			continue
		}

		log.Infof("Camera found at device index %d", i)
		return &webcamSource{capture: capture, index: i}, nil
	}

	return nil, fmt.Errorf("%w: no camera found in device indexes 0-%d", apperr.ErrCameraUnavailable, maxProbe-1)
}
