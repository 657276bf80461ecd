package detection

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"recallme-go/config"

	log "github.com/sirupsen/logrus"
	gocv "gocv.io/x/gocv"
)

// Detektionstypen für die Objekterkennung
const (
	HOGDetector = "hog" // Histogram of Oriented Gradients (nur Personen, CPU)
	DNNDetector = "dnn" // DNN-basierter Mehrklassen-Detektor (SSD MobileNet)
)

// Standardwerte für das DNN-Modell
const (
	DefaultDNNWidth  = 300
	DefaultDNNHeight = 300
)

// cocoClassNames sind die Klassennamen des COCO-Datensatzes für SSD MobileNet.
var cocoClassNames = []string{
	"background", "person", "bicycle", "car", "motorcycle", "airplane", "bus", "train",
	"truck", "boat", "traffic light", "fire hydrant", "stop sign", "parking meter", "bench",
	"bird", "cat", "dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe",
	"backpack", "umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard",
	"sports ball", "kite", "baseball bat", "baseball glove", "skateboard", "surfboard",
	"tennis racket", "bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl",
	"banana", "apple", "sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza",
	"donut", "cake", "chair", "couch", "potted plant", "bed", "dining table", "toilet",
	"tv", "laptop", "mouse", "remote", "keyboard", "cell phone", "microwave", "oven",
	"toaster", "sink", "refrigerator", "book", "clock", "vase", "scissors", "teddy bear",
	"hair drier", "toothbrush",
}

// PersonLabel ist das Klassenlabel, das den Erkennungspfad für bekannte
// Gesichter auslöst.
const PersonLabel = "person"

// DetectedObject repräsentiert ein erkanntes Objekt mit Label, Position und
// Konfidenz.
type DetectedObject struct {
	Label      string          `json:"label"`
	Rectangle  image.Rectangle `json:"-"`
	Confidence float64         `json:"confidence"`
}

// Detector implementiert die Objekterkennung mit OpenCV. Bei fehlenden
// DNN-Modelldateien fällt er auf den HOG-Personendetektor zurück, der nur
// das Label "person" liefert.
type Detector struct {
	cfg                 config.DetectorConfig
	detectorType        string
	hogDescriptor       gocv.HOGDescriptor
	dnnNet              gocv.Net
	initialized         bool
	confidenceThreshold float64
	dnnInputWidth       int
	dnnInputHeight      int
}

// NewDetector erstellt einen neuen Objektdetektor
func NewDetector(cfg config.DetectorConfig) *Detector {
	detectorType := DNNDetector
	if cfg.Method != "" {
		detectorType = cfg.Method
	}

	d := &Detector{
		cfg:                 cfg,
		detectorType:        detectorType,
		confidenceThreshold: cfg.ConfidenceThreshold,
		dnnInputWidth:       DefaultDNNWidth,
		dnnInputHeight:      DefaultDNNHeight,
	}

	if d.confidenceThreshold <= 0 {
		d.confidenceThreshold = 0.5
	}

	return d
}

// Initialize initialisiert den Detektor basierend auf der Konfiguration
func (d *Detector) Initialize(ctx context.Context) error {
	if d.initialized {
		return nil
	}

	log.Infof("Initializing object detection (method: %s)", d.detectorType)

	if d.detectorType == DNNDetector {
		modelPath := d.cfg.ModelPath
		if modelPath == "" {
			modelPath = filepath.Join("models", "opencv", "ssd_mobilenet_v3_large_coco_2020_01_14.pb")
		}
		configPath := d.cfg.ConfigPath
		if configPath == "" {
			configPath = filepath.Join("models", "opencv", "ssd_mobilenet_v3_large_coco_2020_01_14.pbtxt")
		}

		if !fileExists(modelPath) || !fileExists(configPath) {
			log.Warnf("DNN model files not found: %s or %s", modelPath, configPath)
			log.Warn("Falling back to HOG person detector")
			d.detectorType = HOGDetector
		} else {
			net := gocv.ReadNet(modelPath, configPath)
			if net.Empty() {
				return fmt.Errorf("konnte DNN-Modell nicht laden: %s", modelPath)
			}
			d.dnnNet = net
			log.Info("SSD MobileNet object detector initialized")
		}
	}

	if d.detectorType == HOGDetector {
		hogDesc := gocv.NewHOGDescriptor()
		hogDesc.SetSVMDetector(gocv.HOGDefaultPeopleDetector())
		d.hogDescriptor = hogDesc
		log.Info("HOG person detector initialized")
	}

	d.initialized = true
	return nil
}

// DetectFile erkennt Objekte in einer Bilddatei.
func (d *Detector) DetectFile(ctx context.Context, imgPath string) ([]DetectedObject, error) {
	img := gocv.IMRead(imgPath, gocv.IMReadColor)
	if img.Empty() {
		return nil, fmt.Errorf("konnte Bild nicht laden: %s", imgPath)
	}
	defer img.Close()

	objects, err := d.Detect(ctx, img)
	if err != nil {
		return nil, err
	}
	log.Debugf("Detected %d objects in %s", len(objects), filepath.Base(imgPath))
	return objects, nil
}

// Detect erkennt Objekte in einem bereits geladenen Bild. Die gelieferten
// Labels sind rohe Modellausgaben; vor jeder Weitergabe nach außen ist
// Redact anzuwenden.
func (d *Detector) Detect(ctx context.Context, img gocv.Mat) ([]DetectedObject, error) {
	if !d.initialized {
		return nil, fmt.Errorf("Detector ist nicht initialisiert")
	}
	if img.Empty() {
		return nil, fmt.Errorf("leeres Bild übergeben")
	}

	imgWidth := img.Cols()
	imgHeight := img.Rows()

	var objects []DetectedObject

	if d.detectorType == HOGDetector {
		rects := d.hogDescriptor.DetectMultiScale(img)
		for _, r := range rects {
			objects = append(objects, DetectedObject{
				Label:      PersonLabel,
				Rectangle:  r,
				Confidence: 0.8, // HOG liefert keine Konfidenzwerte
			})
		}
		return objects, nil
	}

	// Bild in Blob umwandeln für DNN
	blob := gocv.BlobFromImage(
		img,
		1.0,
		image.Point{X: d.dnnInputWidth, Y: d.dnnInputHeight},
		gocv.NewScalar(127.5, 127.5, 127.5, 0),
		true,
		false,
	)
	defer blob.Close()

	d.dnnNet.SetInput(blob, "")
	prob := d.dnnNet.Forward("")
	defer prob.Close()

	// SSD-Format interpretieren: [img_id, class_id, confidence, left, top, right, bottom]
	rows := prob.Rows()
	for i := 0; i < rows; i++ {
		confidence := float64(prob.GetFloatAt(i, 2))
		if confidence < d.confidenceThreshold {
			continue
		}

		classID := int(prob.GetFloatAt(i, 1))
		if classID < 0 || classID >= len(cocoClassNames) {
			continue
		}

		left := int(prob.GetFloatAt(i, 3) * float32(imgWidth))
		top := int(prob.GetFloatAt(i, 4) * float32(imgHeight))
		right := int(prob.GetFloatAt(i, 5) * float32(imgWidth))
		bottom := int(prob.GetFloatAt(i, 6) * float32(imgHeight))

		objects = append(objects, DetectedObject{
			Label:      cocoClassNames[classID],
			Rectangle:  image.Rect(left, top, right, bottom),
			Confidence: confidence,
		})
	}

	return objects, nil
}

// ContainsPerson prüft, ob in den Erkennungen eine Person enthalten ist.
func ContainsPerson(objects []DetectedObject) bool {
	for _, obj := range objects {
		if obj.Label == PersonLabel {
			return true
		}
	}
	return false
}

// Close gibt Ressourcen frei
func (d *Detector) Close() error {
	if d.initialized {
		if !d.dnnNet.Empty() {
			d.dnnNet.Close()
		}
		d.initialized = false
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
