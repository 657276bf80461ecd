package detection

import (
	"fmt"
	"image"
	"image/color"

	gocv "gocv.io/x/gocv"
)

// Annotate zeichnet die erkannten Objekte mit Label und Konfidenz in das
// Bild. Das Bild wird in-place verändert.
func Annotate(img *gocv.Mat, objects []DetectedObject) {
	red := color.RGBA{R: 255}
	green := color.RGBA{G: 255}

	for _, obj := range objects {
		gocv.Rectangle(img, obj.Rectangle, red, 2)

		text := fmt.Sprintf("%s: %.2f", obj.Label, obj.Confidence)
		gocv.PutText(img, text, image.Point{
			X: obj.Rectangle.Min.X,
			Y: obj.Rectangle.Min.Y - 5,
		}, gocv.FontHersheyPlain, 1.2, green, 2)
	}
}
