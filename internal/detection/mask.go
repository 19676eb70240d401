package detection

import (
	"github.com/snapwatch/snapwatch/internal/datastore"
)

// Rect is an axis-aligned rectangle within the image, in pixel coordinates.
type Rect struct {
	XMin int `json:"x_min"`
	YMin int `json:"y_min"`
	XMax int `json:"x_max"`
	YMax int `json:"y_max"`
}

// MaskChecker decides whether a detection falls inside a profile's mask
// geometry. The geometric predicate is deliberately pluggable; the centroid
// checker is the default.
type MaskChecker interface {
	IsMasked(prediction *datastore.AiPrediction, mask []Rect) bool
}

// CentroidMaskChecker treats a detection as masked when the centroid of its
// bounding box falls inside any mask rectangle.
type CentroidMaskChecker struct{}

// IsMasked implements MaskChecker.
func (CentroidMaskChecker) IsMasked(prediction *datastore.AiPrediction, mask []Rect) bool {
	if len(mask) == 0 {
		return false
	}

	cx := (prediction.XMin + prediction.XMax) / 2
	cy := (prediction.YMin + prediction.YMax) / 2

	for _, r := range mask {
		if cx >= r.XMin && cx <= r.XMax && cy >= r.YMin && cy <= r.YMax {
			return true
		}
	}
	return false
}
