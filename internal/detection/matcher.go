package detection

import (
	"github.com/snapwatch/snapwatch/internal/datastore"
)

// Matches reports whether a prediction satisfies the profile's rules: its
// label must be in the accepted class set, its confidence must meet the
// minimum threshold (boundary inclusive), and when masking is enabled the
// detection must fall outside the masked area.
func (cp *CompiledProfile) Matches(prediction *datastore.AiPrediction, checker MaskChecker) bool {
	if !cp.HasClass(prediction.ObjectClass) {
		return false
	}
	if prediction.Confidence < cp.MinConfidence {
		return false
	}
	if cp.UseMask && cp.IsMasked(prediction, checker) {
		return false
	}
	return true
}

// IsMasked evaluates the prediction against the profile's mask geometry.
// The geometry is tested whenever rectangles are configured, so the derived
// join can record the mask position even for profiles with masking disabled.
func (cp *CompiledProfile) IsMasked(prediction *datastore.AiPrediction, checker MaskChecker) bool {
	return checker.IsMasked(prediction, cp.mask)
}
