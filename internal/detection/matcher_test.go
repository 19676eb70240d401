package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/snapwatch/snapwatch/internal/datastore"
	"github.com/snapwatch/snapwatch/internal/errors"
)

func compiled(t *testing.T, profile datastore.DetectionProfile) *CompiledProfile {
	t.Helper()

	cp, err := CompileProfile(profile)
	require.NoError(t, err)
	return cp
}

func carPersonProfile() datastore.DetectionProfile {
	return datastore.DetectionProfile{
		Name:          "Driveway",
		Slug:          "driveway",
		ObjectClasses: datatypes.JSON([]byte(`["car","person"]`)),
		MinConfidence: 0.42,
		Active:        true,
	}
}

func TestMatchesConfidenceBoundary(t *testing.T) {
	t.Parallel()

	cp := compiled(t, carPersonProfile())
	checker := CentroidMaskChecker{}

	exact := datastore.AiPrediction{ObjectClass: "car", Confidence: 0.42}
	assert.True(t, cp.Matches(&exact, checker), "confidence equal to threshold must match")

	below := datastore.AiPrediction{ObjectClass: "car", Confidence: 0.41999}
	assert.False(t, cp.Matches(&below, checker), "confidence below threshold must not match")
}

func TestMatchesClassMembership(t *testing.T) {
	t.Parallel()

	cp := compiled(t, carPersonProfile())
	checker := CentroidMaskChecker{}

	dog := datastore.AiPrediction{ObjectClass: "dog", Confidence: 0.99}
	assert.False(t, cp.Matches(&dog, checker))

	// Case-sensitive exact match
	upper := datastore.AiPrediction{ObjectClass: "Car", Confidence: 0.99}
	assert.False(t, cp.Matches(&upper, checker))
}

func TestMaskExclusion(t *testing.T) {
	t.Parallel()

	profile := carPersonProfile()
	profile.UseMask = true
	profile.MaskRectangles = datatypes.JSON([]byte(`[{"x_min":0,"y_min":0,"x_max":200,"y_max":200}]`))
	cp := compiled(t, profile)
	checker := CentroidMaskChecker{}

	// Centroid (100,100) inside the mask rectangle
	inside := datastore.AiPrediction{ObjectClass: "car", Confidence: 0.9, XMin: 50, YMin: 50, XMax: 150, YMax: 150}
	assert.True(t, cp.IsMasked(&inside, checker))
	assert.False(t, cp.Matches(&inside, checker), "masked detection must be excluded")

	// Centroid (500,500) outside
	outside := datastore.AiPrediction{ObjectClass: "car", Confidence: 0.9, XMin: 400, YMin: 400, XMax: 600, YMax: 600}
	assert.False(t, cp.IsMasked(&outside, checker))
	assert.True(t, cp.Matches(&outside, checker))
}

func TestMaskDisabledIgnoresPosition(t *testing.T) {
	t.Parallel()

	profile := carPersonProfile()
	profile.UseMask = false
	profile.MaskRectangles = datatypes.JSON([]byte(`[{"x_min":0,"y_min":0,"x_max":200,"y_max":200}]`))
	cp := compiled(t, profile)
	checker := CentroidMaskChecker{}

	inside := datastore.AiPrediction{ObjectClass: "car", Confidence: 0.9, XMin: 50, YMin: 50, XMax: 150, YMax: 150}
	assert.True(t, cp.Matches(&inside, checker), "masking disabled means every position is eligible")
	// The geometry is still evaluated for the pivot attribute
	assert.True(t, cp.IsMasked(&inside, checker))
}

func TestMatchesFileNameLiteral(t *testing.T) {
	t.Parallel()

	profile := carPersonProfile()
	profile.FilePattern = "camera123"
	cp := compiled(t, profile)

	assert.True(t, cp.MatchesFileName("front-camera123-20260831.jpg"))
	assert.False(t, cp.MatchesFileName("front-camera999.jpg"))
}

func TestMatchesFileNameRegex(t *testing.T) {
	t.Parallel()

	profile := carPersonProfile()
	profile.FilePattern = `^camera[0-9]+-.*\.jpg$`
	profile.UseRegex = true
	cp := compiled(t, profile)

	assert.True(t, cp.MatchesFileName("camera12-front.jpg"))
	assert.False(t, cp.MatchesFileName("backyard-camera12.jpg"))
}

func TestEmptyPatternMatchesNothing(t *testing.T) {
	t.Parallel()

	cp := compiled(t, carPersonProfile())
	assert.False(t, cp.MatchesFileName("anything.jpg"))
}

func TestCompilePatternRejectsInvalidRegex(t *testing.T) {
	t.Parallel()

	_, err := CompilePattern("[unclosed", true)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err), "invalid regex must be a validation error")

	// Literal patterns are never compiled
	pattern, err := CompilePattern("[unclosed", false)
	require.NoError(t, err)
	assert.Nil(t, pattern)
}

func TestParsePredictions(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"success":true,"predictions":[
		{"label":"car","confidence":0.87,"x_min":10,"y_min":20,"x_max":110,"y_max":220},
		{"label":"person","confidence":0.64}
	]}`)

	predictions, err := ParsePredictions(payload)
	require.NoError(t, err)
	require.Len(t, predictions, 2)
	assert.Equal(t, "car", predictions[0].ObjectClass)
	assert.InDelta(t, 0.87, predictions[0].Confidence, 1e-9)
	assert.Equal(t, 110, predictions[0].XMax)
}

func TestParsePredictionsMalformed(t *testing.T) {
	t.Parallel()

	_, err := ParsePredictions([]byte(`{"success":`))
	require.Error(t, err)

	empty, err := ParsePredictions(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
