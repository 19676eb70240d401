package detection

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/snapwatch/snapwatch/internal/conf"
	"github.com/snapwatch/snapwatch/internal/datastore"
)

// captureDispatcher records every dispatch call for assertions.
type captureDispatcher struct {
	mu    sync.Mutex
	calls [][]datastore.DetectionProfile
}

func (d *captureDispatcher) Dispatch(_ context.Context, _ datastore.DetectionEvent, profiles []datastore.DetectionProfile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, profiles)
}

func (d *captureDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()

	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "snapwatch-test.db")
	settings.Matching.RuleCacheTTL = time.Minute
	return settings
}

func newTestProcessor(t *testing.T, dispatcher Dispatcher) (*Processor, datastore.Interface) {
	t.Helper()

	settings := testSettings(t)
	ds := datastore.New(settings)
	require.NotNil(t, ds)
	require.NoError(t, ds.Open())
	t.Cleanup(func() { _ = ds.Close() })

	return NewProcessor(ds, dispatcher, settings, nil), ds
}

func createProfile(t *testing.T, ds datastore.Interface, profile *datastore.DetectionProfile) {
	t.Helper()
	require.NoError(t, ds.CreateProfile(profile))
}

func carEvent(fileName string, predictions ...string) *datastore.DetectionEvent {
	response := `{"success":true,"predictions":[`
	for i, label := range predictions {
		if i > 0 {
			response += ","
		}
		response += `{"label":"` + label + `","confidence":0.9,"x_min":10,"y_min":10,"x_max":50,"y_max":50}`
	}
	response += `]}`

	return &datastore.DetectionEvent{
		ImageFileName:      fileName,
		ClassifierResponse: datatypes.JSON([]byte(response)),
		ImageWidth:         640,
		ImageHeight:        480,
		OccurredAt:         time.Now(),
	}
}

func TestProcessEventMatchedProfilesDistinct(t *testing.T) {
	dispatcher := &captureDispatcher{}
	p, ds := newTestProcessor(t, dispatcher)

	createProfile(t, ds, &datastore.DetectionProfile{
		Name:          "Vehicles",
		ObjectClasses: datatypes.JSON([]byte(`["car"]`)),
		MinConfidence: 0.5,
		Active:        true,
	})

	// Three car predictions all match the same profile
	matched, err := p.ProcessEvent(context.Background(), carEvent("drive.jpg", "car", "car", "car"))
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "Vehicles", matched[0].Name)

	require.Equal(t, 1, dispatcher.callCount())
	assert.Len(t, dispatcher.calls[0], 1)
}

func TestProcessEventPatternMatchWithoutPredictions(t *testing.T) {
	dispatcher := &captureDispatcher{}
	p, ds := newTestProcessor(t, dispatcher)

	createProfile(t, ds, &datastore.DetectionProfile{
		Name:          "Front Camera",
		FilePattern:   "front",
		ObjectClasses: datatypes.JSON([]byte(`["person"]`)),
		MinConfidence: 0.5,
		Active:        true,
	})

	// No predictions at all; the file name alone produces the match
	event := &datastore.DetectionEvent{
		ImageFileName: "front-20260831.jpg",
		OccurredAt:    time.Now(),
	}
	matched, err := p.ProcessEvent(context.Background(), event)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "Front Camera", matched[0].Name)
}

func TestProcessEventInactiveProfileSkipsPredictions(t *testing.T) {
	p, ds := newTestProcessor(t, nil)

	profile := &datastore.DetectionProfile{
		Name:          "Paused",
		FilePattern:   "cam",
		ObjectClasses: datatypes.JSON([]byte(`["car"]`)),
		MinConfidence: 0.5,
		Active:        false,
	}
	createProfile(t, ds, profile)

	event := carEvent("cam-1.jpg", "car")
	matched, err := p.ProcessEvent(context.Background(), event)
	require.NoError(t, err)

	// The pattern match is still recorded with the inactive flag snapshot,
	// so the profile appears in the matched set, but no prediction joins.
	require.Len(t, matched, 1)

	stored, err := ds.GetEvent(event.ID)
	require.NoError(t, err)
	require.Len(t, stored.Predictions, 1)

	count, err := ds.CountMatchedProfiles(event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestProcessEventMalformedPayloadStillStored(t *testing.T) {
	p, ds := newTestProcessor(t, nil)

	event := &datastore.DetectionEvent{
		ImageFileName:      "broken.jpg",
		ClassifierResponse: datatypes.JSON([]byte(`{"success":`)),
		OccurredAt:         time.Now(),
	}
	matched, err := p.ProcessEvent(context.Background(), event)
	require.NoError(t, err)
	assert.Empty(t, matched)

	stored, err := ds.GetEvent(event.ID)
	require.NoError(t, err)
	assert.Equal(t, "broken.jpg", stored.ImageFileName)
	assert.Empty(t, stored.Predictions)
}

func TestProcessEventNoDispatchWithoutMatches(t *testing.T) {
	dispatcher := &captureDispatcher{}
	p, _ := newTestProcessor(t, dispatcher)

	matched, err := p.ProcessEvent(context.Background(), carEvent("empty.jpg", "bird"))
	require.NoError(t, err)
	assert.Empty(t, matched)
	assert.Zero(t, dispatcher.callCount())
}

func TestInvalidateRulesPicksUpNewProfiles(t *testing.T) {
	p, ds := newTestProcessor(t, nil)

	// Warm the cache with an empty rule set
	matched, err := p.ProcessEvent(context.Background(), carEvent("a.jpg", "car"))
	require.NoError(t, err)
	assert.Empty(t, matched)

	createProfile(t, ds, &datastore.DetectionProfile{
		Name:          "Late Arrival",
		ObjectClasses: datatypes.JSON([]byte(`["car"]`)),
		MinConfidence: 0.5,
		Active:        true,
	})
	p.InvalidateRules()

	matched, err = p.ProcessEvent(context.Background(), carEvent("b.jpg", "car"))
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "Late Arrival", matched[0].Name)
}

// loadHookStore runs a hook after each profile load, modelling a profile
// write that commits while a rule reload is in flight.
type loadHookStore struct {
	datastore.Interface
	onLoad func()
}

func (s *loadHookStore) GetAllProfiles() ([]datastore.DetectionProfile, error) {
	profiles, err := s.Interface.GetAllProfiles()
	if s.onLoad != nil {
		s.onLoad()
	}
	return profiles, err
}

func TestInvalidateDuringReloadIsNotOverwritten(t *testing.T) {
	settings := testSettings(t)
	ds := datastore.New(settings)
	require.NotNil(t, ds)
	require.NoError(t, ds.Open())
	t.Cleanup(func() { _ = ds.Close() })

	hooked := &loadHookStore{Interface: ds}
	p := NewProcessor(hooked, nil, settings, nil)

	// While the first load holds its pre-create snapshot, a profile is
	// committed and the cache invalidated.
	hooked.onLoad = func() {
		hooked.onLoad = nil
		require.NoError(t, ds.CreateProfile(&datastore.DetectionProfile{
			Name:          "Committed Mid Load",
			ObjectClasses: datatypes.JSON([]byte(`["car"]`)),
			MinConfidence: 0.5,
			Active:        true,
		}))
		p.InvalidateRules()
	}

	stale, err := p.compiledProfiles()
	require.NoError(t, err)
	assert.Empty(t, stale, "the in-flight load read the pre-create snapshot")

	// The stale snapshot must not have been written back: the next load
	// sees the committed profile instead of a cached pre-create set.
	fresh, err := p.compiledProfiles()
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "Committed Mid Load", fresh[0].Name)
}

func TestProcessEventMaskExclusion(t *testing.T) {
	p, ds := newTestProcessor(t, nil)

	createProfile(t, ds, &datastore.DetectionProfile{
		Name:           "Street Only",
		ObjectClasses:  datatypes.JSON([]byte(`["car"]`)),
		MinConfidence:  0.5,
		UseMask:        true,
		MaskRectangles: datatypes.JSON([]byte(`[{"x_min":0,"y_min":0,"x_max":100,"y_max":100}]`)),
		Active:         true,
	})

	// Prediction centroid (30,30) sits inside the masked rectangle
	matched, err := p.ProcessEvent(context.Background(), carEvent("street.jpg", "car"))
	require.NoError(t, err)
	assert.Empty(t, matched)
}
