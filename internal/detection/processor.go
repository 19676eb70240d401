package detection

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/snapwatch/snapwatch/internal/conf"
	"github.com/snapwatch/snapwatch/internal/datastore"
	"github.com/snapwatch/snapwatch/internal/logging"
	"github.com/snapwatch/snapwatch/internal/observability"
)

// ruleCacheKey is the single key under which compiled profiles are cached.
const ruleCacheKey = "profiles"

// Dispatcher receives the matched-profile set of an event for notification
// fan-out. Implementations must not block the caller on channel sends.
type Dispatcher interface {
	Dispatch(ctx context.Context, event datastore.DetectionEvent, profiles []datastore.DetectionProfile)
}

// Processor runs the matching pipeline for incoming detection events.
type Processor struct {
	ds         datastore.Interface
	dispatcher Dispatcher
	checker    MaskChecker
	rules      *cache.Cache
	ruleGen    atomic.Uint64
	metrics    *observability.Metrics
	log        *slog.Logger
}

// NewProcessor creates a matching processor. The dispatcher and metrics may
// be nil, in which case matched events are only persisted.
func NewProcessor(ds datastore.Interface, dispatcher Dispatcher, settings *conf.Settings, metrics *observability.Metrics) *Processor {
	ttl := settings.Matching.RuleCacheTTL
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &Processor{
		ds:         ds,
		dispatcher: dispatcher,
		checker:    CentroidMaskChecker{},
		rules:      cache.New(ttl, 2*ttl),
		metrics:    metrics,
		log:        logging.ForService("detection"),
	}
}

// SetMaskChecker replaces the geometric mask predicate.
func (p *Processor) SetMaskChecker(checker MaskChecker) {
	p.checker = checker
}

// InvalidateRules drops the compiled rule cache. Called whenever a profile is
// created or updated so in-flight matching never uses rules older than the
// last committed configuration change. The generation counter fences loads
// that were already in flight when the invalidation happened.
func (p *Processor) InvalidateRules() {
	p.ruleGen.Add(1)
	p.rules.Delete(ruleCacheKey)
}

// compiledProfiles returns the compiled rule set, loading and compiling from
// the datastore on a cache miss. A loader that raced an invalidation may
// still return its snapshot, but must not write it back into the cache.
func (p *Processor) compiledProfiles() ([]*CompiledProfile, error) {
	if cached, ok := p.rules.Get(ruleCacheKey); ok {
		return cached.([]*CompiledProfile), nil
	}

	gen := p.ruleGen.Load()
	profiles, err := p.ds.GetAllProfiles()
	if err != nil {
		return nil, err
	}

	compiled := make([]*CompiledProfile, 0, len(profiles))
	for i := range profiles {
		cp, err := CompileProfile(profiles[i])
		if err != nil {
			// A single corrupted profile must not stall matching for the rest
			p.log.Error("skipping profile with undecodable rules",
				"profile", profiles[i].Slug,
				"error", err)
			continue
		}
		compiled = append(compiled, cp)
	}

	if p.ruleGen.Load() == gen {
		p.rules.SetDefault(ruleCacheKey, compiled)
	}
	return compiled, nil
}

// ProcessEvent stores an event and computes its matches as one unit: every
// prediction is evaluated against every profile, and the file name against
// every pattern, before any dispatch decision is made. The returned set is
// the distinct matched profiles handed to the dispatcher.
func (p *Processor) ProcessEvent(ctx context.Context, event *datastore.DetectionEvent) ([]datastore.DetectionProfile, error) {
	start := time.Now()

	predictions, parseErr := ParsePredictions(event.ClassifierResponse)
	if parseErr != nil {
		// The event is still stored; matching yields zero AI matches.
		p.log.Warn("malformed classifier payload, storing event without predictions",
			"image", event.ImageFileName,
			"error", parseErr)
		if p.metrics != nil {
			p.metrics.EventsMalformed.Inc()
		}
		predictions = nil
	}

	if err := p.ds.SaveEvent(event, predictions); err != nil {
		return nil, err
	}

	profiles, err := p.compiledProfiles()
	if err != nil {
		return nil, err
	}

	for _, cp := range profiles {
		if cp.MatchesFileName(event.ImageFileName) {
			if err := p.ds.SavePatternMatch(&datastore.PatternMatch{
				DetectionEventID:   event.ID,
				DetectionProfileID: cp.ID,
				IsProfileActive:    cp.Active,
			}); err != nil {
				return nil, err
			}
			if p.metrics != nil {
				p.metrics.PatternMatches.Inc()
			}
		}

		if !cp.Active {
			continue
		}

		for i := range event.Predictions {
			prediction := &event.Predictions[i]
			if !cp.HasClass(prediction.ObjectClass) || prediction.Confidence < cp.MinConfidence {
				continue
			}
			masked := cp.IsMasked(prediction, p.checker)
			if cp.UseMask && masked {
				continue
			}
			if err := p.ds.SaveProfileMatch(&datastore.ProfileMatch{
				AiPredictionID:     prediction.ID,
				DetectionProfileID: cp.ID,
				IsMasked:           masked,
			}); err != nil {
				return nil, err
			}
			if p.metrics != nil {
				p.metrics.ProfileMatches.Inc()
			}
		}
	}

	matched, err := p.ds.MatchedProfiles(event.ID)
	if err != nil {
		return nil, err
	}

	if p.metrics != nil {
		p.metrics.EventsProcessed.Inc()
		p.metrics.MatchingDuration.Observe(time.Since(start).Seconds())
	}

	p.log.Debug("event matched",
		"image", event.ImageFileName,
		"predictions", len(event.Predictions),
		"matched_profiles", len(matched),
		"elapsed", time.Since(start))

	if p.dispatcher != nil && len(matched) > 0 {
		p.dispatcher.Dispatch(ctx, *event, matched)
	}

	return matched, nil
}
