package datastore

import (
	"gorm.io/gorm/clause"
)

// SaveProfileMatch records that a prediction satisfied a profile's rules.
// The composite unique index makes the write idempotent: re-matching the same
// (prediction, profile) pair never duplicates the row.
func (ds *DataStore) SaveProfileMatch(match *ProfileMatch) error {
	err := ds.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ai_prediction_id"}, {Name: "detection_profile_id"}},
		DoNothing: true,
	}).Create(match).Error
	if err != nil {
		return dbError(err, "save_profile_match")
	}
	return nil
}

// SavePatternMatch records that an event's file name matched a profile's
// pattern, snapshotting the profile's active flag. Idempotent per
// (event, profile) pair.
func (ds *DataStore) SavePatternMatch(match *PatternMatch) error {
	err := ds.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "detection_event_id"}, {Name: "detection_profile_id"}},
		DoNothing: true,
	}).Create(match).Error
	if err != nil {
		return dbError(err, "save_pattern_match")
	}
	return nil
}

// MatchedProfiles resolves the distinct set of profiles an event matched,
// via either route: event -> predictions -> profile matches, or the event's
// pattern matches. The union is computed as two explicit joins merged by id,
// so a profile reached through several predictions appears once.
func (ds *DataStore) MatchedProfiles(eventID uint) ([]DetectionProfile, error) {
	var viaPredictions []DetectionProfile
	err := ds.DB.Model(&DetectionProfile{}).
		Distinct("detection_profiles.*").
		Joins("JOIN profile_matches ON profile_matches.detection_profile_id = detection_profiles.id").
		Joins("JOIN ai_predictions ON ai_predictions.id = profile_matches.ai_prediction_id").
		Where("ai_predictions.detection_event_id = ?", eventID).
		Find(&viaPredictions).Error
	if err != nil {
		return nil, dbError(err, "matched_profiles_predictions")
	}

	var viaPattern []DetectionProfile
	err = ds.DB.Model(&DetectionProfile{}).
		Joins("JOIN pattern_matches ON pattern_matches.detection_profile_id = detection_profiles.id").
		Where("pattern_matches.detection_event_id = ?", eventID).
		Find(&viaPattern).Error
	if err != nil {
		return nil, dbError(err, "matched_profiles_pattern")
	}

	seen := make(map[uint]struct{}, len(viaPredictions)+len(viaPattern))
	merged := make([]DetectionProfile, 0, len(viaPredictions)+len(viaPattern))
	for _, p := range viaPredictions {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		merged = append(merged, p)
	}
	for _, p := range viaPattern {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		merged = append(merged, p)
	}

	return merged, nil
}

// CountMatchedProfiles returns the size of the distinct matched-profile set.
func (ds *DataStore) CountMatchedProfiles(eventID uint) (int64, error) {
	profiles, err := ds.MatchedProfiles(eventID)
	if err != nil {
		return 0, err
	}
	return int64(len(profiles)), nil
}
