package datastore

import (
	"fmt"
)

// SaveEvent stores a detection event and its predictions as a single
// transaction. Matching is computed after the event is durable, so partial
// writes are never observable.
func (ds *DataStore) SaveEvent(event *DetectionEvent, predictions []AiPrediction) error {
	tx := ds.DB.Begin()
	if tx.Error != nil {
		return fmt.Errorf("starting transaction: %w", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(event).Error; err != nil {
		tx.Rollback()
		return dbError(err, "save_event")
	}

	for i := range predictions {
		predictions[i].DetectionEventID = event.ID
		if err := tx.Create(&predictions[i]).Error; err != nil {
			tx.Rollback()
			return dbError(err, "save_prediction")
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	event.Predictions = predictions
	return nil
}

// GetEvent retrieves an event with its predictions.
func (ds *DataStore) GetEvent(id uint) (DetectionEvent, error) {
	var event DetectionEvent
	if err := ds.DB.Preload("Predictions").First(&event, id).Error; err != nil {
		return DetectionEvent{}, dbError(err, "get_event")
	}
	return event, nil
}

// ListEvents returns a page of event summaries, newest first, with the count
// of distinct profiles each event matched. The counts for the whole page come
// from one grouped query over the union of both match routes.
func (ds *DataStore) ListEvents(limit, offset int) ([]EventSummary, int64, error) {
	var total int64
	if err := ds.DB.Model(&DetectionEvent{}).Count(&total).Error; err != nil {
		return nil, 0, dbError(err, "count_events")
	}

	var events []DetectionEvent
	if err := ds.DB.
		Order("occurred_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&events).Error; err != nil {
		return nil, 0, dbError(err, "list_events")
	}

	ids := make([]uint, 0, len(events))
	for i := range events {
		ids = append(ids, events[i].ID)
	}

	counts, err := ds.matchedProfileCounts(ids)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]EventSummary, 0, len(events))
	for i := range events {
		summaries = append(summaries, EventSummary{
			ID:                     events[i].ID,
			ImageFileName:          events[i].ImageFileName,
			OccurredAt:             events[i].OccurredAt,
			DetectionProfilesCount: counts[events[i].ID],
		})
	}

	return summaries, total, nil
}

// matchedProfileCounts resolves the distinct matched-profile count for each
// event in one query. The UNION deduplicates profiles reached through both a
// prediction and the file pattern.
func (ds *DataStore) matchedProfileCounts(eventIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(eventIDs))
	if len(eventIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		EventID uint
		Matched int64
	}
	err := ds.DB.Raw(`
		SELECT event_id, COUNT(*) AS matched FROM (
			SELECT ai_predictions.detection_event_id AS event_id,
			       profile_matches.detection_profile_id AS profile_id
			  FROM profile_matches
			  JOIN ai_predictions ON ai_predictions.id = profile_matches.ai_prediction_id
			UNION
			SELECT detection_event_id AS event_id,
			       detection_profile_id AS profile_id
			  FROM pattern_matches
		) matches
		WHERE event_id IN ?
		GROUP BY event_id`, eventIDs).Scan(&rows).Error
	if err != nil {
		return nil, dbError(err, "matched_profile_counts")
	}

	for _, row := range rows {
		counts[row.EventID] = row.Matched
	}
	return counts, nil
}
