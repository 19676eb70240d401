// Package detection implements the matching engine: evaluating classifier
// predictions and file names against detection profiles.
package detection

import (
	"encoding/json"
	"fmt"

	"github.com/snapwatch/snapwatch/internal/datastore"
)

// classifierResponse is the raw object-detection payload stored on an event.
// The shape follows the DeepStack-style detection API.
type classifierResponse struct {
	Success     bool            `json:"success"`
	Predictions []rawPrediction `json:"predictions"`
}

type rawPrediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	XMin       int     `json:"x_min"`
	YMin       int     `json:"y_min"`
	XMax       int     `json:"x_max"`
	YMax       int     `json:"y_max"`
}

// ParsePredictions decodes the raw classifier payload into prediction rows.
// An empty payload is valid and yields no predictions.
func ParsePredictions(payload []byte) ([]datastore.AiPrediction, error) {
	if len(payload) == 0 {
		return nil, nil
	}

	var response classifierResponse
	if err := json.Unmarshal(payload, &response); err != nil {
		return nil, fmt.Errorf("decoding classifier response: %w", err)
	}

	predictions := make([]datastore.AiPrediction, 0, len(response.Predictions))
	for _, raw := range response.Predictions {
		predictions = append(predictions, datastore.AiPrediction{
			ObjectClass: raw.Label,
			Confidence:  raw.Confidence,
			XMin:        raw.XMin,
			YMin:        raw.YMin,
			XMax:        raw.XMax,
			YMax:        raw.YMax,
		})
	}
	return predictions, nil
}
