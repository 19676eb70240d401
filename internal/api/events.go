package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"

	"github.com/snapwatch/snapwatch/internal/datastore"
	"github.com/snapwatch/snapwatch/internal/errors"
)

// initEventRoutes registers detection event endpoints.
func (c *Controller) initEventRoutes() {
	c.Group.GET("/events", c.ListEvents)
	c.Group.GET("/events/:id", c.GetEvent)
	c.Group.POST("/events", c.IngestEvent)
}

// EventRequest is the JSON body for ingesting a detection event.
type EventRequest struct {
	ImageFileName      string          `json:"image_file_name"`
	ClassifierResponse json.RawMessage `json:"classifier_response"`
	ImageWidth         int             `json:"image_width"`
	ImageHeight        int             `json:"image_height"`
	OccurredAt         *time.Time      `json:"occurred_at"`
}

// EventDetailResponse is the JSON shape for a single event with its
// predictions and matched profiles.
type EventDetailResponse struct {
	ID              uint                     `json:"id"`
	ImageFileName   string                   `json:"image_file_name"`
	ImageWidth      int                      `json:"image_width"`
	ImageHeight     int                      `json:"image_height"`
	OccurredAt      time.Time                `json:"occurred_at"`
	Predictions     []PredictionResponse     `json:"predictions"`
	MatchedProfiles []MatchedProfileResponse `json:"matched_profiles"`
}

// PredictionResponse is one labeled detection within an event.
type PredictionResponse struct {
	ID          uint    `json:"id"`
	ObjectClass string  `json:"object_class"`
	Confidence  float64 `json:"confidence"`
	XMin        int     `json:"x_min"`
	YMin        int     `json:"y_min"`
	XMax        int     `json:"x_max"`
	YMax        int     `json:"y_max"`
}

// MatchedProfileResponse identifies a profile the event matched.
type MatchedProfileResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ListEvents returns a page of events, newest first, each with its distinct
// matched-profile count.
func (c *Controller) ListEvents(ctx echo.Context) error {
	limit, offset := c.pagination(ctx)

	events, total, err := c.DS.ListEvents(limit, offset)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list events")
	}

	return ctx.JSON(http.StatusOK, newPaginatedResponse(events, total, limit, offset))
}

// GetEvent returns one event with predictions and matched profiles.
func (c *Controller) GetEvent(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "Invalid event ID")
	}

	event, err := c.DS.GetEvent(id)
	if err != nil {
		return c.HandleError(ctx, err, "Event not found")
	}

	matched, err := c.DS.MatchedProfiles(event.ID)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to resolve matched profiles")
	}

	resp := EventDetailResponse{
		ID:            event.ID,
		ImageFileName: event.ImageFileName,
		ImageWidth:    event.ImageWidth,
		ImageHeight:   event.ImageHeight,
		OccurredAt:    event.OccurredAt,
	}
	for i := range event.Predictions {
		p := &event.Predictions[i]
		resp.Predictions = append(resp.Predictions, PredictionResponse{
			ID:          p.ID,
			ObjectClass: p.ObjectClass,
			Confidence:  p.Confidence,
			XMin:        p.XMin,
			YMin:        p.YMin,
			XMax:        p.XMax,
			YMax:        p.YMax,
		})
	}
	for i := range matched {
		resp.MatchedProfiles = append(resp.MatchedProfiles, MatchedProfileResponse{
			ID:   matched[i].ID,
			Name: matched[i].Name,
			Slug: matched[i].Slug,
		})
	}

	return ctx.JSON(http.StatusOK, resp)
}

// IngestEvent stores an incoming detection event and runs the matching
// pipeline over it. Notification dispatch happens asynchronously.
func (c *Controller) IngestEvent(ctx echo.Context) error {
	var req EventRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, errors.ValidationError("invalid request body"), "Invalid request body")
	}
	if req.ImageFileName == "" {
		return c.HandleError(ctx, errors.ValidationError("image_file_name is required"), "Invalid event")
	}

	occurredAt := time.Now()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	event := &datastore.DetectionEvent{
		ImageFileName:      req.ImageFileName,
		ClassifierResponse: datatypes.JSON(req.ClassifierResponse),
		ImageWidth:         req.ImageWidth,
		ImageHeight:        req.ImageHeight,
		OccurredAt:         occurredAt,
	}

	matched, err := c.Processor.ProcessEvent(ctx.Request().Context(), event)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to process event")
	}

	profiles := make([]MatchedProfileResponse, 0, len(matched))
	for i := range matched {
		profiles = append(profiles, MatchedProfileResponse{
			ID:   matched[i].ID,
			Name: matched[i].Name,
			Slug: matched[i].Slug,
		})
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"id":               event.ID,
		"image_file_name":  event.ImageFileName,
		"matched_profiles": profiles,
	})
}
