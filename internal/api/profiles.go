package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"

	"github.com/snapwatch/snapwatch/internal/datastore"
	"github.com/snapwatch/snapwatch/internal/detection"
	"github.com/snapwatch/snapwatch/internal/errors"
)

// initProfileRoutes registers detection profile endpoints.
func (c *Controller) initProfileRoutes() {
	c.Group.GET("/profiles", c.ListProfiles)
	c.Group.POST("/profiles", c.CreateProfile)
	c.Group.GET("/profiles/:id", c.GetProfile)
	c.Group.POST("/profiles/:id/subscriptions", c.ToggleSubscription)
}

// ProfileRequest is the JSON body for creating a detection profile.
type ProfileRequest struct {
	Name           string           `json:"name"`
	FilePattern    string           `json:"file_pattern"`
	UseRegex       bool             `json:"use_regex"`
	ObjectClasses  []string         `json:"object_classes"`
	MinConfidence  float64          `json:"min_confidence"`
	UseMask        bool             `json:"use_mask"`
	MaskRectangles []detection.Rect `json:"mask_rectangles"`
	Active         *bool            `json:"active"`
}

// ProfileResponse is the JSON shape returned for a detection profile.
type ProfileResponse struct {
	ID             uint             `json:"id"`
	Name           string           `json:"name"`
	Slug           string           `json:"slug"`
	FilePattern    string           `json:"file_pattern"`
	UseRegex       bool             `json:"use_regex"`
	ObjectClasses  []string         `json:"object_classes"`
	MinConfidence  float64          `json:"min_confidence"`
	UseMask        bool             `json:"use_mask"`
	MaskRectangles []detection.Rect `json:"mask_rectangles"`
	Active         bool             `json:"active"`
	CreatedAt      time.Time        `json:"created_at"`
}

func profileResponse(profile *datastore.DetectionProfile) (*ProfileResponse, error) {
	resp := &ProfileResponse{
		ID:            profile.ID,
		Name:          profile.Name,
		Slug:          profile.Slug,
		FilePattern:   profile.FilePattern,
		UseRegex:      profile.UseRegex,
		MinConfidence: profile.MinConfidence,
		UseMask:       profile.UseMask,
		Active:        profile.Active,
		CreatedAt:     profile.CreatedAt,
	}
	if len(profile.ObjectClasses) > 0 {
		if err := json.Unmarshal(profile.ObjectClasses, &resp.ObjectClasses); err != nil {
			return nil, err
		}
	}
	if len(profile.MaskRectangles) > 0 {
		if err := json.Unmarshal(profile.MaskRectangles, &resp.MaskRectangles); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// ListProfiles returns a page of detection profiles.
func (c *Controller) ListProfiles(ctx echo.Context) error {
	limit, offset := c.pagination(ctx)

	profiles, total, err := c.DS.ListProfiles(limit, offset)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list profiles")
	}

	data := make([]*ProfileResponse, 0, len(profiles))
	for i := range profiles {
		resp, err := profileResponse(&profiles[i])
		if err != nil {
			return c.HandleError(ctx, err, "Failed to decode profile")
		}
		data = append(data, resp)
	}

	return ctx.JSON(http.StatusOK, newPaginatedResponse(data, total, limit, offset))
}

// GetProfile returns a single detection profile.
func (c *Controller) GetProfile(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "Invalid profile ID")
	}

	profile, err := c.DS.GetProfile(id)
	if err != nil {
		return c.HandleError(ctx, err, "Profile not found")
	}

	resp, err := profileResponse(&profile)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to decode profile")
	}
	return ctx.JSON(http.StatusOK, resp)
}

// CreateProfile validates and stores a new detection profile, then drops the
// compiled rule cache so the next event sees it.
func (c *Controller) CreateProfile(ctx echo.Context) error {
	var req ProfileRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, errors.ValidationError("invalid request body"), "Invalid request body")
	}

	if err := validateProfileRequest(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid profile")
	}

	profile, err := profileFromRequest(&req)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid profile")
	}

	if err := c.DS.CreateProfile(profile); err != nil {
		return c.HandleError(ctx, err, "Failed to create profile")
	}

	if c.Processor != nil {
		c.Processor.InvalidateRules()
	}

	resp, err := profileResponse(profile)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to decode profile")
	}
	return ctx.JSON(http.StatusCreated, resp)
}

func validateProfileRequest(req *ProfileRequest) error {
	if req.Name == "" {
		return errors.ValidationError("profile name is required")
	}
	if len(req.ObjectClasses) == 0 {
		return errors.ValidationError("at least one object class is required")
	}
	if req.MinConfidence < 0 || req.MinConfidence > 1 {
		return errors.ValidationError("min_confidence must be between 0 and 1")
	}
	// Invalid regex patterns are rejected here so matching never fails later
	if _, err := detection.CompilePattern(req.FilePattern, req.UseRegex); err != nil {
		return err
	}
	return nil
}

func profileFromRequest(req *ProfileRequest) (*datastore.DetectionProfile, error) {
	classes, err := json.Marshal(req.ObjectClasses)
	if err != nil {
		return nil, err
	}

	profile := &datastore.DetectionProfile{
		Name:          req.Name,
		FilePattern:   req.FilePattern,
		UseRegex:      req.UseRegex,
		ObjectClasses: datatypes.JSON(classes),
		MinConfidence: req.MinConfidence,
		UseMask:       req.UseMask,
		Active:        true,
	}
	if req.Active != nil {
		profile.Active = *req.Active
	}
	if len(req.MaskRectangles) > 0 {
		mask, err := json.Marshal(req.MaskRectangles)
		if err != nil {
			return nil, err
		}
		profile.MaskRectangles = datatypes.JSON(mask)
	}
	return profile, nil
}
