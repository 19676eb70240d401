package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/snapwatch/snapwatch/internal/datastore"
	"github.com/snapwatch/snapwatch/internal/errors"
)

// initIntegrationRoutes registers notification channel config endpoints.
func (c *Controller) initIntegrationRoutes() {
	c.Group.GET("/telegram", c.ListTelegramConfigs)
	c.Group.POST("/telegram", c.CreateTelegramConfig)
	c.Group.GET("/webhooks", c.ListWebhookConfigs)
	c.Group.POST("/webhooks", c.CreateWebhookConfig)
}

// TelegramConfigRequest is the JSON body for registering a telegram bot.
type TelegramConfigRequest struct {
	Name   string `json:"name"`
	Token  string `json:"token"`
	ChatID string `json:"chat_id"`
}

// WebhookConfigRequest is the JSON body for registering a webhook endpoint.
type WebhookConfigRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ListTelegramConfigs returns all configured telegram channels.
func (c *Controller) ListTelegramConfigs(ctx echo.Context) error {
	configs, err := c.DS.ListTelegramConfigs()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list telegram configs")
	}
	return ctx.JSON(http.StatusOK, configs)
}

// CreateTelegramConfig registers a telegram channel.
func (c *Controller) CreateTelegramConfig(ctx echo.Context) error {
	var req TelegramConfigRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, errors.ValidationError("invalid request body"), "Invalid request body")
	}
	if req.Name == "" || req.Token == "" || req.ChatID == "" {
		return c.HandleError(ctx,
			errors.ValidationError("name, token and chat_id are required"), "Invalid telegram config")
	}

	config := &datastore.TelegramConfig{Name: req.Name, Token: req.Token, ChatID: req.ChatID}
	if err := c.DS.CreateTelegramConfig(config); err != nil {
		return c.HandleError(ctx, err, "Failed to create telegram config")
	}
	return ctx.JSON(http.StatusCreated, config)
}

// ListWebhookConfigs returns all configured webhook endpoints.
func (c *Controller) ListWebhookConfigs(ctx echo.Context) error {
	configs, err := c.DS.ListWebhookConfigs()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list webhook configs")
	}
	return ctx.JSON(http.StatusOK, configs)
}

// CreateWebhookConfig registers a webhook endpoint.
func (c *Controller) CreateWebhookConfig(ctx echo.Context) error {
	var req WebhookConfigRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, errors.ValidationError("invalid request body"), "Invalid request body")
	}
	if req.Name == "" || req.URL == "" {
		return c.HandleError(ctx,
			errors.ValidationError("name and url are required"), "Invalid webhook config")
	}

	config := &datastore.WebhookConfig{Name: req.Name, URL: req.URL}
	if err := c.DS.CreateWebhookConfig(config); err != nil {
		return c.HandleError(ctx, err, "Failed to create webhook config")
	}
	return ctx.JSON(http.StatusCreated, config)
}
