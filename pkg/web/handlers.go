// Package web provides HTTP handlers and REST API endpoints for automation management.
package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Walkerb10/meop/pkg/eventbus"
	"github.com/Walkerb10/meop/pkg/events"
	"github.com/Walkerb10/meop/pkg/models"
	"github.com/Walkerb10/meop/pkg/persistence"
	"github.com/Walkerb10/meop/pkg/services"
	"github.com/Walkerb10/meop/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/xeipuuv/gojsonschema"
)

type APIHandlers struct {
	automationService *services.Automation
	eventBus          eventbus.EventBus
	validator         *validator.Validate
}

func NewAPIHandlers(
	automationService *services.Automation,
	eventBus eventbus.EventBus,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		automationService: automationService,
		eventBus:          eventBus,
		validator:         validator,
	}
}

func (h *APIHandlers) GetAutomations(c fiber.Ctx) error {
	req, err := h.parseListAutomationsRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.automationService.List(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"automations":   result.Automations,
		"total_count":   result.TotalCount,
		"has_next_page": result.HasNextPage,
		"pagination": fiber.Map{
			"limit":  req.Limit,
			"offset": req.Offset,
		},
		"sorting": fiber.Map{
			"sort_by":    req.SortBy,
			"sort_order": req.SortOrder,
		},
	})
}

// parseListAutomationsRequest parses and validates query parameters for listing automations.
func (h *APIHandlers) parseListAutomationsRequest(c fiber.Ctx) (*services.ListAutomationsRequest, error) {
	req := &services.ListAutomationsRequest{}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, err
		}

		req.Offset = offset
	}

	req.OwnerID = c.Query("owner_id")

	if triggerTypeStr := c.Query("trigger_type"); triggerTypeStr != "" {
		triggerType := models.TriggerType(triggerTypeStr)
		req.TriggerType = &triggerType
	}

	if activeStr := c.Query("active"); activeStr != "" {
		active, err := strconv.ParseBool(activeStr)
		if err != nil {
			return nil, err
		}

		req.ActiveOnly = active
	}

	req.SortBy = c.Query("sort_by")
	req.SortOrder = c.Query("sort_order")

	return req, nil
}

func (h *APIHandlers) GetAutomation(c fiber.Ctx) error {
	id := c.Params("id")

	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	automation, err := h.automationService.FetchByID(c.Context(), id)
	if err != nil {
		if persistence.IsAutomationNotFound(err) {
			return notFound(c, "Automation not found")
		}

		return internalError(c, err)
	}

	return c.JSON(automation)
}

// GetAutomationWorkflow returns the automation's steps normalized to the
// node/connection graph shape. The graph is ephemeral; nothing is persisted.
func (h *APIHandlers) GetAutomationWorkflow(c fiber.Ctx) error {
	id := c.Params("id")

	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	automation, err := h.automationService.FetchByID(c.Context(), id)
	if err != nil {
		if persistence.IsAutomationNotFound(err) {
			return notFound(c, "Automation not found")
		}

		return internalError(c, err)
	}

	graph := workflow.CoerceToWorkflow(automation.Steps, automation.TriggerConfig, automation.TriggerType)

	return c.JSON(graph)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.automationService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "MEOP API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "MEOP API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) CreateAutomation(c fiber.Ctx) error {
	var req CreateAutomationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	automation := &models.Automation{
		Name:          req.Name,
		Description:   req.Description,
		IsActive:      req.IsActive,
		TriggerType:   models.TriggerType(req.TriggerType),
		TriggerConfig: req.TriggerConfig,
		Steps:         req.Steps,
		CallbackURL:   req.CallbackURL,
		Owner:         req.Owner,
	}

	created, err := h.automationService.Create(c.Context(), automation)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateAutomation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	var req UpdateAutomationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.automationService.FetchByID(c.Context(), id)
	if err != nil {
		if persistence.IsAutomationNotFound(err) {
			return notFound(c, "Automation not found")
		}

		return internalError(c, err)
	}

	req.ApplyTo(existing)

	updated, err := h.automationService.Update(c.Context(), id, existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteAutomation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	err := h.automationService.Delete(c.Context(), id)
	if err != nil {
		if persistence.IsAutomationNotFound(err) {
			return notFound(c, "Automation not found")
		}

		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// InboundWebhook fires a webhook automation. The payload is optional JSON;
// when the trigger config carries a payload_schema, the payload must satisfy
// it before the event is published.
func (h *APIHandlers) InboundWebhook(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	automation, err := h.automationService.FetchByID(c.Context(), id)
	if err != nil {
		if persistence.IsAutomationNotFound(err) {
			return notFound(c, "Automation not found")
		}

		return internalError(c, err)
	}

	if automation.TriggerType != models.TriggerTypeWebhook || !automation.IsActive {
		return notFound(c, "No active webhook automation registered for this ID")
	}

	payload := map[string]any{}

	if body := c.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return badRequest(c, "Invalid JSON payload")
		}
	}

	trigger := models.WebhookTriggerConfigFromBag(automation.TriggerConfig)
	if trigger.PayloadSchema != nil {
		if err := validatePayload(trigger.PayloadSchema, payload); err != nil {
			return badRequest(c, err.Error())
		}
	}

	event := events.AutomationTriggered{
		BaseEvent: events.BaseEvent{
			ID:           h.eventBus.GenerateID(),
			Type:         events.AutomationTriggeredEvent,
			Timestamp:    time.Now().UTC(),
			AutomationID: automation.ID,
		},
		TriggerType: string(models.TriggerTypeWebhook),
		TriggerData: payload,
	}

	if err := h.eventBus.Publish(c.Context(), automation.ID, event); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":   "accepted",
		"event_id": event.ID,
	})
}

// validatePayload checks a webhook payload against the configured JSON schema.
func validatePayload(schema, payload map[string]any) error {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(payload)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return &payloadValidationError{details: details}
	}

	return nil
}

type payloadValidationError struct {
	details []string
}

func (e *payloadValidationError) Error() string {
	return "payload validation failed: " + strings.Join(e.details, "; ")
}
