// Package web provides HTTP request and response types for the automation API.
package web

import (
	"encoding/json"

	"github.com/Walkerb10/meop/pkg/models"
)

// CreateAutomationRequest represents the request body for creating a new automation.
type CreateAutomationRequest struct {
	Name          string          `json:"name"                     validate:"required,min=3"`
	Description   string          `json:"description,omitempty"`
	IsActive      bool            `json:"is_active"`
	TriggerType   string          `json:"trigger_type"             validate:"required,oneof=manual scheduled webhook voice"`
	TriggerConfig map[string]any  `json:"trigger_config,omitempty"`
	Steps         json.RawMessage `json:"steps,omitempty"`
	CallbackURL   string          `json:"callback_url,omitempty"   validate:"omitempty,url"`
	Owner         string          `json:"owner"                    validate:"required"`
}

// UpdateAutomationRequest represents the request body for updating an
// automation. All fields are optional to support partial updates.
type UpdateAutomationRequest struct {
	Name          *string         `json:"name,omitempty"           validate:"omitempty,min=3"`
	Description   *string         `json:"description,omitempty"`
	IsActive      *bool           `json:"is_active,omitempty"`
	TriggerType   *string         `json:"trigger_type,omitempty"   validate:"omitempty,oneof=manual scheduled webhook voice"`
	TriggerConfig map[string]any  `json:"trigger_config,omitempty"`
	Steps         json.RawMessage `json:"steps,omitempty"`
	CallbackURL   *string         `json:"callback_url,omitempty"   validate:"omitempty,url"`
}

// ApplyTo merges the partial update onto an existing automation.
func (r *UpdateAutomationRequest) ApplyTo(automation *models.Automation) {
	if r.Name != nil {
		automation.Name = *r.Name
	}

	if r.Description != nil {
		automation.Description = *r.Description
	}

	if r.IsActive != nil {
		automation.IsActive = *r.IsActive
	}

	if r.TriggerType != nil {
		automation.TriggerType = models.TriggerType(*r.TriggerType)
	}

	if r.TriggerConfig != nil {
		automation.TriggerConfig = r.TriggerConfig
	}

	if r.Steps != nil {
		automation.Steps = r.Steps
	}

	if r.CallbackURL != nil {
		automation.CallbackURL = *r.CallbackURL
	}
}
