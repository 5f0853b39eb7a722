// Package models defines the core domain models for team-operations automations.
package models

import (
	"encoding/json"
	"time"
)

// TriggerType is the category of condition that causes an automation to run.
type TriggerType string

const (
	TriggerTypeManual    TriggerType = "manual"
	TriggerTypeScheduled TriggerType = "scheduled"
	TriggerTypeWebhook   TriggerType = "webhook"
	TriggerTypeVoice     TriggerType = "voice"
)

// Automation pairs a trigger condition with an ordered or graph-shaped
// collection of steps. Steps are kept as raw JSON because two shapes coexist
// in storage: the legacy flat step list and the node/connection graph. The
// workflow package normalizes between them.
type Automation struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"                     validate:"required,min=3"`
	Description   string          `json:"description,omitempty"`
	IsActive      bool            `json:"is_active"`
	TriggerType   TriggerType     `json:"trigger_type"             validate:"required,oneof=manual scheduled webhook voice"`
	TriggerConfig map[string]any  `json:"trigger_config,omitempty"`
	Steps         json.RawMessage `json:"steps,omitempty"`
	CallbackURL   string          `json:"callback_url,omitempty"   validate:"omitempty,url"`
	LastRunAt     *time.Time      `json:"last_run_at,omitempty"`
	Owner         string          `json:"owner"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
}

// IsScheduled reports whether the automation is an active scheduled automation.
func (a *Automation) IsScheduled() bool {
	return a.IsActive && a.TriggerType == TriggerTypeScheduled
}
