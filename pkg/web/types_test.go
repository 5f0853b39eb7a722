package web

import (
	"encoding/json"
	"testing"

	"github.com/Walkerb10/meop/pkg/models"
	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func TestUpdateAutomationRequest_ApplyTo(t *testing.T) {
	automation := &models.Automation{
		ID:          "auto-1",
		Name:        "Morning digest",
		Description: "Original description",
		IsActive:    true,
		TriggerType: models.TriggerTypeScheduled,
		TriggerConfig: map[string]any{
			"scheduled_time": "09:00",
			"frequency":      "daily",
		},
		Owner: "user-1",
	}

	req := UpdateAutomationRequest{
		Name:     strPtr("Evening digest"),
		IsActive: boolPtr(false),
		Steps:    json.RawMessage(`[{"id":"step-1","kind":"action"}]`),
	}

	req.ApplyTo(automation)

	assert.Equal(t, "Evening digest", automation.Name)
	assert.False(t, automation.IsActive)
	assert.JSONEq(t, `[{"id":"step-1","kind":"action"}]`, string(automation.Steps))

	// Untouched fields survive the merge.
	assert.Equal(t, "auto-1", automation.ID)
	assert.Equal(t, "Original description", automation.Description)
	assert.Equal(t, models.TriggerTypeScheduled, automation.TriggerType)
	assert.Equal(t, "daily", automation.TriggerConfig["frequency"])
	assert.Equal(t, "user-1", automation.Owner)
}

func TestUpdateAutomationRequest_ApplyTo_Empty(t *testing.T) {
	automation := &models.Automation{
		Name:        "Morning digest",
		IsActive:    true,
		TriggerType: models.TriggerTypeScheduled,
	}

	before := *automation

	(&UpdateAutomationRequest{}).ApplyTo(automation)

	assert.Equal(t, before, *automation)
}
