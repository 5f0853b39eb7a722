package services

import (
	"fmt"
	"strings"

	"github.com/Walkerb10/meop/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// Trigger configuration schemas, keyed by trigger type. Legacy camelCase
// field names remain accepted alongside the current snake_case ones; the
// evaluator and the coercion resolve the precedence.
var triggerConfigSchemas = map[models.TriggerType]map[string]any{
	models.TriggerTypeScheduled: {
		"type": "object",
		"properties": map[string]any{
			"scheduled_time": map[string]any{"type": "string", "pattern": "^([01]?[0-9]|2[0-3]):[0-5][0-9]$"},
			"time":           map[string]any{"type": "string", "pattern": "^([01]?[0-9]|2[0-3]):[0-5][0-9]$"},
			"frequency": map[string]any{
				"type": "string",
				"enum": []any{"daily", "weekly", "monthly", "one_time", "every_x_days"},
			},
			"day_of_week":  map[string]any{},
			"days":         map[string]any{},
			"day_of_month": map[string]any{"type": "integer", "minimum": 1, "maximum": 31},
			"custom_date":  map[string]any{"type": "string"},
			"every_x_days": map[string]any{"type": "integer", "minimum": 1},
		},
		"required": []any{"frequency"},
	},
	models.TriggerTypeWebhook: {
		"type": "object",
		"properties": map[string]any{
			"webhook_url":    map[string]any{"type": "string"},
			"webhookUrl":     map[string]any{"type": "string"},
			"payload_schema": map[string]any{"type": "object"},
		},
	},
	models.TriggerTypeVoice: {
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{"type": "string"},
			"phrase":  map[string]any{"type": "string"},
		},
	},
	models.TriggerTypeManual: {
		"type": "object",
	},
}

// ValidateTriggerConfig checks an automation's trigger configuration against
// the schema for its trigger type. Unknown trigger types fail; extra config
// keys are tolerated (legacy bags carry arbitrary fields).
func ValidateTriggerConfig(triggerType models.TriggerType, config map[string]any) error {
	schema, ok := triggerConfigSchemas[triggerType]
	if !ok {
		return NewValidationError(
			"ValidateTriggerConfig",
			"INVALID_TRIGGER_TYPE",
			fmt.Sprintf("unknown trigger type %q", triggerType),
			ErrInvalidTriggerType,
		)
	}

	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate trigger config: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return NewValidationError(
			"ValidateTriggerConfig",
			"INVALID_TRIGGER_CONFIG",
			strings.Join(details, "; "),
			ErrInvalidTriggerConfig,
		)
	}

	return nil
}
