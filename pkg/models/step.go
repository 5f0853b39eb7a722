package models

// LegacyStepKind is the loose kind tag carried by old flat step lists.
type LegacyStepKind string

const (
	LegacyStepKindTrigger   LegacyStepKind = "trigger"
	LegacyStepKindCondition LegacyStepKind = "condition"
	LegacyStepKindTransform LegacyStepKind = "transform"
	LegacyStepKindAction    LegacyStepKind = "action"
)

// LegacyStep is the older flat representation of an automation step,
// superseded by the node/connection graph. The config bag's keys vary by
// intended action (action_type, message, channel, to, phone, webhookUrl,
// query, output_format, ...).
type LegacyStep struct {
	ID     string         `json:"id"`
	Kind   LegacyStepKind `json:"kind"`
	Label  string         `json:"label"`
	Config map[string]any `json:"config,omitempty"`
}
