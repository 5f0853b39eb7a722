package models

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeConfig is the typed per-node configuration. Exactly one concrete
// variant exists per node type; each is built from a loose string-keyed bag
// by a total mapping function that never fails, with legacy field-name
// fallback chains made explicit.
type NodeConfig interface {
	NodeType() NodeType
}

// ScheduleTriggerConfig configures a schedule trigger node.
type ScheduleTriggerConfig struct {
	Time       string   `json:"time,omitempty"` // HH:MM in the reference timezone
	Frequency  string   `json:"frequency,omitempty"`
	Days       []string `json:"days,omitempty"`
	DayOfMonth int      `json:"day_of_month,omitempty"`
	CustomDate string   `json:"custom_date,omitempty"`
	EveryXDays int      `json:"every_x_days,omitempty"`
}

func (*ScheduleTriggerConfig) NodeType() NodeType { return NodeTypeScheduleTrigger }

// WebhookTriggerConfig configures a webhook trigger node.
type WebhookTriggerConfig struct {
	WebhookURL    string         `json:"webhook_url,omitempty"`
	PayloadSchema map[string]any `json:"payload_schema,omitempty"`
}

func (*WebhookTriggerConfig) NodeType() NodeType { return NodeTypeWebhookTrigger }

// VoiceTriggerConfig configures a voice trigger node.
type VoiceTriggerConfig struct {
	Command string `json:"command,omitempty"`
}

func (*VoiceTriggerConfig) NodeType() NodeType { return NodeTypeVoiceTrigger }

// ManualTriggerConfig configures a manual trigger node. Manual triggers carry
// no configuration.
type ManualTriggerConfig struct{}

func (*ManualTriggerConfig) NodeType() NodeType { return NodeTypeManualTrigger }

// ResearchConfig configures a research action node.
type ResearchConfig struct {
	Query        string `json:"query,omitempty"`
	OutputFormat string `json:"output_format,omitempty"`
	OutputLength string `json:"output_length,omitempty"`
}

func (*ResearchConfig) NodeType() NodeType { return NodeTypeResearch }

// TextConfig configures an SMS action node.
type TextConfig struct {
	Phone   string `json:"phone,omitempty"`
	Message string `json:"message,omitempty"`
}

func (*TextConfig) NodeType() NodeType { return NodeTypeText }

// EmailConfig configures an email action node.
type EmailConfig struct {
	To      string `json:"to,omitempty"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message,omitempty"`
}

func (*EmailConfig) NodeType() NodeType { return NodeTypeEmail }

// SlackConfig configures a Slack message action node.
type SlackConfig struct {
	Channel string `json:"channel,omitempty"`
	Message string `json:"message,omitempty"`
}

func (*SlackConfig) NodeType() NodeType { return NodeTypeSlack }

// DiscordConfig configures a Discord message action node.
type DiscordConfig struct {
	Channel string `json:"channel,omitempty"`
	Message string `json:"message,omitempty"`
}

func (*DiscordConfig) NodeType() NodeType { return NodeTypeDiscord }

// DelayConfig configures a delay action node.
type DelayConfig struct {
	Seconds int `json:"seconds,omitempty"`
}

func (*DelayConfig) NodeType() NodeType { return NodeTypeDelay }

// ConditionConfig carries a condition node's configuration unchanged.
type ConditionConfig struct {
	Params map[string]any `json:"params,omitempty"`
}

func (*ConditionConfig) NodeType() NodeType { return NodeTypeCondition }

// TransformConfig carries a transform node's configuration unchanged.
type TransformConfig struct {
	Params map[string]any `json:"params,omitempty"`
}

func (*TransformConfig) NodeType() NodeType { return NodeTypeTransform }

// newNodeConfig returns a zero config value for the given node type.
func newNodeConfig(nodeType NodeType) (NodeConfig, error) {
	switch nodeType {
	case NodeTypeScheduleTrigger:
		return &ScheduleTriggerConfig{}, nil
	case NodeTypeWebhookTrigger:
		return &WebhookTriggerConfig{}, nil
	case NodeTypeVoiceTrigger:
		return &VoiceTriggerConfig{}, nil
	case NodeTypeManualTrigger:
		return &ManualTriggerConfig{}, nil
	case NodeTypeResearch:
		return &ResearchConfig{}, nil
	case NodeTypeText:
		return &TextConfig{}, nil
	case NodeTypeEmail:
		return &EmailConfig{}, nil
	case NodeTypeSlack:
		return &SlackConfig{}, nil
	case NodeTypeDiscord:
		return &DiscordConfig{}, nil
	case NodeTypeDelay:
		return &DelayConfig{}, nil
	case NodeTypeCondition:
		return &ConditionConfig{}, nil
	case NodeTypeTransform:
		return &TransformConfig{}, nil
	default:
		return nil, fmt.Errorf("unknown node type: %s", nodeType)
	}
}

// Mapping functions from loose config bags. These are total: missing or
// mistyped fields become zero values, never errors. Fallback chains list the
// current snake_case name first, legacy names after.

func ScheduleTriggerConfigFromBag(bag map[string]any) *ScheduleTriggerConfig {
	return &ScheduleTriggerConfig{
		Time:       BagString(bag, "scheduled_time", "time", "scheduledTime"),
		Frequency:  BagString(bag, "frequency"),
		Days:       BagStringList(bag, "day_of_week", "days", "dayOfWeek"),
		DayOfMonth: BagInt(bag, "day_of_month", "dayOfMonth"),
		CustomDate: BagString(bag, "custom_date", "customDate"),
		EveryXDays: BagInt(bag, "every_x_days", "everyXDays"),
	}
}

func WebhookTriggerConfigFromBag(bag map[string]any) *WebhookTriggerConfig {
	config := &WebhookTriggerConfig{
		WebhookURL: BagString(bag, "webhook_url", "webhookUrl"),
	}

	if schema, ok := bag["payload_schema"].(map[string]any); ok {
		config.PayloadSchema = schema
	}

	return config
}

func VoiceTriggerConfigFromBag(bag map[string]any) *VoiceTriggerConfig {
	return &VoiceTriggerConfig{
		Command: BagString(bag, "command", "phrase"),
	}
}

func ResearchConfigFromBag(bag map[string]any) *ResearchConfig {
	return &ResearchConfig{
		Query:        BagString(bag, "query", "research_query", "original_query"),
		OutputFormat: BagString(bag, "output_format", "outputFormat"),
		OutputLength: BagString(bag, "output_length", "outputLength"),
	}
}

func TextConfigFromBag(bag map[string]any) *TextConfig {
	return &TextConfig{
		Phone:   BagString(bag, "phone", "to"),
		Message: BagString(bag, "message"),
	}
}

func EmailConfigFromBag(bag map[string]any) *EmailConfig {
	return &EmailConfig{
		To:      BagString(bag, "to"),
		Subject: BagString(bag, "subject"),
		Message: BagString(bag, "message"),
	}
}

func SlackConfigFromBag(bag map[string]any) *SlackConfig {
	return &SlackConfig{
		Channel: strings.TrimPrefix(BagString(bag, "channel"), "#"),
		Message: BagString(bag, "message"),
	}
}

func DiscordConfigFromBag(bag map[string]any) *DiscordConfig {
	return &DiscordConfig{
		Channel: strings.TrimPrefix(BagString(bag, "channel"), "#"),
		Message: BagString(bag, "message"),
	}
}

func DelayConfigFromBag(bag map[string]any) *DelayConfig {
	return &DelayConfig{
		Seconds: BagInt(bag, "seconds", "delay_seconds"),
	}
}

func ConditionConfigFromBag(bag map[string]any) *ConditionConfig {
	return &ConditionConfig{Params: bag}
}

func TransformConfigFromBag(bag map[string]any) *TransformConfig {
	return &TransformConfig{Params: bag}
}

// BagString returns the first non-empty string value among the given keys.
func BagString(bag map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := bag[key].(string); ok && value != "" {
			return value
		}
	}

	return ""
}

// BagInt returns the first numeric value among the given keys. JSON decoding
// yields float64, so numbers arrive as float64, int, or numeric strings.
func BagInt(bag map[string]any, keys ...string) int {
	for _, key := range keys {
		switch value := bag[key].(type) {
		case int:
			return value
		case int64:
			return int(value)
		case float64:
			return int(value)
		case string:
			if parsed, err := strconv.Atoi(value); err == nil {
				return parsed
			}
		}
	}

	return 0
}

// BagStringList returns the first value among the given keys as a string
// list. A single string becomes a one-element list.
func BagStringList(bag map[string]any, keys ...string) []string {
	for _, key := range keys {
		switch value := bag[key].(type) {
		case string:
			if value != "" {
				return []string{value}
			}
		case []string:
			if len(value) > 0 {
				return value
			}
		case []any:
			list := make([]string, 0, len(value))

			for _, item := range value {
				if s, ok := item.(string); ok {
					list = append(list, s)
				}
			}

			if len(list) > 0 {
				return list
			}
		}
	}

	return nil
}
