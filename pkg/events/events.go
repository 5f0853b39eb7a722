// Package events defines event types for automation lifecycle notifications.
package events

import (
	"time"
)

type EventType string

// Kafka topic for automation events.
const Topic = "meop.automation.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// AutomationTriggeredEvent is published when a trigger fires; execution
	// is the consumer's responsibility.
	AutomationTriggeredEvent EventType = "automation.triggered"
	AutomationFinishedEvent  EventType = "automation.finished"
	AutomationFailedEvent    EventType = "automation.failed"
)

type BaseEvent struct {
	ID           string         `json:"id"`
	Type         EventType      `json:"type"`
	Timestamp    time.Time      `json:"timestamp"`
	AutomationID string         `json:"automation_id"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// AutomationTriggered carries the trigger source and its payload.
type AutomationTriggered struct {
	BaseEvent

	TriggerType string         `json:"trigger_type"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

func (e AutomationTriggered) GetType() EventType {
	return AutomationTriggeredEvent
}

type AutomationFinished struct {
	BaseEvent

	Result   map[string]any `json:"result,omitempty"`
	Duration time.Duration  `json:"duration"`
}

func (e AutomationFinished) GetType() EventType {
	return AutomationFinishedEvent
}

type AutomationFailed struct {
	BaseEvent

	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (e AutomationFailed) GetType() EventType {
	return AutomationFailedEvent
}
