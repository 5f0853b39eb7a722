// Package models defines core node-based workflow models for graph editing.
package models

import (
	"encoding/json"
	"fmt"
)

// CategoryType represents the category of node.
type CategoryType string

const (
	CategoryTypeAction  CategoryType = "action"  // Regular action nodes (slack, email, research, etc.)
	CategoryTypeTrigger CategoryType = "trigger" // Trigger nodes (schedule, webhook, voice, manual)
)

// NodeType is the closed enumeration of workflow node types.
type NodeType string

const (
	NodeTypeScheduleTrigger NodeType = "trigger:schedule"
	NodeTypeWebhookTrigger  NodeType = "trigger:webhook"
	NodeTypeVoiceTrigger    NodeType = "trigger:voice"
	NodeTypeManualTrigger   NodeType = "trigger:manual"
	NodeTypeResearch        NodeType = "research"
	NodeTypeText            NodeType = "text"
	NodeTypeEmail           NodeType = "email"
	NodeTypeSlack           NodeType = "slack"
	NodeTypeDiscord         NodeType = "discord"
	NodeTypeDelay           NodeType = "delay"
	NodeTypeCondition       NodeType = "condition"
	NodeTypeTransform       NodeType = "transform"
)

// Category returns the node category for a node type.
func (t NodeType) Category() CategoryType {
	switch t {
	case NodeTypeScheduleTrigger, NodeTypeWebhookTrigger, NodeTypeVoiceTrigger, NodeTypeManualTrigger:
		return CategoryTypeTrigger
	default:
		return CategoryTypeAction
	}
}

// WorkflowNode represents a node instance in a workflow graph. Position is
// purely presentational and carries no execution semantics.
type WorkflowNode struct {
	ID        string     `json:"id"         validate:"required"`
	Type      NodeType   `json:"type"       validate:"required"`
	Name      string     `json:"name"`
	PositionX int        `json:"position_x"`
	PositionY int        `json:"position_y"`
	Config    NodeConfig `json:"config,omitempty"`
}

// IsTriggerNode reports whether the node is a trigger node.
func (n *WorkflowNode) IsTriggerNode() bool {
	return n.Type.Category() == CategoryTypeTrigger
}

// UnmarshalJSON decodes the node, selecting the concrete config type from the
// node type tag.
func (n *WorkflowNode) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string          `json:"id"`
		Type      NodeType        `json:"type"`
		Name      string          `json:"name"`
		PositionX int             `json:"position_x"`
		PositionY int             `json:"position_y"`
		Config    json.RawMessage `json:"config"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	n.ID = raw.ID
	n.Type = raw.Type
	n.Name = raw.Name
	n.PositionX = raw.PositionX
	n.PositionY = raw.PositionY
	n.Config = nil

	if len(raw.Config) == 0 || string(raw.Config) == "null" {
		return nil
	}

	config, err := newNodeConfig(raw.Type)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw.Config, config); err != nil {
		return fmt.Errorf("failed to decode %s config: %w", raw.Type, err)
	}

	n.Config = config

	return nil
}

// Connection links a source node to a target node. Connections derived from
// legacy steps always form a simple chain.
type Connection struct {
	SourceNodeID string `json:"source_node_id" validate:"required"`
	TargetNodeID string `json:"target_node_id" validate:"required"`
	ID           string `json:"id"`
	Label        string `json:"label,omitempty"`
}

// WorkflowGraph is the normalized node/connection representation of an
// automation's steps.
type WorkflowGraph struct {
	Nodes       []*WorkflowNode `json:"nodes"`
	Connections []*Connection   `json:"connections"`
}
