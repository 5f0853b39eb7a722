// Package workflow normalizes persisted automation steps into the
// node/connection graph representation.
//
// Steps are stored in two shapes: the current node/connection graph and a
// legacy flat ordered list. The coercion is a best-effort display and
// migration convenience, not a validator: every malformed or partially
// populated input degrades to a usable node, never an error. The produced
// graph is ephemeral and not persisted.
package workflow

import (
	"encoding/json"
	"strings"

	"github.com/Walkerb10/meop/pkg/models"
	"github.com/google/uuid"
)

// Layout constants are purely presentational; positions carry no execution
// semantics.
const (
	nodeColumnX   = 250
	nodeRowStartY = 100
	nodeRowStepY  = 150
)

// CoerceToWorkflow normalizes an automation's raw steps into a workflow
// graph. Already-normalized graphs pass through verbatim. Legacy step lists
// become a straight chain of typed nodes, with a trigger node synthesized
// from the trigger configuration when the list has none.
func CoerceToWorkflow(steps json.RawMessage, triggerConfig map[string]any, triggerType models.TriggerType) *models.WorkflowGraph {
	if graph, ok := decodeGraph(steps); ok {
		return graph
	}

	legacySteps := decodeLegacySteps(steps)

	nodes := make([]*models.WorkflowNode, 0, len(legacySteps)+1)

	if !hasTriggerStep(legacySteps) && len(triggerConfig) > 0 {
		nodes = append(nodes, synthesizeTriggerNode(triggerConfig, triggerType))
	}

	for _, step := range legacySteps {
		nodes = append(nodes, coerceStep(step, triggerType))
	}

	for i, node := range nodes {
		node.PositionX = nodeColumnX
		node.PositionY = nodeRowStartY + i*nodeRowStepY
	}

	return &models.WorkflowGraph{
		Nodes:       nodes,
		Connections: chainConnections(nodes),
	}
}

// decodeGraph detects the already-normalized shape: an object carrying both a
// nodes array and a connections array.
func decodeGraph(steps json.RawMessage) (*models.WorkflowGraph, bool) {
	if len(steps) == 0 {
		return nil, false
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(steps, &probe); err != nil {
		return nil, false
	}

	if _, ok := probe["nodes"]; !ok {
		return nil, false
	}

	if _, ok := probe["connections"]; !ok {
		return nil, false
	}

	var graph models.WorkflowGraph
	if err := json.Unmarshal(steps, &graph); err != nil {
		return nil, false
	}

	return &graph, true
}

// decodeLegacySteps reads steps as a legacy ordered list. Undecodable input
// degrades to an empty list.
func decodeLegacySteps(steps json.RawMessage) []*models.LegacyStep {
	if len(steps) == 0 {
		return nil
	}

	var legacySteps []*models.LegacyStep
	if err := json.Unmarshal(steps, &legacySteps); err != nil {
		return nil
	}

	return legacySteps
}

func hasTriggerStep(steps []*models.LegacyStep) bool {
	for _, step := range steps {
		if step != nil && step.Kind == models.LegacyStepKindTrigger {
			return true
		}
	}

	return false
}

// synthesizeTriggerNode builds the leading trigger node from the automation's
// trigger configuration when no legacy step is tagged as a trigger.
func synthesizeTriggerNode(triggerConfig map[string]any, triggerType models.TriggerType) *models.WorkflowNode {
	if strings.Contains(string(triggerType), "webhook") {
		return &models.WorkflowNode{
			ID:     uuid.New().String(),
			Type:   models.NodeTypeWebhookTrigger,
			Name:   "Webhook Trigger",
			Config: models.WebhookTriggerConfigFromBag(triggerConfig),
		}
	}

	return &models.WorkflowNode{
		ID:     uuid.New().String(),
		Type:   models.NodeTypeScheduleTrigger,
		Name:   "Schedule Trigger",
		Config: models.ScheduleTriggerConfigFromBag(triggerConfig),
	}
}

// coerceStep infers a concrete node type and typed configuration for one
// legacy step.
func coerceStep(step *models.LegacyStep, triggerType models.TriggerType) *models.WorkflowNode {
	if step == nil {
		step = &models.LegacyStep{}
	}

	node := &models.WorkflowNode{
		ID:   step.ID,
		Name: step.Label,
	}

	if node.ID == "" {
		node.ID = uuid.New().String()
	}

	bag := step.Config
	if bag == nil {
		bag = map[string]any{}
	}

	switch step.Kind {
	case models.LegacyStepKindTrigger:
		node.Type, node.Config = coerceTriggerStep(bag, triggerType)
	case models.LegacyStepKindCondition:
		node.Type = models.NodeTypeCondition
		node.Config = models.ConditionConfigFromBag(bag)
	case models.LegacyStepKindTransform:
		node.Type = models.NodeTypeTransform
		node.Config = models.TransformConfigFromBag(bag)
	default:
		node.Type, node.Config = coerceActionStep(bag)
	}

	if node.Name == "" {
		node.Name = defaultNodeName(node.Type)
	}

	return node
}

func coerceTriggerStep(bag map[string]any, triggerType models.TriggerType) (models.NodeType, models.NodeConfig) {
	kind := strings.ToLower(string(triggerType))

	switch {
	case strings.Contains(kind, "voice"):
		return models.NodeTypeVoiceTrigger, models.VoiceTriggerConfigFromBag(bag)
	case strings.Contains(kind, "webhook"), hasWebhookURL(bag):
		return models.NodeTypeWebhookTrigger, models.WebhookTriggerConfigFromBag(bag)
	default:
		return models.NodeTypeScheduleTrigger, models.ScheduleTriggerConfigFromBag(bag)
	}
}

func hasWebhookURL(bag map[string]any) bool {
	return models.BagString(bag, "webhook_url", "webhookUrl") != ""
}

// coerceActionStep maps a legacy action step onto a concrete action node by
// its lower-cased action_type. Text is the universal fallback for unknown
// actions.
func coerceActionStep(bag map[string]any) (models.NodeType, models.NodeConfig) {
	actionType := strings.ToLower(models.BagString(bag, "action_type", "actionType"))

	switch actionType {
	case "research":
		return models.NodeTypeResearch, models.ResearchConfigFromBag(bag)
	case "slack_message", "send_slack":
		return models.NodeTypeSlack, models.SlackConfigFromBag(bag)
	case "discord_message", "send_discord":
		return models.NodeTypeDiscord, models.DiscordConfigFromBag(bag)
	case "send_email":
		return models.NodeTypeEmail, models.EmailConfigFromBag(bag)
	case "send_text":
		return models.NodeTypeText, models.TextConfigFromBag(bag)
	default:
		return models.NodeTypeText, models.TextConfigFromBag(bag)
	}
}

func defaultNodeName(nodeType models.NodeType) string {
	switch nodeType {
	case models.NodeTypeScheduleTrigger:
		return "Schedule Trigger"
	case models.NodeTypeWebhookTrigger:
		return "Webhook Trigger"
	case models.NodeTypeVoiceTrigger:
		return "Voice Trigger"
	case models.NodeTypeManualTrigger:
		return "Manual Trigger"
	case models.NodeTypeResearch:
		return "Research"
	case models.NodeTypeEmail:
		return "Send Email"
	case models.NodeTypeSlack:
		return "Slack Message"
	case models.NodeTypeDiscord:
		return "Discord Message"
	case models.NodeTypeText:
		return "Send Text"
	case models.NodeTypeDelay:
		return "Delay"
	case models.NodeTypeCondition:
		return "Condition"
	case models.NodeTypeTransform:
		return "Transform"
	default:
		return string(nodeType)
	}
}

// chainConnections links node i to node i+1 in final order. Legacy data never
// yields branches or merges.
func chainConnections(nodes []*models.WorkflowNode) []*models.Connection {
	if len(nodes) < 2 {
		return []*models.Connection{}
	}

	connections := make([]*models.Connection, 0, len(nodes)-1)

	for i := 0; i+1 < len(nodes); i++ {
		connections = append(connections, &models.Connection{
			ID:           uuid.New().String(),
			SourceNodeID: nodes[i].ID,
			TargetNodeID: nodes[i+1].ID,
		})
	}

	return connections
}
