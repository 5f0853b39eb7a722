package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/Walkerb10/meop/pkg/channels/gochannel"
	"github.com/Walkerb10/meop/pkg/eventbus"
	"github.com/Walkerb10/meop/pkg/models"
	"github.com/Walkerb10/meop/pkg/persistence/file"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T, tempDir string) *fiber.App {
	t.Helper()

	persistence := file.NewPersistence(tempDir)

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	api := NewAPI(slog.Default(), persistence, bus)

	return api.App()
}

func closeBody(t *testing.T, resp *http.Response) {
	t.Helper()

	if err := resp.Body.Close(); err != nil {
		t.Logf("Failed to close response body: %v", err)
	}
}

func createAutomationPayload() map[string]any {
	return map[string]any{
		"name":         "Morning digest",
		"description":  "Posts the daily digest",
		"is_active":    true,
		"trigger_type": "scheduled",
		"trigger_config": map[string]any{
			"scheduled_time": "09:00",
			"frequency":      "daily",
		},
		"steps": []map[string]any{
			{
				"id":    "step-1",
				"kind":  "action",
				"label": "Notify",
				"config": map[string]any{
					"action_type": "send_slack",
					"channel":     "#general",
					"message":     "Good morning",
				},
			},
		},
		"owner": "user-1",
	}
}

func createTestAutomation(t *testing.T, app *fiber.App) *models.Automation {
	t.Helper()

	body, err := json.Marshal(createAutomationPayload())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/automations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer closeBody(t, resp)

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var automation models.Automation

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&automation))

	return &automation
}

func TestAPI_RootEndpoint(t *testing.T) {
	app := setupTestApp(t, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "MEOP API", string(body))
}

func TestAPI_Liveness(t *testing.T) {
	app := setupTestApp(t, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_CreateAutomation(t *testing.T) {
	app := setupTestApp(t, t.TempDir())

	automation := createTestAutomation(t, app)

	assert.NotEmpty(t, automation.ID)
	assert.Equal(t, "Morning digest", automation.Name)
	assert.Equal(t, models.TriggerTypeScheduled, automation.TriggerType)
	assert.False(t, automation.CreatedAt.IsZero())
}

func TestAPI_CreateAutomation_Invalid(t *testing.T) {
	app := setupTestApp(t, t.TempDir())

	testCases := []struct {
		name   string
		mutate func(payload map[string]any)
	}{
		{
			name:   "missing name",
			mutate: func(payload map[string]any) { delete(payload, "name") },
		},
		{
			name:   "name too short",
			mutate: func(payload map[string]any) { payload["name"] = "ab" },
		},
		{
			name:   "unknown trigger type",
			mutate: func(payload map[string]any) { payload["trigger_type"] = "telepathy" },
		},
		{
			name:   "missing owner",
			mutate: func(payload map[string]any) { delete(payload, "owner") },
		},
		{
			name: "invalid trigger config",
			mutate: func(payload map[string]any) {
				payload["trigger_config"] = map[string]any{"scheduled_time": "25:99", "frequency": "daily"}
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			payload := createAutomationPayload()
			tc.mutate(payload)

			body, err := json.Marshal(payload)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/automations", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)

			defer closeBody(t, resp)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestAPI_GetAutomations(t *testing.T) {
	app := setupTestApp(t, t.TempDir())

	createTestAutomation(t, app)

	req := httptest.NewRequest(http.MethodGet, "/automations", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Automations []*models.Automation `json:"automations"`
		TotalCount  int64                `json:"total_count"`
	}

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Len(t, result.Automations, 1)
	assert.Equal(t, int64(1), result.TotalCount)
}

func TestAPI_GetAutomations_InvalidSort(t *testing.T) {
	app := setupTestApp(t, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/automations?sort_by=owner", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_GetAutomation(t *testing.T) {
	app := setupTestApp(t, t.TempDir())

	created := createTestAutomation(t, app)

	req := httptest.NewRequest(http.MethodGet, "/automations/"+created.ID, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched models.Automation

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fetched))
	assert.Equal(t, created.ID, fetched.ID)
}

func TestAPI_GetAutomation_NotFound(t *testing.T) {
	app := setupTestApp(t, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/automations/non-existent", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_UpdateAutomation(t *testing.T) {
	app := setupTestApp(t, t.TempDir())

	created := createTestAutomation(t, app)

	body, err := json.Marshal(map[string]any{
		"name":      "Evening digest",
		"is_active": false,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPatch, "/automations/"+created.ID, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var updated models.Automation

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Evening digest", updated.Name)
	assert.False(t, updated.IsActive)

	// Fields absent from the patch keep their values.
	assert.Equal(t, created.TriggerType, updated.TriggerType)
	assert.Equal(t, created.Owner, updated.Owner)
}

func TestAPI_DeleteAutomation(t *testing.T) {
	app := setupTestApp(t, t.TempDir())

	created := createTestAutomation(t, app)

	req := httptest.NewRequest(http.MethodDelete, "/automations/"+created.ID, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	getReq := httptest.NewRequest(http.MethodGet, "/automations/"+created.ID, nil)
	getResp, err := app.Test(getReq)
	require.NoError(t, err)

	defer closeBody(t, getResp)

	assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
}

func TestAPI_GetAutomationWorkflow(t *testing.T) {
	app := setupTestApp(t, t.TempDir())

	created := createTestAutomation(t, app)

	req := httptest.NewRequest(http.MethodGet, "/automations/"+created.ID+"/workflow", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var graph models.WorkflowGraph

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&graph))

	// One synthesized schedule trigger plus the legacy slack step, chained.
	require.Len(t, graph.Nodes, 2)
	assert.Equal(t, models.NodeTypeScheduleTrigger, graph.Nodes[0].Type)
	assert.Equal(t, models.NodeTypeSlack, graph.Nodes[1].Type)
	require.Len(t, graph.Connections, 1)
	assert.Equal(t, graph.Nodes[0].ID, graph.Connections[0].SourceNodeID)

	config, ok := graph.Nodes[1].Config.(*models.SlackConfig)
	require.True(t, ok)
	assert.Equal(t, "general", config.Channel)
}

func TestAPI_InboundWebhook(t *testing.T) {
	app := setupTestApp(t, t.TempDir())

	payload := createAutomationPayload()
	payload["trigger_type"] = "webhook"
	payload["trigger_config"] = map[string]any{"webhook_url": "https://hooks.example.com/abc"}

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/automations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer closeBody(t, resp)

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Automation

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	hookReq := httptest.NewRequest(http.MethodPost, "/hooks/"+created.ID,
		bytes.NewReader([]byte(`{"event": "deploy_finished"}`)))
	hookReq.Header.Set("Content-Type", "application/json")

	hookResp, err := app.Test(hookReq)
	require.NoError(t, err)

	defer closeBody(t, hookResp)

	assert.Equal(t, http.StatusAccepted, hookResp.StatusCode)

	var accepted map[string]any

	require.NoError(t, json.NewDecoder(hookResp.Body).Decode(&accepted))
	assert.Equal(t, "accepted", accepted["status"])
	assert.NotEmpty(t, accepted["event_id"])
}

func TestAPI_InboundWebhook_RejectsNonWebhookAutomation(t *testing.T) {
	app := setupTestApp(t, t.TempDir())

	created := createTestAutomation(t, app)

	req := httptest.NewRequest(http.MethodPost, "/hooks/"+created.ID, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_InboundWebhook_PayloadSchema(t *testing.T) {
	app := setupTestApp(t, t.TempDir())

	payload := createAutomationPayload()
	payload["trigger_type"] = "webhook"
	payload["trigger_config"] = map[string]any{
		"webhook_url": "https://hooks.example.com/abc",
		"payload_schema": map[string]any{
			"type":     "object",
			"required": []string{"event"},
		},
	}

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/automations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer closeBody(t, resp)

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Automation

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	bad := httptest.NewRequest(http.MethodPost, "/hooks/"+created.ID,
		bytes.NewReader([]byte(`{"other": true}`)))
	bad.Header.Set("Content-Type", "application/json")

	badResp, err := app.Test(bad)
	require.NoError(t, err)

	defer closeBody(t, badResp)

	assert.Equal(t, http.StatusBadRequest, badResp.StatusCode)

	good := httptest.NewRequest(http.MethodPost, "/hooks/"+created.ID,
		bytes.NewReader([]byte(`{"event": "deploy_finished"}`)))
	good.Header.Set("Content-Type", "application/json")

	goodResp, err := app.Test(good)
	require.NoError(t, err)

	defer closeBody(t, goodResp)

	assert.Equal(t, http.StatusAccepted, goodResp.StatusCode)
}

func TestAPI_HealthEndpoint(t *testing.T) {
	app := setupTestApp(t, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]any

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health["status"])
}
