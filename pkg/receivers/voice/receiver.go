// Package voice consumes trigger commands pushed by the voice agent.
//
// The agent enqueues a JSON command onto a Redis list; the receiver pops
// commands, matches them against active voice-trigger automations, and
// publishes AutomationTriggered events. Matching is intentionally loose: a
// command fires every automation whose configured command phrase appears in
// it, case-insensitively.
package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Walkerb10/meop/pkg/eventbus"
	"github.com/Walkerb10/meop/pkg/events"
	"github.com/Walkerb10/meop/pkg/models"
	"github.com/Walkerb10/meop/pkg/services"
	redis "github.com/redis/go-redis/v9"
)

const defaultQueue = "meop:voice:commands"

type Receiver struct {
	Queue   string
	Addr    string
	Enabled bool

	client   redis.UniversalClient
	service  *services.Automation
	eventBus eventbus.EventBus
	logger   *slog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewReceiver(addr, queue string, service *services.Automation, eventBus eventbus.EventBus, logger *slog.Logger) *Receiver {
	if queue == "" {
		queue = defaultQueue
	}

	return &Receiver{
		Queue:    queue,
		Addr:     addr,
		Enabled:  true,
		service:  service,
		eventBus: eventBus,
		stopCh:   make(chan struct{}),
		logger: logger.With(
			"module", "voice_receiver",
			"queue", queue,
		),
	}
}

func (r *Receiver) Start(ctx context.Context) error {
	if !r.Enabled {
		r.logger.InfoContext(ctx, "Voice receiver is disabled.")

		return nil
	}

	r.logger.InfoContext(ctx, "Starting voice receiver")

	err := r.initializeClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize voice queue client: %w", err)
	}

	r.wg.Add(1)

	go r.consume(ctx)

	return nil
}

func (r *Receiver) Stop(ctx context.Context) error {
	r.logger.InfoContext(ctx, "Stopping voice receiver")

	close(r.stopCh)
	r.wg.Wait()

	if r.client != nil {
		return r.client.Close()
	}

	return nil
}

func (r *Receiver) initializeClient(ctx context.Context) error {
	addr := r.Addr
	if addr == "" {
		addr = "localhost:6379"
	}

	r.client = redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := r.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	r.logger.InfoContext(ctx, "Connected to Redis", "addr", addr)

	return nil
}

func (r *Receiver) consume(ctx context.Context) {
	defer r.wg.Done()

	r.logger.InfoContext(ctx, "Starting voice command consumer")

	for {
		select {
		case <-r.stopCh:
			r.logger.InfoContext(ctx, "Voice command consumer stopped")

			return
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "Context cancelled, stopping voice command consumer")

			return
		default:
			err := r.processCommand(ctx)
			if err != nil {
				r.logger.ErrorContext(ctx, "Error processing voice command", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (r *Receiver) processCommand(ctx context.Context) error {
	result, err := r.client.BLPop(ctx, 1*time.Second, r.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop command from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	message := result[1]
	r.logger.InfoContext(ctx, "Received voice command", "message", message)

	var payload map[string]any
	if err := json.Unmarshal([]byte(message), &payload); err != nil {
		payload = map[string]any{"command": message}
	}

	command, _ := payload["command"].(string)
	if command == "" {
		return nil
	}

	return r.dispatch(ctx, command, payload)
}

// dispatch fires every active voice automation whose configured command
// phrase appears in the spoken command.
func (r *Receiver) dispatch(ctx context.Context, command string, payload map[string]any) error {
	voiceType := models.TriggerTypeVoice
	response, err := r.service.List(ctx, services.ListAutomationsRequest{
		TriggerType: &voiceType,
		ActiveOnly:  true,
		Limit:       100,
	})
	if err != nil {
		return fmt.Errorf("failed to list voice automations: %w", err)
	}

	spoken := strings.ToLower(command)

	for _, automation := range response.Automations {
		trigger := models.VoiceTriggerConfigFromBag(automation.TriggerConfig)
		if trigger.Command == "" {
			continue
		}

		if !strings.Contains(spoken, strings.ToLower(trigger.Command)) {
			continue
		}

		event := events.AutomationTriggered{
			BaseEvent: events.BaseEvent{
				ID:           r.eventBus.GenerateID(),
				Type:         events.AutomationTriggeredEvent,
				Timestamp:    time.Now().UTC(),
				AutomationID: automation.ID,
			},
			TriggerType: string(models.TriggerTypeVoice),
			TriggerData: payload,
		}

		if err := r.eventBus.Publish(ctx, automation.ID, event); err != nil {
			r.logger.ErrorContext(ctx, "Failed to publish voice trigger event",
				"automation_id", automation.ID,
				"error", err)
		}
	}

	return nil
}
