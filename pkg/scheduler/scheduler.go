// Package scheduler runs the per-minute evaluation tick for scheduled
// automations.
//
// The schedule evaluator is a pure predicate; this orchestrator owns the
// cadence and all side effects: it loads active scheduled automations every
// minute, asks the evaluator which are due, publishes an AutomationTriggered
// event for each, and records the last-run timestamp. A delayed or skipped
// tick is not compensated for; the next tick re-evaluates from scratch.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Walkerb10/meop/pkg/eventbus"
	"github.com/Walkerb10/meop/pkg/events"
	"github.com/Walkerb10/meop/pkg/models"
	"github.com/Walkerb10/meop/pkg/otelhelper"
	"github.com/Walkerb10/meop/pkg/schedule"
	"github.com/Walkerb10/meop/pkg/services"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// everyMinute is the evaluation tick cadence the evaluator's exact-minute
// match depends on.
const everyMinute = "* * * * *"

type Orchestrator struct {
	service   *services.Automation
	evaluator *schedule.Evaluator
	eventBus  eventbus.EventBus
	tracer    trace.Tracer
	logger    *slog.Logger
	cron      *cron.Cron
	started   bool
	mu        sync.Mutex
}

func NewOrchestrator(
	service *services.Automation,
	eventBus eventbus.EventBus,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		service:   service,
		evaluator: schedule.NewEvaluator(logger),
		eventBus:  eventBus,
		tracer:    tracer,
		logger:    logger.With("module", "scheduler"),
	}
}

// Start begins the per-minute tick.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started {
		return nil
	}

	o.logger.Info("Starting schedule orchestrator")

	o.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := o.cron.AddFunc(everyMinute, func() {
		o.Tick(ctx)
	})
	if err != nil {
		return err
	}

	o.cron.Start()
	o.started = true

	return nil
}

// Stop gracefully shuts down the orchestrator, waiting for a running tick.
func (o *Orchestrator) Stop(_ context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.started {
		return nil
	}

	o.logger.Info("Stopping schedule orchestrator")

	stopCtx := o.cron.Stop()
	<-stopCtx.Done()

	o.started = false

	return nil
}

// Tick runs one evaluation pass over all active scheduled automations.
func (o *Orchestrator) Tick(ctx context.Context) {
	now := schedule.Now()

	automations, err := o.service.ListScheduled(ctx)
	if err != nil {
		o.logger.Error("Failed to load scheduled automations", "error", err)

		return
	}

	due := 0

	for _, automation := range automations {
		if !o.evaluator.ShouldRunNow(automation, now) {
			continue
		}

		due++

		o.fire(ctx, automation, now)
	}

	if due > 0 {
		o.logger.Info("Evaluation tick fired automations", "due", due, "evaluated", len(automations))
	}
}

// fire publishes the trigger event and records the run. Failures are logged
// and do not stop the tick; the automation simply retries next time it is due.
func (o *Orchestrator) fire(ctx context.Context, automation *models.Automation, now time.Time) {
	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "scheduler.fire",
		attribute.String(otelhelper.AutomationIDKey, automation.ID),
		attribute.String(otelhelper.AutomationNameKey, automation.Name),
		attribute.String(otelhelper.TriggerTypeKey, string(automation.TriggerType)),
	)
	defer span.End()

	event := events.AutomationTriggered{
		BaseEvent: events.BaseEvent{
			ID:           o.eventBus.GenerateID(),
			Type:         events.AutomationTriggeredEvent,
			Timestamp:    now.UTC(),
			AutomationID: automation.ID,
		},
		TriggerType: string(models.TriggerTypeScheduled),
		TriggerData: map[string]any{
			"timestamp": now.UTC().Format(time.RFC3339),
		},
	}

	if err := o.eventBus.Publish(ctx, automation.ID, event); err != nil {
		otelhelper.SetError(span, err)
		o.logger.Error("Failed to publish trigger event",
			"automation_id", automation.ID,
			"error", err)

		return
	}

	if err := o.service.MarkRan(ctx, automation.ID, now); err != nil {
		otelhelper.SetError(span, err)
		o.logger.Error("Failed to record last run",
			"automation_id", automation.ID,
			"error", err)
	}
}
