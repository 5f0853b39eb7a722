// Package main provides the MEOP scheduler daemon. It evaluates schedule
// predicates once a minute and fires matching automations, and optionally
// consumes voice commands from a Redis queue.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Walkerb10/meop/pkg/cmd"
	"github.com/Walkerb10/meop/pkg/log"
	"github.com/Walkerb10/meop/pkg/otelhelper"
	"github.com/Walkerb10/meop/pkg/receivers/voice"
	"github.com/Walkerb10/meop/pkg/scheduler"
	"github.com/Walkerb10/meop/pkg/services"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

const serviceName = "meop-scheduler"

func main() {
	command := &cli.Command{
		Name:                  "meop-scheduler",
		Usage:                 "Start the MEOP schedule orchestrator service",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "scheduler-id",
				Aliases: []string{"id"},
				Usage:   "Custom scheduler ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("SCHEDULER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis address for the voice command queue (disabled if empty)",
				Value:   "",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "voice-queue",
				Usage:   "Redis list key holding inbound voice commands",
				Value:   "",
				Sources: cli.EnvVars("VOICE_QUEUE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	tracerProvider, err := otelhelper.InitTracer(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	defer func() {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			slog.Error("Failed to shutdown tracer provider", "error", err)
		}
	}()

	schedulerID := command.String("scheduler-id")
	if schedulerID == "" {
		schedulerID = fmt.Sprintf("scheduler-%s", uuid.New().String()[:8])
	}

	logger := log.WithModule(serviceName).With("scheduler_id", schedulerID)

	logger.Info("Initializing MEOP Scheduler", "scheduler_id", schedulerID)

	persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.Error("Failed to close persistence", "error", err)
		}
	}()

	eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.Error("Failed to close event bus", "error", err)
		}
	}()

	service := services.NewAutomation(persistence)
	tracer := tracerProvider.Tracer(serviceName)

	orchestrator := scheduler.NewOrchestrator(service, eventBus, tracer, logger)
	if err := orchestrator.Start(ctx); err != nil {
		return fmt.Errorf("failed to start schedule orchestrator: %w", err)
	}

	var receiver *voice.Receiver

	if addr := command.String("redis-url"); addr != "" {
		receiver = voice.NewReceiver(addr, command.String("voice-queue"), service, eventBus, logger)
		if err := receiver.Start(ctx); err != nil {
			return fmt.Errorf("failed to start voice receiver: %w", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
	}

	if receiver != nil {
		if err := receiver.Stop(ctx); err != nil {
			logger.Error("Failed to stop voice receiver", "error", err)
		}
	}

	return orchestrator.Stop(ctx)
}
