// Package persistence provides the data storage abstraction for automations.
package persistence

import (
	"context"
	"time"

	"github.com/Walkerb10/meop/pkg/models"
)

// ListAutomationsOptions controls filtering, sorting, and pagination.
type ListAutomationsOptions struct {
	Limit  int
	Offset int

	OwnerID     string
	TriggerType *models.TriggerType
	ActiveOnly  bool

	SortBy    string
	SortOrder string
}

// AutomationListResult is a page of automations plus paging metadata.
type AutomationListResult struct {
	Automations []*models.Automation
	TotalCount  int64
	HasNextPage bool
}

// AutomationRepository stores and retrieves automations.
type AutomationRepository interface {
	List(ctx context.Context, opts ListAutomationsOptions) (*AutomationListResult, error)
	GetByID(ctx context.Context, id string) (*models.Automation, error)
	Save(ctx context.Context, automation *models.Automation) error
	Delete(ctx context.Context, id string) error

	// ListScheduled returns all active automations with a scheduled trigger,
	// for the per-minute evaluation tick.
	ListScheduled(ctx context.Context) ([]*models.Automation, error)

	// MarkRan records the last-run timestamp after a fire.
	MarkRan(ctx context.Context, id string, at time.Time) error
}

type Persistence interface {
	AutomationRepository() AutomationRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
