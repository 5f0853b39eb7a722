package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Walkerb10/meop/pkg/models"
	"github.com/Walkerb10/meop/pkg/persistence"
	"github.com/google/uuid"
)

var (
	// ErrAutomationNotFound is returned when an automation is not found.
	ErrAutomationNotFound = persistence.ErrAutomationNotFound
)

type Automation struct {
	persistence persistence.Persistence
}

// NewAutomation creates a new automation service.
func NewAutomation(persistence persistence.Persistence) *Automation {
	return &Automation{
		persistence: persistence,
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Automation) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListAutomationsRequest contains options for listing automations.
type ListAutomationsRequest struct {
	// Pagination
	Limit  int
	Offset int

	// Filtering
	OwnerID     string
	TriggerType *models.TriggerType
	ActiveOnly  bool

	// Sorting
	SortBy    string
	SortOrder string
}

// ListAutomationsResponse contains the result of listing automations.
type ListAutomationsResponse struct {
	Automations []*models.Automation `json:"automations"`
	TotalCount  int64                `json:"total_count"`
	HasNextPage bool                 `json:"has_next_page"`
}

// List retrieves automations with filtering, sorting, and pagination.
func (s *Automation) List(ctx context.Context, req ListAutomationsRequest) (*ListAutomationsResponse, error) {
	if err := s.validateListRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	opts := persistence.ListAutomationsOptions{
		Limit:       req.Limit,
		Offset:      req.Offset,
		OwnerID:     req.OwnerID,
		TriggerType: req.TriggerType,
		ActiveOnly:  req.ActiveOnly,
		SortBy:      req.SortBy,
		SortOrder:   req.SortOrder,
	}

	result, err := s.persistence.AutomationRepository().List(ctx, opts)
	if err != nil {
		if persistence.IsInvalidSortField(err) {
			return nil, ErrInvalidSortField
		}

		return nil, fmt.Errorf("failed to list automations: %w", err)
	}

	return &ListAutomationsResponse{
		Automations: result.Automations,
		TotalCount:  result.TotalCount,
		HasNextPage: result.HasNextPage,
	}, nil
}

func (s *Automation) validateListRequest(req *ListAutomationsRequest) error {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	if req.Limit > 100 {
		req.Limit = 100
	}

	if req.Offset < 0 {
		req.Offset = 0
	}

	if req.SortBy == "" {
		req.SortBy = "created_at"
	}

	if req.SortOrder == "" {
		req.SortOrder = "desc"
	}

	allowedSorts := []string{"created_at", "updated_at", "name"}

	if !slices.Contains(allowedSorts, req.SortBy) {
		return NewValidationError(
			"validateListRequest",
			"INVALID_SORT_FIELD",
			fmt.Sprintf("invalid sort field '%s', allowed: %s", req.SortBy, strings.Join(allowedSorts, ", ")),
			ErrInvalidSortField,
		)
	}

	if req.SortOrder != "asc" && req.SortOrder != "desc" {
		return NewValidationError(
			"validateListRequest",
			"INVALID_SORT_ORDER",
			fmt.Sprintf("invalid sort order '%s', allowed: asc, desc", req.SortOrder),
			ErrInvalidSortOrder,
		)
	}

	return nil
}

// Create validates and persists a new automation.
func (s *Automation) Create(ctx context.Context, automation *models.Automation) (*models.Automation, error) {
	if automation == nil {
		return nil, ErrAutomationNil
	}

	if strings.TrimSpace(automation.Name) == "" {
		return nil, ErrAutomationNameMissing
	}

	if err := ValidateTriggerConfig(automation.TriggerType, automation.TriggerConfig); err != nil {
		return nil, err
	}

	if automation.ID == "" {
		automation.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	automation.CreatedAt = now
	automation.UpdatedAt = now

	if err := s.persistence.AutomationRepository().Save(ctx, automation); err != nil {
		return nil, fmt.Errorf("failed to save automation: %w", err)
	}

	return automation, nil
}

// FetchByID retrieves an automation by its ID.
func (s *Automation) FetchByID(ctx context.Context, id string) (*models.Automation, error) {
	automation, err := s.persistence.AutomationRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return automation, nil
}

// Update applies changes to an existing automation, preserving its identity
// and creation timestamp.
func (s *Automation) Update(ctx context.Context, id string, automation *models.Automation) (*models.Automation, error) {
	if automation == nil {
		return nil, ErrAutomationNil
	}

	existing, err := s.persistence.AutomationRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := ValidateTriggerConfig(automation.TriggerType, automation.TriggerConfig); err != nil {
		return nil, err
	}

	automation.ID = existing.ID
	automation.CreatedAt = existing.CreatedAt
	automation.LastRunAt = existing.LastRunAt
	automation.UpdatedAt = time.Now().UTC()

	if err := s.persistence.AutomationRepository().Save(ctx, automation); err != nil {
		return nil, fmt.Errorf("failed to save automation: %w", err)
	}

	return automation, nil
}

// Delete soft deletes an automation.
func (s *Automation) Delete(ctx context.Context, id string) error {
	return s.persistence.AutomationRepository().Delete(ctx, id)
}

// MarkRan records that the automation fired. This is the side effect the
// schedule evaluator deliberately leaves to its caller.
func (s *Automation) MarkRan(ctx context.Context, id string, at time.Time) error {
	return s.persistence.AutomationRepository().MarkRan(ctx, id, at)
}

// ListScheduled returns the active scheduled automations for one evaluation tick.
func (s *Automation) ListScheduled(ctx context.Context) ([]*models.Automation, error) {
	return s.persistence.AutomationRepository().ListScheduled(ctx)
}
