package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/Walkerb10/meop/pkg/models"
	"github.com/Walkerb10/meop/pkg/persistence"
)

// AutomationRepository handles automation-related file operations.
type AutomationRepository struct {
	root string
}

// NewAutomationRepository creates a new automation repository.
func NewAutomationRepository(root string) *AutomationRepository {
	return &AutomationRepository{root: root}
}

// List returns paginated and filtered automations with in-memory operations.
func (ar *AutomationRepository) List(ctx context.Context, opts persistence.ListAutomationsOptions) (*persistence.AutomationListResult, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	if opts.SortBy == "" {
		opts.SortBy = "created_at"
	}

	if opts.SortOrder == "" {
		opts.SortOrder = "desc"
	}

	allowedSorts := map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
	}
	if !allowedSorts[opts.SortBy] {
		return nil, fmt.Errorf("%w: %s", persistence.ErrInvalidSortField, opts.SortBy)
	}

	allAutomations, err := ar.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.Automation, 0, len(allAutomations))

	for _, automation := range allAutomations {
		if automation.DeletedAt != nil {
			continue
		}

		if opts.OwnerID != "" && automation.Owner != opts.OwnerID {
			continue
		}

		if opts.TriggerType != nil && automation.TriggerType != *opts.TriggerType {
			continue
		}

		if opts.ActiveOnly && !automation.IsActive {
			continue
		}

		filtered = append(filtered, automation)
	}

	ar.sortAutomations(filtered, opts.SortBy, opts.SortOrder)

	totalCount := int64(len(filtered))
	startIdx := opts.Offset
	endIdx := opts.Offset + opts.Limit

	if startIdx >= len(filtered) {
		return &persistence.AutomationListResult{
			Automations: make([]*models.Automation, 0),
			TotalCount:  totalCount,
			HasNextPage: false,
		}, nil
	}

	if endIdx > len(filtered) {
		endIdx = len(filtered)
	}

	return &persistence.AutomationListResult{
		Automations: filtered[startIdx:endIdx],
		TotalCount:  totalCount,
		HasNextPage: endIdx < len(filtered),
	}, nil
}

// ListScheduled returns all active automations with a scheduled trigger.
func (ar *AutomationRepository) ListScheduled(ctx context.Context) ([]*models.Automation, error) {
	allAutomations, err := ar.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	scheduled := make([]*models.Automation, 0)

	for _, automation := range allAutomations {
		if automation.DeletedAt == nil && automation.IsScheduled() {
			scheduled = append(scheduled, automation)
		}
	}

	return scheduled, nil
}

func (ar *AutomationRepository) loadAll(ctx context.Context) ([]*models.Automation, error) {
	root := os.DirFS(ar.root + "/automations")

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list automation files: %w", err)
	}

	automations := make([]*models.Automation, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		automationID := file[:len(file)-5] // Remove .json extension

		automation, err := ar.read(ctx, automationID)
		if err != nil {
			return nil, fmt.Errorf("failed to load automation %s: %w", automationID, err)
		}

		if automation != nil {
			automations = append(automations, automation)
		}
	}

	return automations, nil
}

func (ar *AutomationRepository) sortAutomations(automations []*models.Automation, sortBy, sortOrder string) {
	sort.Slice(automations, func(i, j int) bool {
		var less bool

		switch sortBy {
		case "created_at":
			less = automations[i].CreatedAt.Before(automations[j].CreatedAt)
		case "updated_at":
			less = automations[i].UpdatedAt.Before(automations[j].UpdatedAt)
		case "name":
			less = automations[i].Name < automations[j].Name
		default:
			less = automations[i].CreatedAt.Before(automations[j].CreatedAt)
		}

		if sortOrder == "desc" {
			return !less
		}

		return less
	})
}

// GetByID retrieves an automation by its ID from the file system.
func (ar *AutomationRepository) GetByID(ctx context.Context, id string) (*models.Automation, error) {
	automation, err := ar.read(ctx, id)
	if err != nil {
		return nil, err
	}

	if automation == nil || automation.DeletedAt != nil {
		return nil, persistence.NewAutomationError("GetByID", id, persistence.ErrAutomationNotFound)
	}

	return automation, nil
}

func (ar *AutomationRepository) read(_ context.Context, id string) (*models.Automation, error) {
	filePath := filepath.Clean(path.Join(ar.root, "automations", id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to fetch automation %s: %w", id, err)
	}

	var automation models.Automation

	err = json.Unmarshal(body, &automation)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal automation %s: %w", id, err)
	}

	return &automation, nil
}

// Save writes an automation to the file system.
func (ar *AutomationRepository) Save(_ context.Context, automation *models.Automation) error {
	err := os.MkdirAll(ar.root+"/automations", 0750)
	if err != nil {
		return fmt.Errorf("failed to create automations directory: %w", err)
	}

	now := time.Now().UTC()
	if automation.CreatedAt.IsZero() {
		automation.CreatedAt = now
	}

	automation.UpdatedAt = now

	data, err := json.MarshalIndent(automation, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal automation %s: %w", automation.ID, err)
	}

	filePath := path.Join(ar.root+"/automations", automation.ID+".json")

	return os.WriteFile(filePath, data, 0600)
}

// Delete soft deletes an automation by setting its deleted_at timestamp.
func (ar *AutomationRepository) Delete(ctx context.Context, id string) error {
	automation, err := ar.GetByID(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	automation.DeletedAt = &now

	return ar.Save(ctx, automation)
}

// MarkRan records the last-run timestamp after a fire.
func (ar *AutomationRepository) MarkRan(ctx context.Context, id string, at time.Time) error {
	automation, err := ar.GetByID(ctx, id)
	if err != nil {
		return err
	}

	runAt := at.UTC()
	automation.LastRunAt = &runAt

	return ar.Save(ctx, automation)
}
