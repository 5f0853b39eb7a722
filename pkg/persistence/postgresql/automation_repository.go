package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Walkerb10/meop/pkg/models"
	"github.com/Walkerb10/meop/pkg/persistence"
)

// AutomationRepository handles automation-related database operations.
type AutomationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAutomationRepository creates a new automation repository.
func NewAutomationRepository(db *sql.DB, logger *slog.Logger) *AutomationRepository {
	return &AutomationRepository{db: db, logger: logger}
}

const automationColumns = `
	id
  , name
  , description
  , is_active
  , trigger_type
  , trigger_config
  , steps
  , callback_url
  , last_run_at
  , owner
  , created_at
  , updated_at
  , deleted_at
`

// List returns paginated and filtered automations.
func (r *AutomationRepository) List(ctx context.Context, opts persistence.ListAutomationsOptions) (*persistence.AutomationListResult, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	if opts.SortBy == "" {
		opts.SortBy = "created_at"
	}

	if opts.SortOrder == "" {
		opts.SortOrder = "desc"
	}

	// Sort parameters are interpolated into the query; only allowlisted
	// values may pass.
	allowedSorts := map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
	}
	if !allowedSorts[opts.SortBy] {
		return nil, fmt.Errorf("%w: %s", persistence.ErrInvalidSortField, opts.SortBy)
	}

	order := "DESC"
	if opts.SortOrder == "asc" {
		order = "ASC"
	}

	where := "deleted_at IS NULL"
	args := make([]any, 0, 4)

	if opts.OwnerID != "" {
		args = append(args, opts.OwnerID)
		where += fmt.Sprintf(" AND owner = $%d", len(args))
	}

	if opts.TriggerType != nil {
		args = append(args, string(*opts.TriggerType))
		where += fmt.Sprintf(" AND trigger_type = $%d", len(args))
	}

	if opts.ActiveOnly {
		where += " AND is_active = true"
	}

	var totalCount int64

	countQuery := "SELECT COUNT(*) FROM automations WHERE " + where

	err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count automations: %w", err)
	}

	args = append(args, opts.Limit, opts.Offset)
	query := fmt.Sprintf(
		"SELECT %s FROM automations WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		automationColumns, where, opts.SortBy, order, len(args)-1, len(args),
	)

	automations, err := r.queryAutomations(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &persistence.AutomationListResult{
		Automations: automations,
		TotalCount:  totalCount,
		HasNextPage: int64(opts.Offset+len(automations)) < totalCount,
	}, nil
}

// ListScheduled returns all active automations with a scheduled trigger.
func (r *AutomationRepository) ListScheduled(ctx context.Context) ([]*models.Automation, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM automations
		WHERE deleted_at IS NULL AND is_active = true AND trigger_type = 'scheduled'
		ORDER BY created_at
	`, automationColumns)

	return r.queryAutomations(ctx, query)
}

func (r *AutomationRepository) queryAutomations(ctx context.Context, query string, args ...any) ([]*models.Automation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query automations: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	automations := make([]*models.Automation, 0)

	for rows.Next() {
		automation, err := scanAutomation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan automation: %w", err)
		}

		automations = append(automations, automation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating automations: %w", err)
	}

	return automations, nil
}

// GetByID returns an automation by its ID.
func (r *AutomationRepository) GetByID(ctx context.Context, id string) (*models.Automation, error) {
	query := fmt.Sprintf("SELECT %s FROM automations WHERE id = $1 AND deleted_at IS NULL", automationColumns)

	automation, err := scanAutomation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewAutomationError("GetByID", id, persistence.ErrAutomationNotFound)
		}

		return nil, fmt.Errorf("failed to fetch automation %s: %w", id, err)
	}

	return automation, nil
}

// Save inserts or updates an automation.
func (r *AutomationRepository) Save(ctx context.Context, automation *models.Automation) error {
	now := time.Now().UTC()
	if automation.CreatedAt.IsZero() {
		automation.CreatedAt = now
	}

	automation.UpdatedAt = now

	triggerConfig, err := json.Marshal(automation.TriggerConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger config: %w", err)
	}

	steps := []byte(automation.Steps)
	if len(steps) == 0 {
		steps = []byte("null")
	}

	query := `
		INSERT INTO automations (
			id, name, description, is_active, trigger_type, trigger_config,
			steps, callback_url, last_run_at, owner, created_at, updated_at, deleted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			is_active = EXCLUDED.is_active,
			trigger_type = EXCLUDED.trigger_type,
			trigger_config = EXCLUDED.trigger_config,
			steps = EXCLUDED.steps,
			callback_url = EXCLUDED.callback_url,
			last_run_at = EXCLUDED.last_run_at,
			owner = EXCLUDED.owner,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at
	`

	_, err = r.db.ExecContext(ctx, query,
		automation.ID,
		automation.Name,
		nullString(automation.Description),
		automation.IsActive,
		string(automation.TriggerType),
		triggerConfig,
		steps,
		nullString(automation.CallbackURL),
		nullTime(automation.LastRunAt),
		automation.Owner,
		automation.CreatedAt,
		automation.UpdatedAt,
		nullTime(automation.DeletedAt),
	)
	if err != nil {
		return persistence.NewAutomationError("Save", automation.ID, err)
	}

	return nil
}

// Delete soft deletes an automation by setting its deleted_at timestamp.
func (r *AutomationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE automations SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		return persistence.NewAutomationError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewAutomationError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewAutomationError("Delete", id, persistence.ErrAutomationNotFound)
	}

	return nil
}

// MarkRan records the last-run timestamp after a fire.
func (r *AutomationRepository) MarkRan(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE automations SET last_run_at = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL",
		id, at.UTC())
	if err != nil {
		return persistence.NewAutomationError("MarkRan", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewAutomationError("MarkRan", id, err)
	}

	if affected == 0 {
		return persistence.NewAutomationError("MarkRan", id, persistence.ErrAutomationNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAutomation(row rowScanner) (*models.Automation, error) {
	var (
		automation    models.Automation
		description   sql.NullString
		triggerConfig []byte
		steps         []byte
		callbackURL   sql.NullString
		lastRunAt     sql.NullTime
		owner         sql.NullString
		deletedAt     sql.NullTime
	)

	err := row.Scan(
		&automation.ID,
		&automation.Name,
		&description,
		&automation.IsActive,
		&automation.TriggerType,
		&triggerConfig,
		&steps,
		&callbackURL,
		&lastRunAt,
		&owner,
		&automation.CreatedAt,
		&automation.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	automation.Description = description.String
	automation.CallbackURL = callbackURL.String
	automation.Owner = owner.String

	if lastRunAt.Valid {
		automation.LastRunAt = &lastRunAt.Time
	}

	if deletedAt.Valid {
		automation.DeletedAt = &deletedAt.Time
	}

	if len(triggerConfig) > 0 {
		if err := json.Unmarshal(triggerConfig, &automation.TriggerConfig); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger config: %w", err)
		}
	}

	if len(steps) > 0 && string(steps) != "null" {
		automation.Steps = json.RawMessage(steps)
	}

	return &automation, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: *value, Valid: true}
}
