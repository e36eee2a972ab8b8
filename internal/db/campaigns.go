package db

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/marketing-hub/internal/store"
	"github.com/jonathan/marketing-hub/internal/types"
)

const campaignColumns = `id, owner_id, name, description, type, status, template_id,
	target_audience, schedule, analytics, settings, created_at, updated_at`

func scanCampaign(row pgx.Row) (*types.Campaign, error) {
	var (
		c                                       types.Campaign
		audience, schedule, analytics, settings []byte
	)
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Description, &c.Type, &c.Status, &c.TemplateID,
		&audience, &schedule, &analytics, &settings, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := unjsonb(audience, &c.TargetAudience); err != nil {
		return nil, err
	}
	if err := unjsonb(schedule, &c.Schedule); err != nil {
		return nil, err
	}
	if err := unjsonb(analytics, &c.Analytics); err != nil {
		return nil, err
	}
	if err := unjsonb(settings, &c.Settings); err != nil {
		return nil, err
	}
	return &c, nil
}

// campaignJSON encodes the JSONB columns of a campaign in column order.
func campaignJSON(c *types.Campaign) (audience, schedule, analytics, settings []byte, err error) {
	if audience, err = jsonb(c.TargetAudience); err != nil {
		return
	}
	if schedule, err = jsonb(c.Schedule); err != nil {
		return
	}
	if analytics, err = jsonb(c.Analytics); err != nil {
		return
	}
	settings, err = jsonb(c.Settings)
	return
}

// ListCampaigns returns all campaigns, most recently updated first
func (db *DB) ListCampaigns(ctx context.Context) ([]*types.Campaign, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+campaignColumns+` FROM campaigns ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []*types.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate campaigns: %w", err)
	}
	return campaigns, nil
}

// GetCampaign retrieves a campaign by ID
func (db *DB) GetCampaign(ctx context.Context, id string) (*types.Campaign, error) {
	c, err := scanCampaign(db.pool.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign %s: %w", id, notFound(err))
	}
	return c, nil
}

// CreateCampaign inserts a campaign
func (db *DB) CreateCampaign(ctx context.Context, c *types.Campaign) error {
	if c.ID == "" {
		c.ID = "campaign_" + uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}

	audience, schedule, analytics, settings, err := campaignJSON(c)
	if err != nil {
		return err
	}

	query, args, err := psql.Insert("campaigns").
		Columns("id", "owner_id", "name", "description", "type", "status", "template_id",
			"target_audience", "schedule", "analytics", "settings", "created_at", "updated_at").
		Values(c.ID, c.OwnerID, c.Name, c.Description, c.Type, c.Status, c.TemplateID,
			audience, schedule, analytics, settings, c.CreatedAt, c.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build campaign insert: %w", err)
	}
	if _, err := db.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

// UpdateCampaign replaces every mutable column of a campaign
func (db *DB) UpdateCampaign(ctx context.Context, c *types.Campaign) error {
	audience, schedule, analytics, settings, err := campaignJSON(c)
	if err != nil {
		return err
	}
	c.UpdatedAt = time.Now().UTC()

	query, args, err := psql.Update("campaigns").SetMap(map[string]any{
		"owner_id":        c.OwnerID,
		"name":            c.Name,
		"description":     c.Description,
		"type":            c.Type,
		"status":          c.Status,
		"template_id":     c.TemplateID,
		"target_audience": audience,
		"schedule":        schedule,
		"analytics":       analytics,
		"settings":        settings,
		"updated_at":      c.UpdatedAt,
	}).Where(sq.Eq{"id": c.ID}).Suffix("RETURNING created_at").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build campaign update: %w", err)
	}

	if err := db.pool.QueryRow(ctx, query, args...).Scan(&c.CreatedAt); err != nil {
		return fmt.Errorf("failed to update campaign %s: %w", c.ID, notFound(err))
	}
	return nil
}

// DeleteCampaign removes a campaign
func (db *DB) DeleteCampaign(ctx context.Context, id string) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete campaign %s: %w", id, store.ErrNotFound)
	}
	return nil
}
