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

const leadColumns = `id, owner_id, company_name, contact_person, email, phone, website, region, service,
	company_size, lead_score, status, source, tags, notes, custom_fields, last_contact, created_at, updated_at`

// recentActivityLimit matches the in-memory store.
const recentActivityLimit = 10

func scanLead(row pgx.Row) (*types.Lead, error) {
	var (
		l            types.Lead
		tags, custom []byte
	)
	err := row.Scan(&l.ID, &l.OwnerID, &l.CompanyName, &l.ContactPerson, &l.Email, &l.Phone, &l.Website,
		&l.Region, &l.Service, &l.CompanySize, &l.LeadScore, &l.Status, &l.Source, &tags, &l.Notes,
		&custom, &l.LastContact, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.Tags = []string{}
	if err := unjsonb(tags, &l.Tags); err != nil {
		return nil, err
	}
	if err := unjsonb(custom, &l.CustomFields); err != nil {
		return nil, err
	}
	return &l, nil
}

func collectLeads(rows pgx.Rows) ([]*types.Lead, error) {
	defer rows.Close()

	leads := []*types.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leads: %w", err)
	}
	return leads, nil
}

// leadFilterWhere translates a normalized filter into squirrel predicates.
func leadFilterWhere(f types.LeadFilter) sq.And {
	where := sq.And{}
	if f.Region != "" {
		where = append(where, sq.Eq{"region": f.Region})
	}
	if f.Status != "" {
		where = append(where, sq.Eq{"status": f.Status})
	}
	if f.Source != "" {
		where = append(where, sq.Eq{"source": f.Source})
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		where = append(where, sq.Or{
			sq.ILike{"contact_person": pattern},
			sq.ILike{"email": pattern},
			sq.ILike{"company_name": pattern},
			sq.ILike{"notes": pattern},
		})
	}
	return where
}

// ListLeads returns one page of leads matching the filter, newest first
func (db *DB) ListLeads(ctx context.Context, f types.LeadFilter) (*types.LeadPage, error) {
	f = f.Normalize()
	where := leadFilterWhere(f)

	countSQL, countArgs, err := psql.Select("COUNT(*)").From("leads").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build lead count query: %w", err)
	}
	var total int
	if err := db.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count leads: %w", err)
	}

	query, args, err := psql.Select(leadColumns).From("leads").Where(where).
		OrderBy("created_at DESC", "id").
		Limit(uint64(f.Limit)).Offset(uint64(f.Offset())).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build lead list query: %w", err)
	}
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	leads, err := collectLeads(rows)
	if err != nil {
		return nil, err
	}

	return &types.LeadPage{Data: leads, Pagination: types.NewPagination(f.Page, f.Limit, total)}, nil
}

// AllLeads returns every lead in creation order
func (db *DB) AllLeads(ctx context.Context) ([]*types.Lead, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return collectLeads(rows)
}

// GetLead retrieves a lead by ID
func (db *DB) GetLead(ctx context.Context, id string) (*types.Lead, error) {
	l, err := scanLead(db.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get lead %s: %w", id, notFound(err))
	}
	return l, nil
}

// CreateLead inserts a lead, assigning an ID and timestamps when unset
func (db *DB) CreateLead(ctx context.Context, lead *types.Lead) error {
	if lead.ID == "" {
		lead.ID = "lead_" + uuid.NewString()
	}
	now := time.Now().UTC()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	if lead.UpdatedAt.IsZero() {
		lead.UpdatedAt = lead.CreatedAt
	}
	if lead.Tags == nil {
		lead.Tags = []string{}
	}

	tags, custom, err := leadJSON(lead)
	if err != nil {
		return err
	}

	query, args, err := psql.Insert("leads").
		Columns("id", "owner_id", "company_name", "contact_person", "email", "phone", "website", "region",
			"service", "company_size", "lead_score", "status", "source", "tags", "notes", "custom_fields",
			"last_contact", "created_at", "updated_at").
		Values(lead.ID, lead.OwnerID, lead.CompanyName, lead.ContactPerson, lead.Email, lead.Phone,
			lead.Website, lead.Region, lead.Service, lead.CompanySize, lead.LeadScore, lead.Status,
			lead.Source, tags, lead.Notes, custom, lead.LastContact, lead.CreatedAt, lead.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build lead insert: %w", err)
	}

	if _, err := db.pool.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

// UpdateLead replaces every mutable column of a lead
func (db *DB) UpdateLead(ctx context.Context, lead *types.Lead) error {
	tags, custom, err := leadJSON(lead)
	if err != nil {
		return err
	}
	lead.UpdatedAt = time.Now().UTC()

	query, args, err := psql.Update("leads").SetMap(map[string]any{
		"owner_id":       lead.OwnerID,
		"company_name":   lead.CompanyName,
		"contact_person": lead.ContactPerson,
		"email":          lead.Email,
		"phone":          lead.Phone,
		"website":        lead.Website,
		"region":         lead.Region,
		"service":        lead.Service,
		"company_size":   lead.CompanySize,
		"lead_score":     lead.LeadScore,
		"status":         lead.Status,
		"source":         lead.Source,
		"tags":           tags,
		"notes":          lead.Notes,
		"custom_fields":  custom,
		"last_contact":   lead.LastContact,
		"updated_at":     lead.UpdatedAt,
	}).Where(sq.Eq{"id": lead.ID}).Suffix("RETURNING created_at").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build lead update: %w", err)
	}

	if err := db.pool.QueryRow(ctx, query, args...).Scan(&lead.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to update lead %s: %w", lead.ID, notFound(err))
	}
	return nil
}

// DeleteLead removes a lead
func (db *DB) DeleteLead(ctx context.Context, id string) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete lead %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// LeadStats aggregates lead counts by status and region
func (db *DB) LeadStats(ctx context.Context) (*types.LeadStats, error) {
	stats := store.NewLeadStats()

	rows, err := db.pool.Query(ctx, `SELECT status, region, COUNT(*) FROM leads GROUP BY status, region`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate leads: %w", err)
	}
	for rows.Next() {
		var (
			status types.LeadStatus
			region types.Region
			n      int
		)
		if err := rows.Scan(&status, &region, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan lead aggregate: %w", err)
		}
		stats.Total += n
		stats.ByStatus[status] += n
		stats.ByRegion[region] += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to aggregate leads: %w", err)
	}

	recent, err := db.pool.Query(ctx,
		`SELECT `+leadColumns+` FROM leads ORDER BY updated_at DESC, id LIMIT $1`, recentActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent leads: %w", err)
	}
	if stats.RecentActivity, err = collectLeads(recent); err != nil {
		return nil, err
	}
	return stats, nil
}

func leadJSON(lead *types.Lead) (tags, custom []byte, err error) {
	t := lead.Tags
	if t == nil {
		t = []string{}
	}
	if tags, err = jsonb(t); err != nil {
		return nil, nil, err
	}
	if custom, err = jsonb(lead.CustomFields); err != nil {
		return nil, nil, err
	}
	return tags, custom, nil
}
