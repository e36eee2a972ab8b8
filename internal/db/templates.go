package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/marketing-hub/internal/types"
)

const templateColumns = `id, owner_id, name, subject, content, type, variables, created_at`

func scanTemplate(row pgx.Row) (*types.EmailTemplate, error) {
	var (
		t         types.EmailTemplate
		variables []byte
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Name, &t.Subject, &t.Content, &t.Type, &variables, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Variables = []string{}
	if err := unjsonb(variables, &t.Variables); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTemplates returns all email templates, newest first
func (db *DB) ListTemplates(ctx context.Context) ([]*types.EmailTemplate, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+templateColumns+` FROM email_templates ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	templates := []*types.EmailTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate templates: %w", err)
	}
	return templates, nil
}

// GetTemplate retrieves an email template by ID
func (db *DB) GetTemplate(ctx context.Context, id string) (*types.EmailTemplate, error) {
	t, err := scanTemplate(db.pool.QueryRow(ctx, `SELECT `+templateColumns+` FROM email_templates WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get template %s: %w", id, notFound(err))
	}
	return t, nil
}

// CreateTemplate inserts an email template
func (db *DB) CreateTemplate(ctx context.Context, t *types.EmailTemplate) error {
	if t.ID == "" {
		t.ID = "template_" + uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	vars := t.Variables
	if vars == nil {
		vars = []string{}
	}
	variables, err := jsonb(vars)
	if err != nil {
		return err
	}

	query, args, err := psql.Insert("email_templates").
		Columns("id", "owner_id", "name", "subject", "content", "type", "variables", "created_at").
		Values(t.ID, t.OwnerID, t.Name, t.Subject, t.Content, t.Type, variables, t.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build template insert: %w", err)
	}
	if _, err := db.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}
