package db

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/rajatmakholiya/ES-Analytics-API/internal/models"
)

// ListPageMappings returns all page mappings ordered by category then page name.
func (p *Postgres) ListPageMappings(ctx context.Context) ([]models.PageMapping, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT id, category, platform, page_name, utm_source, utm_mediums FROM page_mappings ORDER BY category ASC, page_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query page mappings: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	out := []models.PageMapping{}
	for rows.Next() {
		var m models.PageMapping
		if err := rows.Scan(&m.ID, &m.Category, &m.Platform, &m.PageName, &m.UTMSource, pq.Array(&m.UTMMediums)); err != nil {
			return nil, fmt.Errorf("scan page mapping: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// InsertPageMapping persists a new mapping and fills in its generated ID.
func (p *Postgres) InsertPageMapping(ctx context.Context, m *models.PageMapping) error {
	err := p.DB.QueryRowContext(ctx,
		`INSERT INTO page_mappings (category, platform, page_name, utm_source, utm_mediums) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		m.Category, m.Platform, m.PageName, m.UTMSource, pq.Array(m.UTMMediums),
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("insert page mapping: %w", err)
	}
	return nil
}

// DeletePageMapping removes a mapping by ID.
func (p *Postgres) DeletePageMapping(ctx context.Context, id int) error {
	if _, err := p.DB.ExecContext(ctx, `DELETE FROM page_mappings WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete page mapping: %w", err)
	}
	return nil
}
