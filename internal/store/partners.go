package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/resale/internal/model"
)

// ListPartners returns active partner businesses, optionally at one location.
func ListPartners(ctx context.Context, db *sql.DB, location string) ([]model.Partner, error) {
	var rows *sql.Rows
	var err error

	if location != "" {
		rows, err = db.QueryContext(ctx,
			`SELECT id, name, email, role, location, created_at, updated_at
			 FROM users WHERE deleted_at IS NULL AND role = 'partner' AND location = ? ORDER BY name`, location,
		)
	} else {
		rows, err = db.QueryContext(ctx,
			`SELECT id, name, email, role, location, created_at, updated_at
			 FROM users WHERE deleted_at IS NULL AND role = 'partner' ORDER BY name`,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("listing partners: %w", err)
	}
	defer rows.Close()

	var partners []model.Partner
	for rows.Next() {
		var p model.Partner
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.Role, &p.Location, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning partner: %w", err)
		}
		partners = append(partners, p)
	}
	return partners, rows.Err()
}

// PartnerLocation returns the location of a partner, or "" if unknown.
func PartnerLocation(ctx context.Context, db *sql.DB, partnerID int64) (string, error) {
	var location string
	err := db.QueryRowContext(ctx,
		`SELECT location FROM users WHERE id = ? AND role = 'partner'`, partnerID,
	).Scan(&location)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting partner location: %w", err)
	}
	return location, nil
}
