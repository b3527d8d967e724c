package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/erazemk/resale/internal/model"
)

// ItemFilter narrows ListItems. Zero fields do not filter.
type ItemFilter struct {
	Condition string
	Category  string
	Location  string
	PartnerID int64
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
}

const itemColumns = `id, name, description, original_price, price, condition, category,
	image_url, image_mime, quantity, partner_id, location, created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (*model.Item, error) {
	item := &model.Item{}
	var description, imageMime sql.NullString
	var imageURL string
	err := row.Scan(&item.ID, &item.Name, &description, &item.OriginalPrice, &item.Price, &item.Condition, &item.Category,
		&imageURL, &imageMime, &item.Quantity, &item.PartnerID, &item.Location, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.Description = description.String
	item.Image = imageURL
	if imageMime.Valid {
		item.Image = fmt.Sprintf("/api/items/%d/image", item.ID)
	}
	return item, nil
}

// CreateItem creates a new listing. The item must already be validated.
func CreateItem(ctx context.Context, db *sql.DB, it *model.Item) (*model.Item, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO items (name, description, original_price, price, condition, category, image_url, quantity, partner_id, location)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.Name, it.Description, it.OriginalPrice.String(), it.Price.String(), it.Condition, it.Category,
		it.Image, it.Quantity, it.PartnerID, it.Location,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns a non-deleted item by ID.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ? AND deleted_at IS NULL`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns non-deleted items matching f, newest first.
func ListItems(ctx context.Context, db *sql.DB, f ItemFilter) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE deleted_at IS NULL`
	var args []any

	if f.Condition != "" {
		query += ` AND condition = ?`
		args = append(args, f.Condition)
	}
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	if f.Location != "" {
		query += ` AND location = ?`
		args = append(args, f.Location)
	}
	if f.PartnerID > 0 {
		query += ` AND partner_id = ?`
		args = append(args, f.PartnerID)
	}
	if f.MinPrice != nil {
		query += ` AND CAST(price AS REAL) >= ?`
		args = append(args, f.MinPrice.InexactFloat64())
	}
	if f.MaxPrice != nil {
		query += ` AND CAST(price AS REAL) <= ?`
		args = append(args, f.MaxPrice.InexactFloat64())
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem updates a listing's metadata, price and stock.
func UpdateItem(ctx context.Context, db *sql.DB, it *model.Item) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET name = ?, description = ?, original_price = ?, price = ?, condition = ?, category = ?,
		        image_url = ?, quantity = ?, location = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		it.Name, it.Description, it.OriginalPrice.String(), it.Price.String(), it.Condition, it.Category,
		it.Image, it.Quantity, it.Location, it.ID,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// DeleteItem soft-deletes an item. Orders keep referencing it.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// SetItemImage sets an item's image data.
func SetItemImage(ctx context.Context, db *sql.DB, id int64, image []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemImage returns an item's image data and MIME type.
func GetItemImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}

// adjustStock changes an item's quantity inside tx. The result must not go negative.
func adjustStock(ctx context.Context, tx *sql.Tx, itemID int64, delta int) error {
	var current int
	err := tx.QueryRowContext(ctx,
		`SELECT quantity FROM items WHERE id = ?`, itemID,
	).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking stock: %w", err)
	}

	newQty := current + delta
	if newQty < 0 {
		return fmt.Errorf("item %d: have %d, need %d: %w", itemID, current, -delta, ErrInsufficientStock)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET quantity = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		newQty, itemID,
	); err != nil {
		return fmt.Errorf("updating stock: %w", err)
	}
	return nil
}
