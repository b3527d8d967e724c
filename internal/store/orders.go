package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/erazemk/resale/internal/model"
)

// OrderLineInput is a requested item and quantity. Price and partner come from the item.
type OrderLineInput struct {
	ItemID   int64
	Quantity int
}

// OrderFilter narrows ListOrders. Zero fields do not filter.
type OrderFilter struct {
	CustomerID int64
	PartnerID  int64
	Status     string
}

// CreateOrder places an order, decrementing stock for every line in a single transaction.
func CreateOrder(ctx context.Context, db *sql.DB, customerID int64, lines []OrderLineInput, shippingAddress string) (*model.Order, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("order has no items")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Merge repeated items so stock is checked once per item.
	qty := make(map[int64]int)
	var itemIDs []int64
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("quantity must be positive")
		}
		if _, seen := qty[l.ItemID]; !seen {
			itemIDs = append(itemIDs, l.ItemID)
		}
		qty[l.ItemID] += l.Quantity
	}

	orderLines := make([]model.OrderLine, 0, len(itemIDs))
	for _, itemID := range itemIDs {
		var price decimal.Decimal
		var partnerID int64
		err := tx.QueryRowContext(ctx,
			`SELECT price, partner_id FROM items WHERE id = ? AND deleted_at IS NULL`, itemID,
		).Scan(&price, &partnerID)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("item %d: %w", itemID, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("getting item price: %w", err)
		}

		if err := adjustStock(ctx, tx, itemID, -qty[itemID]); err != nil {
			return nil, err
		}
		orderLines = append(orderLines, model.OrderLine{
			ItemID:    itemID,
			Quantity:  qty[itemID],
			Price:     price,
			PartnerID: partnerID,
		})
	}

	total := model.SumLines(orderLines)
	result, err := tx.ExecContext(ctx,
		`INSERT INTO orders (customer_id, total_amount, shipping_address) VALUES (?, ?, ?)`,
		customerID, total.String(), shippingAddress,
	)
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}
	orderID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting order id: %w", err)
	}

	for _, l := range orderLines {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, item_id, quantity, price, partner_id) VALUES (?, ?, ?, ?, ?)`,
			orderID, l.ItemID, l.Quantity, l.Price.String(), l.PartnerID,
		); err != nil {
			return nil, fmt.Errorf("recording order line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing order: %w", err)
	}

	return GetOrder(ctx, db, orderID)
}

// GetOrder returns an order with its lines.
func GetOrder(ctx context.Context, db *sql.DB, id int64) (*model.Order, error) {
	o := &model.Order{}
	err := db.QueryRowContext(ctx,
		`SELECT id, customer_id, total_amount, status, shipping_address, created_at, updated_at
		 FROM orders WHERE id = ?`, id,
	).Scan(&o.ID, &o.CustomerID, &o.TotalAmount, &o.Status, &o.ShippingAddress, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}

	lines, err := orderLines(ctx, db, []int64{id})
	if err != nil {
		return nil, err
	}
	o.Items = lines[id]
	return o, nil
}

// ListOrders returns orders matching f, newest first.
func ListOrders(ctx context.Context, db *sql.DB, f OrderFilter) ([]model.Order, error) {
	query := `SELECT id, customer_id, total_amount, status, shipping_address, created_at, updated_at
	          FROM orders WHERE 1=1`
	var args []any

	if f.CustomerID > 0 {
		query += ` AND customer_id = ?`
		args = append(args, f.CustomerID)
	}
	if f.PartnerID > 0 {
		query += ` AND id IN (SELECT order_id FROM order_items WHERE partner_id = ?)`
		args = append(args, f.PartnerID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	var orders []model.Order
	var ids []int64
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.TotalAmount, &o.Status, &o.ShippingAddress, &o.CreatedAt, &o.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	// Close before the next query; the pool holds a single connection.
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	lines, err := orderLines(ctx, db, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = lines[orders[i].ID]
	}
	return orders, nil
}

// TransitionOrder applies action to an order. Cancelling puts the stock back.
func TransitionOrder(ctx context.Context, db *sql.DB, id int64, action string) (*model.Order, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting order status: %w", err)
	}

	next, ok := model.NextOrderStatus(status, action)
	if !ok {
		return nil, fmt.Errorf("%s from %s: %w", action, status, ErrInvalidTransition)
	}

	if action == model.ActionCancel {
		rows, err := tx.QueryContext(ctx, `SELECT item_id, quantity FROM order_items WHERE order_id = ?`, id)
		if err != nil {
			return nil, fmt.Errorf("listing order lines: %w", err)
		}
		var restock []OrderLineInput
		for rows.Next() {
			var l OrderLineInput
			if err := rows.Scan(&l.ItemID, &l.Quantity); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning order line: %w", err)
			}
			restock = append(restock, l)
		}
		rows.Close()
		for _, l := range restock {
			if err := adjustStock(ctx, tx, l.ItemID, l.Quantity); err != nil {
				return nil, err
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, next, id,
	); err != nil {
		return nil, fmt.Errorf("updating order status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing order transition: %w", err)
	}
	return GetOrder(ctx, db, id)
}

// orderLines loads the lines of the given orders keyed by order ID.
func orderLines(ctx context.Context, db *sql.DB, orderIDs []int64) (map[int64][]model.OrderLine, error) {
	lines := make(map[int64][]model.OrderLine, len(orderIDs))
	if len(orderIDs) == 0 {
		return lines, nil
	}

	query := `SELECT oi.order_id, oi.item_id, oi.quantity, oi.price, oi.partner_id, COALESCE(i.name, '')
	          FROM order_items oi
	          LEFT JOIN items i ON i.id = oi.item_id
	          WHERE oi.order_id IN (?` + repeatPlaceholder(len(orderIDs)-1) + `)
	          ORDER BY oi.order_id, oi.rowid`
	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID int64
		var l model.OrderLine
		if err := rows.Scan(&orderID, &l.ItemID, &l.Quantity, &l.Price, &l.PartnerID, &l.ItemName); err != nil {
			return nil, fmt.Errorf("scanning order line: %w", err)
		}
		lines[orderID] = append(lines[orderID], l)
	}
	return lines, rows.Err()
}

func repeatPlaceholder(n int) string {
	s := ""
	for range n {
		s += ", ?"
	}
	return s
}

// UpdateShippingAddress changes where a placed order ships.
func UpdateShippingAddress(ctx context.Context, db *sql.DB, id int64, address string) (*model.Order, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE orders SET shipping_address = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`,
		address, id, model.OrderPlaced,
	)
	if err != nil {
		return nil, fmt.Errorf("updating shipping address: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		o, err := GetOrder(ctx, db, id)
		if err != nil {
			return nil, err
		}
		if o == nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("address of %s order: %w", o.Status, ErrInvalidTransition)
	}
	return GetOrder(ctx, db, id)
}
