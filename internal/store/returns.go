package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/erazemk/resale/internal/model"
)

// ErrReturnExists is returned when an order line already has an open or approved return.
var ErrReturnExists = errors.New("return already requested for this item")

// ReturnFilter narrows ListReturns. Zero fields do not filter.
type ReturnFilter struct {
	CustomerID int64
	PartnerID  int64
	Status     string
}

const returnColumns = `id, order_id, customer_id, partner_id, reason, status, refund_amount, reject_reason, created_at, updated_at`

func scanReturn(row interface{ Scan(...any) error }) (*model.Return, error) {
	r := &model.Return{}
	var refund decimal.NullDecimal
	var rejectReason sql.NullString
	err := row.Scan(&r.ID, &r.OrderID, &r.CustomerID, &r.PartnerID, &r.Reason, &r.Status, &refund, &rejectReason, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if refund.Valid {
		r.RefundAmount = &refund.Decimal
	}
	r.RejectReason = rejectReason.String
	return r, nil
}

// CreateReturn records a pending return for one line of an order.
// The caller checks that the order is delivered and owned by the customer.
func CreateReturn(ctx context.Context, db *sql.DB, customerID int64, order *model.Order, line model.ReturnLine, partnerID int64, reason string) (*model.Return, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM returns r
		 JOIN return_items ri ON ri.return_id = r.id
		 WHERE r.order_id = ? AND ri.item_id = ? AND r.status != 'rejected'`,
		order.ID, line.ItemID,
	).Scan(&existing)
	if err != nil {
		return nil, fmt.Errorf("checking existing returns: %w", err)
	}
	if existing > 0 {
		return nil, ErrReturnExists
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO returns (order_id, customer_id, partner_id, reason) VALUES (?, ?, ?, ?)`,
		order.ID, customerID, partnerID, reason,
	)
	if err != nil {
		return nil, fmt.Errorf("creating return: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting return id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO return_items (return_id, item_id, quantity, condition) VALUES (?, ?, ?, ?)`,
		id, line.ItemID, line.Quantity, line.Condition,
	); err != nil {
		return nil, fmt.Errorf("recording return line: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing return: %w", err)
	}
	return GetReturn(ctx, db, id)
}

// GetReturn returns a return with its lines.
func GetReturn(ctx context.Context, db *sql.DB, id int64) (*model.Return, error) {
	r, err := scanReturn(db.QueryRowContext(ctx,
		`SELECT `+returnColumns+` FROM returns WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting return: %w", err)
	}

	lines, err := returnLines(ctx, db, id)
	if err != nil {
		return nil, err
	}
	r.Items = lines
	return r, nil
}

// ListReturns returns returns matching f, newest first.
func ListReturns(ctx context.Context, db *sql.DB, f ReturnFilter) ([]model.Return, error) {
	query := `SELECT ` + returnColumns + ` FROM returns WHERE 1=1`
	var args []any

	if f.CustomerID > 0 {
		query += ` AND customer_id = ?`
		args = append(args, f.CustomerID)
	}
	if f.PartnerID > 0 {
		query += ` AND partner_id = ?`
		args = append(args, f.PartnerID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing returns: %w", err)
	}

	var returns []model.Return
	for rows.Next() {
		r, err := scanReturn(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning return: %w", err)
		}
		returns = append(returns, *r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing returns: %w", err)
	}

	for i := range returns {
		lines, err := returnLines(ctx, db, returns[i].ID)
		if err != nil {
			return nil, err
		}
		returns[i].Items = lines
	}
	return returns, nil
}

// ResolveReturn approves or rejects a pending return. Approval stores refund;
// rejection stores reason.
func ResolveReturn(ctx context.Context, db *sql.DB, id int64, action string, refund decimal.Decimal, reason string) (*model.Return, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM returns WHERE id = ?`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting return status: %w", err)
	}

	next, ok := model.NextReturnStatus(status, action)
	if !ok {
		return nil, fmt.Errorf("%s from %s: %w", action, status, ErrInvalidTransition)
	}

	if next == model.ReturnApproved {
		_, err = tx.ExecContext(ctx,
			`UPDATE returns SET status = ?, refund_amount = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			next, refund.String(), id,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE returns SET status = ?, reject_reason = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			next, reason, id,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("updating return status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing return resolution: %w", err)
	}
	return GetReturn(ctx, db, id)
}

func returnLines(ctx context.Context, db *sql.DB, returnID int64) ([]model.ReturnLine, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT item_id, quantity, condition FROM return_items WHERE return_id = ? ORDER BY rowid`, returnID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing return lines: %w", err)
	}
	defer rows.Close()

	var lines []model.ReturnLine
	for rows.Next() {
		var l model.ReturnLine
		if err := rows.Scan(&l.ItemID, &l.Quantity, &l.Condition); err != nil {
			return nil, fmt.Errorf("scanning return line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
