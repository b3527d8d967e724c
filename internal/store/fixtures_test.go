package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/erazemk/resale/internal/model"
)

func mustUser(t *testing.T, database *sql.DB, email, role string) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), database, email, email, "hash", role, "")
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", email, err)
	}
	return u
}

func mustItem(t *testing.T, database *sql.DB, partnerID int64, name, price string, qty int) *model.Item {
	t.Helper()
	it := &model.Item{
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Quantity:  qty,
		PartnerID: partnerID,
		Category:  "Electronics",
		Location:  "Dallas, TX",
	}
	if err := model.ValidateItem(it); err != nil {
		t.Fatalf("ValidateItem: %v", err)
	}
	created, err := CreateItem(context.Background(), database, it)
	if err != nil {
		t.Fatalf("CreateItem(%s): %v", name, err)
	}
	return created
}
