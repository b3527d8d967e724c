package db

import "testing"

func TestEnsureSchemaIdempotent(t *testing.T) {
	database := NewTestDB(t)

	// A second run must not fail on existing tables or indexes.
	if err := EnsureSchema(database); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}

	for _, table := range []string{"users", "items", "orders", "order_items", "returns", "return_items", "settings", "revoked_tokens"} {
		var name string
		err := database.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestQuantityCheckConstraint(t *testing.T) {
	database := NewTestDB(t)

	if _, err := database.Exec(`INSERT INTO users (name, email, password_hash, role) VALUES ('p', 'p@example.com', 'x', 'partner')`); err != nil {
		t.Fatalf("inserting partner: %v", err)
	}
	_, err := database.Exec(`INSERT INTO items (name, original_price, price, condition, quantity, partner_id)
		VALUES ('Kettle', '20', '10', 'used', -1, 1)`)
	if err == nil {
		t.Error("expected negative quantity to be rejected")
	}
}
