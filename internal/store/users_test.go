package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/resale/internal/db"
	"github.com/erazemk/resale/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "Ana", "Ana@Example.com", "hash123", model.RoleCustomer, "")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Email != "ana@example.com" {
		t.Errorf("expected lowercased email, got %q", user.Email)
	}
	if user.Role != model.RoleCustomer {
		t.Errorf("expected role 'customer', got %q", user.Role)
	}

	got, err := GetUser(ctx, database, user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Name != "Ana" {
		t.Errorf("expected name 'Ana', got %q", got.Name)
	}
}

func TestGetUserByEmail(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "Ana", "ana@example.com", "hash", model.RoleAdmin, "")

	user, err := GetUserByEmail(ctx, database, "ANA@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if user == nil {
		t.Fatal("expected user, got nil")
	}

	missing, err := GetUserByEmail(ctx, database, "bob@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing user")
	}
}

func TestDuplicateEmailRejected(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "Ana", "ana@example.com", "hash", model.RoleCustomer, "")
	_, err := CreateUser(ctx, database, "Ana 2", "ana@example.com", "hash", model.RoleCustomer, "")
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestDeletedEmailCanBeReused(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "Ana", "ana@example.com", "hash", model.RoleCustomer, "")
	DeleteUser(ctx, database, user.ID)

	if _, err := CreateUser(ctx, database, "Ana", "ana@example.com", "hash", model.RoleCustomer, ""); err != nil {
		t.Fatalf("expected email of deleted user to be reusable: %v", err)
	}
	users, _ := ListUsers(ctx, database, "")
	if len(users) != 1 {
		t.Errorf("expected 1 active user, got %d", len(users))
	}
}

func TestListUsersByRole(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "a", "a@example.com", "hash", model.RoleCustomer, "")
	CreateUser(ctx, database, "b", "b@example.com", "hash", model.RolePartner, "Dallas, TX")

	all, _ := ListUsers(ctx, database, "")
	if len(all) != 2 {
		t.Errorf("expected 2 users, got %d", len(all))
	}
	partners, _ := ListUsers(ctx, database, model.RolePartner)
	if len(partners) != 1 || partners[0].Location != "Dallas, TX" {
		t.Errorf("expected one partner in Dallas, got %+v", partners)
	}
}

func TestUpdateUserAndPassword(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "pw", "pw@example.com", "oldhash", model.RoleCustomer, "")
	UpdateUserPassword(ctx, database, user.ID, "newhash")
	UpdateUser(ctx, database, user.ID, "Renamed", "pw@example.com", model.RolePartner, "Miami, FL")

	got, _ := GetUser(ctx, database, user.ID)
	if got.PasswordHash != "newhash" {
		t.Errorf("expected password hash 'newhash', got %q", got.PasswordHash)
	}
	if got.Name != "Renamed" || got.Role != model.RolePartner || got.Location != "Miami, FL" {
		t.Errorf("update not applied: %+v", got)
	}
}

func TestListPartners(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "Shop A", "a@example.com", "hash", model.RolePartner, "Atlanta, GA")
	CreateUser(ctx, database, "Shop B", "b@example.com", "hash", model.RolePartner, "Seattle, WA")
	CreateUser(ctx, database, "Buyer", "c@example.com", "hash", model.RoleCustomer, "Seattle, WA")

	all, err := ListPartners(ctx, database, "")
	if err != nil {
		t.Fatalf("ListPartners: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 partners, got %d", len(all))
	}

	seattle, _ := ListPartners(ctx, database, "Seattle, WA")
	if len(seattle) != 1 || seattle[0].Name != "Shop B" {
		t.Errorf("expected Shop B only, got %+v", seattle)
	}
}
