package store

import (
	"database/sql"
	"testing"

	"github.com/dukerupert/tandem/internal/database"
	"github.com/dukerupert/tandem/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *sql.DB, email string) *model.Account {
	t.Helper()
	acct, err := NewUserStore(db).Create(email, []byte("hash"))
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return acct
}

func strPtr(s string) *string { return &s }
