// Package testdb opens a throwaway in-memory database with the core schema.
package testdb

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gigboard/gigboard/src/gigs/store"
)

// Open returns a migrated in-memory database closed when t finishes. A single
// connection serializes writers the way row locks do on a server database.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(store.Models...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// SeedGig inserts a bounty gig owned by ownerID whose breakdown is amounts in
// place order. The total is their sum.
func SeedGig(t testing.TB, db *gorm.DB, ownerID string, deadline time.Time, amounts ...string) store.Gig {
	t.Helper()

	if len(amounts) == 0 {
		amounts = []string{"100"}
	}
	total := decimal.Zero
	prizes := make([]store.Prize, 0, len(amounts))
	for i, a := range amounts {
		amt := decimal.RequireFromString(a)
		total = total.Add(amt)
		prizes = append(prizes, store.Prize{Place: i + 1, Amount: amt})
	}
	g := store.Gig{
		OwnerID:        ownerID,
		Company:        "Acme",
		Username:       ownerID,
		Title:          "Index the archive",
		Description:    "Build an indexer for the archive node",
		Type:           store.GigBounty,
		Deadline:       deadline.UTC(),
		TotalBounty:    total,
		Prizes:         prizes,
		SkillsRequired: store.SkillsJSON([]string{"go"}),
	}
	if err := store.New(db, store.DefaultRetry).Insert(context.Background(), &g); err != nil {
		t.Fatalf("seed gig: %v", err)
	}
	return g
}
