// Package store is the durable record store adapter for gigs and everything
// keyed by a gig id. It speaks gorm so the same code runs on MySQL, Postgres
// and, in tests, SQLite.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gigboard/gigboard/src/gigs/failure"
)

// Row lock strengths for GetGig.
const (
	NoLock     = ""
	LockShare  = "SHARE"
	LockUpdate = "UPDATE"
)

type Store struct {
	db    *gorm.DB
	retry RetryPolicy
}

func New(db *gorm.DB, retry RetryPolicy) *Store {
	return &Store{db: db, retry: retry}
}

// Migrate creates or alters the core tables.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Transact runs fn in one transaction, retrying the whole unit on transient failures.
func (s *Store) Transact(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return Retry(ctx, s.retry, func() error {
		return s.db.WithContext(ctx).Transaction(fn)
	})
}

// Read runs fn outside a transaction with the same retry policy.
func (s *Store) Read(ctx context.Context, fn func(db *gorm.DB) error) error {
	return Retry(ctx, s.retry, func() error {
		return fn(s.db.WithContext(ctx))
	})
}

// GetGig loads a gig and its breakdown, optionally locking the gig row.
func GetGig(db *gorm.DB, id string, lock string) (Gig, error) {
	q := db
	if lock != NoLock {
		q = db.Clauses(clause.Locking{Strength: lock})
	}

	var g Gig
	if err := q.First(&g, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Gig{}, failure.Wrap(failure.ErrNotFound, "gig %s", id)
		}
		return Gig{}, err
	}
	if err := db.Where("gig_id = ?", id).Order("place asc").Find(&g.Prizes).Error; err != nil {
		return Gig{}, err
	}
	return g, nil
}

func (s *Store) Get(ctx context.Context, id string) (Gig, error) {
	var g Gig
	err := s.Read(ctx, func(db *gorm.DB) error {
		var err error
		g, err = GetGig(db, id, NoLock)
		return err
	})
	return g, err
}

// Insert persists g and its breakdown. It assigns an id when g has none.
func (s *Store) Insert(ctx context.Context, g *Gig) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	prizes := SortedPrizes(g.Prizes)
	for i := range prizes {
		prizes[i].GigID = g.ID
	}

	err := s.Transact(ctx, func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(g).Error; err != nil {
			return err
		}
		return tx.Create(&prizes).Error
	})
	if err != nil {
		return err
	}
	g.Prizes = prizes
	return nil
}

// UpdateIf applies patch to the gig only when every predicate column holds.
// It reports whether a row changed.
func UpdateIf(tx *gorm.DB, id string, predicate map[string]interface{}, patch map[string]interface{}) (bool, error) {
	q := tx.Model(&Gig{}).Where("id = ?", id)
	for col, val := range predicate {
		q = q.Where(clause.Eq{Column: clause.Column{Name: col}, Value: val})
	}
	cols := make(map[string]interface{}, len(patch)+1)
	for k, v := range patch {
		cols[k] = v
	}
	if _, ok := cols["updated_at"]; !ok {
		cols["updated_at"] = time.Now().UTC()
	}
	res := q.Updates(cols)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkWinnersAnnounced flips winners_announced only while it is still false.
func MarkWinnersAnnounced(tx *gorm.DB, id string) error {
	changed, err := UpdateIf(tx, id,
		map[string]interface{}{"winners_announced": false},
		map[string]interface{}{"winners_announced": true},
	)
	if err != nil {
		return err
	}
	if !changed {
		return failure.ErrAlreadyAnnounced
	}
	return nil
}

// CountSubmissions returns how many submissions the gig has accrued.
func CountSubmissions(db *gorm.DB, gigID string) (int64, error) {
	var n int64
	err := db.Model(&Submission{}).Where("gig_id = ?", gigID).Count(&n).Error
	return n, err
}

// ListFilter narrows List. Zero values mean "any".
type ListFilter struct {
	OwnerID string
	Company string
	Type    GigType
	Limit   int
	Offset  int
}

// List returns gigs newest first with their breakdowns.
func (s *Store) List(ctx context.Context, f ListFilter) ([]Gig, error) {
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var out []Gig
	err := s.Read(ctx, func(db *gorm.DB) error {
		q := db.Model(&Gig{})
		if f.OwnerID != "" {
			q = q.Where("owner_id = ?", f.OwnerID)
		}
		if f.Company != "" {
			q = q.Where("company = ?", f.Company)
		}
		if f.Type != "" {
			q = q.Where("type = ?", f.Type)
		}
		return q.Preload("Prizes", func(db *gorm.DB) *gorm.DB {
			return db.Order("place asc")
		}).Order("created_at desc").Order("id asc").Limit(limit).Offset(f.Offset).Find(&out).Error
	})
	return out, err
}

// GetProfile loads a public profile by username.
func (s *Store) GetProfile(ctx context.Context, username string) (Profile, error) {
	var p Profile
	err := s.Read(ctx, func(db *gorm.DB) error {
		err := db.First(&p, "username = ?", username).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return failure.Wrap(failure.ErrNotFound, "profile %s", username)
		}
		return err
	})
	return p, err
}

// GetProfileByID loads a profile by principal id.
func (s *Store) GetProfileByID(ctx context.Context, id string) (Profile, error) {
	var p Profile
	err := s.Read(ctx, func(db *gorm.DB) error {
		err := db.First(&p, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return failure.Wrap(failure.ErrNotFound, "profile %s", id)
		}
		return err
	})
	return p, err
}

// ReplacePrizes swaps the breakdown of gigID for prizes.
func ReplacePrizes(tx *gorm.DB, gigID string, prizes []Prize) error {
	if err := tx.Where("gig_id = ?", gigID).Delete(&Prize{}).Error; err != nil {
		return err
	}
	rows := SortedPrizes(prizes)
	for i := range rows {
		rows[i].GigID = gigID
	}
	return tx.Create(&rows).Error
}
