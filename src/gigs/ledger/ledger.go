// Package ledger records contributor submissions: at most one per
// (gig, contributor), immutable once written. It exposes no update or delete.
package ledger

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gigboard/gigboard/src/gigs/failure"
	"github.com/gigboard/gigboard/src/gigs/identity"
	"github.com/gigboard/gigboard/src/gigs/lifecycle"
	"github.com/gigboard/gigboard/src/gigs/store"
	"github.com/gigboard/gigboard/src/logging"
)

// Recorder observes ledger outcomes (metrics).
type Recorder interface {
	SubmissionRecorded(outcome string)
}

type Ledger struct {
	store *store.Store
	now   func() time.Time
	rec   Recorder
}

func New(s *store.Store, now func() time.Time, rec Recorder) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{store: s, now: now, rec: rec}
}

// Entry is what a contributor hands in.
type Entry struct {
	SubmissionLink string
	WalletAddress  string
	ContactEmail   string
}

func (e Entry) normalize() Entry {
	return Entry{
		SubmissionLink: strings.TrimSpace(e.SubmissionLink),
		WalletAddress:  strings.TrimSpace(e.WalletAddress),
		ContactEmail:   strings.TrimSpace(e.ContactEmail),
	}
}

func (e Entry) validate() error {
	if e.SubmissionLink == "" {
		return failure.Wrap(failure.ErrValidation, "submission link is required")
	}
	if e.WalletAddress == "" {
		return failure.Wrap(failure.ErrValidation, "wallet address is required")
	}
	if len(e.SubmissionLink) > 512 || len(e.WalletAddress) > 128 || len(e.ContactEmail) > 255 {
		return failure.Wrap(failure.ErrValidation, "field too long")
	}
	if e.ContactEmail != "" {
		if _, err := mail.ParseAddress(e.ContactEmail); err != nil {
			return failure.Wrap(failure.ErrValidation, "contact email is malformed")
		}
	}
	return nil
}

// Submit records contributor's entry for gigID.
//
// A closed gig answers GigClosed before the caller's role is considered.
// The gig row is read under a share lock so a concurrent winner declaration
// cannot interleave, and the insert is a single conditional write keyed by
// (gig_id, contributor_username): of N concurrent calls exactly one inserts.
func (l *Ledger) Submit(ctx context.Context, gigID string, contributor identity.Principal, e Entry) (store.Submission, error) {
	sub, err := l.submit(ctx, gigID, contributor, e)
	if l.rec != nil {
		l.rec.SubmissionRecorded(outcome(err))
	}
	return sub, err
}

func (l *Ledger) submit(ctx context.Context, gigID string, contributor identity.Principal, e Entry) (store.Submission, error) {
	if contributor.Username == "" {
		return store.Submission{}, failure.ErrUnauthenticated
	}
	e = e.normalize()
	if err := e.validate(); err != nil {
		return store.Submission{}, err
	}
	if e.ContactEmail == "" {
		e.ContactEmail = contributor.Email
	}

	var sub store.Submission
	err := l.store.Transact(ctx, func(tx *gorm.DB) error {
		gig, err := store.GetGig(tx, gigID, store.LockShare)
		if err != nil {
			return err
		}
		now := l.now().UTC()
		if !lifecycle.CanSubmit(gig.State(), now) {
			if gig.WinnersAnnounced {
				return failure.Wrap(failure.ErrGigClosed, "winners already announced")
			}
			return failure.Wrap(failure.ErrGigClosed, "deadline passed at %s", gig.Deadline.UTC().Format(time.RFC3339))
		}
		if contributor.Role != identity.RoleFreelancer {
			return failure.Wrap(failure.ErrUnauthorized, "organizations cannot submit to gigs")
		}

		sub = store.Submission{
			GigID:               gig.ID,
			ContributorUsername: contributor.Username,
			ContributorID:       contributor.ID,
			SubmissionLink:      e.SubmissionLink,
			WalletAddress:       e.WalletAddress,
			ContactEmail:        e.ContactEmail,
			CreatedAt:           now,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&sub)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) || logging.IsDuplicateKey(res.Error) {
				return failure.ErrAlreadySubmitted
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return failure.ErrAlreadySubmitted
		}
		return nil
	})
	if err != nil {
		return store.Submission{}, err
	}
	return sub, nil
}

// Mine returns the caller's submission for gigID, if any.
func (l *Ledger) Mine(ctx context.Context, gigID string, caller identity.Principal) (store.Submission, bool, error) {
	var sub store.Submission
	found := false
	err := l.store.Read(ctx, func(db *gorm.DB) error {
		if _, err := store.GetGig(db, gigID, store.NoLock); err != nil {
			return err
		}
		res := db.Where("gig_id = ? AND contributor_username = ?", gigID, caller.Username).Limit(1).Find(&sub)
		if res.Error != nil {
			return res.Error
		}
		found = res.RowsAffected > 0
		return nil
	})
	return sub, found, err
}

// ForOwner lists every submission of gigID. Only the owning organization may look.
func (l *Ledger) ForOwner(ctx context.Context, gigID string, caller identity.Principal) ([]store.Submission, error) {
	var subs []store.Submission
	err := l.store.Read(ctx, func(db *gorm.DB) error {
		gig, err := store.GetGig(db, gigID, store.NoLock)
		if err != nil {
			return err
		}
		if !caller.IsBusiness() || caller.ID != gig.OwnerID {
			return failure.Wrap(failure.ErrUnauthorized, "only the posting organization can view submissions")
		}
		return db.Where("gig_id = ?", gigID).Order("created_at asc").Order("contributor_username asc").Find(&subs).Error
	})
	return subs, err
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if fe, ok := failure.As(err); ok {
		return fe.Code
	}
	return "error"
}
