// Package arbitration commits a gig's winner set exactly once.
//
// The whole declaration runs in one transaction: the gig row is locked, the
// proposal is checked against the advertised breakdown and the submission
// ledger, winners_announced is flipped with a conditional update and the
// winner rows are written. Either all of it lands or none of it does.
package arbitration

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gigboard/gigboard/src/gigs/failure"
	"github.com/gigboard/gigboard/src/gigs/identity"
	"github.com/gigboard/gigboard/src/gigs/lifecycle"
	"github.com/gigboard/gigboard/src/gigs/store"
)

// Award is one proposed (contributor, place, amount) triple.
type Award struct {
	ContributorUsername string          `json:"contributor_username"`
	Place               int             `json:"place"`
	Amount              decimal.Decimal `json:"amount"`
}

// Announcer is told about a committed winner set. Errors are logged, never
// returned to the declaring caller: the commit already happened.
type Announcer interface {
	AnnounceWinners(ctx context.Context, gig store.Gig, winners []store.Winner) error
}

// Recorder observes declaration outcomes (metrics).
type Recorder interface {
	WinnersDeclared(outcome string, took time.Duration)
}

type Options struct {
	// AllowPartial accepts a proposal that leaves paid places unawarded.
	// Without it every place with a positive amount must be covered, so a
	// committed set always sums to the gig's total bounty.
	AllowPartial bool
	Announcer    Announcer
	Recorder     Recorder
	Now          func() time.Time
}

type Engine struct {
	store *store.Store
	opts  Options
}

func New(s *store.Store, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{store: s, opts: opts}
}

// Declare validates proposed against the gig and commits it.
func (e *Engine) Declare(ctx context.Context, gigID string, caller identity.Principal, proposed []Award) ([]store.Winner, error) {
	start := time.Now()
	gig, winners, err := e.declare(ctx, gigID, caller, proposed)
	if e.opts.Recorder != nil {
		e.opts.Recorder.WinnersDeclared(outcome(err), time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	log.Printf("arbitration: gig %s winners announced by %s (%d places)", gig.ID, caller.Username, len(winners))
	if e.opts.Announcer != nil {
		if aerr := e.opts.Announcer.AnnounceWinners(ctx, gig, winners); aerr != nil {
			log.Printf("arbitration: announce gig %s: %v", gig.ID, aerr)
		}
	}
	return winners, nil
}

func (e *Engine) declare(ctx context.Context, gigID string, caller identity.Principal, proposed []Award) (store.Gig, []store.Winner, error) {
	if caller.ID == "" {
		return store.Gig{}, nil, failure.ErrUnauthenticated
	}
	awards, err := normalize(proposed)
	if err != nil {
		return store.Gig{}, nil, err
	}

	var (
		gig     store.Gig
		winners []store.Winner
	)
	err = e.store.Transact(ctx, func(tx *gorm.DB) error {
		var err error
		gig, err = store.GetGig(tx, gigID, store.LockUpdate)
		if err != nil {
			return err
		}
		if caller.Role != identity.RoleBusiness || caller.ID != gig.OwnerID {
			return failure.Wrap(failure.ErrUnauthorized, "only the posting organization can declare winners")
		}
		if gig.WinnersAnnounced {
			return failure.ErrAlreadyAnnounced
		}
		if !lifecycle.CanDeclareWinners(gig.State(), caller) {
			return failure.ErrUnauthorized
		}

		if err := matchBreakdown(gig.Prizes, awards, e.opts.AllowPartial); err != nil {
			return err
		}
		if err := requireSubmissions(tx, gig.ID, awards); err != nil {
			return err
		}

		if err := store.MarkWinnersAnnounced(tx, gig.ID); err != nil {
			return err
		}
		now := e.opts.Now().UTC()
		winners = make([]store.Winner, 0, len(awards))
		for _, a := range awards {
			winners = append(winners, store.Winner{
				GigID:               gig.ID,
				Place:               a.Place,
				ContributorUsername: a.ContributorUsername,
				Amount:              a.Amount,
				CreatedAt:           now,
			})
		}
		if err := tx.Create(&winners).Error; err != nil {
			return err
		}
		gig.WinnersAnnounced = true
		return nil
	})
	if err != nil {
		return store.Gig{}, nil, err
	}
	return gig, winners, nil
}

// normalize trims usernames, rejects malformed entries and orders by place.
func normalize(proposed []Award) ([]Award, error) {
	if len(proposed) == 0 {
		return nil, failure.Wrap(failure.ErrValidation, "at least one winner is required")
	}

	places := make(map[int]bool, len(proposed))
	users := make(map[string]bool, len(proposed))
	out := make([]Award, 0, len(proposed))
	for _, a := range proposed {
		a.ContributorUsername = strings.TrimSpace(a.ContributorUsername)
		switch {
		case a.ContributorUsername == "":
			return nil, failure.Wrap(failure.ErrValidation, "place %d has no contributor", a.Place)
		case a.Place < 1:
			return nil, failure.Wrap(failure.ErrValidation, "place %d is not a positive integer", a.Place)
		case a.Amount.IsNegative():
			return nil, failure.Wrap(failure.ErrValidation, "place %d has a negative amount", a.Place)
		case places[a.Place]:
			return nil, failure.Wrap(failure.ErrValidation, "place %d is awarded more than once", a.Place)
		case users[a.ContributorUsername]:
			return nil, failure.Wrap(failure.ErrValidation, "%s is awarded more than one place", a.ContributorUsername)
		}
		places[a.Place] = true
		users[a.ContributorUsername] = true
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Place < out[j].Place })
	return out, nil
}

// matchBreakdown requires every award to name an advertised place with the
// advertised amount and, unless partial sets are allowed, every paid place
// to be awarded.
func matchBreakdown(breakdown []store.Prize, awards []Award, allowPartial bool) error {
	awarded := make(map[int]bool, len(awards))
	for _, a := range awards {
		p, ok := store.PrizeFor(breakdown, a.Place)
		if !ok {
			return failure.Wrap(failure.ErrBreakdownMismatch, "place %d is not in the bounty breakdown", a.Place)
		}
		if !p.Amount.Equal(a.Amount) {
			return failure.Wrap(failure.ErrBreakdownMismatch, "place %d pays %s, not %s", a.Place, p.Amount.String(), a.Amount.String())
		}
		awarded[a.Place] = true
	}
	if allowPartial {
		return nil
	}
	for _, p := range breakdown {
		if p.Amount.IsPositive() && !awarded[p.Place] {
			return failure.Wrap(failure.ErrBreakdownMismatch, "place %d (%s) is not awarded", p.Place, p.Amount.String())
		}
	}
	return nil
}

func requireSubmissions(tx *gorm.DB, gigID string, awards []Award) error {
	names := make([]string, 0, len(awards))
	for _, a := range awards {
		names = append(names, a.ContributorUsername)
	}

	var found []string
	err := tx.Model(&store.Submission{}).
		Where("gig_id = ? AND contributor_username IN ?", gigID, names).
		Pluck("contributor_username", &found).Error
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(found))
	for _, n := range found {
		have[n] = true
	}
	for _, n := range names {
		if !have[n] {
			return failure.Wrap(failure.ErrUnknownContributor, "%s has not submitted to this gig", n)
		}
	}
	return nil
}

// Winners lists the committed winners of gigID by place. It is empty until
// winners are announced.
func (e *Engine) Winners(ctx context.Context, gigID string) ([]store.Winner, error) {
	var out []store.Winner
	err := e.store.Read(ctx, func(db *gorm.DB) error {
		if _, err := store.GetGig(db, gigID, store.NoLock); err != nil {
			return err
		}
		return db.Where("gig_id = ?", gigID).Order("place asc").Find(&out).Error
	})
	return out, err
}

// Total sums the amounts of a winner set.
func Total(winners []store.Winner) decimal.Decimal {
	sum := decimal.Zero
	for _, w := range winners {
		sum = sum.Add(w.Amount)
	}
	return sum
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
