// Package catalog publishes, amends and lists gigs.
package catalog

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gigboard/gigboard/src/gigs/failure"
	"github.com/gigboard/gigboard/src/gigs/identity"
	"github.com/gigboard/gigboard/src/gigs/lifecycle"
	"github.com/gigboard/gigboard/src/gigs/store"
)

// Draft holds the terms of a gig as an organization writes them.
type Draft struct {
	Company     string
	Title       string
	Description string
	Type        store.GigType
	Deadline    time.Time
	TotalBounty decimal.Decimal
	Breakdown   []store.Prize
	Skills      []string
	ContactInfo string
}

// View is a gig as a particular caller sees it at a particular time.
type View struct {
	store.Gig
	Phase       lifecycle.Phase   `json:"phase"`
	Actions     lifecycle.Actions `json:"actions"`
	Submissions int64             `json:"submission_count"`
	Winners     []store.Winner    `json:"winners,omitempty"`
}

type Catalog struct {
	store *store.Store
	now   func() time.Time
	plain *bluemonday.Policy
	rich  *bluemonday.Policy
}

func New(s *store.Store, now func() time.Time) *Catalog {
	if now == nil {
		now = time.Now
	}
	return &Catalog{
		store: s,
		now:   now,
		plain: bluemonday.StrictPolicy(),
		rich:  bluemonday.UGCPolicy(),
	}
}

// clean sanitizes d and checks it against the publishing rules.
func (c *Catalog) clean(d Draft, owner identity.Principal) (Draft, error) {
	d.Company = strings.TrimSpace(c.plain.Sanitize(d.Company))
	if d.Company == "" {
		d.Company = owner.Username
	}
	d.Title = strings.TrimSpace(c.plain.Sanitize(d.Title))
	d.Description = strings.TrimSpace(c.rich.Sanitize(d.Description))
	d.ContactInfo = strings.TrimSpace(c.plain.Sanitize(d.ContactInfo))

	skills := make([]string, 0, len(d.Skills))
	seen := make(map[string]bool, len(d.Skills))
	for _, s := range d.Skills {
		s = strings.TrimSpace(c.plain.Sanitize(s))
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		skills = append(skills, s)
	}
	d.Skills = skills

	switch {
	case utf8.RuneCountInString(d.Title) < 3:
		return d, failure.Wrap(failure.ErrValidation, "title must be at least 3 characters")
	case utf8.RuneCountInString(d.Title) > 255:
		return d, failure.Wrap(failure.ErrValidation, "title must be at most 255 characters")
	case utf8.RuneCountInString(d.Description) < 10:
		return d, failure.Wrap(failure.ErrValidation, "description must be at least 10 characters")
	case utf8.RuneCountInString(d.Company) > 128:
		return d, failure.Wrap(failure.ErrValidation, "company must be at most 128 characters")
	case !d.Type.Valid():
		return d, failure.Wrap(failure.ErrValidation, "type must be project, bounty or grant")
	case d.Deadline.IsZero() || !d.Deadline.After(c.now()):
		return d, failure.Wrap(failure.ErrValidation, "deadline must be in the future")
	case d.TotalBounty.LessThan(decimal.NewFromInt(1)):
		return d, failure.Wrap(failure.ErrValidation, "total bounty must be at least 1")
	case !d.TotalBounty.Equal(d.TotalBounty.Round(2)):
		return d, failure.Wrap(failure.ErrValidation, "amounts carry at most two decimals")
	}
	for _, p := range d.Breakdown {
		if !p.Amount.Equal(p.Amount.Round(2)) {
			return d, failure.Wrap(failure.ErrValidation, "amounts carry at most two decimals")
		}
	}
	if err := store.ValidateBreakdown(d.TotalBounty, d.Breakdown); err != nil {
		return d, err
	}
	d.Breakdown = store.SortedPrizes(d.Breakdown)
	return d, nil
}

func requireOrganization(p identity.Principal) error {
	if p.ID == "" {
		return failure.ErrUnauthenticated
	}
	if p.Role != identity.RoleBusiness {
		return failure.Wrap(failure.ErrUnauthorized, "only organizations can publish gigs")
	}
	return nil
}

// Create publishes a new gig owned by owner.
func (c *Catalog) Create(ctx context.Context, owner identity.Principal, d Draft) (store.Gig, error) {
	if err := requireOrganization(owner); err != nil {
		return store.Gig{}, err
	}
	d, err := c.clean(d, owner)
	if err != nil {
		return store.Gig{}, err
	}

	now := c.now().UTC()
	g := store.Gig{
		OwnerID:        owner.ID,
		Company:        d.Company,
		Username:       owner.Username,
		Title:          d.Title,
		Description:    d.Description,
		Type:           d.Type,
		Deadline:       d.Deadline.UTC(),
		TotalBounty:    d.TotalBounty,
		Prizes:         d.Breakdown,
		SkillsRequired: store.SkillsJSON(d.Skills),
		ContactInfo:    d.ContactInfo,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := c.store.Insert(ctx, &g); err != nil {
		return store.Gig{}, err
	}
	return g, nil
}

// Amend replaces the terms of gigID. Terms freeze once the first submission
// lands or winners are announced.
func (c *Catalog) Amend(ctx context.Context, gigID string, owner identity.Principal, d Draft) (store.Gig, error) {
	if err := requireOrganization(owner); err != nil {
		return store.Gig{}, err
	}
	d, err := c.clean(d, owner)
	if err != nil {
		return store.Gig{}, err
	}

	var out store.Gig
	err = c.store.Transact(ctx, func(tx *gorm.DB) error {
		gig, err := store.GetGig(tx, gigID, store.LockUpdate)
		if err != nil {
			return err
		}
		if gig.OwnerID != owner.ID {
			return failure.Wrap(failure.ErrUnauthorized, "only the posting organization can amend a gig")
		}
		if gig.WinnersAnnounced {
			return failure.Wrap(failure.ErrGigLocked, "winners already announced")
		}
		n, err := store.CountSubmissions(tx, gig.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return failure.Wrap(failure.ErrGigLocked, "gig already has %d submissions", n)
		}

		patch := map[string]interface{}{
			"company":         d.Company,
			"title":           d.Title,
			"description":     d.Description,
			"type":            d.Type,
			"deadline":        d.Deadline.UTC(),
			"total_bounty":    d.TotalBounty,
			"skills_required": store.SkillsJSON(d.Skills),
			"contact_info":    d.ContactInfo,
			"updated_at":      c.now().UTC(),
		}
		changed, err := store.UpdateIf(tx, gig.ID, map[string]interface{}{"winners_announced": false}, patch)
		if err != nil {
			return err
		}
		if !changed {
			return failure.Wrap(failure.ErrGigLocked, "winners already announced")
		}
		if err := store.ReplacePrizes(tx, gig.ID, d.Breakdown); err != nil {
			return err
		}
		out, err = store.GetGig(tx, gig.ID, store.NoLock)
		return err
	})
	if err != nil {
		return store.Gig{}, err
	}
	return out, nil
}

// List returns gigs newest first.
func (c *Catalog) List(ctx context.Context, f store.ListFilter) ([]View, error) {
	gigs, err := c.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	now := c.now()
	out := make([]View, 0, len(gigs))
	for _, g := range gigs {
		out = append(out, View{Gig: g, Phase: lifecycle.PhaseOf(g.State(), now)})
	}
	return out, nil
}

// Mine lists the gigs owner has published.
func (c *Catalog) Mine(ctx context.Context, owner identity.Principal, limit, offset int) ([]View, error) {
	if err := requireOrganization(owner); err != nil {
		return nil, err
	}
	return c.List(ctx, store.ListFilter{OwnerID: owner.ID, Limit: limit, Offset: offset})
}

// Detail loads gigID with its derived phase, what caller may do with it and,
// once announced, its winners. caller may be the zero Principal.
func (c *Catalog) Detail(ctx context.Context, gigID string, caller identity.Principal) (View, error) {
	var v View
	err := c.store.Read(ctx, func(db *gorm.DB) error {
		g, err := store.GetGig(db, gigID, store.NoLock)
		if err != nil {
			return err
		}
		n, err := store.CountSubmissions(db, g.ID)
		if err != nil {
			return err
		}
		now := c.now()
		v = View{
			Gig:         g,
			Phase:       lifecycle.PhaseOf(g.State(), now),
			Actions:     lifecycle.Allowed(g.State(), caller, now, n > 0),
			Submissions: n,
		}
		if g.WinnersAnnounced {
			return db.Where("gig_id = ?", g.ID).Order("place asc").Find(&v.Winners).Error
		}
		return nil
	})
	return v, err
}
