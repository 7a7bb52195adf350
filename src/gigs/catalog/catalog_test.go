package catalog_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gigboard/gigboard/src/gigs/catalog"
	"github.com/gigboard/gigboard/src/gigs/failure"
	"github.com/gigboard/gigboard/src/gigs/identity"
	"github.com/gigboard/gigboard/src/gigs/lifecycle"
	"github.com/gigboard/gigboard/src/gigs/store"
	"github.com/gigboard/gigboard/src/gigs/testdb"
)

var (
	t0    = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	owner = identity.Principal{ID: "org-1", Username: "acme", Role: identity.RoleBusiness}
	alice = identity.Principal{ID: "u-alice", Username: "alice", Role: identity.RoleFreelancer}
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func draft() catalog.Draft {
	return catalog.Draft{
		Title:       "Ship the indexer",
		Description: "<p>Index every block and <script>alert(1)</script>expose it</p>",
		Type:        store.GigBounty,
		Deadline:    t0.Add(7 * 24 * time.Hour),
		TotalBounty: dec("1000"),
		Breakdown:   []store.Prize{{Place: 2, Amount: dec("300")}, {Place: 1, Amount: dec("700")}},
		Skills:      []string{"Go", " go ", "SQL", ""},
	}
}

func setup(t *testing.T) (*catalog.Catalog, *gorm.DB) {
	t.Helper()
	db := testdb.Open(t)
	return catalog.New(store.New(db, store.DefaultRetry), func() time.Time { return t0 }), db
}

func TestCreate(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()

	g, err := c.Create(ctx, owner, draft())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if g.ID == "" || g.OwnerID != owner.ID {
		t.Fatalf("unexpected gig %+v", g)
	}
	if g.Company != "acme" {
		t.Fatalf("company should default to the username, got %q", g.Company)
	}
	if strings.Contains(g.Description, "script") {
		t.Fatalf("description not sanitized: %q", g.Description)
	}
	if skills := g.Skills(); len(skills) != 2 || skills[0] != "Go" || skills[1] != "SQL" {
		t.Fatalf("skills not deduplicated: %v", skills)
	}

	v, err := c.Detail(ctx, g.ID, alice)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if v.Phase != lifecycle.PhaseOpen || !v.Actions.CanSubmit || v.Actions.CanDeclare {
		t.Fatalf("unexpected view %+v", v.Actions)
	}
	if len(v.Prizes) != 2 || v.Prizes[0].Place != 1 || !v.Prizes[0].Amount.Equal(dec("700")) {
		t.Fatalf("breakdown not ordered by place: %+v", v.Prizes)
	}
}

func TestCreateRejects(t *testing.T) {
	tests := []struct {
		name   string
		who    identity.Principal
		mutate func(*catalog.Draft)
		expect error
	}{
		{"freelancer", alice, func(d *catalog.Draft) {}, failure.ErrUnauthorized},
		{"anonymous", identity.Principal{}, func(d *catalog.Draft) {}, failure.ErrUnauthenticated},
		{"short title", owner, func(d *catalog.Draft) { d.Title = "ab" }, failure.ErrValidation},
		{"description empty after sanitize", owner, func(d *catalog.Draft) { d.Description = "<script>alert('hello world')</script>" }, failure.ErrValidation},
		{"bad type", owner, func(d *catalog.Draft) { d.Type = "contest" }, failure.ErrValidation},
		{"past deadline", owner, func(d *catalog.Draft) { d.Deadline = t0.Add(-time.Minute) }, failure.ErrValidation},
		{"total below one", owner, func(d *catalog.Draft) {
			d.TotalBounty = dec("0.5")
			d.Breakdown = []store.Prize{{Place: 1, Amount: dec("0.5")}}
		}, failure.ErrValidation},
		{"sum mismatch", owner, func(d *catalog.Draft) { d.TotalBounty = dec("1200") }, failure.ErrValidation},
		{"gap in places", owner, func(d *catalog.Draft) {
			d.Breakdown = []store.Prize{{Place: 1, Amount: dec("700")}, {Place: 3, Amount: dec("300")}}
		}, failure.ErrValidation},
		{"sub-cent amount", owner, func(d *catalog.Draft) {
			d.TotalBounty = dec("1000.001")
			d.Breakdown = []store.Prize{{Place: 1, Amount: dec("1000.001")}}
		}, failure.ErrValidation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := setup(t)
			d := draft()
			tc.mutate(&d)
			if _, err := c.Create(context.Background(), tc.who, d); !errors.Is(err, tc.expect) {
				t.Fatalf("want %v, got %v", tc.expect, err)
			}
		})
	}
}

func TestAmend(t *testing.T) {
	c, db := setup(t)
	ctx := context.Background()

	g, err := c.Create(ctx, owner, draft())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	d := draft()
	d.Title = "Ship the indexer, v2"
	d.TotalBounty = dec("1500")
	d.Breakdown = []store.Prize{{Place: 1, Amount: dec("1000")}, {Place: 2, Amount: dec("300")}, {Place: 3, Amount: dec("200")}}
	amended, err := c.Amend(ctx, g.ID, owner, d)
	if err != nil {
		t.Fatalf("amend: %v", err)
	}
	if amended.Title != d.Title || len(amended.Prizes) != 3 || !amended.TotalBounty.Equal(dec("1500")) {
		t.Fatalf("amend not applied: %+v", amended)
	}

	rival := identity.Principal{ID: "org-2", Username: "rival", Role: identity.RoleBusiness}
	if _, err := c.Amend(ctx, g.ID, rival, d); !errors.Is(err, failure.ErrUnauthorized) {
		t.Fatalf("rival amend: want Unauthorized, got %v", err)
	}

	sub := store.Submission{GigID: g.ID, ContributorUsername: "alice", ContributorID: alice.ID, SubmissionLink: "l", WalletAddress: "w", CreatedAt: t0}
	if err := db.Create(&sub).Error; err != nil {
		t.Fatalf("seed submission: %v", err)
	}
	if _, err := c.Amend(ctx, g.ID, owner, draft()); !errors.Is(err, failure.ErrGigLocked) {
		t.Fatalf("amend after submission: want GigLocked, got %v", err)
	}

	v, err := c.Detail(ctx, g.ID, owner)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if v.Submissions != 1 || v.Actions.CanAmend || !v.Actions.CanDeclare || !v.Actions.CanViewSubmissions {
		t.Fatalf("unexpected owner view %+v (submissions %d)", v.Actions, v.Submissions)
	}
}

func TestListAndMine(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()

	other := identity.Principal{ID: "org-2", Username: "globex", Role: identity.RoleBusiness}
	for _, who := range []identity.Principal{owner, owner, other} {
		if _, err := c.Create(ctx, who, draft()); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	all, err := c.List(ctx, store.ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("want 3 gigs, got %d", len(all))
	}
	for _, v := range all {
		if v.Phase != lifecycle.PhaseOpen || len(v.Prizes) != 2 {
			t.Fatalf("unexpected list item %+v", v)
		}
	}

	mine, err := c.Mine(ctx, owner, 0, 0)
	if err != nil {
		t.Fatalf("mine: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("want 2 own gigs, got %d", len(mine))
	}
	if _, err := c.Mine(ctx, alice, 0, 0); !errors.Is(err, failure.ErrUnauthorized) {
		t.Fatalf("freelancer dashboard: want Unauthorized, got %v", err)
	}
}

func TestDetailUnknown(t *testing.T) {
	c, _ := setup(t)
	if _, err := c.Detail(context.Background(), "missing", identity.Principal{}); !errors.Is(err, failure.ErrNotFound) {
		t.Fatalf("want NotFound, got %v", err)
	}
}
