package chat_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gigboard/gigboard/src/gigs/chat"
	"github.com/gigboard/gigboard/src/gigs/failure"
	"github.com/gigboard/gigboard/src/gigs/identity"
	"github.com/gigboard/gigboard/src/gigs/store"
	"github.com/gigboard/gigboard/src/gigs/testdb"
)

var (
	t0    = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	alice = identity.Principal{ID: "u-alice", Username: "alice", Role: identity.RoleFreelancer}
	bob   = identity.Principal{ID: "u-bob", Username: "bob", Role: identity.RoleFreelancer}
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recorder struct {
	mu     sync.Mutex
	events []chat.Event
	err    error
}

func (r *recorder) Publish(ctx context.Context, ev chat.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func setup(t *testing.T) (*chat.Channel, store.Gig, *clock, *recorder) {
	t.Helper()
	db := testdb.Open(t)
	gig := testdb.SeedGig(t, db, "org-1", t0.Add(24*time.Hour))
	clk := &clock{now: t0}
	pub := &recorder{}
	return chat.New(store.New(db, store.DefaultRetry), pub, clk.Now), gig, clk, pub
}

func TestPostValidation(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		expect error
	}{
		{"blank", "   \n\t", failure.ErrValidation},
		{"251 code points", strings.Repeat("é", 251), failure.ErrValidation},
		{"250 code points", strings.Repeat("é", 250), nil},
		{"trimmed to fit", "  " + strings.Repeat("a", 250) + "  ", nil},
		{"invalid utf-8", strings.Repeat("\xff", 10) + "hi", failure.ErrValidation},
		{"markup only", "<b></b>", failure.ErrValidation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, gig, _, _ := setup(t)
			_, err := c.Post(context.Background(), gig.ID, alice, tc.body)
			if tc.expect == nil {
				if err != nil {
					t.Fatalf("post: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.expect) {
				t.Fatalf("want %v, got %v", tc.expect, err)
			}
		})
	}
}

func TestPostUnknownGig(t *testing.T) {
	c, _, _, _ := setup(t)
	if _, err := c.Post(context.Background(), "missing", alice, "hi"); !errors.Is(err, failure.ErrNotFound) {
		t.Fatalf("want NotFound, got %v", err)
	}
}

func TestListOrdersByTimeThenID(t *testing.T) {
	c, gig, clk, pub := setup(t)
	ctx := context.Background()

	first, err := c.Post(ctx, gig.ID, alice, "first")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	second, err := c.Post(ctx, gig.ID, bob, "same instant")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	clk.Set(t0.Add(-time.Minute))
	third, err := c.Post(ctx, gig.ID, alice, "clock went back")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if third.CreatedAt.Before(second.CreatedAt) {
		t.Fatalf("created_at went backwards: %v < %v", third.CreatedAt, second.CreatedAt)
	}

	msgs, err := c.List(ctx, gig.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []uint64{first.ID, second.ID, third.ID}
	if len(msgs) != len(want) {
		t.Fatalf("want %d messages, got %d", len(want), len(msgs))
	}
	for i, id := range want {
		if msgs[i].ID != id {
			t.Fatalf("position %d: want id %d, got %d", i, id, msgs[i].ID)
		}
	}
	if last := msgs[len(msgs)-1]; last.Body != "clock went back" {
		t.Fatalf("newest post should be last, got %q", last.Body)
	}
	if len(pub.events) != 3 || pub.events[0].Kind != chat.EventPosted {
		t.Fatalf("unexpected events %+v", pub.events)
	}
}

func TestListEmptyIsNotNil(t *testing.T) {
	c, gig, _, _ := setup(t)
	msgs, err := c.List(context.Background(), gig.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if msgs == nil || len(msgs) != 0 {
		t.Fatalf("want empty slice, got %#v", msgs)
	}
}

func TestDeleteAuthorOnly(t *testing.T) {
	c, gig, _, pub := setup(t)
	ctx := context.Background()

	msg, err := c.Post(ctx, gig.ID, alice, "mine")
	if err != nil {
		t.Fatalf("post: %v", err)
	}

	if err := c.Delete(ctx, msg.ID, bob); !errors.Is(err, failure.ErrUnauthorized) {
		t.Fatalf("want Unauthorized, got %v", err)
	}
	msgs, _ := c.List(ctx, gig.ID)
	if len(msgs) != 1 {
		t.Fatal("message must survive a non-author delete")
	}

	if err := c.Delete(ctx, msg.ID, alice); err != nil {
		t.Fatalf("delete: %v", err)
	}
	msgs, _ = c.List(ctx, gig.ID)
	if len(msgs) != 0 {
		t.Fatalf("message still listed: %+v", msgs)
	}
	if got := pub.events[len(pub.events)-1]; got.Kind != chat.EventDeleted || got.Message.ID != msg.ID {
		t.Fatalf("unexpected last event %+v", got)
	}

	if err := c.Delete(ctx, msg.ID, alice); !errors.Is(err, failure.ErrNotFound) {
		t.Fatalf("want NotFound, got %v", err)
	}
}

func TestPublishFailureKeepsMessage(t *testing.T) {
	c, gig, _, pub := setup(t)
	pub.err = errors.New("stream down")

	if _, err := c.Post(context.Background(), gig.ID, alice, "still here"); err != nil {
		t.Fatalf("post: %v", err)
	}
	msgs, _ := c.List(context.Background(), gig.ID)
	if len(msgs) != 1 {
		t.Fatal("message lost on publish failure")
	}
}

func TestConcurrentPostsKeepIDAndTimeOrder(t *testing.T) {
	c, gig, _, _ := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Post(ctx, gig.ID, alice, "racing"); err != nil {
				t.Errorf("post: %v", err)
			}
		}()
	}
	wg.Wait()

	msgs, err := c.List(ctx, gig.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 8 {
		t.Fatalf("want 8 messages, got %d", len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].ID < msgs[i-1].ID || msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt) {
			t.Fatalf("order broken at %d: %+v then %+v", i, msgs[i-1], msgs[i])
		}
	}
}
