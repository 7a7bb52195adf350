package data

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/gigboard/gigboard/src/gigs/chat"
	"github.com/gigboard/gigboard/src/gigs/store"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestChatStreamPublish(t *testing.T) {
	_, rdb := newRedis(t)
	ctx := context.Background()

	ev := chat.Event{Kind: chat.EventPosted, Message: store.ChatMessage{ID: 7, GigID: "g1", AuthorUsername: "alice", Body: "hi"}}
	if err := NewChatStream(rdb).Publish(ctx, ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	entries, err := rdb.XRange(ctx, streamChat, "-", "+").Result()
	if err != nil {
		t.Fatalf("xrange: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("want 1 entry, got %d", len(entries))
	}
	if entries[0].Values["kind"] != "posted" || entries[0].Values["gig_id"] != "g1" {
		t.Fatalf("unexpected entry %v", entries[0].Values)
	}
}

func TestRevocations(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()
	r := NewRevocations(rdb)

	if err := r.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := r.Revoke(ctx, "jti-old", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("revoke expired: %v", err)
	}

	for id, want := range map[string]bool{"jti-1": true, "jti-old": false, "jti-2": false} {
		got, err := r.IsRevoked(ctx, id)
		if err != nil {
			t.Fatalf("is revoked: %v", err)
		}
		if got != want {
			t.Errorf("%s: revoked=%v, want %v", id, got, want)
		}
	}

	mr.FastForward(2 * time.Hour)
	if got, _ := r.IsRevoked(ctx, "jti-1"); got {
		t.Fatal("revocation should lapse with the credential")
	}

	mr.Close()
	if _, err := r.IsRevoked(ctx, "jti-1"); err == nil {
		t.Fatal("want error when redis is down")
	}
}
