package data

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gigboard/gigboard/src/gigs/chat"
)

const (
	revokedPrefix = "revoked:"
	streamChat    = "gigboard.chat"
	streamMaxLen  = 10000
)

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

// ChatStream appends chat events to a capped Redis stream for push consumers.
type ChatStream struct {
	rdb    *redis.Client
	stream string
}

func NewChatStream(rdb *redis.Client) *ChatStream {
	return &ChatStream{rdb: rdb, stream: streamChat}
}

func (s *ChatStream) Publish(ctx context.Context, ev chat.Event) error {
	msg, err := json.Marshal(ev.Message)
	if err != nil {
		return err
	}
	return s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"kind":    ev.Kind,
			"gig_id":  ev.Message.GigID,
			"message": string(msg),
		},
	}).Err()
}

// Revocations tracks logged-out credentials until they would have expired.
type Revocations struct {
	rdb *redis.Client
}

func NewRevocations(rdb *redis.Client) *Revocations {
	return &Revocations{rdb: rdb}
}

func (r *Revocations) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, revokedPrefix+tokenID, "1", ttl).Err()
}

func (r *Revocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, revokedPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
