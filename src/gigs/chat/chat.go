// Package chat is the per-gig message log. Messages are ordered by
// (created_at, id), immutable, and deletable only by their author. The
// channel does not consult the gig's phase: chat stays open after close.
// Posts to one gig serialize on the gig row, so id order and created_at
// order agree.
package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"

	"github.com/gigboard/gigboard/src/gigs/failure"
	"github.com/gigboard/gigboard/src/gigs/identity"
	"github.com/gigboard/gigboard/src/gigs/store"
)

const MaxBodyRunes = 250

// Event is what a Publisher sees for every committed change.
type Event struct {
	Kind    string            `json:"kind"`
	Message store.ChatMessage `json:"message"`
}

const (
	EventPosted  = "posted"
	EventDeleted = "deleted"
)

// Publisher fans committed events out to push-delivery consumers. A failed
// publish is logged; the write it describes stands.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type Channel struct {
	store *store.Store
	pub   Publisher
	now   func() time.Time
	plain *bluemonday.Policy
}

func New(s *store.Store, pub Publisher, now func() time.Time) *Channel {
	if now == nil {
		now = time.Now
	}
	return &Channel{store: s, pub: pub, now: now, plain: bluemonday.StrictPolicy()}
}

// Post appends body to gigID's log.
func (c *Channel) Post(ctx context.Context, gigID string, author identity.Principal, body string) (store.ChatMessage, error) {
	if author.Username == "" {
		return store.ChatMessage{}, failure.ErrUnauthenticated
	}
	if !utf8.ValidString(body) {
		return store.ChatMessage{}, failure.Wrap(failure.ErrValidation, "message is not valid UTF-8")
	}
	body = strings.TrimSpace(c.plain.Sanitize(body))
	if body == "" {
		return store.ChatMessage{}, failure.Wrap(failure.ErrValidation, "message is blank")
	}
	if n := utf8.RuneCountInString(body); n > MaxBodyRunes {
		return store.ChatMessage{}, failure.Wrap(failure.ErrValidation, "message is %d characters, limit is %d", n, MaxBodyRunes)
	}

	var msg store.ChatMessage
	err := c.store.Transact(ctx, func(tx *gorm.DB) error {
		if _, err := store.GetGig(tx, gigID, store.LockUpdate); err != nil {
			return err
		}
		at := c.now().UTC().Truncate(time.Millisecond)

		// A clock step backwards must not reorder the log; ties fall to id.
		var last store.ChatMessage
		res := tx.Where("gig_id = ?", gigID).Order("created_at desc").Order("id desc").Limit(1).Find(&last)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 && at.Before(last.CreatedAt) {
			at = last.CreatedAt
		}

		msg = store.ChatMessage{GigID: gigID, AuthorUsername: author.Username, Body: body, CreatedAt: at}
		return tx.Create(&msg).Error
	})
	if err != nil {
		return store.ChatMessage{}, err
	}
	c.publish(ctx, Event{Kind: EventPosted, Message: msg})
	return msg, nil
}

// List returns gigID's whole log, oldest first. It holds no cursor state, so
// re-fetching is always safe.
func (c *Channel) List(ctx context.Context, gigID string) ([]store.ChatMessage, error) {
	out := []store.ChatMessage{}
	err := c.store.Read(ctx, func(db *gorm.DB) error {
		if _, err := store.GetGig(db, gigID, store.NoLock); err != nil {
			return err
		}
		return db.Where("gig_id = ?", gigID).Order("created_at asc").Order("id asc").Find(&out).Error
	})
	return out, err
}

// Delete removes message id when caller wrote it.
func (c *Channel) Delete(ctx context.Context, id uint64, caller identity.Principal) error {
	if caller.Username == "" {
		return failure.ErrUnauthenticated
	}

	var msg store.ChatMessage
	err := c.store.Transact(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&msg, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return failure.Wrap(failure.ErrNotFound, "message %d", id)
			}
			return err
		}
		if msg.AuthorUsername != caller.Username {
			return failure.Wrap(failure.ErrUnauthorized, "only the author can delete a message")
		}
		res := tx.Where("id = ? AND author_username = ?", id, caller.Username).Delete(&store.ChatMessage{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return failure.Wrap(failure.ErrNotFound, "message %d", id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.publish(ctx, Event{Kind: EventDeleted, Message: msg})
	return nil
}

func (c *Channel) publish(ctx context.Context, ev Event) {
	if c.pub == nil {
		return
	}
	if err := c.pub.Publish(ctx, ev); err != nil {
		log.Printf("chat: publish %s for gig %s: %v", ev.Kind, ev.Message.GigID, err)
	}
}
