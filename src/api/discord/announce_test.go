package discord

import (
	"context"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"

	"github.com/gigboard/gigboard/src/gigs/store"
)

type fakeSender struct {
	channel string
	sent    *discordgo.MessageSend
}

func (f *fakeSender) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channel = channelID
	f.sent = data
	return &discordgo.Message{ID: "1"}, nil
}

func TestAnnounceWinners(t *testing.T) {
	s := &fakeSender{}
	a := NewAnnouncer(s, "chan-1", "https://gigs.example/")

	gig := store.Gig{ID: "g1", Title: "Index the archive", Company: "Acme", TotalBounty: decimal.NewFromInt(1000)}
	winners := []store.Winner{
		{Place: 1, ContributorUsername: "alice", Amount: decimal.NewFromInt(700)},
		{Place: 2, ContributorUsername: "bob", Amount: decimal.NewFromInt(300)},
	}
	if err := a.AnnounceWinners(context.Background(), gig, winners); err != nil {
		t.Fatalf("announce: %v", err)
	}

	if s.channel != "chan-1" || s.sent == nil || len(s.sent.Embeds) != 1 {
		t.Fatalf("unexpected send to %q: %+v", s.channel, s.sent)
	}
	e := s.sent.Embeds[0]
	if len(e.Fields) != 2 || e.Fields[0].Name != "1st place" || e.Fields[1].Value != "bob, 300.00" {
		t.Fatalf("unexpected fields %+v %+v", e.Fields[0], e.Fields[1])
	}
	if !strings.Contains(e.Description, "<https://gigs.example/gigs/g1>") {
		t.Fatalf("link should not unfurl: %q", e.Description)
	}
}

func TestNoEmbed(t *testing.T) {
	tests := map[string]string{
		"":                                "",
		"no links here":                   "no links here",
		"see https://a.example/x.":        "see <https://a.example/x>.",
		"(http://a.example) and more":     "(<http://a.example>) and more",
		"two https://a.io https://b.io!?": "two <https://a.io> <https://b.io>!?",
	}
	for in, want := range tests {
		if got := noEmbed(in); got != want {
			t.Errorf("noEmbed(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOrdinal(t *testing.T) {
	for n, want := range map[int]string{1: "1st", 2: "2nd", 3: "3rd", 4: "4th", 11: "11th", 12: "12th", 13: "13th", 21: "21st", 102: "102nd"} {
		if got := ordinal(n); got != want {
			t.Errorf("ordinal(%d) = %q, want %q", n, got, want)
		}
	}
}
