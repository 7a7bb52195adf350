package discord

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/gigboard/gigboard/src/gigs/store"
)

// Sender is the slice of *discordgo.Session the announcer uses.
type Sender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Announcer posts committed winner sets to a Discord channel.
type Announcer struct {
	s           Sender
	channelID   string
	frontendURL string
}

func NewAnnouncer(s Sender, channelID, frontendURL string) *Announcer {
	return &Announcer{s: s, channelID: channelID, frontendURL: strings.TrimRight(frontendURL, "/")}
}

// Open starts a bot session for token. The caller closes it on shutdown.
func Open(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages
	if err := s.Open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (a *Announcer) AnnounceWinners(ctx context.Context, gig store.Gig, winners []store.Winner) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := a.s.ChannelMessageSendComplex(a.channelID, a.message(gig, winners),
		discordgo.WithContext(ctx))
	return err
}

func (a *Announcer) message(gig store.Gig, winners []store.Winner) *discordgo.MessageSend {
	fields := make([]*discordgo.MessageEmbedField, 0, len(winners))
	for _, w := range winners {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   ordinal(w.Place) + " place",
			Value:  fmt.Sprintf("%s, %s", w.ContributorUsername, w.Amount.StringFixed(2)),
			Inline: true,
		})
	}

	link := fmt.Sprintf("%s/gigs/%s", a.frontendURL, gig.ID)
	embed := &discordgo.MessageEmbed{
		Title:       truncate(gig.Title, 250),
		Description: noEmbed(fmt.Sprintf("%s announced the winners. Details: %s", gig.Company, link)),
		Color:       0x2ecc71,
		Fields:      fields,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Total bounty " + gig.TotalBounty.StringFixed(2)},
	}
	return &discordgo.MessageSend{
		Content: noEmbed(fmt.Sprintf("Winners announced for **%s**", truncate(gig.Title, 200))),
		Embeds:  []*discordgo.MessageEmbed{embed},
	}
}

var urlPattern = regexp.MustCompile(`https?://[^\s\[\]()<>]+`)

// noEmbed wraps bare URLs in angle brackets so Discord does not unfurl them.
func noEmbed(text string) string {
	return urlPattern.ReplaceAllStringFunc(text, func(u string) string {
		core := strings.TrimRight(u, ".,;:!?)")
		if core == "" {
			return u
		}
		return "<" + core + ">" + u[len(core):]
	})
}

func ordinal(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
