package store

import (
	"encoding/json"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/gigboard/gigboard/src/gigs/lifecycle"
)

type GigType string

const (
	GigProject GigType = "project"
	GigBounty  GigType = "bounty"
	GigGrant   GigType = "grant"
)

func (t GigType) Valid() bool {
	return t == GigProject || t == GigBounty || t == GigGrant
}

// Gig is a published task. Its terms are frozen once a submission exists;
// only WinnersAnnounced changes after that.
type Gig struct {
	ID               string          `gorm:"primaryKey;size:36" json:"id"`
	OwnerID          string          `gorm:"size:64;index;not null" json:"owner_id"`
	Company          string          `gorm:"size:128;index;not null" json:"company"`
	Username         string          `gorm:"size:64;not null" json:"username"`
	Title            string          `gorm:"size:255;not null" json:"title"`
	Description      string          `gorm:"type:text;not null" json:"description"`
	Type             GigType         `gorm:"size:16;not null" json:"type"`
	Deadline         time.Time       `gorm:"index;not null" json:"deadline"`
	TotalBounty      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"total_bounty"`
	Prizes           []Prize         `gorm:"foreignKey:GigID;constraint:OnDelete:RESTRICT" json:"bounty_breakdown"`
	SkillsRequired   datatypes.JSON  `json:"skills_required"`
	ContactInfo      string          `gorm:"size:255" json:"contact_info"`
	WinnersAnnounced bool            `gorm:"not null;default:false" json:"winners_announced"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// State is the slice of the gig the lifecycle derives its phase from.
func (g Gig) State() lifecycle.State {
	return lifecycle.State{OwnerID: g.OwnerID, Deadline: g.Deadline, WinnersAnnounced: g.WinnersAnnounced}
}

// Skills decodes SkillsRequired.
func (g Gig) Skills() []string {
	var out []string
	if len(g.SkillsRequired) == 0 {
		return out
	}
	if err := json.Unmarshal(g.SkillsRequired, &out); err != nil {
		log.Printf("store: gig %s: decode skills_required: %v", g.ID, err)
		return nil
	}
	return out
}

// SkillsJSON encodes a skill list for SkillsRequired.
func SkillsJSON(skills []string) datatypes.JSON {
	if skills == nil {
		skills = []string{}
	}
	b, _ := json.Marshal(skills)
	return datatypes.JSON(b)
}

// Prize is one entry of a gig's bounty breakdown.
type Prize struct {
	GigID  string          `gorm:"primaryKey;size:36" json:"-"`
	Place  int             `gorm:"primaryKey;autoIncrement:false" json:"place"`
	Amount decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
}

// Submission is a contributor's claim of completion. One per (gig, contributor), never mutated.
type Submission struct {
	GigID               string    `gorm:"primaryKey;size:36" json:"gig_id"`
	ContributorUsername string    `gorm:"primaryKey;size:64" json:"contributor_username"`
	ContributorID       string    `gorm:"size:64;not null" json:"-"`
	SubmissionLink      string    `gorm:"size:512;not null" json:"submission_link"`
	WalletAddress       string    `gorm:"size:128;not null" json:"wallet_address"`
	ContactEmail        string    `gorm:"size:255" json:"contact_email"`
	CreatedAt           time.Time `json:"created_at"`
}

// Winner is a committed (contributor, place, amount) award.
type Winner struct {
	GigID               string          `gorm:"primaryKey;size:36;uniqueIndex:idx_winners_gig_contributor,priority:1" json:"gig_id"`
	Place               int             `gorm:"primaryKey;autoIncrement:false" json:"place"`
	ContributorUsername string          `gorm:"size:64;not null;uniqueIndex:idx_winners_gig_contributor,priority:2" json:"contributor_username"`
	Amount              decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	CreatedAt           time.Time       `json:"created_at"`
}

// ChatMessage is one entry of a gig's chat log, ordered by (CreatedAt, ID).
type ChatMessage struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	GigID          string    `gorm:"size:36;not null;index:idx_chat_gig_order,priority:1" json:"gig_id"`
	AuthorUsername string    `gorm:"size:64;not null" json:"author_username"`
	Body           string    `gorm:"size:1024;not null" json:"body"`
	CreatedAt      time.Time `gorm:"index:idx_chat_gig_order,priority:2" json:"created_at"`
}

// Profile is the public face of a principal. Rows are owned by the identity provider.
type Profile struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Username    string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Role        string    `gorm:"size:16;not null" json:"role"`
	DisplayName string    `gorm:"size:128" json:"display_name,omitempty"`
	About       string    `gorm:"type:text" json:"about,omitempty"`
	AvatarKey   string    `gorm:"size:255" json:"-"`
	TwitterURL  string    `gorm:"size:255" json:"twitter_url,omitempty"`
	GithubURL   string    `gorm:"size:255" json:"github_url,omitempty"`
	TelegramURL string    `gorm:"size:255" json:"telegram_url,omitempty"`
	WebsiteURL  string    `gorm:"size:255" json:"website_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Models lists every record type the core persists, in migration order.
var Models = []interface{}{
	&Gig{}, &Prize{}, &Submission{}, &Winner{}, &ChatMessage{}, &Profile{},
}
