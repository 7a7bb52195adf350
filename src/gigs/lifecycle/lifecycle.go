// Package lifecycle derives a gig's phase and gates the operations legal in it.
//
// The phase is never stored. Only winners_announced is persisted, because a
// wall-clock comparison cannot tell whether a gig was already finalized.
package lifecycle

import (
	"time"

	"github.com/gigboard/gigboard/src/gigs/identity"
)

type Phase string

const (
	// PhaseOpen accepts submissions. A freshly published gig (draft) is open.
	PhaseOpen         Phase = "open"
	PhasePastDeadline Phase = "past_deadline"
	PhaseClosed       Phase = "closed"
)

// State is the part of a gig the lifecycle depends on.
type State struct {
	OwnerID          string
	Deadline         time.Time
	WinnersAnnounced bool
}

// PhaseOf derives the phase at now.
func PhaseOf(s State, now time.Time) Phase {
	switch {
	case s.WinnersAnnounced:
		return PhaseClosed
	case !now.Before(s.Deadline):
		return PhasePastDeadline
	default:
		return PhaseOpen
	}
}

// IsTerminal reports whether no further submissions can ever be accepted.
func IsTerminal(p Phase) bool {
	return p == PhasePastDeadline || p == PhaseClosed
}

// CanSubmit holds while now < deadline and winners are not announced.
func CanSubmit(s State, now time.Time) bool {
	return PhaseOf(s, now) == PhaseOpen
}

// CanDeclareWinners holds for the owning organization until winners are
// announced, independent of time so an organization may close early.
func CanDeclareWinners(s State, caller identity.Principal) bool {
	return caller.Role == identity.RoleBusiness &&
		caller.ID != "" &&
		caller.ID == s.OwnerID &&
		!s.WinnersAnnounced
}

// Actions lists what caller may do on the gig at now.
type Actions struct {
	Phase              Phase `json:"phase"`
	CanSubmit          bool  `json:"can_submit"`
	CanDeclare         bool  `json:"can_declare_winners"`
	CanAmend           bool  `json:"can_amend"`
	CanViewSubmissions bool  `json:"can_view_submissions"`
}

// Allowed summarises the legal actions for caller. hasSubmissions tells
// whether the gig has accrued any submission, which freezes its terms.
func Allowed(s State, caller identity.Principal, now time.Time, hasSubmissions bool) Actions {
	owner := caller.Role == identity.RoleBusiness && caller.ID != "" && caller.ID == s.OwnerID
	return Actions{
		Phase:              PhaseOf(s, now),
		CanSubmit:          caller.Role == identity.RoleFreelancer && CanSubmit(s, now),
		CanDeclare:         CanDeclareWinners(s, caller),
		CanAmend:           owner && !hasSubmissions && !s.WinnersAnnounced,
		CanViewSubmissions: owner,
	}
}
