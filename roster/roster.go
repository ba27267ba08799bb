// Package roster coordinates an assembled team through IGL and Anchor
// selection: one replaceable vote per member per role, strict-majority
// promotion, direct selection by the tie-break authority, constituent
// secession, and the confirmation that materializes a unified party
// and submits it to the ranked full-party queue.
package roster

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/scrim/metrics"
	"pkg.world.dev/scrim/party"
	"pkg.world.dev/scrim/queue"
	"pkg.world.dev/scrim/storage"
	"pkg.world.dev/scrim/types"
)

var (
	ErrTeamNotFound = errors.New("assembled team not found")
	ErrNotOnTeam    = errors.New("caller is not on the assembled team")
	ErrNotAuthority = errors.New("caller is not the tie-break authority")

	// ErrInvalidCandidate rejects votes and assignments naming someone
	// outside the team.
	ErrInvalidCandidate = errors.New("candidate is not on the assembled team")

	// ErrAnchorIsIGL enforces role distinctness in both directions.
	ErrAnchorIsIGL = errors.New("anchor and igl must be different players")

	ErrRolesUnassigned = errors.New("confirmation requires both igl and anchor")
	ErrTeamNotFull     = errors.New("confirmation requires a full team of five")
	ErrNotConstituent  = errors.New("party is not a constituent of the team")
)

// Role names the two selectable roles.
type Role string

const (
	RoleIGL    Role = "igl"
	RoleAnchor Role = "anchor"
)

// Config carries the roster lifetime tunables.
type Config struct {
	// SelectionWindow is the roster's full TTL, counted from assembly.
	SelectionWindow time.Duration
	// Grace is the shortened TTL a shrunken roster gets after a
	// secession.
	Grace time.Duration
}

// Service mutates assembled teams in the ephemeral store. Every save
// re-persists with the time remaining on the selection window, so
// mutations never extend a roster's life.
type Service struct {
	store   storage.Storage
	parties *party.Service
	teams   *queue.TeamService
	cfg     Config
	clock   func() time.Time
	log     zerolog.Logger
}

func NewService(
	store storage.Storage,
	parties *party.Service,
	teams *queue.TeamService,
	cfg Config,
	clock func() time.Time,
) *Service {
	return &Service{
		store:   store,
		parties: parties,
		teams:   teams,
		cfg:     cfg,
		clock:   clock,
		log:     log.With().Str("component", "roster").Logger(),
	}
}

// Select records a vote or a direct assignment for one of the two
// roles and returns the updated team. A vote replaces the caller's
// previous vote for that role; a candidate reaching a strict majority
// is promoted on the spot. Direct assignment bypasses voting and is
// restricted to the tie-break authority.
func (s *Service) Select(
	ctx context.Context,
	callerID string,
	teamID string,
	candidateID string,
	role Role,
	isVote bool,
) (*types.AssembledTeam, error) {
	team, err := s.get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !team.HasMember(callerID) {
		return nil, eris.Wrapf(ErrNotOnTeam, "user %q", callerID)
	}
	if !team.HasMember(candidateID) {
		return nil, eris.Wrapf(ErrInvalidCandidate, "user %q", candidateID)
	}
	if err := checkRoleConflict(team, candidateID, role); err != nil {
		return nil, err
	}

	if isVote {
		votes := s.recordVote(team, callerID, candidateID, role)
		if winner, ok := types.MajorityCandidate(votes, types.MajorityVotes); ok {
			// Ballots surviving in an old record can tally a majority
			// for the sitting opposite-role holder. Drop them; an
			// ineligible candidate is never seated.
			if err := checkRoleConflict(team, winner, role); err != nil {
				dropBallots(votes, winner)
				s.log.Warn().
					Str("team_id", teamID).
					Str("user_id", winner).
					Str("role", string(role)).
					Msg("stale ballots for an ineligible candidate dropped")
			} else {
				promote(team, winner, role)
				s.log.Info().
					Str("team_id", teamID).
					Str("user_id", winner).
					Str("role", string(role)).
					Msg("candidate promoted by majority")
			}
		}
	} else {
		if team.AuthorityID != callerID {
			return nil, eris.Wrapf(ErrNotAuthority, "user %q", callerID)
		}
		promote(team, candidateID, role)
	}

	if err := s.save(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

// Leave withdraws a constituent party before confirmation. Its members
// and their votes are stripped, votes cast for them are dropped, any
// role they held is cleared, and the shrunken roster is re-persisted
// with a short grace TTL, or deleted once nobody remains. Withdrawn
// members are not re-queued here; that is the caller's decision.
func (s *Service) Leave(ctx context.Context, callerID string, teamID string, partyID string) (*types.AssembledTeam, error) {
	team, err := s.get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !team.HasParty(partyID) {
		return nil, eris.Wrapf(ErrNotConstituent, "party %q is not part of team %q", partyID, teamID)
	}
	snapshot, err := s.parties.Snapshot(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if err := party.RequireLeader(snapshot, callerID); err != nil {
		return nil, err
	}

	leaving := map[string]bool{}
	var members []types.RosterMember
	for _, m := range team.Members {
		if m.OriginPartyID == partyID {
			leaving[m.UserID] = true
			continue
		}
		members = append(members, m)
	}
	team.Members = members

	partyIDs := make([]string, 0, len(team.PartyIDs))
	for _, id := range team.PartyIDs {
		if id != partyID {
			partyIDs = append(partyIDs, id)
		}
	}
	team.PartyIDs = partyIDs

	if leaving[team.IGLID] {
		team.IGLID = ""
	}
	if leaving[team.AnchorID] {
		team.AnchorID = ""
	}
	stripVotes(team.IGLVotes, leaving)
	stripVotes(team.AnchorVotes, leaving)

	if err := s.store.UnlinkRosterParty(ctx, partyID); err != nil {
		return nil, err
	}
	s.parties.ClearQueueStateIf(ctx, partyID, types.QueueStateRoster)

	if len(team.Members) == 0 {
		team.Phase = types.RosterPhaseDisbanded
		if err := s.store.DeleteRoster(ctx, team); err != nil {
			return nil, err
		}
		metrics.RostersDisbanded.Inc()
		s.log.Info().Str("team_id", team.ID).Msg("assembled team disbanded")
		return team, nil
	}

	if err := s.store.SaveRoster(ctx, team, s.cfg.Grace); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("team_id", team.ID).
		Str("party_id", partyID).
		Int("remaining", team.Size()).
		Msg("party seceded from assembled team")
	return team, nil
}

// ConfirmResult carries everything a confirmation produces.
type ConfirmResult struct {
	Team  *types.AssembledTeam  `json:"team"`
	Party *types.PartySnapshot  `json:"party"`
	Entry *types.TeamQueueEntry `json:"entry"`
}

// Confirm locks the selection in. It requires a full team with both
// roles assigned to two different players, materializes the unified
// party led by the tie-break authority, dissolves the constituent
// parties, deletes the roster keys, and immediately submits the new
// party to the ranked full-party queue. Every check runs before the
// first destructive step; a rejected confirmation leaves the roster
// and its constituents untouched.
func (s *Service) Confirm(ctx context.Context, callerID string, teamID string) (*ConfirmResult, error) {
	team, err := s.get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.AuthorityID != callerID {
		return nil, eris.Wrapf(ErrNotAuthority, "user %q", callerID)
	}
	if team.Size() != types.RosterSize {
		return nil, eris.Wrapf(ErrTeamNotFull, "team %q has %d members", teamID, team.Size())
	}
	if team.IGLID == "" || team.AnchorID == "" {
		return nil, ErrRolesUnassigned
	}
	if team.IGLID == team.AnchorID {
		return nil, eris.Wrapf(ErrAnchorIsIGL, "user %q holds both roles", team.IGLID)
	}

	unified, err := s.parties.Materialize(ctx, team)
	if err != nil {
		return nil, err
	}
	if err := s.parties.Dissolve(ctx, team.PartyIDs...); err != nil {
		return nil, err
	}
	if err := s.store.DeleteRoster(ctx, team); err != nil {
		return nil, err
	}
	team.Phase = types.RosterPhaseConfirmed

	entry, err := s.teams.Join(ctx, unified.LeaderID, unified.ID, types.MatchTypeRanked)
	if err != nil {
		return nil, err
	}
	metrics.RostersConfirmed.Inc()
	s.log.Info().
		Str("team_id", teamID).
		Str("party_id", unified.ID).
		Msg("assembled team confirmed and queued ranked")
	return &ConfirmResult{Team: team, Party: unified, Entry: entry}, nil
}

func (s *Service) get(ctx context.Context, teamID string) (*types.AssembledTeam, error) {
	team, err := s.store.GetRoster(ctx, teamID)
	if err != nil {
		if eris.Is(err, storage.ErrNotFound) {
			return nil, eris.Wrapf(ErrTeamNotFound, "team %q", teamID)
		}
		return nil, err
	}
	return team, nil
}

// save re-persists the roster with whatever selection time remains. A
// roster whose window lapsed between read and write is dropped as if
// the TTL had fired.
func (s *Service) save(ctx context.Context, team *types.AssembledTeam) error {
	remaining := s.cfg.SelectionWindow - s.clock().Sub(time.UnixMilli(team.CreatedAt))
	if remaining <= 0 {
		if err := s.store.DeleteRoster(ctx, team); err != nil {
			return err
		}
		return eris.Wrapf(ErrTeamNotFound, "team %q selection window lapsed", team.ID)
	}
	return s.store.SaveRoster(ctx, team, remaining)
}

func (s *Service) recordVote(team *types.AssembledTeam, voterID string, candidateID string, role Role) map[string]string {
	if role == RoleAnchor {
		if team.AnchorVotes == nil {
			team.AnchorVotes = map[string]string{}
		}
		team.AnchorVotes[voterID] = candidateID
		return team.AnchorVotes
	}
	if team.IGLVotes == nil {
		team.IGLVotes = map[string]string{}
	}
	team.IGLVotes[voterID] = candidateID
	return team.IGLVotes
}

// checkRoleConflict rejects a candidate already holding the other
// role, in either direction.
func checkRoleConflict(team *types.AssembledTeam, candidateID string, role Role) error {
	switch role {
	case RoleIGL:
		if team.AnchorID != "" && team.AnchorID == candidateID {
			return eris.Wrapf(ErrAnchorIsIGL, "user %q is already anchor", candidateID)
		}
	case RoleAnchor:
		if team.IGLID != "" && team.IGLID == candidateID {
			return eris.Wrapf(ErrAnchorIsIGL, "user %q is already igl", candidateID)
		}
	}
	return nil
}

// promote seats the winner and discards the role's ballots, so a
// settled election never re-tallies on a later vote.
func promote(team *types.AssembledTeam, userID string, role Role) {
	if role == RoleAnchor {
		team.AnchorID = userID
		team.AnchorVotes = nil
		return
	}
	team.IGLID = userID
	team.IGLVotes = nil
}

// dropBallots removes every ballot naming the candidate.
func dropBallots(votes map[string]string, candidateID string) {
	for voter, candidate := range votes {
		if candidate == candidateID {
			delete(votes, voter)
		}
	}
}

// stripVotes drops votes cast by or for any of the leaving members.
func stripVotes(votes map[string]string, leaving map[string]bool) {
	for voter, candidate := range votes {
		if leaving[voter] || leaving[candidate] {
			delete(votes, voter)
		}
	}
}
