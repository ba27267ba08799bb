// Package storage declares the store interfaces the matchmaking engine
// is written against. The ephemeral stores (queues, rosters, matches)
// hold everything with a TTL and are the source of truth for who is
// currently searching; the durable stores (players, teams, parties)
// belong to the platform and are reached through the same narrow
// surface so the reference Redis implementation can be swapped out.
package storage

import (
	"context"
	"errors"
	"time"

	"pkg.world.dev/scrim/types"
)

var (
	// ErrNotFound is returned when a requested record does not exist or
	// its TTL has already fired.
	ErrNotFound = errors.New("record not found")

	// ErrUnavailable wraps every infrastructure-level store failure so
	// callers surface a uniform service-unavailable error.
	ErrUnavailable = errors.New("store unavailable")

	// ErrCorruptRecord is returned when a stored blob fails kind or
	// version validation.
	ErrCorruptRecord = errors.New("corrupt record")
)

type TeamQueueStore interface {
	// EnqueueTeam writes the entry payload and its rating-ordered index
	// member. Re-enqueueing the same party overwrites.
	EnqueueTeam(ctx context.Context, entry *types.TeamQueueEntry, ttl time.Duration) error
	DequeueTeam(ctx context.Context, matchType types.MatchType, partyID string) error
	GetTeamEntry(ctx context.Context, partyID string) (*types.TeamQueueEntry, error)
	// ScanTeamRange returns live entries with minRating <= rating <=
	// maxRating in ascending rating order. Index members whose payload
	// has expired are pruned as they are encountered.
	ScanTeamRange(ctx context.Context, matchType types.MatchType, minRating int, maxRating int) ([]*types.TeamQueueEntry, error)
	CountTeamQueue(ctx context.Context, matchType types.MatchType) (int64, error)
	TeamQueueIDs(ctx context.Context, matchType types.MatchType) ([]string, error)
}

type TeammateQueueStore interface {
	EnqueueTeammate(ctx context.Context, entry *types.TeammateQueueEntry, ttl time.Duration) error
	DequeueTeammate(ctx context.Context, partyID string) error
	GetTeammateEntry(ctx context.Context, partyID string) (*types.TeammateQueueEntry, error)
	ScanTeammateRange(ctx context.Context, minRating int, maxRating int) ([]*types.TeammateQueueEntry, error)
	TeammateQueueIDs(ctx context.Context) ([]string, error)
}

type RosterStore interface {
	// SaveRoster stores the team under its own id and refreshes the
	// by-party lookup key of every constituent, all with the same TTL.
	SaveRoster(ctx context.Context, team *types.AssembledTeam, ttl time.Duration) error
	GetRoster(ctx context.Context, teamID string) (*types.AssembledTeam, error)
	GetRosterByParty(ctx context.Context, partyID string) (*types.AssembledTeam, error)
	DeleteRoster(ctx context.Context, team *types.AssembledTeam) error
	UnlinkRosterParty(ctx context.Context, partyID string) error
}

type MatchStore interface {
	// SaveMatch stores the result under both party ids.
	SaveMatch(ctx context.Context, result *types.TeamMatchResult, ttl time.Duration) error
	GetMatch(ctx context.Context, partyID string) (*types.TeamMatchResult, error)
	// ClaimParty atomically claims a party for the given match id and
	// reports whether the claim was won.
	ClaimParty(ctx context.Context, partyID string, matchID string, ttl time.Duration) (bool, error)
	ReleaseClaim(ctx context.Context, partyID string) error
}

type PlayerStore interface {
	GetPlayer(ctx context.Context, userID string) (*types.PlayerRecord, error)
	SavePlayer(ctx context.Context, record *types.PlayerRecord) error
	// EnsurePlayer creates the record if and only if none exists yet.
	EnsurePlayer(ctx context.Context, record *types.PlayerRecord) error
}

type TeamStore interface {
	GetTeam(ctx context.Context, teamID string) (*types.TeamRecord, error)
	SaveTeam(ctx context.Context, record *types.TeamRecord) error
}

type PartyStore interface {
	GetParty(ctx context.Context, partyID string) (*types.PartySnapshot, error)
	SaveParty(ctx context.Context, snapshot *types.PartySnapshot) error
	DeleteParty(ctx context.Context, partyID string) error
	PartyIDs(ctx context.Context) ([]string, error)
}

// Storage is the combined surface the engine needs from its backing
// store.
type Storage interface {
	TeamQueueStore
	TeammateQueueStore
	RosterStore
	MatchStore
	PlayerStore
	TeamStore
	PartyStore
	Ping(ctx context.Context) error
	Close() error
}
