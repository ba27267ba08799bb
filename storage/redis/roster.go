package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"pkg.world.dev/scrim/codec"
	"pkg.world.dev/scrim/storage"
	"pkg.world.dev/scrim/types"
)

// RosterStorage holds assembled teams under their own id plus a
// by-party pointer key per constituent, so a seceding or polling party
// finds its roster without knowing the team id.
type RosterStorage struct {
	Client    *redis.Client
	Namespace string
}

func NewRosterStorage(client *redis.Client, namespace string) RosterStorage {
	return RosterStorage{Client: client, Namespace: namespace}
}

func (r *RosterStorage) SaveRoster(ctx context.Context, team *types.AssembledTeam, ttl time.Duration) error {
	bz, err := codec.Encode(team)
	if err != nil {
		return err
	}
	pipe := r.Client.TxPipeline()
	pipe.Set(ctx, rosterKey(r.Namespace, team.ID), bz, ttl)
	for _, partyID := range team.PartyIDs {
		pipe.Set(ctx, rosterPartyKey(r.Namespace, partyID), team.ID, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapErr(err)
	}
	return nil
}

func (r *RosterStorage) GetRoster(ctx context.Context, teamID string) (*types.AssembledTeam, error) {
	bz, err := r.Client.Get(ctx, rosterKey(r.Namespace, teamID)).Bytes()
	if err != nil {
		return nil, wrapErr(err)
	}
	team, err := codec.Decode[types.AssembledTeam](bz)
	if err != nil {
		return nil, err
	}
	if team.Kind != types.KindAssembled || team.V != types.SchemaVersion {
		return nil, eris.Wrap(storage.ErrCorruptRecord, "unexpected assembled team payload")
	}
	return &team, nil
}

func (r *RosterStorage) GetRosterByParty(ctx context.Context, partyID string) (*types.AssembledTeam, error) {
	teamID, err := r.Client.Get(ctx, rosterPartyKey(r.Namespace, partyID)).Result()
	if err != nil {
		return nil, wrapErr(err)
	}
	return r.GetRoster(ctx, teamID)
}

func (r *RosterStorage) DeleteRoster(ctx context.Context, team *types.AssembledTeam) error {
	pipe := r.Client.TxPipeline()
	pipe.Del(ctx, rosterKey(r.Namespace, team.ID))
	for _, partyID := range team.PartyIDs {
		pipe.Del(ctx, rosterPartyKey(r.Namespace, partyID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapErr(err)
	}
	return nil
}

func (r *RosterStorage) UnlinkRosterParty(ctx context.Context, partyID string) error {
	if err := r.Client.Del(ctx, rosterPartyKey(r.Namespace, partyID)).Err(); err != nil {
		return wrapErr(err)
	}
	return nil
}
