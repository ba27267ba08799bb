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

// MatchStorage stores pairing results under both party ids and owns
// the claim keys that serialize concurrent pairing attempts on the
// same party.
type MatchStorage struct {
	Client    *redis.Client
	Namespace string
}

func NewMatchStorage(client *redis.Client, namespace string) MatchStorage {
	return MatchStorage{Client: client, Namespace: namespace}
}

func (r *MatchStorage) SaveMatch(ctx context.Context, result *types.TeamMatchResult, ttl time.Duration) error {
	bz, err := codec.Encode(result)
	if err != nil {
		return err
	}
	pipe := r.Client.TxPipeline()
	pipe.Set(ctx, matchKey(r.Namespace, result.TeamA.PartyID), bz, ttl)
	pipe.Set(ctx, matchKey(r.Namespace, result.TeamB.PartyID), bz, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapErr(err)
	}
	return nil
}

func (r *MatchStorage) GetMatch(ctx context.Context, partyID string) (*types.TeamMatchResult, error) {
	bz, err := r.Client.Get(ctx, matchKey(r.Namespace, partyID)).Bytes()
	if err != nil {
		return nil, wrapErr(err)
	}
	result, err := codec.Decode[types.TeamMatchResult](bz)
	if err != nil {
		return nil, err
	}
	if result.Kind != types.KindMatchResult || result.V != types.SchemaVersion {
		return nil, eris.Wrap(storage.ErrCorruptRecord, "unexpected match result payload")
	}
	return &result, nil
}

func (r *MatchStorage) ClaimParty(ctx context.Context, partyID string, matchID string, ttl time.Duration) (bool, error) {
	won, err := r.Client.SetNX(ctx, matchClaimKey(r.Namespace, partyID), matchID, ttl).Result()
	if err != nil {
		return false, wrapErr(err)
	}
	return won, nil
}

func (r *MatchStorage) ReleaseClaim(ctx context.Context, partyID string) error {
	if err := r.Client.Del(ctx, matchClaimKey(r.Namespace, partyID)).Err(); err != nil {
		return wrapErr(err)
	}
	return nil
}
