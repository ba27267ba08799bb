package redis

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"

	"pkg.world.dev/scrim/codec"
	"pkg.world.dev/scrim/types"
)

// PartyStorage is the reference implementation of the party-state
// boundary: durable JSON snapshots, no TTL. The platform's own social
// service can replace it behind the PartyStore interface.
type PartyStorage struct {
	Client    *redis.Client
	Namespace string
}

func NewPartyStorage(client *redis.Client, namespace string) PartyStorage {
	return PartyStorage{Client: client, Namespace: namespace}
}

func (r *PartyStorage) GetParty(ctx context.Context, partyID string) (*types.PartySnapshot, error) {
	bz, err := r.Client.Get(ctx, partyKey(r.Namespace, partyID)).Bytes()
	if err != nil {
		return nil, wrapErr(err)
	}
	snapshot, err := codec.Decode[types.PartySnapshot](bz)
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *PartyStorage) SaveParty(ctx context.Context, snapshot *types.PartySnapshot) error {
	bz, err := codec.Encode(snapshot)
	if err != nil {
		return err
	}
	if err := r.Client.Set(ctx, partyKey(r.Namespace, snapshot.ID), bz, 0).Err(); err != nil {
		return wrapErr(err)
	}
	return nil
}

func (r *PartyStorage) DeleteParty(ctx context.Context, partyID string) error {
	if err := r.Client.Del(ctx, partyKey(r.Namespace, partyID)).Err(); err != nil {
		return wrapErr(err)
	}
	return nil
}

func (r *PartyStorage) PartyIDs(ctx context.Context) ([]string, error) {
	prefix := partyKeyPrefix(r.Namespace)
	var ids []string
	iter := r.Client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, wrapErr(err)
	}
	return ids, nil
}
