package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"pkg.world.dev/scrim/codec"
	"pkg.world.dev/scrim/storage"
	"pkg.world.dev/scrim/types"
)

// QueueStorage backs both phase queues: a rating-scored ZSET index per
// queue plus one TTL'd JSON payload per queued party. The index and
// the payload can expire out of step; scans prune index members whose
// payload is already gone.
type QueueStorage struct {
	Client    *redis.Client
	Namespace string
}

func NewQueueStorage(client *redis.Client, namespace string) QueueStorage {
	return QueueStorage{Client: client, Namespace: namespace}
}

func (r *QueueStorage) EnqueueTeam(ctx context.Context, entry *types.TeamQueueEntry, ttl time.Duration) error {
	bz, err := codec.Encode(entry)
	if err != nil {
		return err
	}
	pipe := r.Client.TxPipeline()
	pipe.ZAdd(ctx, teamIndexKey(r.Namespace, entry.MatchType), redis.Z{
		Score:  float64(entry.Rating),
		Member: entry.PartyID,
	})
	pipe.Set(ctx, teamEntryKey(r.Namespace, entry.PartyID), bz, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapErr(err)
	}
	return nil
}

func (r *QueueStorage) DequeueTeam(ctx context.Context, matchType types.MatchType, partyID string) error {
	pipe := r.Client.TxPipeline()
	pipe.ZRem(ctx, teamIndexKey(r.Namespace, matchType), partyID)
	pipe.Del(ctx, teamEntryKey(r.Namespace, partyID))
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapErr(err)
	}
	return nil
}

func (r *QueueStorage) GetTeamEntry(ctx context.Context, partyID string) (*types.TeamQueueEntry, error) {
	bz, err := r.Client.Get(ctx, teamEntryKey(r.Namespace, partyID)).Bytes()
	if err != nil {
		return nil, wrapErr(err)
	}
	entry, err := codec.Decode[types.TeamQueueEntry](bz)
	if err != nil {
		return nil, err
	}
	if entry.Kind != types.KindFullParty || entry.V != types.SchemaVersion {
		return nil, eris.Wrap(storage.ErrCorruptRecord, "unexpected full-party payload")
	}
	return &entry, nil
}

func (r *QueueStorage) ScanTeamRange(
	ctx context.Context,
	matchType types.MatchType,
	minRating int,
	maxRating int,
) ([]*types.TeamQueueEntry, error) {
	ids, err := r.scanIndex(ctx, teamIndexKey(r.Namespace, matchType), minRating, maxRating)
	if err != nil {
		return nil, err
	}
	entries := make([]*types.TeamQueueEntry, 0, len(ids))
	var stale []any
	for _, id := range ids {
		entry, err := r.GetTeamEntry(ctx, id)
		if eris.Is(err, storage.ErrNotFound) {
			stale = append(stale, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := r.pruneIndex(ctx, teamIndexKey(r.Namespace, matchType), stale); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *QueueStorage) CountTeamQueue(ctx context.Context, matchType types.MatchType) (int64, error) {
	n, err := r.Client.ZCard(ctx, teamIndexKey(r.Namespace, matchType)).Result()
	if err != nil {
		return 0, wrapErr(err)
	}
	return n, nil
}

func (r *QueueStorage) TeamQueueIDs(ctx context.Context, matchType types.MatchType) ([]string, error) {
	ids, err := r.Client.ZRange(ctx, teamIndexKey(r.Namespace, matchType), 0, -1).Result()
	if err != nil {
		return nil, wrapErr(err)
	}
	return ids, nil
}

func (r *QueueStorage) EnqueueTeammate(ctx context.Context, entry *types.TeammateQueueEntry, ttl time.Duration) error {
	bz, err := codec.Encode(entry)
	if err != nil {
		return err
	}
	pipe := r.Client.TxPipeline()
	pipe.ZAdd(ctx, mateIndexKey(r.Namespace), redis.Z{
		Score:  float64(entry.Rating),
		Member: entry.PartyID,
	})
	pipe.Set(ctx, mateEntryKey(r.Namespace, entry.PartyID), bz, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapErr(err)
	}
	return nil
}

func (r *QueueStorage) DequeueTeammate(ctx context.Context, partyID string) error {
	pipe := r.Client.TxPipeline()
	pipe.ZRem(ctx, mateIndexKey(r.Namespace), partyID)
	pipe.Del(ctx, mateEntryKey(r.Namespace, partyID))
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapErr(err)
	}
	return nil
}

func (r *QueueStorage) GetTeammateEntry(ctx context.Context, partyID string) (*types.TeammateQueueEntry, error) {
	bz, err := r.Client.Get(ctx, mateEntryKey(r.Namespace, partyID)).Bytes()
	if err != nil {
		return nil, wrapErr(err)
	}
	entry, err := codec.Decode[types.TeammateQueueEntry](bz)
	if err != nil {
		return nil, err
	}
	if entry.Kind != types.KindTeammate || entry.V != types.SchemaVersion {
		return nil, eris.Wrap(storage.ErrCorruptRecord, "unexpected teammate payload")
	}
	return &entry, nil
}

func (r *QueueStorage) ScanTeammateRange(ctx context.Context, minRating int, maxRating int) ([]*types.TeammateQueueEntry, error) {
	ids, err := r.scanIndex(ctx, mateIndexKey(r.Namespace), minRating, maxRating)
	if err != nil {
		return nil, err
	}
	entries := make([]*types.TeammateQueueEntry, 0, len(ids))
	var stale []any
	for _, id := range ids {
		entry, err := r.GetTeammateEntry(ctx, id)
		if eris.Is(err, storage.ErrNotFound) {
			stale = append(stale, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := r.pruneIndex(ctx, mateIndexKey(r.Namespace), stale); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *QueueStorage) TeammateQueueIDs(ctx context.Context) ([]string, error) {
	ids, err := r.Client.ZRange(ctx, mateIndexKey(r.Namespace), 0, -1).Result()
	if err != nil {
		return nil, wrapErr(err)
	}
	return ids, nil
}

// scanIndex returns the party ids scored inside [minRating, maxRating]
// in ascending rating order.
func (r *QueueStorage) scanIndex(ctx context.Context, key string, minRating int, maxRating int) ([]string, error) {
	ids, err := r.Client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: strconv.Itoa(minRating),
		Max: strconv.Itoa(maxRating),
	}).Result()
	if err != nil {
		return nil, wrapErr(err)
	}
	return ids, nil
}

func (r *QueueStorage) pruneIndex(ctx context.Context, key string, stale []any) error {
	if len(stale) == 0 {
		return nil
	}
	if err := r.Client.ZRem(ctx, key, stale...).Err(); err != nil {
		return wrapErr(err)
	}
	return nil
}
