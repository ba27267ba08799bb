package redis

import (
	"context"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"pkg.world.dev/scrim/storage"
	"pkg.world.dev/scrim/types"
)

// profFieldPrefix marks per-operation proficiency fields inside the
// player hash, e.g. "prof:breaching" = 70.
const profFieldPrefix = "prof:"

// PlayerStorage is the reference durable rating store: one hash per
// player carrying the display fields, the rating and the tracked
// per-operation proficiencies.
type PlayerStorage struct {
	Client    *redis.Client
	Namespace string
}

func NewPlayerStorage(client *redis.Client, namespace string) PlayerStorage {
	return PlayerStorage{Client: client, Namespace: namespace}
}

func (r *PlayerStorage) GetPlayer(ctx context.Context, userID string) (*types.PlayerRecord, error) {
	values, err := r.Client.HGetAll(ctx, playerKey(r.Namespace, userID)).Result()
	if err != nil {
		return nil, wrapErr(err)
	}
	if len(values) == 0 {
		return nil, storage.ErrNotFound
	}
	record := &types.PlayerRecord{UserID: userID}
	for field, raw := range values {
		switch {
		case field == "display_name":
			record.DisplayName = raw
		case field == "avatar":
			record.Avatar = raw
		case field == "rating":
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, eris.Wrapf(storage.ErrCorruptRecord, "player %q rating %q is not numeric", userID, raw)
			}
			record.Rating = n
		case strings.HasPrefix(field, profFieldPrefix):
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, eris.Wrapf(storage.ErrCorruptRecord, "player %q proficiency %q is not numeric", userID, field)
			}
			if record.Proficiencies == nil {
				record.Proficiencies = map[string]int{}
			}
			record.Proficiencies[strings.TrimPrefix(field, profFieldPrefix)] = n
		}
	}
	return record, nil
}

func (r *PlayerStorage) SavePlayer(ctx context.Context, record *types.PlayerRecord) error {
	fields := playerFields(record)
	if err := r.Client.HSet(ctx, playerKey(r.Namespace, record.UserID), fields).Err(); err != nil {
		return wrapErr(err)
	}
	return nil
}

// EnsurePlayer writes the record only when no record exists yet. The
// rating field doubles as the existence marker.
func (r *PlayerStorage) EnsurePlayer(ctx context.Context, record *types.PlayerRecord) error {
	key := playerKey(r.Namespace, record.UserID)
	created, err := r.Client.HSetNX(ctx, key, "rating", record.Rating).Result()
	if err != nil {
		return wrapErr(err)
	}
	if !created {
		return nil
	}
	fields := playerFields(record)
	delete(fields, "rating")
	if len(fields) == 0 {
		return nil
	}
	if err := r.Client.HSet(ctx, key, fields).Err(); err != nil {
		return wrapErr(err)
	}
	return nil
}

func playerFields(record *types.PlayerRecord) map[string]any {
	fields := map[string]any{
		"rating": record.Rating,
	}
	if record.DisplayName != "" {
		fields["display_name"] = record.DisplayName
	}
	if record.Avatar != "" {
		fields["avatar"] = record.Avatar
	}
	for operation, value := range record.Proficiencies {
		fields[profFieldPrefix+operation] = value
	}
	return fields
}

// TeamStorage is the reference durable store for persistent teams.
type TeamStorage struct {
	Client    *redis.Client
	Namespace string
}

func NewTeamStorage(client *redis.Client, namespace string) TeamStorage {
	return TeamStorage{Client: client, Namespace: namespace}
}

func (r *TeamStorage) GetTeam(ctx context.Context, teamID string) (*types.TeamRecord, error) {
	values, err := r.Client.HGetAll(ctx, teamKey(r.Namespace, teamID)).Result()
	if err != nil {
		return nil, wrapErr(err)
	}
	if len(values) == 0 {
		return nil, storage.ErrNotFound
	}
	record := &types.TeamRecord{ID: teamID, Name: values["name"]}
	if raw, ok := values["rating"]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, eris.Wrapf(storage.ErrCorruptRecord, "team %q rating %q is not numeric", teamID, raw)
		}
		record.Rating = n
	}
	return record, nil
}

func (r *TeamStorage) SaveTeam(ctx context.Context, record *types.TeamRecord) error {
	fields := map[string]any{
		"rating": record.Rating,
	}
	if record.Name != "" {
		fields["name"] = record.Name
	}
	if err := r.Client.HSet(ctx, teamKey(r.Namespace, record.ID), fields).Err(); err != nil {
		return wrapErr(err)
	}
	return nil
}
