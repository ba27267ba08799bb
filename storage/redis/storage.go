package redis

import (
	"context"
	"errors"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/scrim/storage"
)

type Storage struct {
	Namespace string
	Client    *redis.Client
	Log       zerolog.Logger
	QueueStorage
	RosterStorage
	MatchStorage
	PlayerStorage
	TeamStorage
	PartyStorage
}

type Options = redis.Options

func NewRedisStorage(options Options, namespace string) Storage {
	client := redis.NewClient(&options)
	return Storage{
		Namespace:     namespace,
		Client:        client,
		Log:           zerolog.New(os.Stdout),
		QueueStorage:  NewQueueStorage(client, namespace),
		RosterStorage: NewRosterStorage(client, namespace),
		MatchStorage:  NewMatchStorage(client, namespace),
		PlayerStorage: NewPlayerStorage(client, namespace),
		TeamStorage:   NewTeamStorage(client, namespace),
		PartyStorage:  NewPartyStorage(client, namespace),
	}
}

func (r *Storage) Ping(ctx context.Context) error {
	if err := r.Client.Ping(ctx).Err(); err != nil {
		return wrapErr(err)
	}
	return nil
}

func (r *Storage) Close() error {
	log.Info().Msg("Closing storage connection.")
	if err := r.Client.Close(); err != nil {
		return eris.Wrap(err, "")
	}
	log.Info().Msg("Successfully closed storage connection.")
	return nil
}

// wrapErr maps redis errors onto the storage sentinels: an absent key
// becomes ErrNotFound, everything else is an infrastructure failure.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if eris.Is(err, redis.Nil) {
		return storage.ErrNotFound
	}
	return eris.Wrap(errors.Join(storage.ErrUnavailable, err), "")
}
