// Package handoff publishes engine outcomes to the external
// relay-match engine. Clients still learn everything by polling; these
// packets are a hand-off between engines, not a client push channel.
package handoff

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/scrim/codec"
	"pkg.world.dev/scrim/types"
)

const (
	SubjectMatchFound    = "match.team.found"
	SubjectTeamAssembled = "match.team.assembled"
)

// Notifier hands finished pairings and freshly assembled teams to
// downstream consumers.
type Notifier interface {
	MatchFound(ctx context.Context, result *types.TeamMatchResult) error
	TeamAssembled(ctx context.Context, team *types.AssembledTeam) error
}

// NatsNotifier publishes JSON packets on NATS subjects.
type NatsNotifier struct {
	conn *nats.Conn
	log  zerolog.Logger
}

func NewNatsNotifier(conn *nats.Conn) *NatsNotifier {
	return &NatsNotifier{
		conn: conn,
		log:  log.With().Str("component", "handoff").Logger(),
	}
}

func (n *NatsNotifier) MatchFound(_ context.Context, result *types.TeamMatchResult) error {
	bz, err := codec.Encode(result)
	if err != nil {
		return err
	}
	if err := n.conn.Publish(SubjectMatchFound, bz); err != nil {
		return eris.Wrap(err, "failed to publish match result")
	}
	n.log.Debug().Str("match_id", result.MatchID).Msg("published match hand-off")
	return nil
}

func (n *NatsNotifier) TeamAssembled(_ context.Context, team *types.AssembledTeam) error {
	bz, err := codec.Encode(team)
	if err != nil {
		return err
	}
	if err := n.conn.Publish(SubjectTeamAssembled, bz); err != nil {
		return eris.Wrap(err, "failed to publish assembled team")
	}
	n.log.Debug().Str("team_id", team.ID).Msg("published team assembly")
	return nil
}

// NopNotifier is the stand-in when NATS is not configured.
type NopNotifier struct{}

func (NopNotifier) MatchFound(context.Context, *types.TeamMatchResult) error  { return nil }
func (NopNotifier) TeamAssembled(context.Context, *types.AssembledTeam) error { return nil }
