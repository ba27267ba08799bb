package queue

import "errors"

var (
	// ErrNotQueued is returned by polls for parties with no live entry
	// and no pending result or roster.
	ErrNotQueued = errors.New("party is not queued")

	// ErrQueueTimeout is surfaced once a poll finds the configured
	// maximum queue duration exceeded; the entry is evicted first.
	ErrQueueTimeout = errors.New("queue wait exceeded the match timeout")

	ErrInvalidMatchType = errors.New("invalid match type")

	// ErrRankedRequiresFive rejects ranked enqueues without exactly
	// five ready members.
	ErrRankedRequiresFive = errors.New("ranked requires 5")

	// ErrRolesUnassigned rejects ranked enqueues without a distinct,
	// present IGL and Anchor.
	ErrRolesUnassigned = errors.New("ranked requires a distinct igl and anchor")

	// ErrPartyNotFull rejects full-party enqueues below five members.
	ErrPartyNotFull = errors.New("full-party queue requires five members")

	// ErrPartyFull rejects teammate enqueues of parties that already
	// field a full team.
	ErrPartyFull = errors.New("party already has a full team")
)
