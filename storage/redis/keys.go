package redis

import (
	"fmt"

	"pkg.world.dev/scrim/types"
)

// All ephemeral and durable key shapes live here. The namespace
// prefixes every key so several engines can share one database.

func teamIndexKey(namespace string, matchType types.MatchType) string {
	return fmt.Sprintf("%s:queue:team:%s", namespace, matchType)
}

func teamEntryKey(namespace string, partyID string) string {
	return fmt.Sprintf("%s:queue:team:entry:%s", namespace, partyID)
}

func mateIndexKey(namespace string) string {
	return fmt.Sprintf("%s:queue:mate", namespace)
}

func mateEntryKey(namespace string, partyID string) string {
	return fmt.Sprintf("%s:queue:mate:entry:%s", namespace, partyID)
}

func rosterKey(namespace string, teamID string) string {
	return fmt.Sprintf("%s:roster:%s", namespace, teamID)
}

func rosterPartyKey(namespace string, partyID string) string {
	return fmt.Sprintf("%s:roster:by-party:%s", namespace, partyID)
}

func matchKey(namespace string, partyID string) string {
	return fmt.Sprintf("%s:match:%s", namespace, partyID)
}

func matchClaimKey(namespace string, partyID string) string {
	return fmt.Sprintf("%s:match:claim:%s", namespace, partyID)
}

func playerKey(namespace string, userID string) string {
	return fmt.Sprintf("%s:player:%s", namespace, userID)
}

func teamKey(namespace string, teamID string) string {
	return fmt.Sprintf("%s:team:%s", namespace, teamID)
}

func partyKey(namespace string, partyID string) string {
	return fmt.Sprintf("%s:party:%s", namespace, partyID)
}

func partyKeyPrefix(namespace string) string {
	return fmt.Sprintf("%s:party:", namespace)
}
